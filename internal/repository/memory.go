package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"minitweet/internal/models"
	"minitweet/internal/observability"
)

// MemoryStore keeps the registry, follow graph and tweet log in process memory
// behind a single lock. Records handed out are copies.
type MemoryStore struct {
	mu sync.RWMutex

	users      map[uint]*models.User
	userOrder  []uint
	nextUserID uint

	tweets      []*models.Tweet
	tweetIndex  map[uint]*models.Tweet
	nextTweetID uint
}

// NewMemoryStore returns an empty store. Ids start at 1.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.reset()
	return s
}

func (s *MemoryStore) reset() {
	s.users = make(map[uint]*models.User)
	s.userOrder = nil
	s.nextUserID = 1
	s.tweets = nil
	s.tweetIndex = make(map[uint]*models.Tweet)
	s.nextTweetID = 1
}

// Close drops all state.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

type memoryUserRepository struct {
	s   *MemoryStore
	log *observability.RepoLogger
}

// NewMemoryUserRepository returns a UserRepository backed by store.
func NewMemoryUserRepository(store *MemoryStore) UserRepository {
	return &memoryUserRepository{s: store, log: observability.NewRepoLogger("users")}
}

func (r *memoryUserRepository) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := user.Clone()
	stored.ID = r.s.nextUserID
	r.s.nextUserID++
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.s.users[stored.ID] = stored
	r.s.userOrder = append(r.s.userOrder, stored.ID)

	user.ID = stored.ID
	user.CreatedAt = stored.CreatedAt
	r.log.LogCreate(ctx, map[string]any{"user_id": stored.ID})
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	return u.Clone(), nil
}

func (r *memoryUserRepository) Exists(_ context.Context, id uint) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.users[id]
	return ok, nil
}

func (r *memoryUserRepository) List(_ context.Context) ([]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.User, 0, len(r.s.userOrder))
	for _, id := range r.s.userOrder {
		out = append(out, r.s.users[id].Clone())
	}
	return out, nil
}

func (r *memoryUserRepository) UpdateProfile(ctx context.Context, id uint, name, email *string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	if name != nil {
		u.Name = *name
	}
	if email != nil {
		u.Email = *email
	}
	r.log.LogUpdate(ctx, map[string]any{"user_id": id})
	return u.Clone(), nil
}

func (r *memoryUserRepository) AddFollow(ctx context.Context, followerID, followeeID uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[followerID]
	if !ok {
		return nil, models.NewNotFoundError("User", followerID)
	}
	if u.FollowedIDs == nil {
		u.FollowedIDs = models.IDSet{}
		u.FollowStarted = true
	}
	u.FollowedIDs.Add(followeeID)
	r.log.LogUpdate(ctx, map[string]any{"user_id": followerID, "follow": followeeID})
	return u.Clone(), nil
}

func (r *memoryUserRepository) RemoveFollow(ctx context.Context, followerID, followeeID uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[followerID]
	if !ok {
		return nil, models.NewNotFoundError("User", followerID)
	}
	// A user that never followed anyone keeps a nil set.
	if u.FollowedIDs != nil {
		u.FollowedIDs.Remove(followeeID)
	}
	r.log.LogUpdate(ctx, map[string]any{"user_id": followerID, "unfollow": followeeID})
	return u.Clone(), nil
}

func (r *memoryUserRepository) FollowedSet(_ context.Context, id uint) (models.IDSet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	return u.FollowedSet(), nil
}

func (r *memoryUserRepository) Followers(_ context.Context, id uint) ([]uint, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.users[id]; !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	var out []uint
	for _, uid := range r.s.userOrder {
		if r.s.users[uid].FollowedIDs.Has(id) {
			out = append(out, uid)
		}
	}
	return out, nil
}

type memoryTweetRepository struct {
	s   *MemoryStore
	log *observability.RepoLogger
}

// NewMemoryTweetRepository returns a TweetRepository backed by store.
func NewMemoryTweetRepository(store *MemoryStore) TweetRepository {
	return &memoryTweetRepository{s: store, log: observability.NewRepoLogger("tweets")}
}

func (r *memoryTweetRepository) Append(ctx context.Context, tweet *models.Tweet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[tweet.UserID]; !ok {
		return models.NewNotFoundError("User", tweet.UserID)
	}

	stored := tweet.Clone()
	stored.ID = r.s.nextTweetID
	r.s.nextTweetID++
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.s.tweets = append(r.s.tweets, stored)
	r.s.tweetIndex[stored.ID] = stored

	tweet.ID = stored.ID
	tweet.CreatedAt = stored.CreatedAt
	tweet.Likes = models.IDSet{}
	r.log.LogCreate(ctx, map[string]any{"tweet_id": stored.ID, "user_id": stored.UserID})
	return nil
}

func (r *memoryTweetRepository) GetByID(_ context.Context, id uint) (*models.Tweet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tweetIndex[id]
	if !ok {
		return nil, models.NewNotFoundError("Tweet", id)
	}
	return t.Clone(), nil
}

func (r *memoryTweetRepository) DeleteFirstMatch(ctx context.Context, userID uint, body string) (*models.Tweet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	idx := slices.IndexFunc(r.s.tweets, func(t *models.Tweet) bool {
		return t.UserID == userID && t.Body == body
	})
	if idx < 0 {
		return nil, models.NewTweetNotFoundError()
	}
	return r.removeAt(ctx, idx), nil
}

func (r *memoryTweetRepository) DeleteByID(ctx context.Context, userID, tweetID uint) (*models.Tweet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	idx := slices.IndexFunc(r.s.tweets, func(t *models.Tweet) bool {
		return t.ID == tweetID && t.UserID == userID
	})
	if idx < 0 {
		return nil, models.NewTweetNotFoundError()
	}
	return r.removeAt(ctx, idx), nil
}

// removeAt must be called with the write lock held.
func (r *memoryTweetRepository) removeAt(ctx context.Context, idx int) *models.Tweet {
	t := r.s.tweets[idx]
	r.s.tweets = slices.Delete(r.s.tweets, idx, idx+1)
	delete(r.s.tweetIndex, t.ID)
	r.log.LogDelete(ctx, map[string]any{"tweet_id": t.ID, "user_id": t.UserID})
	return t.Clone()
}

func (r *memoryTweetRepository) All(_ context.Context) ([]*models.Tweet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Tweet, 0, len(r.s.tweets))
	for _, t := range r.s.tweets {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (r *memoryTweetRepository) ListByOwners(_ context.Context, owners models.IDSet) ([]*models.Tweet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Tweet, 0)
	for _, t := range r.s.tweets {
		if owners.Has(t.UserID) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (r *memoryTweetRepository) Like(ctx context.Context, tweetID, userID uint) (*models.Tweet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tweetIndex[tweetID]
	if !ok {
		return nil, models.NewNotFoundError("Tweet", tweetID)
	}
	if t.Likes == nil {
		t.Likes = models.IDSet{}
	}
	t.Likes.Add(userID)
	r.log.LogUpdate(ctx, map[string]any{"tweet_id": tweetID, "like": userID})
	return t.Clone(), nil
}

func (r *memoryTweetRepository) Unlike(ctx context.Context, tweetID, userID uint) (*models.Tweet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tweetIndex[tweetID]
	if !ok {
		return nil, models.NewNotFoundError("Tweet", tweetID)
	}
	t.Likes.Remove(userID)
	r.log.LogUpdate(ctx, map[string]any{"tweet_id": tweetID, "unlike": userID})
	return t.Clone(), nil
}
