package service

import (
	"context"
	"sync"

	"minitweet/internal/models"
	"minitweet/internal/notifications"
	"minitweet/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

type userRepoStub struct {
	createFn        func(context.Context, *models.User) error
	getByIDFn       func(context.Context, uint) (*models.User, error)
	existsFn        func(context.Context, uint) (bool, error)
	listFn          func(context.Context) ([]*models.User, error)
	updateProfileFn func(context.Context, uint, *string, *string) (*models.User, error)
	addFollowFn     func(context.Context, uint, uint) (*models.User, error)
	removeFollowFn  func(context.Context, uint, uint) (*models.User, error)
	followedSetFn   func(context.Context, uint) (models.IDSet, error)
	followersFn     func(context.Context, uint) ([]uint, error)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *userRepoStub) List(ctx context.Context) ([]*models.User, error) {
	return s.listFn(ctx)
}
func (s *userRepoStub) UpdateProfile(ctx context.Context, id uint, name, email *string) (*models.User, error) {
	return s.updateProfileFn(ctx, id, name, email)
}
func (s *userRepoStub) AddFollow(ctx context.Context, followerID, followeeID uint) (*models.User, error) {
	return s.addFollowFn(ctx, followerID, followeeID)
}
func (s *userRepoStub) RemoveFollow(ctx context.Context, followerID, followeeID uint) (*models.User, error) {
	return s.removeFollowFn(ctx, followerID, followeeID)
}
func (s *userRepoStub) FollowedSet(ctx context.Context, id uint) (models.IDSet, error) {
	return s.followedSetFn(ctx, id)
}
func (s *userRepoStub) Followers(ctx context.Context, id uint) ([]uint, error) {
	return s.followersFn(ctx, id)
}

type tweetRepoStub struct {
	appendFn           func(context.Context, *models.Tweet) error
	getByIDFn          func(context.Context, uint) (*models.Tweet, error)
	deleteFirstMatchFn func(context.Context, uint, string) (*models.Tweet, error)
	deleteByIDFn       func(context.Context, uint, uint) (*models.Tweet, error)
	allFn              func(context.Context) ([]*models.Tweet, error)
	listByOwnersFn     func(context.Context, models.IDSet) ([]*models.Tweet, error)
	likeFn             func(context.Context, uint, uint) (*models.Tweet, error)
	unlikeFn           func(context.Context, uint, uint) (*models.Tweet, error)
}

func (s *tweetRepoStub) Append(ctx context.Context, tweet *models.Tweet) error {
	return s.appendFn(ctx, tweet)
}
func (s *tweetRepoStub) GetByID(ctx context.Context, id uint) (*models.Tweet, error) {
	return s.getByIDFn(ctx, id)
}
func (s *tweetRepoStub) DeleteFirstMatch(ctx context.Context, userID uint, body string) (*models.Tweet, error) {
	return s.deleteFirstMatchFn(ctx, userID, body)
}
func (s *tweetRepoStub) DeleteByID(ctx context.Context, userID, tweetID uint) (*models.Tweet, error) {
	return s.deleteByIDFn(ctx, userID, tweetID)
}
func (s *tweetRepoStub) All(ctx context.Context) ([]*models.Tweet, error) {
	return s.allFn(ctx)
}
func (s *tweetRepoStub) ListByOwners(ctx context.Context, owners models.IDSet) ([]*models.Tweet, error) {
	return s.listByOwnersFn(ctx, owners)
}
func (s *tweetRepoStub) Like(ctx context.Context, tweetID, userID uint) (*models.Tweet, error) {
	return s.likeFn(ctx, tweetID, userID)
}
func (s *tweetRepoStub) Unlike(ctx context.Context, tweetID, userID uint) (*models.Tweet, error) {
	return s.unlikeFn(ctx, tweetID, userID)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createFn:  func(context.Context, *models.User) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		existsFn:  func(context.Context, uint) (bool, error) { return true, nil },
		listFn:    func(context.Context) ([]*models.User, error) { return nil, nil },
		updateProfileFn: func(_ context.Context, id uint, _, _ *string) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
		addFollowFn:    func(_ context.Context, id, _ uint) (*models.User, error) { return &models.User{ID: id}, nil },
		removeFollowFn: func(_ context.Context, id, _ uint) (*models.User, error) { return &models.User{ID: id}, nil },
		followedSetFn:  func(context.Context, uint) (models.IDSet, error) { return models.IDSet{}, nil },
		followersFn:    func(context.Context, uint) ([]uint, error) { return nil, nil },
	}
}

func noopTweetRepo() *tweetRepoStub {
	return &tweetRepoStub{
		appendFn:  func(context.Context, *models.Tweet) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Tweet, error) { return &models.Tweet{ID: id}, nil },
		deleteFirstMatchFn: func(_ context.Context, userID uint, body string) (*models.Tweet, error) {
			return &models.Tweet{UserID: userID, Body: body}, nil
		},
		deleteByIDFn: func(_ context.Context, userID, tweetID uint) (*models.Tweet, error) {
			return &models.Tweet{ID: tweetID, UserID: userID}, nil
		},
		allFn:          func(context.Context) ([]*models.Tweet, error) { return nil, nil },
		listByOwnersFn: func(context.Context, models.IDSet) ([]*models.Tweet, error) { return nil, nil },
		likeFn:         func(_ context.Context, id, _ uint) (*models.Tweet, error) { return &models.Tweet{ID: id}, nil },
		unlikeFn:       func(_ context.Context, id, _ uint) (*models.Tweet, error) { return &models.Tweet{ID: id}, nil },
	}
}

type publishedEvent struct {
	recipients []uint
	event      notifications.Event
}

type publisherStub struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *publisherStub) PublishEvent(_ context.Context, recipients []uint, event notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{recipients: recipients, event: event})
	return p.err
}

func (p *publisherStub) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

// memoryServices wires every service over one fresh memory store.
type memoryServices struct {
	users     *UserService
	follows   *FollowService
	tweets    *TweetService
	timelines *TimelineService
	userRepo  repository.UserRepository
	tweetRepo repository.TweetRepository
}

func newMemoryServices() *memoryServices {
	store := repository.NewMemoryStore()
	userRepo := repository.NewMemoryUserRepository(store)
	tweetRepo := repository.NewMemoryTweetRepository(store)
	return &memoryServices{
		users:     NewUserService(userRepo, nil, bcrypt.MinCost, 0),
		follows:   NewFollowService(userRepo, nil),
		tweets:    NewTweetService(tweetRepo, userRepo, nil, 0),
		timelines: NewTimelineService(userRepo, tweetRepo),
		userRepo:  userRepo,
		tweetRepo: tweetRepo,
	}
}
