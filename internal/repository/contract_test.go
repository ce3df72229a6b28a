package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"minitweet/internal/database"
	"minitweet/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	name string
	open func(t *testing.T) (UserRepository, TweetRepository)
}

var dbCounter atomic.Int64

func backends() []backend {
	return []backend{
		{
			name: "memory",
			open: func(t *testing.T) (UserRepository, TweetRepository) {
				store := NewMemoryStore()
				t.Cleanup(func() { _ = store.Close() })
				return NewMemoryUserRepository(store), NewMemoryTweetRepository(store)
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) (UserRepository, TweetRepository) {
				db, err := database.OpenMemory(fmt.Sprintf("repo_contract_%d", dbCounter.Add(1)))
				require.NoError(t, err)
				t.Cleanup(func() { _ = database.Close(db) })
				return NewGormUserRepository(db), NewGormTweetRepository(db)
			},
		},
	}
}

// forEachBackend runs fn against a fresh store of every kind.
func forEachBackend(t *testing.T, fn func(t *testing.T, users UserRepository, tweets TweetRepository)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			users, tweets := b.open(t)
			fn(t, users, tweets)
		})
	}
}

func newUser(t *testing.T, repo UserRepository) *models.User {
	t.Helper()
	u := &models.User{Name: gofakeit.Name(), Email: gofakeit.Email(), Password: "hash"}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, users UserRepository, _ TweetRepository) {
		ctx := context.Background()
		var prev uint
		for i := 0; i < 5; i++ {
			u := newUser(t, users)
			assert.Equal(t, prev+1, u.ID)
			prev = u.ID

			got, err := users.GetByID(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, u.Name, got.Name)
			assert.Equal(t, u.Email, got.Email)
			assert.Equal(t, "hash", got.Password)
			assert.Nil(t, got.FollowedIDs)
		}

		_, err := users.GetByID(ctx, 99)
		assert.True(t, models.HasCode(err, models.CodeNotFound))

		ok, err := users.Exists(ctx, 1)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = users.Exists(ctx, 99)
		require.NoError(t, err)
		assert.False(t, ok)

		list, err := users.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 5)
		for i, u := range list {
			assert.Equal(t, uint(i+1), u.ID)
		}
	})
}

func TestUserRepository_CallerCannotMutateStoredUser(t *testing.T) {
	forEachBackend(t, func(t *testing.T, users UserRepository, _ TweetRepository) {
		ctx := context.Background()
		a, b := newUser(t, users), newUser(t, users)
		_, err := users.AddFollow(ctx, a.ID, b.ID)
		require.NoError(t, err)

		got, err := users.GetByID(ctx, a.ID)
		require.NoError(t, err)
		got.Name = "changed"
		got.FollowedIDs.Add(a.ID)

		again, err := users.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.Name, again.Name)
		assert.Equal(t, []uint{b.ID}, again.FollowedIDs.Sorted())
	})
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	forEachBackend(t, func(t *testing.T, users UserRepository, _ TweetRepository) {
		ctx := context.Background()
		u := newUser(t, users)

		name := "Bob"
		updated, err := users.UpdateProfile(ctx, u.ID, &name, nil)
		require.NoError(t, err)
		assert.Equal(t, "Bob", updated.Name)
		assert.Equal(t, u.Email, updated.Email)

		email := "bob@x.com"
		updated, err = users.UpdateProfile(ctx, u.ID, nil, &email)
		require.NoError(t, err)
		assert.Equal(t, "Bob", updated.Name)
		assert.Equal(t, "bob@x.com", updated.Email)
		assert.Equal(t, "hash", updated.Password)

		_, err = users.UpdateProfile(ctx, 42, &name, nil)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}

func TestUserRepository_FollowGraph(t *testing.T) {
	forEachBackend(t, func(t *testing.T, users UserRepository, _ TweetRepository) {
		ctx := context.Background()
		a, b, c := newUser(t, users), newUser(t, users), newUser(t, users)

		set, err := users.FollowedSet(ctx, a.ID)
		require.NoError(t, err)
		assert.NotNil(t, set)
		assert.Equal(t, 0, set.Len())

		u, err := users.RemoveFollow(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.Nil(t, u.FollowedIDs)

		for i := 0; i < 2; i++ {
			u, err = users.AddFollow(ctx, a.ID, b.ID)
			require.NoError(t, err)
		}
		u, err = users.AddFollow(ctx, a.ID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{b.ID, c.ID}, u.FollowedIDs.Sorted())

		_, err = users.AddFollow(ctx, c.ID, b.ID)
		require.NoError(t, err)
		followers, err := users.Followers(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{a.ID, c.ID}, followers)

		u, err = users.RemoveFollow(ctx, a.ID, b.ID)
		require.NoError(t, err)
		u, err = users.RemoveFollow(ctx, a.ID, c.ID)
		require.NoError(t, err)
		assert.NotNil(t, u.FollowedIDs, "follow list stays present once started")
		assert.Equal(t, 0, u.FollowedIDs.Len())

		list, err := users.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, list[0].FollowedIDs)
		assert.Nil(t, list[1].FollowedIDs)
		assert.Equal(t, []uint{b.ID}, list[2].FollowedIDs.Sorted())

		_, err = users.AddFollow(ctx, 99, a.ID)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
		_, err = users.FollowedSet(ctx, 99)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
		_, err = users.Followers(ctx, 99)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}

func TestTweetRepository_AppendAndOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, users UserRepository, tweets TweetRepository) {
		ctx := context.Background()
		a, b := newUser(t, users), newUser(t, users)

		err := tweets.Append(ctx, &models.Tweet{UserID: 99, Body: "ghost"})
		assert.True(t, models.HasCode(err, models.CodeNotFound))

		var ids []uint
		for i, owner := range []uint{a.ID, b.ID, a.ID} {
			tw := &models.Tweet{UserID: owner, Body: fmt.Sprintf("t%d", i)}
			require.NoError(t, tweets.Append(ctx, tw))
			assert.NotNil(t, tw.Likes)
			ids = append(ids, tw.ID)
		}
		assert.Equal(t, []uint{1, 2, 3}, ids)

		all, err := tweets.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		for i, tw := range all {
			assert.Equal(t, ids[i], tw.ID)
		}

		owned, err := tweets.ListByOwners(ctx, models.NewIDSet(a.ID))
		require.NoError(t, err)
		require.Len(t, owned, 2)
		assert.Equal(t, "t0", owned[0].Body)
		assert.Equal(t, "t2", owned[1].Body)

		none, err := tweets.ListByOwners(ctx, models.IDSet{})
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})
}

func TestTweetRepository_Delete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, users UserRepository, tweets TweetRepository) {
		ctx := context.Background()
		a, b := newUser(t, users), newUser(t, users)

		first := &models.Tweet{UserID: a.ID, Body: "dup"}
		second := &models.Tweet{UserID: a.ID, Body: "dup"}
		require.NoError(t, tweets.Append(ctx, first))
		require.NoError(t, tweets.Append(ctx, second))

		_, err := tweets.DeleteFirstMatch(ctx, b.ID, "dup")
		assert.True(t, models.HasCode(err, models.CodeTweetNotFound))

		removed, err := tweets.DeleteFirstMatch(ctx, a.ID, "dup")
		require.NoError(t, err)
		assert.Equal(t, first.ID, removed.ID)

		_, err = tweets.DeleteByID(ctx, b.ID, second.ID)
		assert.True(t, models.HasCode(err, models.CodeTweetNotFound))
		_, err = tweets.DeleteByID(ctx, a.ID, first.ID)
		assert.True(t, models.HasCode(err, models.CodeTweetNotFound))

		removed, err = tweets.DeleteByID(ctx, a.ID, second.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, removed.ID)

		all, err := tweets.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		third := &models.Tweet{UserID: a.ID, Body: "after"}
		require.NoError(t, tweets.Append(ctx, third))
		assert.Greater(t, third.ID, second.ID, "tweet ids are never reused")

		_, err = tweets.GetByID(ctx, second.ID)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}

func TestTweetRepository_Likes(t *testing.T) {
	forEachBackend(t, func(t *testing.T, users UserRepository, tweets TweetRepository) {
		ctx := context.Background()
		a, b := newUser(t, users), newUser(t, users)
		tw := &models.Tweet{UserID: a.ID, Body: "like"}
		require.NoError(t, tweets.Append(ctx, tw))

		for i := 0; i < 2; i++ {
			got, err := tweets.Like(ctx, tw.ID, b.ID)
			require.NoError(t, err)
			assert.Equal(t, []uint{b.ID}, got.Likes.Sorted())
		}
		got, err := tweets.Like(ctx, tw.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{a.ID, b.ID}, got.Likes.Sorted())

		fetched, err := tweets.GetByID(ctx, tw.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, fetched.Detail().LikeCount)

		got, err = tweets.Unlike(ctx, tw.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{a.ID}, got.Likes.Sorted())
		got, err = tweets.Unlike(ctx, tw.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{a.ID}, got.Likes.Sorted())

		all, err := tweets.All(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uint{a.ID}, all[0].Likes.Sorted())

		_, err = tweets.Like(ctx, 99, a.ID)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
		_, err = tweets.Unlike(ctx, 99, a.ID)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}

func TestRepositories_ConcurrentWrites(t *testing.T) {
	forEachBackend(t, func(t *testing.T, users UserRepository, tweets TweetRepository) {
		ctx := context.Background()
		owner := newUser(t, users)

		const workers = 8
		const perWorker = 10
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					u := &models.User{Name: "n", Email: "e", Password: "p"}
					assert.NoError(t, users.Create(ctx, u))
					assert.NoError(t, tweets.Append(ctx, &models.Tweet{UserID: owner.ID, Body: "x"}))
					_, err := users.AddFollow(ctx, u.ID, owner.ID)
					assert.NoError(t, err)
				}
			}()
		}
		wg.Wait()

		list, err := users.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, workers*perWorker+1)
		seen := map[uint]bool{}
		for _, u := range list {
			assert.False(t, seen[u.ID])
			seen[u.ID] = true
		}

		all, err := tweets.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, workers*perWorker)

		followers, err := users.Followers(ctx, owner.ID)
		require.NoError(t, err)
		assert.Len(t, followers, workers*perWorker)
	})
}
