// Package seed fills a fresh store with demo users, follows and tweets for
// development. Everything goes through the services, so seeded data obeys the
// same rules as data created over HTTP.
package seed

import (
	"context"
	"fmt"
	"log"
	"unicode/utf8"

	"minitweet/internal/models"
	"minitweet/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// Options configuration for the seeder
type Options struct {
	NumUsers       int
	TweetsPerUser  int
	FollowsPerUser int
	// MaxTweetLength clips generated bodies. Zero means service.DefaultMaxTweetLength.
	MaxTweetLength int
	// Seed makes the generated data reproducible. Zero picks a random seed.
	Seed int64
}

// Services are the write paths the seeder drives.
type Services struct {
	Users   *service.UserService
	Follows *service.FollowService
	Tweets  *service.TweetService
}

// Result summarizes what was created.
type Result struct {
	Users   []*models.User
	Follows int
	Tweets  int
}

// Run creates opts.NumUsers users, then follow edges, then tweets in
// round-robin order so timelines interleave authors.
func Run(ctx context.Context, svc Services, opts Options) (*Result, error) {
	if opts.NumUsers <= 0 {
		return &Result{}, nil
	}
	maxLen := opts.MaxTweetLength
	if maxLen <= 0 {
		maxLen = service.DefaultMaxTweetLength
	}
	faker := gofakeit.New(opts.Seed)
	res := &Result{Users: make([]*models.User, 0, opts.NumUsers)}

	for i := 0; i < opts.NumUsers; i++ {
		u, err := svc.Users.Register(ctx, service.RegisterInput{
			Name:     faker.Name(),
			Email:    faker.Email(),
			Password: faker.Password(true, true, true, false, false, 12),
		})
		if err != nil {
			return res, fmt.Errorf("seed user %d: %w", i+1, err)
		}
		res.Users = append(res.Users, u)
	}

	follows := max(0, min(opts.FollowsPerUser, opts.NumUsers-1))
	for i, u := range res.Users {
		offs := offsets(opts.NumUsers)
		faker.ShuffleAnySlice(offs)
		for _, off := range offs[:follows] {
			target := res.Users[(i+off)%opts.NumUsers]
			if _, err := svc.Follows.Follow(ctx, u.ID, target.ID); err != nil {
				return res, fmt.Errorf("seed follow %d -> %d: %w", u.ID, target.ID, err)
			}
			res.Follows++
		}
	}

	for round := 0; round < opts.TweetsPerUser; round++ {
		for _, u := range res.Users {
			body := clip(faker.Sentence(faker.Number(3, 20)), maxLen)
			if _, err := svc.Tweets.PostTweet(ctx, service.PostTweetInput{UserID: u.ID, Body: body}); err != nil {
				return res, fmt.Errorf("seed tweet for %d: %w", u.ID, err)
			}
			res.Tweets++
		}
	}

	log.Printf("Seeded %d users, %d follows, %d tweets", len(res.Users), res.Follows, res.Tweets)
	return res, nil
}

// offsets returns 1..n-1, the distances to every other user.
func offsets(n int) []int {
	out := make([]int, 0, n-1)
	for i := 1; i < n; i++ {
		out = append(out, i)
	}
	return out
}

func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
