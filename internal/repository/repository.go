// Package repository implements the data access layer for the application.
//
// Two backends satisfy the same interfaces: an in-process memory store and a
// GORM store over an in-memory SQLite database. Neither outlives the process.
package repository

import (
	"context"

	"minitweet/internal/models"
)

// UserRepository holds the user registry and the follow graph stored on it.
type UserRepository interface {
	// Create assigns the next user id and stores the record.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	Exists(ctx context.Context, id uint) (bool, error)
	// List returns users in registration order.
	List(ctx context.Context) ([]*models.User, error)
	// UpdateProfile applies a partial name/email update. Nil fields are left alone.
	UpdateProfile(ctx context.Context, id uint, name, email *string) (*models.User, error)

	AddFollow(ctx context.Context, followerID, followeeID uint) (*models.User, error)
	RemoveFollow(ctx context.Context, followerID, followeeID uint) (*models.User, error)
	// FollowedSet returns an owned copy of the user's followed ids.
	FollowedSet(ctx context.Context, id uint) (models.IDSet, error)
	// Followers returns the ids of users following id, ascending.
	Followers(ctx context.Context, id uint) ([]uint, error)
}

// TweetRepository holds the ordered tweet log.
type TweetRepository interface {
	// Append assigns the next tweet id and appends the tweet to the log.
	Append(ctx context.Context, tweet *models.Tweet) error
	GetByID(ctx context.Context, id uint) (*models.Tweet, error)
	// DeleteFirstMatch removes the earliest tweet owned by userID whose body equals body.
	DeleteFirstMatch(ctx context.Context, userID uint, body string) (*models.Tweet, error)
	// DeleteByID removes tweetID if it is owned by userID.
	DeleteByID(ctx context.Context, userID, tweetID uint) (*models.Tweet, error)
	// All returns the whole log in log order.
	All(ctx context.Context) ([]*models.Tweet, error)
	// ListByOwners returns, in log order, the tweets whose owner is in owners.
	ListByOwners(ctx context.Context, owners models.IDSet) ([]*models.Tweet, error)
	Like(ctx context.Context, tweetID, userID uint) (*models.Tweet, error)
	Unlike(ctx context.Context, tweetID, userID uint) (*models.Tweet, error)
}
