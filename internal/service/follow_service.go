package service

import (
	"context"

	"minitweet/internal/models"
	"minitweet/internal/notifications"
	"minitweet/internal/observability"
	"minitweet/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// EventPublisher delivers events to user channels. *notifications.Notifier
// satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, recipients []uint, event notifications.Event) error
}

// FollowService maintains the follow graph.
type FollowService struct {
	userRepo  repository.UserRepository
	publisher EventPublisher
}

// NewFollowService returns a new FollowService. publisher may be nil.
func NewFollowService(userRepo repository.UserRepository, publisher EventPublisher) *FollowService {
	return &FollowService{userRepo: userRepo, publisher: publisher}
}

// Follow adds followeeID to followerID's followed set. Following an already
// followed user is a no-op.
func (s *FollowService) Follow(ctx context.Context, followerID, followeeID uint) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "FollowService.Follow",
		attribute.Int("follower.id", int(followerID)),
		attribute.Int("followee.id", int(followeeID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if followerID == followeeID {
		return nil, models.NewSelfFollowError()
	}
	if err := s.requireUsers(ctx, followerID, followeeID); err != nil {
		return nil, err
	}

	user, err = s.userRepo.AddFollow(ctx, followerID, followeeID)
	if err != nil {
		return nil, err
	}
	observability.FollowEvents.WithLabelValues("follow").Inc()

	if s.publisher != nil {
		event := notifications.Event{Type: notifications.EventFollowed, UserID: followerID}
		if perr := s.publisher.PublishEvent(ctx, []uint{followeeID}, event); perr != nil {
			observability.Logger.WarnContext(ctx, "failed to publish follow event", "error", perr)
		}
	}
	return user, nil
}

// Unfollow removes followeeID from followerID's followed set. Removing an id
// that is not followed is a no-op.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID uint) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "FollowService.Unfollow",
		attribute.Int("follower.id", int(followerID)),
		attribute.Int("followee.id", int(followeeID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err := s.requireUsers(ctx, followerID, followeeID); err != nil {
		return nil, err
	}

	user, err = s.userRepo.RemoveFollow(ctx, followerID, followeeID)
	if err != nil {
		return nil, err
	}
	observability.FollowEvents.WithLabelValues("unfollow").Inc()
	return user, nil
}

// FollowedSet returns an owned copy of the ids userID follows.
func (s *FollowService) FollowedSet(ctx context.Context, userID uint) (models.IDSet, error) {
	return s.userRepo.FollowedSet(ctx, userID)
}

func (s *FollowService) requireUsers(ctx context.Context, ids ...uint) error {
	return requireUsers(ctx, s.userRepo, ids...)
}

// requireUsers fails with a not-found error naming the first unknown id.
func requireUsers(ctx context.Context, repo repository.UserRepository, ids ...uint) error {
	for _, id := range ids {
		ok, err := repo.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return models.NewNotFoundError("User", id)
		}
	}
	return nil
}
