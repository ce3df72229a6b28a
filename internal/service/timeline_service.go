package service

import (
	"context"

	"minitweet/internal/models"
	"minitweet/internal/observability"
	"minitweet/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// TimelineService assembles per-user timelines from the follow graph and the
// tweet log.
type TimelineService struct {
	userRepo  repository.UserRepository
	tweetRepo repository.TweetRepository
}

// NewTimelineService returns a new TimelineService.
func NewTimelineService(userRepo repository.UserRepository, tweetRepo repository.TweetRepository) *TimelineService {
	return &TimelineService{userRepo: userRepo, tweetRepo: tweetRepo}
}

// Timeline returns, in log order, the tweets written by userID or by anyone
// userID follows.
func (s *TimelineService) Timeline(ctx context.Context, userID uint) (timeline *models.Timeline, err error) {
	ctx, span := observability.StartSpan(ctx, "TimelineService.Timeline", attribute.Int("user.id", int(userID)))
	defer func() { observability.EndSpan(span, err) }()

	// FollowedSet hands back a copy, so adding self here never leaks into the
	// stored follow set.
	visible, err := s.userRepo.FollowedSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if visible == nil {
		visible = models.IDSet{}
	}
	visible.Add(userID)

	tweets, err := s.tweetRepo.ListByOwners(ctx, visible)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("timeline.size", len(tweets)))
	observability.TimelineSize.Observe(float64(len(tweets)))
	return &models.Timeline{UserID: userID, Timeline: tweets}, nil
}
