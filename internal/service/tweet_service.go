package service

import (
	"context"
	"unicode/utf8"

	"minitweet/internal/models"
	"minitweet/internal/notifications"
	"minitweet/internal/observability"
	"minitweet/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultMaxTweetLength is the body limit in characters.
const DefaultMaxTweetLength = 300

// TweetService manages the tweet log and like sets.
type TweetService struct {
	tweetRepo repository.TweetRepository
	userRepo  repository.UserRepository
	publisher EventPublisher
	maxLength int
}

// PostTweetInput is the payload for posting a tweet.
type PostTweetInput struct {
	UserID uint
	Body   string
}

// DeleteTweetInput selects a tweet to delete. When TweetID is set the tweet is
// matched by id, otherwise by exact body.
type DeleteTweetInput struct {
	UserID  uint
	TweetID uint
	Body    string
}

// NewTweetService returns a new TweetService. publisher may be nil; a
// non-positive maxLength selects DefaultMaxTweetLength.
func NewTweetService(
	tweetRepo repository.TweetRepository,
	userRepo repository.UserRepository,
	publisher EventPublisher,
	maxLength int,
) *TweetService {
	if maxLength <= 0 {
		maxLength = DefaultMaxTweetLength
	}
	return &TweetService{
		tweetRepo: tweetRepo,
		userRepo:  userRepo,
		publisher: publisher,
		maxLength: maxLength,
	}
}

// PostTweet appends a tweet for in.UserID and notifies that user's followers.
func (s *TweetService) PostTweet(ctx context.Context, in PostTweetInput) (tweet *models.Tweet, err error) {
	ctx, span := observability.StartSpan(ctx, "TweetService.PostTweet", attribute.Int("user.id", int(in.UserID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := requireUsers(ctx, s.userRepo, in.UserID); err != nil {
		observability.TweetsRejected.WithLabelValues("unknown_user").Inc()
		return nil, err
	}
	if utf8.RuneCountInString(in.Body) > s.maxLength {
		observability.TweetsRejected.WithLabelValues("too_long").Inc()
		return nil, models.NewTooLongError(s.maxLength)
	}

	tweet = &models.Tweet{UserID: in.UserID, Body: in.Body}
	if err := s.tweetRepo.Append(ctx, tweet); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("tweet.id", int(tweet.ID)))
	observability.TweetsPosted.Inc()

	s.notifyFollowers(ctx, in.UserID, notifications.Event{
		Type:    notifications.EventTweetPosted,
		TweetID: tweet.ID,
		UserID:  tweet.UserID,
		Tweet:   tweet.Body,
	})
	return tweet, nil
}

// DeleteTweet removes one tweet owned by in.UserID. A tweet owned by someone
// else never matches.
func (s *TweetService) DeleteTweet(ctx context.Context, in DeleteTweetInput) (tweet *models.Tweet, err error) {
	ctx, span := observability.StartSpan(ctx, "TweetService.DeleteTweet", attribute.Int("user.id", int(in.UserID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := requireUsers(ctx, s.userRepo, in.UserID); err != nil {
		return nil, err
	}

	match := "body"
	if in.TweetID != 0 {
		match = "id"
		tweet, err = s.tweetRepo.DeleteByID(ctx, in.UserID, in.TweetID)
	} else {
		tweet, err = s.tweetRepo.DeleteFirstMatch(ctx, in.UserID, in.Body)
	}
	if err != nil {
		return nil, err
	}
	observability.TweetsDeleted.WithLabelValues(match).Inc()

	s.notifyFollowers(ctx, in.UserID, notifications.Event{
		Type:    notifications.EventTweetDeleted,
		TweetID: tweet.ID,
		UserID:  tweet.UserID,
	})
	return tweet, nil
}

// ListTweets returns the whole log in log order.
func (s *TweetService) ListTweets(ctx context.Context) ([]*models.Tweet, error) {
	return s.tweetRepo.All(ctx)
}

// GetTweet returns the point-lookup view of tweetID.
func (s *TweetService) GetTweet(ctx context.Context, tweetID uint) (*models.TweetDetail, error) {
	tweet, err := s.tweetRepo.GetByID(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	detail := tweet.Detail()
	return &detail, nil
}

// LikeTweet adds userID to the tweet's like set. Liking twice is a no-op.
func (s *TweetService) LikeTweet(ctx context.Context, tweetID, userID uint) (tweet *models.Tweet, err error) {
	ctx, span := observability.StartSpan(ctx, "TweetService.LikeTweet", attribute.Int("tweet.id", int(tweetID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := requireUsers(ctx, s.userRepo, userID); err != nil {
		return nil, err
	}
	tweet, err = s.tweetRepo.Like(ctx, tweetID, userID)
	if err != nil {
		return nil, err
	}
	observability.LikeEvents.WithLabelValues("like").Inc()
	return tweet, nil
}

// UnlikeTweet removes userID from the tweet's like set. Unliking a tweet that
// was not liked is a no-op.
func (s *TweetService) UnlikeTweet(ctx context.Context, tweetID, userID uint) (tweet *models.Tweet, err error) {
	ctx, span := observability.StartSpan(ctx, "TweetService.UnlikeTweet", attribute.Int("tweet.id", int(tweetID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := requireUsers(ctx, s.userRepo, userID); err != nil {
		return nil, err
	}
	tweet, err = s.tweetRepo.Unlike(ctx, tweetID, userID)
	if err != nil {
		return nil, err
	}
	observability.LikeEvents.WithLabelValues("unlike").Inc()
	return tweet, nil
}

// notifyFollowers is best-effort: a delivery failure never fails the write.
func (s *TweetService) notifyFollowers(ctx context.Context, authorID uint, event notifications.Event) {
	if s.publisher == nil {
		return
	}
	followers, err := s.userRepo.Followers(ctx, authorID)
	if err != nil {
		observability.Logger.WarnContext(ctx, "failed to load followers", "user_id", authorID, "error", err)
		return
	}
	if err := s.publisher.PublishEvent(ctx, followers, event); err != nil {
		observability.Logger.WarnContext(ctx, "failed to publish tweet event", "user_id", authorID, "error", err)
	}
}
