package repository

import (
	"context"
	"errors"

	"minitweet/internal/models"
	"minitweet/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormTweetRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewGormTweetRepository returns a TweetRepository backed by db. Log order is
// id order; ids come from an AUTOINCREMENT column and are never reused.
func NewGormTweetRepository(db *gorm.DB) TweetRepository {
	return &gormTweetRepository{db: db, log: observability.NewRepoLogger("tweets")}
}

func (r *gormTweetRepository) Append(ctx context.Context, tweet *models.Tweet) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := userExists(tx, tweet.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return models.NewNotFoundError("User", tweet.UserID)
		}
		if err := tx.Create(tweet).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return r.fail(ctx, err, "create")
	}
	tweet.Likes = models.IDSet{}
	r.log.LogCreate(ctx, map[string]any{"tweet_id": tweet.ID, "user_id": tweet.UserID})
	return nil
}

func (r *gormTweetRepository) GetByID(ctx context.Context, id uint) (*models.Tweet, error) {
	t, err := getTweet(r.db.WithContext(ctx), "id = ?", id)
	if err != nil {
		if models.HasCode(err, models.CodeTweetNotFound) {
			return nil, models.NewNotFoundError("Tweet", id)
		}
		return nil, r.fail(ctx, err, "get")
	}
	return t, nil
}

func (r *gormTweetRepository) DeleteFirstMatch(ctx context.Context, userID uint, body string) (*models.Tweet, error) {
	return r.deleteWhere(ctx, "user_id = ? AND body = ?", userID, body)
}

func (r *gormTweetRepository) DeleteByID(ctx context.Context, userID, tweetID uint) (*models.Tweet, error) {
	return r.deleteWhere(ctx, "id = ? AND user_id = ?", tweetID, userID)
}

func (r *gormTweetRepository) deleteWhere(ctx context.Context, query string, args ...any) (*models.Tweet, error) {
	var removed *models.Tweet
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := getTweet(tx, query, args...)
		if err != nil {
			return err
		}
		if err := tx.Where("tweet_id = ?", t.ID).Delete(&models.Like{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Delete(&models.Tweet{}, t.ID).Error; err != nil {
			return models.NewInternalError(err)
		}
		removed = t
		return nil
	})
	if err != nil {
		return nil, r.fail(ctx, err, "delete")
	}
	r.log.LogDelete(ctx, map[string]any{"tweet_id": removed.ID, "user_id": removed.UserID})
	return removed, nil
}

func (r *gormTweetRepository) All(ctx context.Context) ([]*models.Tweet, error) {
	tweets := make([]*models.Tweet, 0)
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&tweets).Error; err != nil {
		return nil, r.fail(ctx, models.NewInternalError(err), "list")
	}
	if err := attachLikes(r.db.WithContext(ctx), tweets); err != nil {
		return nil, r.fail(ctx, err, "list")
	}
	return tweets, nil
}

func (r *gormTweetRepository) ListByOwners(ctx context.Context, owners models.IDSet) ([]*models.Tweet, error) {
	tweets := make([]*models.Tweet, 0)
	if owners.Len() == 0 {
		return tweets, nil
	}
	if err := r.db.WithContext(ctx).Where("user_id IN ?", owners.Sorted()).
		Order("id ASC").Find(&tweets).Error; err != nil {
		return nil, r.fail(ctx, models.NewInternalError(err), "list")
	}
	if err := attachLikes(r.db.WithContext(ctx), tweets); err != nil {
		return nil, r.fail(ctx, err, "list")
	}
	return tweets, nil
}

func (r *gormTweetRepository) Like(ctx context.Context, tweetID, userID uint) (*models.Tweet, error) {
	var liked *models.Tweet
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getTweet(tx, "id = ?", tweetID); err != nil {
			return err
		}
		like := models.Like{TweetID: tweetID, UserID: userID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
			return models.NewInternalError(err)
		}
		t, err := getTweet(tx, "id = ?", tweetID)
		liked = t
		return err
	})
	if err != nil {
		return nil, r.tweetFail(ctx, err, tweetID, "like")
	}
	r.log.LogUpdate(ctx, map[string]any{"tweet_id": tweetID, "like": userID})
	return liked, nil
}

func (r *gormTweetRepository) Unlike(ctx context.Context, tweetID, userID uint) (*models.Tweet, error) {
	var unliked *models.Tweet
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getTweet(tx, "id = ?", tweetID); err != nil {
			return err
		}
		if err := tx.Where("tweet_id = ? AND user_id = ?", tweetID, userID).
			Delete(&models.Like{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		t, err := getTweet(tx, "id = ?", tweetID)
		unliked = t
		return err
	})
	if err != nil {
		return nil, r.tweetFail(ctx, err, tweetID, "unlike")
	}
	r.log.LogUpdate(ctx, map[string]any{"tweet_id": tweetID, "unlike": userID})
	return unliked, nil
}

// tweetFail reports a missing tweet by id rather than as a delete miss.
func (r *gormTweetRepository) tweetFail(ctx context.Context, err error, tweetID uint, operation string) error {
	if models.HasCode(err, models.CodeTweetNotFound) {
		return models.NewNotFoundError("Tweet", tweetID)
	}
	return r.fail(ctx, err, operation)
}

func (r *gormTweetRepository) fail(ctx context.Context, err error, operation string) error {
	if models.HasCode(err, models.CodeInternal) {
		r.log.LogError(ctx, err, operation)
	}
	return err
}

// getTweet loads the earliest tweet matching query together with its likes.
func getTweet(db *gorm.DB, query string, args ...any) (*models.Tweet, error) {
	var t models.Tweet
	if err := db.Where(query, args...).Order("id ASC").First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewTweetNotFoundError()
		}
		return nil, models.NewInternalError(err)
	}
	if err := attachLikes(db, []*models.Tweet{&t}); err != nil {
		return nil, err
	}
	return &t, nil
}

func attachLikes(db *gorm.DB, tweets []*models.Tweet) error {
	if len(tweets) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(tweets))
	byID := make(map[uint]*models.Tweet, len(tweets))
	for _, t := range tweets {
		t.Likes = models.IDSet{}
		ids = append(ids, t.ID)
		byID[t.ID] = t
	}

	var likes []models.Like
	if err := db.Where("tweet_id IN ?", ids).Find(&likes).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, l := range likes {
		if t, ok := byID[l.TweetID]; ok {
			t.Likes.Add(l.UserID)
		}
	}
	return nil
}
