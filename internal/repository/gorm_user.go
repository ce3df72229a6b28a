package repository

import (
	"context"
	"errors"

	"minitweet/internal/models"
	"minitweet/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormUserRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewGormUserRepository returns a UserRepository backed by db.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *gormUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"user_id": user.ID})
	return nil
}

func (r *gormUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return r.getByID(r.db.WithContext(ctx), id)
}

// getByID runs on db so callers inside a transaction reuse its connection.
func (r *gormUserRepository) getByID(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	if user.FollowStarted {
		followed, err := followedIDs(db, id)
		if err != nil {
			return nil, err
		}
		user.FollowedIDs = followed
	}
	return &user, nil
}

func (r *gormUserRepository) Exists(ctx context.Context, id uint) (bool, error) {
	return userExists(r.db.WithContext(ctx), id)
}

func (r *gormUserRepository) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, models.NewInternalError(err)
	}

	var edges []models.Follow
	if err := r.db.WithContext(ctx).Order("follower_id ASC, followee_id ASC").Find(&edges).Error; err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, models.NewInternalError(err)
	}
	byFollower := make(map[uint]models.IDSet)
	for _, e := range edges {
		set, ok := byFollower[e.FollowerID]
		if !ok {
			set = models.IDSet{}
			byFollower[e.FollowerID] = set
		}
		set.Add(e.FolloweeID)
	}
	for _, u := range users {
		if !u.FollowStarted {
			continue
		}
		if set, ok := byFollower[u.ID]; ok {
			u.FollowedIDs = set
		} else {
			u.FollowedIDs = models.IDSet{}
		}
	}
	return users, nil
}

func (r *gormUserRepository) UpdateProfile(ctx context.Context, id uint, name, email *string) (*models.User, error) {
	var updated *models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.getByID(tx, id); err != nil {
			return err
		}
		updates := map[string]any{}
		if name != nil {
			updates["name"] = *name
		}
		if email != nil {
			updates["email"] = *email
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return models.NewInternalError(err)
			}
		}
		u, err := r.getByID(tx, id)
		if err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, r.fail(ctx, err, "update")
	}
	r.log.LogUpdate(ctx, map[string]any{"user_id": id})
	return updated, nil
}

func (r *gormUserRepository) AddFollow(ctx context.Context, followerID, followeeID uint) (*models.User, error) {
	var updated *models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.getByID(tx, followerID); err != nil {
			return err
		}
		edge := models.Follow{FollowerID: followerID, FolloweeID: followeeID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", followerID).
			Update("follow_started", true).Error; err != nil {
			return models.NewInternalError(err)
		}
		u, err := r.getByID(tx, followerID)
		if err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, r.fail(ctx, err, "follow")
	}
	r.log.LogUpdate(ctx, map[string]any{"user_id": followerID, "follow": followeeID})
	return updated, nil
}

func (r *gormUserRepository) RemoveFollow(ctx context.Context, followerID, followeeID uint) (*models.User, error) {
	var updated *models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.getByID(tx, followerID); err != nil {
			return err
		}
		if err := tx.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
			Delete(&models.Follow{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		u, err := r.getByID(tx, followerID)
		if err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, r.fail(ctx, err, "unfollow")
	}
	r.log.LogUpdate(ctx, map[string]any{"user_id": followerID, "unfollow": followeeID})
	return updated, nil
}

func (r *gormUserRepository) FollowedSet(ctx context.Context, id uint) (models.IDSet, error) {
	db := r.db.WithContext(ctx)
	ok, err := userExists(db, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	return followedIDs(db, id)
}

func (r *gormUserRepository) Followers(ctx context.Context, id uint) ([]uint, error) {
	db := r.db.WithContext(ctx)
	ok, err := userExists(db, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	var ids []uint
	if err := db.Model(&models.Follow{}).Where("followee_id = ?", id).
		Order("follower_id ASC").Pluck("follower_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// fail logs unexpected errors and passes the error through unchanged.
func (r *gormUserRepository) fail(ctx context.Context, err error, operation string) error {
	if models.HasCode(err, models.CodeInternal) {
		r.log.LogError(ctx, err, operation)
	}
	return err
}

func userExists(db *gorm.DB, id uint) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func followedIDs(db *gorm.DB, followerID uint) (models.IDSet, error) {
	var ids []uint
	if err := db.Model(&models.Follow{}).Where("follower_id = ?", followerID).
		Pluck("followee_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return models.NewIDSet(ids...), nil
}
