// Package service holds the business rules of the registry, follow graph,
// tweet log and timeline. Handlers call services; services call repositories.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"

	"minitweet/internal/cache"
	"minitweet/internal/models"
	"minitweet/internal/observability"
	"minitweet/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// UserService manages the user registry.
type UserService struct {
	userRepo   repository.UserRepository
	cache      *cache.Cache
	bcryptCost int
	profileTTL time.Duration
}

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// UserPatch is a partial profile update. Password and the id fields exist
// only so that an attempt to change them can be detected and rejected.
type UserPatch struct {
	Name     *string         `json:"name"`
	Email    *string         `json:"email"`
	Password json.RawMessage `json:"password"`
	ID       json.RawMessage `json:"id"`
	UserID   json.RawMessage `json:"user_id"`
}

// NewUserService returns a new UserService. profileCache may be nil.
func NewUserService(
	userRepo repository.UserRepository,
	profileCache *cache.Cache,
	bcryptCost int,
	profileTTL time.Duration,
) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if profileTTL <= 0 {
		profileTTL = cache.DefaultProfileTTL
	}
	return &UserService{
		userRepo:   userRepo,
		cache:      profileCache,
		bcryptCost: bcryptCost,
		profileTTL: profileTTL,
	}
}

// Register stores a new user under the next id. The password is kept only as
// a bcrypt hash. Sign-up accepts any password.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "UserService.Register")
	defer func() { observability.EndSpan(span, err) }()

	hash, err := hashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user = &models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("user.id", int(user.ID)))
	s.cache.InvalidateProfile(ctx, user.ID)
	observability.UsersRegistered.Inc()
	observability.Logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// GetProfile returns the public profile of id, served from Redis when cached.
func (s *UserService) GetProfile(ctx context.Context, id uint) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.cache.Aside(ctx, s.cache.ProfileKey(id), &profile, s.profileTTL, func() error {
		user, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		profile = user.Profile()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListProfiles returns every user's public profile in registration order.
func (s *UserService) ListProfiles(ctx context.Context) ([]models.UserProfile, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]models.UserProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	return profiles, nil
}

// UpdateUser applies patch to id. Attempts to change the password or the id
// are rejected and leave the record untouched.
func (s *UserService) UpdateUser(ctx context.Context, id uint, patch UserPatch) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "UserService.UpdateUser", attribute.Int("user.id", int(id)))
	defer func() { observability.EndSpan(span, err) }()

	if len(patch.Password) > 0 {
		return nil, models.NewValidationError("Password cannot be changed through profile update")
	}
	if len(patch.ID) > 0 || len(patch.UserID) > 0 {
		return nil, models.NewValidationError("User id cannot be changed")
	}

	user, err = s.userRepo.UpdateProfile(ctx, id, patch.Name, patch.Email)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateProfile(ctx, id)
	return user, nil
}

// hashPassword digests the password with SHA-256 before bcrypt so inputs
// longer than bcrypt's 72-byte limit are accepted without truncation.
func hashPassword(password string, cost int) ([]byte, error) {
	digest := sha256.Sum256([]byte(password))
	return bcrypt.GenerateFromPassword([]byte(base64.StdEncoding.EncodeToString(digest[:])), cost)
}
