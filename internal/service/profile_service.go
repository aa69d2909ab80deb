package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/teacher-dashboard-api/pkg/errors"
)

type profileRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id, fullName string, updatedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UpdateProfileRequest payload for editing the signed-in teacher.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,max=120"`
}

// ProfileService serves the signed-in teacher's own account.
type ProfileService struct {
	repo      profileRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService creates an instance of ProfileService.
func NewProfileService(repo profileRepository, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ProfileService{repo: repo, validator: validate, logger: logger}
}

// Get returns the profile of userID.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	profile := models.ProfileFromUser(user)
	return &profile, nil
}

// Update changes the display name and returns the refreshed profile.
func (s *ProfileService) Update(ctx context.Context, userID string, req UpdateProfileRequest, meta models.RequestMeta) (*models.Profile, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	if err := s.repo.UpdateProfile(ctx, userID, req.FullName, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"full_name": req.FullName})
	recordAudit(ctx, s.repo, s.logger, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionProfileUpdate,
		Resource:   "users",
		ResourceID: &userID,
		NewValues:  newPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})

	return s.Get(ctx, userID)
}
