package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/van-fee-api/internal/models"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
)

type schoolRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.SchoolSummary, error)
	FindByName(ctx context.Context, ownerID, name string) (*models.School, error)
	Create(ctx context.Context, school *models.School) error
	DeleteCascade(ctx context.Context, ownerID, id string) (int64, error)
}

// SchoolService handles school use-cases.
type SchoolService struct {
	repo      schoolRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolService constructs the school service.
func NewSchoolService(repo schoolRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns the owner's schools with student counts.
func (s *SchoolService) List(ctx context.Context, ownerID string) ([]models.SchoolSummary, error) {
	schools, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	if schools == nil {
		schools = []models.SchoolSummary{}
	}
	return schools, nil
}

// Create adds a school for the owner. Names are unique per owner, ignoring case.
func (s *SchoolService) Create(ctx context.Context, ownerID string, req models.CreateSchoolRequest) (*models.School, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}

	existing, err := s.repo.FindByName(ctx, ownerID, req.Name)
	switch {
	case err == nil && existing != nil:
		return nil, appErrors.Clone(appErrors.ErrConflict, "a school with this name already exists")
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check school name")
	}

	school := &models.School{OwnerID: ownerID, Name: req.Name}
	if err := s.repo.Create(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}
	s.cache.InvalidateOwner(ctx, ownerID)
	return school, nil
}

// Delete removes the school and all of its students.
func (s *SchoolService) Delete(ctx context.Context, ownerID, id string) error {
	removed, err := s.repo.DeleteCascade(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete school")
	}
	s.cache.InvalidateOwner(ctx, ownerID)
	s.logger.Info("school deleted", zap.String("owner_id", ownerID), zap.String("school_id", id), zap.Int64("students_removed", removed))
	return nil
}
