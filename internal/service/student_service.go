package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/van-fee-api/internal/billing"
	"github.com/noah-isme/van-fee-api/internal/models"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
)

type studentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, ownerID, id string) error
}

type schoolFinder interface {
	FindByID(ctx context.Context, ownerID, id string) (*models.School, error)
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	schools   schoolFinder
	ledger    ledgerLoader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, schools schoolFinder, ledger ledgerLoader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, schools: schools, ledger: ledger, cache: cache, validator: validate, logger: logger}
}

// List returns the owner's reconciled students narrowed by the filter.
func (s *StudentService) List(ctx context.Context, ownerID string, filter models.StudentFilter) ([]models.Student, error) {
	ledger, err := s.ledger.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	students := make([]models.Student, 0, len(ledger.Students))
	for _, student := range ledger.Students {
		if filter.SchoolID != "" && student.SchoolID != filter.SchoolID {
			continue
		}
		if filter.UnpaidOnly && !student.PendingFees.IsPositive() {
			continue
		}
		students = append(students, student)
	}
	return students, nil
}

// Create admits a student. Billing starts on the admission date with nothing owed.
func (s *StudentService) Create(ctx context.Context, ownerID string, req models.CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	admission, err := billing.ParseDate("admission_date", req.AdmissionDate)
	if err != nil {
		return nil, billingError(err, "invalid student payload")
	}
	if !req.TotalFees.IsPositive() {
		return nil, billingError(&billing.InvalidAmountError{Field: "total_fees", Amount: req.TotalFees}, "invalid student payload")
	}

	if _, err := s.schools.FindByID(ctx, ownerID, req.SchoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}

	student := &models.Student{
		OwnerID:        ownerID,
		SchoolID:       req.SchoolID,
		Name:           strings.TrimSpace(req.Name),
		ParentPhone:    strings.TrimSpace(req.ParentPhone),
		AdmissionDate:  admission,
		LastBilledDate: admission,
		TotalFees:      req.TotalFees,
		PaidFees:       decimal.Zero,
		PendingFees:    decimal.Zero,
		PaymentHistory: []models.PaymentEntry{},
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.cache.InvalidateOwner(ctx, ownerID)
	return student, nil
}

// Delete removes a student.
func (s *StudentService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.cache.InvalidateOwner(ctx, ownerID)
	return nil
}
