package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/van-fee-api/internal/billing"
	"github.com/noah-isme/van-fee-api/internal/models"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
)

type importRepository interface {
	Import(ctx context.Context, schools []*models.School, students []*models.Student) error
}

type ownerDataCounter interface {
	CountByOwner(ctx context.Context, ownerID string) (schools int, students int, err error)
}

// ImportService moves a locally kept snapshot into an empty account.
type ImportService struct {
	repo      importRepository
	counter   ownerDataCounter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewImportService constructs an ImportService.
func NewImportService(repo importRepository, counter ownerDataCounter, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ImportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{repo: repo, counter: counter, cache: cache, validator: validate, logger: logger}
}

// Import recreates the snapshot's schools and students for the owner. Students are
// attached to the new schools by school name and keep their billing state.
func (s *ImportService) Import(ctx context.Context, ownerID string, req models.ImportRequest) (*models.ImportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid import payload")
	}

	schoolCount, studentCount, err := s.counter.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect account")
	}
	if schoolCount > 0 || studentCount > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "account already holds data; import is only available for empty accounts")
	}

	schools, byLocalID := importSchools(ownerID, req.Schools)

	students := make([]*models.Student, 0, len(req.Students))
	for i, in := range req.Students {
		school, ok := byLocalID[in.SchoolID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("students[%d]: unknown school %q", i, in.SchoolID))
		}
		student, err := importStudent(ownerID, school, in)
		if err != nil {
			var appErr *appErrors.Error
			if errors.As(err, &appErr) {
				return nil, appErrors.Clone(appErr, fmt.Sprintf("students[%d]: %s", i, appErr.Message))
			}
			return nil, billingError(err, fmt.Sprintf("students[%d]", i))
		}
		students = append(students, student)
	}

	if err := s.repo.Import(ctx, schools, students); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import data")
	}
	s.cache.InvalidateOwner(ctx, ownerID)
	s.logger.Info("local data imported", zap.String("owner_id", ownerID), zap.Int("schools", len(schools)), zap.Int("students", len(students)))

	return &models.ImportResult{Schools: len(schools), Students: len(students)}, nil
}

// importSchools creates one school per distinct name and maps every local id onto it.
func importSchools(ownerID string, in []models.ImportSchool) ([]*models.School, map[string]*models.School) {
	byName := make(map[string]*models.School, len(in))
	byLocalID := make(map[string]*models.School, len(in))
	schools := make([]*models.School, 0, len(in))
	for _, local := range in {
		name := strings.TrimSpace(local.Name)
		key := strings.ToLower(name)
		school, ok := byName[key]
		if !ok {
			school = &models.School{ID: uuid.NewString(), OwnerID: ownerID, Name: name}
			byName[key] = school
			schools = append(schools, school)
		}
		byLocalID[local.ID] = school
	}
	return schools, byLocalID
}

// importStudent validates a local student and converts it onto its new school.
// A checkpoint that drifted off the admission schedule is moved back to the
// latest anniversary on or before it.
func importStudent(ownerID string, school *models.School, in models.ImportStudent) (*models.Student, error) {
	admission, err := billing.ParseLegacyDate("admission_date", in.AdmissionDate)
	if err != nil {
		return nil, err
	}
	lastBilled := admission
	if in.LastBilledDate != "" {
		if lastBilled, err = billing.ParseLegacyDate("last_billed_date", in.LastBilledDate); err != nil {
			return nil, err
		}
	}
	if lastBilled, err = billing.SnapToSchedule(admission, lastBilled); err != nil {
		return nil, err
	}
	if !in.TotalFees.IsPositive() {
		return nil, &billing.InvalidAmountError{Field: "total_fees", Amount: in.TotalFees}
	}
	if in.PendingFees.IsNegative() {
		return nil, &billing.InvalidAmountError{Field: "pending_fees", Amount: in.PendingFees}
	}

	history := make([]models.PaymentEntry, 0, len(in.PaymentHistory))
	paid := decimal.Zero
	for _, p := range in.PaymentHistory {
		if !p.Amount.IsPositive() {
			return nil, &billing.InvalidAmountError{Field: "payment_history.amount", Amount: p.Amount}
		}
		date, err := billing.ParseLegacyDate("payment_history.date", p.Date)
		if err != nil {
			return nil, err
		}
		history = append(history, models.PaymentEntry{Amount: p.Amount, Date: date})
		paid = paid.Add(p.Amount)
	}
	if !paid.Equal(in.PaidFees) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("paid_fees %s does not match payment history total %s", in.PaidFees.String(), paid.String()))
	}

	student := &models.Student{
		OwnerID:        ownerID,
		SchoolID:       school.ID,
		Name:           strings.TrimSpace(in.Name),
		ParentPhone:    strings.TrimSpace(in.ParentPhone),
		AdmissionDate:  admission,
		LastBilledDate: lastBilled,
		TotalFees:      in.TotalFees,
		PaidFees:       in.PaidFees,
		PendingFees:    in.PendingFees,
		PaymentHistory: history,
	}
	switch {
	case in.LastPaidDate != "":
		lastPaid, err := billing.ParseLegacyDate("last_paid_date", in.LastPaidDate)
		if err != nil {
			return nil, err
		}
		student.LastPaidDate = &lastPaid
	case len(history) > 0:
		lastPaid := history[0].Date
		student.LastPaidDate = &lastPaid
	}
	return student, nil
}
