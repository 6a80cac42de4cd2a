package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/van-fee-api/internal/billing"
	"github.com/noah-isme/van-fee-api/internal/models"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
)

type billingSchoolReader interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.SchoolSummary, error)
	FindByID(ctx context.Context, ownerID, id string) (*models.School, error)
}

type billingStudentStore interface {
	ListByOwner(ctx context.Context, ownerID string, filter models.StudentFilter) ([]models.Student, error)
	FindByID(ctx context.Context, ownerID, id string) (*models.Student, error)
	ApplyPayment(ctx context.Context, ownerID string, update models.PaymentUpdate) (*models.Student, error)
}

// BillingService is the adapter between stored ledgers and the billing engine.
// Every read that returns balances first brings them up to date.
type BillingService struct {
	schools       billingSchoolReader
	students      billingStudentStore
	writer        AccrualWriter
	notifications *NotificationService
	cache         *CacheService
	metrics       *MetricsService
	calendar      Calendar
	logger        *zap.Logger
}

// NewBillingService constructs a BillingService.
func NewBillingService(
	schools billingSchoolReader,
	students billingStudentStore,
	writer AccrualWriter,
	notifications *NotificationService,
	cache *CacheService,
	metrics *MetricsService,
	calendar Calendar,
	logger *zap.Logger,
) *BillingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifications == nil {
		notifications = NewNotificationService(NotificationConfig{}, nil, logger)
	}
	return &BillingService{
		schools:       schools,
		students:      students,
		writer:        writer,
		notifications: notifications,
		cache:         cache,
		metrics:       metrics,
		calendar:      calendar,
		logger:        logger,
	}
}

// Load reconciles every student of the owner against today and returns the up to date ledger.
// Storage failures while persisting accruals are logged; the next load re-derives them.
func (s *BillingService) Load(ctx context.Context, ownerID string) (*models.Ledger, error) {
	start := time.Now()

	summaries, err := s.schools.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schools")
	}
	students, err := s.students.ListByOwner(ctx, ownerID, models.StudentFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	today := s.calendar.Today()
	rec, err := billing.Reconcile(students, today)
	if err != nil {
		s.logger.Error("reconciliation rejected stored data", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, billingError(err, "stored billing data is inconsistent")
	}

	if len(rec.Updates) > 0 {
		if err := s.writer.Write(ctx, rec.Updates); err != nil {
			s.logger.Error("failed to persist accruals", zap.String("owner_id", ownerID), zap.Int("updates", len(rec.Updates)), zap.Error(err))
		}
		s.cache.InvalidateOwner(ctx, ownerID)
		s.logger.Info("ledger reconciled",
			zap.String("owner_id", ownerID),
			zap.Int("students_billed", len(rec.Updates)),
			zap.Int("cycles", rec.Cycles),
			zap.String("accrued", rec.Accrued.String()))
	}
	s.metrics.ObserveReconcile(rec.Cycles, rec.Accrued, time.Since(start))

	schools := make([]models.School, 0, len(summaries))
	for _, summary := range summaries {
		schools = append(schools, summary.School)
	}
	changed := make([]string, 0, len(rec.Updates))
	for _, update := range rec.Updates {
		changed = append(changed, update.ID)
	}

	return &models.Ledger{
		Today:         today,
		Schools:       schools,
		Students:      rec.Students,
		Changed:       changed,
		CyclesAccrued: rec.Cycles,
		AccruedAmount: rec.Accrued,
	}, nil
}

// Student returns one up to date student with its next billing date.
func (s *BillingService) Student(ctx context.Context, ownerID, studentID string) (*models.StudentDetail, error) {
	student, err := s.findStudent(ctx, ownerID, studentID)
	if err != nil {
		return nil, err
	}

	rec, err := billing.Reconcile([]models.Student{*student}, s.calendar.Today())
	if err != nil {
		return nil, billingError(err, "stored billing data is inconsistent")
	}
	updated := rec.Students[0]
	if len(rec.Updates) > 0 {
		if err := s.writer.Write(ctx, rec.Updates); err != nil {
			s.logger.Error("failed to persist accrual", zap.String("student_id", studentID), zap.Error(err))
		}
		s.cache.InvalidateOwner(ctx, ownerID)
		s.metrics.ObserveReconcile(rec.Cycles, rec.Accrued, 0)
	}

	next, err := billing.NextBillingDate(updated.AdmissionDate, updated.LastBilledDate)
	if err != nil {
		return nil, billingError(err, "stored billing data is inconsistent")
	}
	detail := &models.StudentDetail{Student: updated, NextBillingDate: next}
	if school, err := s.schools.FindByID(ctx, ownerID, updated.SchoolID); err == nil {
		detail.SchoolName = school.Name
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("failed to resolve school name", zap.String("school_id", updated.SchoolID), zap.Error(err))
	}
	return detail, nil
}

// RecordPayment applies a payment to the latest stored state of the student and
// returns the committed student together with the confirmation message.
func (s *BillingService) RecordPayment(ctx context.Context, ownerID, studentID string, req models.RecordPaymentRequest) (*models.PaymentReceipt, error) {
	paidOn := s.calendar.Today()
	if req.Date != "" {
		parsed, err := billing.ParseDate("date", req.Date)
		if err != nil {
			return nil, billingError(err, "invalid payment")
		}
		paidOn = parsed
	}

	student, err := s.findStudent(ctx, ownerID, studentID)
	if err != nil {
		return nil, err
	}
	updated, err := billing.ApplyPayment(*student, req.Amount, paidOn)
	if err != nil {
		return nil, billingError(err, "invalid payment")
	}

	stored, err := s.students.ApplyPayment(ctx, ownerID, billing.PaymentUpdateFor(updated, req.Amount))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		s.metrics.RecordWriteFailure("payment")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}
	s.metrics.RecordPayment(req.Amount)
	s.cache.InvalidateOwner(ctx, ownerID)
	s.logger.Info("payment recorded",
		zap.String("owner_id", ownerID),
		zap.String("student_id", studentID),
		zap.String("amount", req.Amount.String()),
		zap.String("date", paidOn.String()))

	receipt := &models.PaymentReceipt{Student: *stored}
	confirmation, err := s.notifications.PaymentConfirmation(*stored, req.Amount, paidOn, models.ChannelWhatsApp)
	if err != nil {
		s.logger.Warn("payment confirmation not rendered", zap.String("student_id", studentID), zap.Error(err))
		return receipt, nil
	}
	receipt.Confirmation = confirmation
	s.notifications.Dispatch(ctx, confirmation)
	return receipt, nil
}

func (s *BillingService) findStudent(ctx context.Context, ownerID, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, ownerID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}
