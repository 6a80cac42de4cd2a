package service

import (
	"context"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/noah-isme/van-fee-api/internal/models"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
)

type ledgerLoader interface {
	Load(ctx context.Context, ownerID string) (*models.Ledger, error)
}

type studentDetailer interface {
	Student(ctx context.Context, ownerID, studentID string) (*models.StudentDetail, error)
}

// ReminderService selects students that need a message and renders it for them.
type ReminderService struct {
	ledger        ledgerLoader
	students      studentDetailer
	notifications *NotificationService
	logger        *zap.Logger
}

// NewReminderService constructs a ReminderService.
func NewReminderService(ledger ledgerLoader, students studentDetailer, notifications *NotificationService, logger *zap.Logger) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{ledger: ledger, students: students, notifications: notifications, logger: logger}
}

// DueToday renders WhatsApp reminders for students whose cycle closed today and who still owe fees.
func (s *ReminderService) DueToday(ctx context.Context, ownerID string) ([]models.Notification, error) {
	ledger, err := s.ledger.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.remind(ctx, dueOn(ledger.Students, ledger.Today))
}

// SchoolUnpaid renders WhatsApp reminders for every student of the school with a pending balance.
func (s *ReminderService) SchoolUnpaid(ctx context.Context, ownerID, schoolID string) ([]models.Notification, error) {
	ledger, err := s.ledger.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !hasSchool(ledger.Schools, schoolID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
	}

	var unpaid []models.Student
	for _, student := range ledger.Students {
		if student.SchoolID == schoolID && student.PendingFees.IsPositive() {
			unpaid = append(unpaid, student)
		}
	}
	return s.remind(ctx, unpaid)
}

// ForStudent renders a single message of the requested kind.
func (s *ReminderService) ForStudent(ctx context.Context, ownerID, studentID string, kind models.NotificationKind, channel models.NotificationChannel) (*models.Notification, error) {
	detail, err := s.students.Student(ctx, ownerID, studentID)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		kind = models.NotificationReminder
	}
	n, err := s.notifications.Build(detail.Student, kind, channel)
	if err != nil {
		return nil, err
	}
	s.notifications.Dispatch(ctx, n)
	return &n, nil
}

// dueOn keeps students billed on day who still have a balance outstanding.
func dueOn(students []models.Student, day civil.Date) []models.Student {
	var due []models.Student
	for _, student := range students {
		if student.LastBilledDate == day && student.PendingFees.IsPositive() {
			due = append(due, student)
		}
	}
	return due
}

// remind renders reminders in order, skipping students without a usable phone.
func (s *ReminderService) remind(ctx context.Context, students []models.Student) ([]models.Notification, error) {
	out := make([]models.Notification, 0, len(students))
	for _, student := range students {
		n, err := s.notifications.Reminder(student, models.ChannelWhatsApp)
		if err != nil {
			s.logger.Warn("reminder skipped", zap.String("student_id", student.ID), zap.Error(err))
			continue
		}
		out = append(out, n)
	}
	s.notifications.Dispatch(ctx, out...)
	return out, nil
}

func hasSchool(schools []models.School, id string) bool {
	for _, school := range schools {
		if school.ID == id {
			return true
		}
	}
	return false
}
