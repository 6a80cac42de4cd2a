package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/van-fee-api/internal/models"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
)

const (
	reminderText     = "Dear Parent, This is to inform you that the school van fee for this month has ended kindly pay the van fee at your earliest convenience. Thank You."
	confirmationText = "Dear Parent, %s%s for school van fee has been received on %s. Thank you for your Payment."
	feeUpdateText    = "Hello, this is your van driver. Fee updated for %s. Paid: %s, Pending: %s. Thank you!"
)

// Notifier delivers a rendered notification. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// LogNotifier records notifications in the application log instead of sending them.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the notification.
func (n *LogNotifier) Notify(ctx context.Context, notification models.Notification) error {
	n.logger.Info("notification prepared",
		zap.String("student_id", notification.StudentID),
		zap.String("kind", string(notification.Kind)),
		zap.String("channel", string(notification.Channel)),
		zap.String("url", notification.URL))
	return nil
}

// NotificationConfig customises rendered messages.
type NotificationConfig struct {
	CountryCode    string
	BusinessName   string
	CurrencySymbol string
}

// NotificationService renders parent messages and the links that open them in a messaging app.
type NotificationService struct {
	config   NotificationConfig
	notifier Notifier
	logger   *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(config NotificationConfig, notifier Notifier, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	config.CountryCode = strings.TrimPrefix(config.CountryCode, "+")
	return &NotificationService{config: config, notifier: notifier, logger: logger}
}

// Reminder renders the monthly fee reminder.
func (s *NotificationService) Reminder(student models.Student, channel models.NotificationChannel) (models.Notification, error) {
	return s.render(student, models.NotificationReminder, channel, s.sign(reminderText))
}

// PaymentConfirmation renders the receipt sent after a payment.
func (s *NotificationService) PaymentConfirmation(student models.Student, amount decimal.Decimal, paidOn civil.Date, channel models.NotificationChannel) (models.Notification, error) {
	message := fmt.Sprintf(confirmationText, s.config.CurrencySymbol, amount.String(), formatDate(paidOn))
	return s.render(student, models.NotificationPaymentConfirmation, channel, s.sign(message))
}

// FeeUpdate renders the paid and pending summary.
func (s *NotificationService) FeeUpdate(student models.Student, channel models.NotificationChannel) (models.Notification, error) {
	message := fmt.Sprintf(feeUpdateText, student.Name, student.PaidFees.String(), student.PendingFees.String())
	return s.render(student, models.NotificationFeeUpdate, channel, message)
}

// Build renders kind for student. A payment confirmation refers to the latest payment.
func (s *NotificationService) Build(student models.Student, kind models.NotificationKind, channel models.NotificationChannel) (models.Notification, error) {
	switch kind {
	case models.NotificationReminder:
		return s.Reminder(student, channel)
	case models.NotificationFeeUpdate:
		return s.FeeUpdate(student, channel)
	case models.NotificationPaymentConfirmation:
		if len(student.PaymentHistory) == 0 {
			return models.Notification{}, appErrors.Clone(appErrors.ErrValidation, "student has no recorded payments")
		}
		latest := student.PaymentHistory[0]
		return s.PaymentConfirmation(student, latest.Amount, latest.Date, channel)
	default:
		return models.Notification{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown notification type %q", kind))
	}
}

// Dispatch hands each notification to the notifier. Failures are logged and skipped.
func (s *NotificationService) Dispatch(ctx context.Context, notifications ...models.Notification) {
	for _, n := range notifications {
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.Warn("notification delivery failed", zap.String("student_id", n.StudentID), zap.Error(err))
		}
	}
}

func (s *NotificationService) render(student models.Student, kind models.NotificationKind, channel models.NotificationChannel, message string) (models.Notification, error) {
	if channel == "" {
		channel = models.ChannelWhatsApp
	}
	digits := digitsOnly(student.ParentPhone)
	if digits == "" {
		return models.Notification{}, appErrors.Clone(appErrors.ErrValidation, "student has no usable parent phone number")
	}

	n := models.Notification{
		StudentID:   student.ID,
		StudentName: student.Name,
		Kind:        kind,
		Channel:     channel,
		Message:     message,
	}
	switch channel {
	case models.ChannelWhatsApp:
		n.Phone = s.internationalise(digits)
		n.URL = "https://wa.me/" + n.Phone + "?text=" + escapeComponent(message)
	case models.ChannelSMS:
		n.Phone = digits
		n.URL = "sms:" + n.Phone + "?body=" + escapeComponent(message)
	default:
		return models.Notification{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown channel %q", channel))
	}
	return n, nil
}

func (s *NotificationService) sign(message string) string {
	if s.config.BusinessName == "" {
		return message
	}
	return message + " - " + s.config.BusinessName
}

// internationalise prefixes bare 10 digit national numbers with the country code.
func (s *NotificationService) internationalise(digits string) string {
	if len(digits) == 10 && s.config.CountryCode != "" {
		return s.config.CountryCode + digits
	}
	return digits
}

func digitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// escapeComponent percent-encodes text for a URL query value with spaces as %20.
func escapeComponent(text string) string {
	return strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

func formatDate(d civil.Date) string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}
