package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/van-fee-api/internal/models"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
)

func newReminderFixture(t *testing.T) (*billingFixture, *ReminderService) {
	t.Helper()
	f := newBillingFixture(day(2024, 4, 15))
	// billed today through catch-up
	f.store.addStudent(rider("st-1", "owner", "s1", "Asha", day(2024, 1, 15), day(2024, 3, 15), 500, 0, 500))
	// billed today but already settled
	f.store.addStudent(rider("st-2", "owner", "s1", "Bina", day(2024, 3, 15), day(2024, 4, 15), 500, 500, 0))
	// owes money but billed on another day
	f.store.addStudent(rider("st-3", "owner", "s2", "Chetan", day(2024, 2, 1), day(2024, 4, 1), 300, 0, 600))
	// billed today, no phone
	noPhone := rider("st-4", "owner", "s1", "Dev", day(2024, 3, 15), day(2024, 3, 15), 200, 0, 0)
	noPhone.ParentPhone = "-"
	f.store.addStudent(noPhone)

	return f, NewReminderService(f.billing, f.billing, f.notifications, nil)
}

func TestReminderServiceDueToday(t *testing.T) {
	f, svc := newReminderFixture(t)

	reminders, err := svc.DueToday(context.Background(), "owner")
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "st-1", reminders[0].StudentID)
	assert.Equal(t, models.NotificationReminder, reminders[0].Kind)
	assert.Len(t, f.notifier.sent, 1)
}

func TestReminderServiceSchoolUnpaid(t *testing.T) {
	_, svc := newReminderFixture(t)
	ctx := context.Background()

	reminders, err := svc.SchoolUnpaid(ctx, "owner", "s2")
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "Chetan", reminders[0].StudentName)

	// Dev owes the new cycle but has no usable phone number.
	reminders, err = svc.SchoolUnpaid(ctx, "owner", "s1")
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "st-1", reminders[0].StudentID)

	_, err = svc.SchoolUnpaid(ctx, "owner", "s9")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReminderServiceForStudent(t *testing.T) {
	_, svc := newReminderFixture(t)
	ctx := context.Background()

	n, err := svc.ForStudent(ctx, "owner", "st-3", "", models.ChannelSMS)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationReminder, n.Kind)
	assert.Equal(t, models.ChannelSMS, n.Channel)

	n, err = svc.ForStudent(ctx, "owner", "st-2", models.NotificationFeeUpdate, models.ChannelWhatsApp)
	require.NoError(t, err)
	assert.Contains(t, n.Message, "Paid: 500, Pending: 0")

	_, err = svc.ForStudent(ctx, "owner", "missing", models.NotificationReminder, models.ChannelWhatsApp)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
