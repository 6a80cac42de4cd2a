package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/van-fee-api/internal/models"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
)

type fakeReminderSrv struct {
	kind    models.NotificationKind
	channel models.NotificationChannel
}

func (f *fakeReminderSrv) DueToday(context.Context, string) ([]models.Notification, error) {
	return []models.Notification{{StudentID: "st-1"}, {StudentID: "st-2"}}, nil
}

func (f *fakeReminderSrv) SchoolUnpaid(_ context.Context, _ string, schoolID string) ([]models.Notification, error) {
	if schoolID != "s1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
	}
	return []models.Notification{}, nil
}

func (f *fakeReminderSrv) ForStudent(_ context.Context, _ string, studentID string, kind models.NotificationKind, channel models.NotificationChannel) (*models.Notification, error) {
	f.kind, f.channel = kind, channel
	return &models.Notification{StudentID: studentID, Kind: kind, Channel: channel, URL: "sms:9876543210?body=x"}, nil
}

func TestReminderHandlerDueToday(t *testing.T) {
	h := NewReminderHandler(&fakeReminderSrv{})
	c, rec := testContext(http.MethodGet, "/reminders/due", nil, "owner-1")
	h.DueToday(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec).Meta["count"])
}

func TestReminderHandlerSchool(t *testing.T) {
	h := NewReminderHandler(&fakeReminderSrv{})

	c, rec := testContext(http.MethodPost, "/schools/s1/reminders", nil, "owner-1")
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	h.School(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", string(decode(t, rec).Data))

	c, rec = testContext(http.MethodPost, "/schools/s9/reminders", nil, "owner-1")
	c.Params = gin.Params{{Key: "id", Value: "s9"}}
	h.School(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReminderHandlerStudentNormalisesQuery(t *testing.T) {
	srv := &fakeReminderSrv{}
	h := NewReminderHandler(srv)

	c, rec := testContext(http.MethodGet, "/students/st-1/notifications?type=Fee_Update&channel=SMS", nil, "owner-1")
	c.Params = gin.Params{{Key: "id", Value: "st-1"}}
	h.Student(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.NotificationFeeUpdate, srv.kind)
	assert.Equal(t, models.ChannelSMS, srv.channel)
}
