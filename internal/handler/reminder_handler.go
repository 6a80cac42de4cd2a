package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/van-fee-api/internal/models"
	"github.com/noah-isme/van-fee-api/pkg/response"
)

type reminderService interface {
	DueToday(ctx context.Context, ownerID string) ([]models.Notification, error)
	SchoolUnpaid(ctx context.Context, ownerID, schoolID string) ([]models.Notification, error)
	ForStudent(ctx context.Context, ownerID, studentID string, kind models.NotificationKind, channel models.NotificationChannel) (*models.Notification, error)
}

// ReminderHandler exposes parent notification endpoints.
type ReminderHandler struct {
	reminders reminderService
}

// NewReminderHandler constructs ReminderHandler.
func NewReminderHandler(reminders reminderService) *ReminderHandler {
	return &ReminderHandler{reminders: reminders}
}

// DueToday godoc
// @Summary Reminders due today
// @Description WhatsApp reminders for students billed today who still owe fees
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /reminders/due [get]
func (h *ReminderHandler) DueToday(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}
	reminders, err := h.reminders.DueToday(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reminders, nil, map[string]interface{}{"count": len(reminders)})
}

// School godoc
// @Summary Remind a school's unpaid students
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schools/{id}/reminders [post]
func (h *ReminderHandler) School(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}
	reminders, err := h.reminders.SchoolUnpaid(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reminders, nil, map[string]interface{}{"count": len(reminders)})
}

// Student godoc
// @Summary Build a message for one student
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param type query string false "reminder, fee_update or payment_confirmation"
// @Param channel query string false "whatsapp or sms"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/notifications [get]
func (h *ReminderHandler) Student(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}
	kind := models.NotificationKind(strings.ToLower(strings.TrimSpace(c.Query("type"))))
	channel := models.NotificationChannel(strings.ToLower(strings.TrimSpace(c.Query("channel"))))

	n, err := h.reminders.ForStudent(c.Request.Context(), ownerID, c.Param("id"), kind, channel)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, n, nil)
}
