package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/van-fee-api/internal/models"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
	"github.com/noah-isme/van-fee-api/pkg/response"
)

type billingService interface {
	Load(ctx context.Context, ownerID string) (*models.Ledger, error)
	RecordPayment(ctx context.Context, ownerID, studentID string, req models.RecordPaymentRequest) (*models.PaymentReceipt, error)
}

// BillingHandler exposes the ledger load and payment endpoints.
type BillingHandler struct {
	billing billingService
}

// NewBillingHandler constructs BillingHandler.
func NewBillingHandler(billing billingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// Ledger godoc
// @Summary Load ledger
// @Description Brings every student up to date and returns the owner's schools and students
// @Tags Billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /ledger [get]
func (h *BillingHandler) Ledger(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}

	ledger, err := h.billing.Load(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ledger, withMeta(c, nil))
}

// RecordPayment godoc
// @Summary Record payment
// @Description Records a payment against the student's latest balance and returns the confirmation message
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param payload body models.RecordPaymentRequest true "Payment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/payments [post]
func (h *BillingHandler) RecordPayment(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var req models.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}

	receipt, err := h.billing.RecordPayment(c.Request.Context(), ownerID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}
