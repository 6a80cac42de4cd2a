package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/van-fee-api/internal/models"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
	"github.com/noah-isme/van-fee-api/pkg/response"
)

type importService interface {
	Import(ctx context.Context, ownerID string, req models.ImportRequest) (*models.ImportResult, error)
}

// ImportHandler accepts locally kept snapshots.
type ImportHandler struct {
	imports importService
}

// NewImportHandler constructs ImportHandler.
func NewImportHandler(imports importService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// Import godoc
// @Summary Import local data
// @Description Recreates a local snapshot of schools and students in an empty account
// @Tags Imports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ImportRequest true "Snapshot"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /imports [post]
func (h *ImportHandler) Import(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var req models.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import payload"))
		return
	}
	result, err := h.imports.Import(c.Request.Context(), ownerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
