package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/van-fee-api/internal/service"
	"github.com/noah-isme/van-fee-api/pkg/response"
)

type statementService interface {
	Render(ctx context.Context, ownerID, studentID, format string) (*service.Statement, error)
}

// StatementHandler serves downloadable payment statements.
type StatementHandler struct {
	statements statementService
}

// NewStatementHandler constructs StatementHandler.
func NewStatementHandler(statements statementService) *StatementHandler {
	return &StatementHandler{statements: statements}
}

// Download godoc
// @Summary Download payment statement
// @Tags Students
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/statement [get]
func (h *StatementHandler) Download(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}
	statement, err := h.statements.Render(c.Request.Context(), ownerID, c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, statement.ContentType, statement.Filename, statement.Body)
}
