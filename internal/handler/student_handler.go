package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/van-fee-api/internal/models"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
	"github.com/noah-isme/van-fee-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, ownerID string, filter models.StudentFilter) ([]models.Student, error)
	Create(ctx context.Context, ownerID string, req models.CreateStudentRequest) (*models.Student, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type studentDetailService interface {
	Student(ctx context.Context, ownerID, studentID string) (*models.StudentDetail, error)
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students studentService
	details  studentDetailService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService, details studentDetailService) *StudentHandler {
	return &StudentHandler{students: students, details: details}
}

// List godoc
// @Summary List students
// @Description Lists up to date students of the owner
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param schoolId query string false "Filter by school"
// @Param unpaid query bool false "Only students with a pending balance"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}
	filter := models.StudentFilter{SchoolID: strings.TrimSpace(c.Query("schoolId"))}
	if raw := c.Query("unpaid"); raw != "" {
		unpaid, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unpaid must be a boolean"))
			return
		}
		filter.UnpaidOnly = unpaid
	}

	students, err := h.students.List(c.Request.Context(), ownerID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Create godoc
// @Summary Admit student
// @Description Adds a student; billing starts on the admission date
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateStudentRequest true "Student"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var req models.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	student, err := h.students.Create(c.Request.Context(), ownerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Get godoc
// @Summary Get student detail
// @Description Returns the up to date student with the next billing date
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}
	detail, err := h.details.Student(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete student
// @Tags Students
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	ownerID, ok := ownerFromContext(c)
	if !ok {
		return
	}
	if err := h.students.Delete(c.Request.Context(), ownerID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
