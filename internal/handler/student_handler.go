package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	"github.com/noah-isme/teacher-dashboard-api/internal/service"
	appErrors "github.com/noah-isme/teacher-dashboard-api/pkg/errors"
	"github.com/noah-isme/teacher-dashboard-api/pkg/response"
	"github.com/noah-isme/teacher-dashboard-api/pkg/roster"
)

// DefaultImportLimit bounds uploads when no explicit limit is configured.
const DefaultImportLimit int64 = 1 << 20

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error)
	Get(ctx context.Context, userID, id string) (*models.Student, error)
	Create(ctx context.Context, userID string, req service.CreateStudentRequest) (*models.Student, error)
	Update(ctx context.Context, userID, id string, req service.UpdateStudentRequest) (*models.Student, error)
	ToggleStatus(ctx context.Context, userID, id string) (*models.Student, error)
	Delete(ctx context.Context, userID, id string, meta models.RequestMeta) error
	Import(ctx context.Context, userID string, content []byte, dryRun bool, meta models.RequestMeta) (*service.ImportResult, error)
	Export(ctx context.Context, userID string, format roster.Format) (*roster.File, error)
	Sample() (*roster.File, error)
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students    studentService
	importLimit int64
}

// NewStudentHandler constructs StudentHandler. A non-positive importLimit falls back to DefaultImportLimit.
func NewStudentHandler(students studentService, importLimit int64) *StudentHandler {
	if importLimit <= 0 {
		importLimit = DefaultImportLimit
	}
	return &StudentHandler{students: students, importLimit: importLimit}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name or phone"
// @Param status query string false "active or inactive"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "first_name, last_name, enrollment_date or created_at"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	filter := models.StudentFilter{UserID: userID}
	filter.Search = strings.TrimSpace(c.Query("search"))
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.StudentStatus(strings.ToLower(raw))
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be active or inactive"))
			return
		}
		filter.Status = &status
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	student, err := h.students.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Create student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req service.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// ToggleStatus godoc
// @Summary Flip student status between active and inactive
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/status [patch]
func (h *StudentHandler) ToggleStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	student, err := h.students.ToggleStatus(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.students.Delete(c.Request.Context(), userID, c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Import godoc
// @Summary Import students from CSV
// @Description Rows with errors are reported and skipped. With dryRun=true nothing is written.
// @Tags Students
// @Accept mpfd
// @Produce json
// @Param file formData file true "CSV roster"
// @Param dryRun query bool false "Validate without saving"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /students/import [post]
func (h *StudentHandler) Import(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	dryRun, err := strconv.ParseBool(c.DefaultQuery("dryRun", "false"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dryRun must be true or false"))
		return
	}

	content, err := h.readUpload(c)
	if err != nil {
		msg := err.Error()
		response.Error(c, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, msg), roster.Failed(roster.KindFileRead, msg)))
		return
	}

	result, err := h.students.Import(c.Request.Context(), userID, content, dryRun, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if dryRun {
		response.JSON(c, http.StatusOK, result, nil)
		return
	}
	response.Created(c, result)
}

func (h *StudentHandler) readUpload(c *gin.Context) ([]byte, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("error reading file: file is required")
	}
	if header.Size > h.importLimit {
		return nil, fmt.Errorf("error reading file: file exceeds %d bytes", h.importLimit)
	}
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("error reading file: %v", err)
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.importLimit+1))
	if err != nil {
		return nil, fmt.Errorf("error reading file: %v", err)
	}
	if int64(len(content)) > h.importLimit {
		return nil, fmt.Errorf("error reading file: file exceeds %d bytes", h.importLimit)
	}
	return content, nil
}

// Export godoc
// @Summary Download the roster
// @Tags Students
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /students/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	format := roster.Format(strings.ToLower(c.DefaultQuery("format", string(roster.FormatCSV))))
	file, err := h.students.Export(c.Request.Context(), userID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Content)
}

// Sample godoc
// @Summary Download the import template
// @Tags Students
// @Produce text/csv
// @Success 200 {file} file
// @Security BearerAuth
// @Router /students/import/sample [get]
func (h *StudentHandler) Sample(c *gin.Context) {
	file, err := h.students.Sample()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Content)
}
