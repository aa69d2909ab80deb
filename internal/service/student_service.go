package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/teacher-dashboard-api/pkg/errors"
	"github.com/noah-isme/teacher-dashboard-api/pkg/roster"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	ListAll(ctx context.Context, userID string) ([]models.Student, error)
	FindByID(ctx context.Context, userID, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	CreateBatch(ctx context.Context, students []*models.Student) error
	Update(ctx context.Context, student *models.Student) error
	UpdateStatus(ctx context.Context, userID, id string, status models.StudentStatus) error
	Delete(ctx context.Context, userID, id string) error
}

type rosterTranscoder interface {
	Export(students []models.Student, format roster.Format) (*roster.File, error)
	Sample() (*roster.File, error)
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	FirstName      string `json:"first_name" validate:"required,max=100"`
	LastName       string `json:"last_name" validate:"required,max=100"`
	Phone          string `json:"phone" validate:"required,phone"`
	EnrollmentDate string `json:"enrollment_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateStudentRequest holds payload for updating students.
type UpdateStudentRequest struct {
	FirstName      string               `json:"first_name" validate:"required,max=100"`
	LastName       string               `json:"last_name" validate:"required,max=100"`
	Phone          string               `json:"phone" validate:"required,phone"`
	EnrollmentDate string               `json:"enrollment_date" validate:"omitempty,datetime=2006-01-02"`
	Status         models.StudentStatus `json:"status" validate:"required,oneof=active inactive"`
}

// ImportResult is the parse outcome plus what was persisted.
type ImportResult struct {
	roster.ImportOutcome
	DryRun  bool `json:"dry_run"`
	Created int  `json:"created"`
}

// StudentService handles roster use-cases for the signed-in teacher.
type StudentService struct {
	repo       studentRepository
	transcoder rosterTranscoder
	audit      auditLogWriter
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, transcoder rosterTranscoder, audit auditLogWriter, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if transcoder == nil {
		transcoder = roster.NewTranscoder()
	}
	return &StudentService{
		repo:       repo,
		transcoder: transcoder,
		audit:      audit,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be active or inactive")
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// Get returns one student owned by userID.
func (s *StudentService) Get(ctx context.Context, userID, id string) (*models.Student, error) {
	if err := validStudentID(id); err != nil {
		return nil, err
	}
	student, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, studentLookupError(err)
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, userID string, req CreateStudentRequest) (*models.Student, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	enrolled, err := s.enrollmentDate(req.EnrollmentDate)
	if err != nil {
		return nil, err
	}
	student := &models.Student{
		UserID:         userID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		EnrollmentDate: enrolled,
		Status:         models.StudentStatusActive,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.cache.InvalidateUser(ctx, userID)
	return student, nil
}

// Update modifies an existing student record.
func (s *StudentService) Update(ctx context.Context, userID, id string, req UpdateStudentRequest) (*models.Student, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := validStudentID(id); err != nil {
		return nil, err
	}
	student, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, studentLookupError(err)
	}
	if req.EnrollmentDate != "" {
		enrolled, err := s.enrollmentDate(req.EnrollmentDate)
		if err != nil {
			return nil, err
		}
		student.EnrollmentDate = enrolled
	}
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.Phone = req.Phone
	student.Status = req.Status
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, studentWriteError(err, "failed to update student")
	}
	s.cache.InvalidateUser(ctx, userID)
	return student, nil
}

// ToggleStatus flips a student between active and inactive.
func (s *StudentService) ToggleStatus(ctx context.Context, userID, id string) (*models.Student, error) {
	if err := validStudentID(id); err != nil {
		return nil, err
	}
	student, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, studentLookupError(err)
	}
	next := student.Status.Toggled()
	if err := s.repo.UpdateStatus(ctx, userID, id, next); err != nil {
		return nil, studentWriteError(err, "failed to update student status")
	}
	student.Status = next
	student.UpdatedAt = s.now().UTC()
	s.cache.InvalidateUser(ctx, userID)
	return student, nil
}

// Delete hard deletes a student.
func (s *StudentService) Delete(ctx context.Context, userID, id string, meta models.RequestMeta) error {
	if err := validStudentID(id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return studentWriteError(err, "failed to delete student")
	}
	s.cache.InvalidateUser(ctx, userID)
	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionStudentDelete,
		Resource:   "students",
		ResourceID: &id,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	return nil
}

// Import parses an uploaded roster. Unless dryRun is set, every valid row is
// inserted in one transaction.
func (s *StudentService) Import(ctx context.Context, userID string, content []byte, dryRun bool, meta models.RequestMeta) (*ImportResult, error) {
	outcome := roster.Parse(string(content))
	accepted, rejected := len(outcome.Students), len(outcome.InvalidRows)

	if outcome.Structural() {
		s.metrics.RecordImport(dryRun, "rejected", 0, 0)
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, outcome.Errors[0]), outcome)
	}
	if !outcome.Success {
		s.metrics.RecordImport(dryRun, "failed", accepted, rejected)
		return nil, appErrors.WithDetails(appErrors.ErrImportFailed, outcome)
	}

	result := &ImportResult{ImportOutcome: outcome, DryRun: dryRun}
	if dryRun {
		s.metrics.RecordImport(true, "ok", accepted, rejected)
		return result, nil
	}

	students := make([]*models.Student, 0, accepted)
	for _, row := range outcome.Students {
		students = append(students, &models.Student{
			UserID:    userID,
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Phone:     row.Phone,
			Status:    models.StudentStatusActive,
		})
	}
	if err := s.repo.CreateBatch(ctx, students); err != nil {
		s.metrics.RecordImport(false, "error", 0, 0)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import students")
	}
	result.Created = len(students)
	s.metrics.RecordImport(false, "ok", accepted, rejected)
	s.cache.InvalidateUser(ctx, userID)

	payload, _ := json.Marshal(map[string]int{"created": result.Created, "rejected": rejected})
	recordAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:    &userID,
		Action:    models.AuditActionStudentImport,
		Resource:  "students",
		NewValues: payload,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})
	s.logger.Info("roster imported", zap.String("user_id", userID), zap.Int("created", result.Created), zap.Int("rejected", rejected))
	return result, nil
}

// Export renders the owner's full roster.
func (s *StudentService) Export(ctx context.Context, userID string, format roster.Format) (*roster.File, error) {
	if format != roster.FormatCSV && format != roster.FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	students, err := s.repo.ListAll(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	file, err := s.transcoder.Export(students, format)
	if err != nil {
		if errors.Is(err, roster.ErrNothingToExport) {
			return nil, appErrors.ErrEmptyExport
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	s.metrics.RecordExport(string(format))
	return file, nil
}

// Sample returns the import template.
func (s *StudentService) Sample() (*roster.File, error) {
	file, err := s.transcoder.Sample()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render sample")
	}
	return file, nil
}

func (s *StudentService) enrollmentDate(raw string) (time.Time, error) {
	if raw == "" {
		now := s.now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	parsed, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "enrollment_date must be YYYY-MM-DD")
	}
	return parsed, nil
}

// validStudentID maps ids that cannot exist in the uuid column to not found.
func validStudentID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}

func studentLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
}

func studentWriteError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
