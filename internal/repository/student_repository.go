package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/teacher-dashboard-api/internal/models"
)

const studentColumns = "id, user_id, first_name, last_name, phone, enrollment_date, status, created_at, updated_at"

// StudentRepository manages persistence for student records. Every query is scoped
// to the owning user.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	args := []interface{}{filter.UserID}
	conditions := []string{"user_id = $1"}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR phone LIKE $%d)", idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	where := "FROM students WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"first_name":      "first_name",
		"last_name":       "last_name",
		"enrollment_date": "enrollment_date",
		"created_at":      "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, where, column, order, size, offset)

	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns the full roster in creation order, used for exports.
func (r *StudentRepository) ListAll(ctx context.Context, userID string) ([]models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE user_id = $1 ORDER BY created_at ASC, id ASC"
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, userID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return students, nil
}

// FindByID fetches a student owned by userID. It returns sql.ErrNoRows when absent.
func (r *StudentRepository) FindByID(ctx context.Context, userID, id string) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE id = $1 AND user_id = $2"
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

const insertStudent = `INSERT INTO students (id, user_id, first_name, last_name, phone, enrollment_date, status, created_at, updated_at)
        VALUES (:id, :user_id, :first_name, :last_name, :phone, :enrollment_date, :status, :created_at, :updated_at)`

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	prepareStudent(student, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, insertStudent, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// CreateBatch inserts all students in a single transaction.
func (r *StudentRepository) CreateBatch(ctx context.Context, students []*models.Student) error {
	if len(students) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	now := time.Now().UTC()
	for _, student := range students {
		prepareStudent(student, now)
		if _, err := tx.NamedExecContext(ctx, insertStudent, student); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("import student: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// Update modifies an existing student. It returns sql.ErrNoRows when nothing matched.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, phone = :phone, enrollment_date = :enrollment_date, status = :status, updated_at = :updated_at WHERE id = :id AND user_id = :user_id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return requireAffected(res)
}

// UpdateStatus sets the status of one student.
func (r *StudentRepository) UpdateStatus(ctx context.Context, userID, id string, status models.StudentStatus) error {
	const query = `UPDATE students SET status = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a student. It returns sql.ErrNoRows when nothing matched.
func (r *StudentRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM students WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireAffected(res)
}

// Counts returns the total and active roster size.
func (r *StudentRepository) Counts(ctx context.Context, userID string) (models.StudentCounts, error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE status = 'active') AS active FROM students WHERE user_id = $1`
	var counts models.StudentCounts
	if err := r.db.GetContext(ctx, &counts, query, userID); err != nil {
		return models.StudentCounts{}, fmt.Errorf("count roster: %w", err)
	}
	return counts, nil
}

func prepareStudent(student *models.Student, now time.Time) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.Status == "" {
		student.Status = models.StudentStatusActive
	}
	if student.EnrollmentDate.IsZero() {
		student.EnrollmentDate = now.Truncate(24 * time.Hour)
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
