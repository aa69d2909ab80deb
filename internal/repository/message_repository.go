package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/teacher-dashboard-api/internal/models"
)

// MessageRepository runs read-only aggregates over the chat message log.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs a MessageRepository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageScope = `FROM message_logs WHERE user_id = $1 AND created_at >= $2 AND created_at < $3`

// Totals counts messages by direction and the distinct students that wrote in.
func (r *MessageRepository) Totals(ctx context.Context, rng models.MessageRange) (models.MessageTotals, error) {
	query := `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE direction = 'inbound') AS inbound,
        COUNT(*) FILTER (WHERE direction = 'outbound') AS outbound,
        COUNT(DISTINCT student_id) AS active_students ` + messageScope
	var totals models.MessageTotals
	if err := r.db.GetContext(ctx, &totals, query, rng.UserID, rng.From, rng.To); err != nil {
		return models.MessageTotals{}, fmt.Errorf("message totals: %w", err)
	}
	return totals, nil
}

// DailyCounts returns message counts per day. Days without traffic are absent.
func (r *MessageRepository) DailyCounts(ctx context.Context, rng models.MessageRange) ([]models.DailyMessageCount, error) {
	query := `SELECT date_trunc('day', created_at) AS day, COUNT(*) AS count ` + messageScope + ` GROUP BY day ORDER BY day ASC`
	rows := []models.DailyMessageCount{}
	if err := r.db.SelectContext(ctx, &rows, query, rng.UserID, rng.From, rng.To); err != nil {
		return nil, fmt.Errorf("daily message counts: %w", err)
	}
	return rows, nil
}

// TopStudents ranks the owner's students by message volume.
func (r *MessageRepository) TopStudents(ctx context.Context, rng models.MessageRange, limit int) ([]models.StudentMessageCount, error) {
	if limit <= 0 {
		limit = 5
	}
	const query = `SELECT m.student_id, s.first_name, s.last_name, COUNT(*) AS count
        FROM message_logs m
        JOIN students s ON s.id = m.student_id AND s.user_id = m.user_id
        WHERE m.user_id = $1 AND m.created_at >= $2 AND m.created_at < $3
        GROUP BY m.student_id, s.first_name, s.last_name
        ORDER BY count DESC, s.last_name ASC, s.first_name ASC
        LIMIT $4`
	rows := []models.StudentMessageCount{}
	if err := r.db.SelectContext(ctx, &rows, query, rng.UserID, rng.From, rng.To, limit); err != nil {
		return nil, fmt.Errorf("top students: %w", err)
	}
	return rows, nil
}

// ModelUsage sums token counts per model.
func (r *MessageRepository) ModelUsage(ctx context.Context, rng models.MessageRange) ([]models.ModelTokenUsage, error) {
	query := `SELECT model, COUNT(*) AS requests,
        COALESCE(SUM(prompt_tokens), 0) AS prompt_tokens,
        COALESCE(SUM(completion_tokens), 0) AS completion_tokens ` + messageScope + ` AND model <> '' GROUP BY model ORDER BY model ASC`
	rows := []models.ModelTokenUsage{}
	if err := r.db.SelectContext(ctx, &rows, query, rng.UserID, rng.From, rng.To); err != nil {
		return nil, fmt.Errorf("model usage: %w", err)
	}
	return rows, nil
}

// DailyUsage sums token counts per day and model.
func (r *MessageRepository) DailyUsage(ctx context.Context, rng models.MessageRange) ([]models.DailyTokenUsage, error) {
	query := `SELECT date_trunc('day', created_at) AS day, model,
        COALESCE(SUM(prompt_tokens), 0) AS prompt_tokens,
        COALESCE(SUM(completion_tokens), 0) AS completion_tokens ` + messageScope + ` AND model <> '' GROUP BY day, model ORDER BY day ASC, model ASC`
	rows := []models.DailyTokenUsage{}
	if err := r.db.SelectContext(ctx, &rows, query, rng.UserID, rng.From, rng.To); err != nil {
		return nil, fmt.Errorf("daily usage: %w", err)
	}
	return rows, nil
}
