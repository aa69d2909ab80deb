package models

import "time"

// MessageDirection tells whether a student or the assistant sent a message.
type MessageDirection string

const (
	MessageInbound  MessageDirection = "inbound"
	MessageOutbound MessageDirection = "outbound"
)

// MessageLog is one chat message exchanged with a student. Rows are written by the
// chat relay; this service only aggregates them.
type MessageLog struct {
	ID               string           `db:"id" json:"id"`
	UserID           string           `db:"user_id" json:"user_id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	Direction        MessageDirection `db:"direction" json:"direction"`
	Model            string           `db:"model" json:"model"`
	PromptTokens     int64            `db:"prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int64            `db:"completion_tokens" json:"completion_tokens"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

// MessageRange scopes message log queries to one owner and a half-open time range.
type MessageRange struct {
	UserID string
	From   time.Time
	To     time.Time
}

// MessageTotals aggregates message counts over a range.
type MessageTotals struct {
	Total          int `db:"total"`
	Inbound        int `db:"inbound"`
	Outbound       int `db:"outbound"`
	ActiveStudents int `db:"active_students"`
}

// DailyMessageCount is the number of messages sent on one calendar day.
type DailyMessageCount struct {
	Day   time.Time `db:"day"`
	Count int       `db:"count"`
}

// StudentMessageCount ranks students by message volume.
type StudentMessageCount struct {
	StudentID string `db:"student_id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Count     int    `db:"count"`
}

// StudentCounts summarises the roster size.
type StudentCounts struct {
	Total  int `db:"total"`
	Active int `db:"active"`
}

// ModelTokenUsage aggregates token counts for one model.
type ModelTokenUsage struct {
	Model            string `db:"model"`
	Requests         int    `db:"requests"`
	PromptTokens     int64  `db:"prompt_tokens"`
	CompletionTokens int64  `db:"completion_tokens"`
}

// DailyTokenUsage aggregates token counts for one model on one day.
type DailyTokenUsage struct {
	Day              time.Time `db:"day"`
	Model            string    `db:"model"`
	PromptTokens     int64     `db:"prompt_tokens"`
	CompletionTokens int64     `db:"completion_tokens"`
}
