package models

import "time"

const (
	ImportStatusValidated  = "validated"
	ImportStatusQueued     = "queued"
	ImportStatusSubmitting = "submitting"
	ImportStatusCompleted  = "completed"
	ImportStatusFailed     = "failed"
)

type ImportSession struct {
	ID            int       `db:"id" json:"id"`
	SessionCode   string    `db:"session_code" json:"session_code"`
	UserID        int       `db:"user_id" json:"user_id"`
	Filename      string    `db:"filename" json:"filename"`
	TotalRows     int       `db:"total_rows" json:"total_rows"`
	SubmittedRows int       `db:"submitted_rows" json:"submitted_rows"`
	FailedRow     *int      `db:"failed_row" json:"failed_row"`
	Status        string    `db:"status" json:"status"`
	ErrorMessage  string    `db:"error_message" json:"error_message"`
	RowsJSON      string    `db:"rows_json" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// IsLocked reports whether the session can no longer be submitted.
func (s *ImportSession) IsLocked() bool {
	switch s.Status {
	case ImportStatusQueued, ImportStatusSubmitting, ImportStatusCompleted:
		return true
	}
	return false
}

type ImportProgress struct {
	SessionCode   string  `json:"session_code"`
	Status        string  `json:"status"`
	TotalRows     int     `json:"total_rows"`
	SubmittedRows int     `json:"submitted_rows"`
	Progress      float64 `json:"progress"`
}

// ImportProgressTTL bounds how long a progress snapshot stays in Redis.
const ImportProgressTTL = 24 * time.Hour

// ImportProgressKey is the Redis key holding a session's progress snapshot.
func ImportProgressKey(sessionCode string) string {
	return "import:progress:" + sessionCode
}

// NewImportProgress computes the completion percentage of a run.
func NewImportProgress(sessionCode, status string, total, submitted int) ImportProgress {
	p := ImportProgress{
		SessionCode:   sessionCode,
		Status:        status,
		TotalRows:     total,
		SubmittedRows: submitted,
	}
	if total > 0 {
		p.Progress = float64(submitted) / float64(total) * 100
	}
	return p
}
