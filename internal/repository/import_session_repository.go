package repository

import (
	"errors"
	"fmt"
	"time"

	"crm-web/internal/models"

	"github.com/jmoiron/sqlx"
)

// ErrSessionLocked is returned when a session cannot move to the requested status.
var ErrSessionLocked = errors.New("import session is already queued, submitting or completed")

const sessionColumns = `id, session_code, user_id, filename, total_rows, submitted_rows, failed_row,
	status, COALESCE(error_message, '') AS error_message, created_at, updated_at`

type ImportSessionRepository struct {
	db *sqlx.DB
}

func NewImportSessionRepository(db *sqlx.DB) *ImportSessionRepository {
	return &ImportSessionRepository{db: db}
}

func (r *ImportSessionRepository) CreateSession(session *models.ImportSession) error {
	query := `INSERT INTO import_sessions (session_code, user_id, filename, total_rows, status, rows_json)
	          VALUES (:session_code, :user_id, :filename, :total_rows, :status, :rows_json)`
	result, err := r.db.NamedExec(query, session)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	session.ID = int(id)
	return nil
}

// GetSessionByCode loads a session without its rows.
func (r *ImportSessionRepository) GetSessionByCode(code string) (*models.ImportSession, error) {
	var session models.ImportSession
	query := "SELECT " + sessionColumns + " FROM import_sessions WHERE session_code = ? LIMIT 1"
	if err := r.db.Get(&session, query, code); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSessionRows returns the stored rows JSON of a session.
func (r *ImportSessionRepository) GetSessionRows(code string) (string, error) {
	var rows string
	err := r.db.Get(&rows, "SELECT rows_json FROM import_sessions WHERE session_code = ? LIMIT 1", code)
	return rows, err
}

// GetSessions lists sessions newest first. userID 0 lists every user's sessions.
func (r *ImportSessionRepository) GetSessions(limit, offset, userID int, status string) ([]models.ImportSession, int, error) {
	sessions := []models.ImportSession{}
	var total int

	whereClause := "WHERE 1=1"
	args := []interface{}{}
	if userID > 0 {
		whereClause += " AND user_id = ?"
		args = append(args, userID)
	}
	if status != "" {
		whereClause += " AND status = ?"
		args = append(args, status)
	}

	countQuery := "SELECT COUNT(*) FROM import_sessions " + whereClause
	if err := r.db.Get(&total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + sessionColumns + " FROM import_sessions " + whereClause + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	if err := r.db.Select(&sessions, query, args...); err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

// MarkQueued moves a validated or failed session to queued. It returns
// ErrSessionLocked when another request got there first.
func (r *ImportSessionRepository) MarkQueued(code string) error {
	query := `UPDATE import_sessions SET status = ?, error_message = NULL, failed_row = NULL
	          WHERE session_code = ? AND status IN (?, ?)`
	result, err := r.db.Exec(query, models.ImportStatusQueued, code, models.ImportStatusValidated, models.ImportStatusFailed)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionLocked
	}
	return nil
}

// MarkSubmitting claims a queued session for a worker. It returns
// ErrSessionLocked when the session is no longer queued.
func (r *ImportSessionRepository) MarkSubmitting(code string) error {
	query := "UPDATE import_sessions SET status = ? WHERE session_code = ? AND status = ?"
	result, err := r.db.Exec(query, models.ImportStatusSubmitting, code, models.ImportStatusQueued)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionLocked
	}
	return nil
}

// ReclaimStale marks a queued or submitting session failed when it has not
// changed since before. It reports whether the session was reclaimed.
func (r *ImportSessionRepository) ReclaimStale(code string, before time.Time, errMsg string) (bool, error) {
	return r.failUnfinished(code, errMsg, " AND updated_at < ?", before)
}

// FailUnfinished marks a queued or submitting session failed. It reports
// whether the session was still unfinished.
func (r *ImportSessionRepository) FailUnfinished(code, errMsg string) (bool, error) {
	return r.failUnfinished(code, errMsg, "")
}

func (r *ImportSessionRepository) failUnfinished(code, errMsg, extra string, extraArgs ...interface{}) (bool, error) {
	query := `UPDATE import_sessions SET status = ?, failed_row = 0, error_message = ?
	          WHERE session_code = ? AND status IN (?, ?)` + extra
	args := []interface{}{models.ImportStatusFailed, errMsg, code, models.ImportStatusQueued, models.ImportStatusSubmitting}
	result, err := r.db.Exec(query, append(args, extraArgs...)...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *ImportSessionRepository) UpdateSessionStatus(code, status string) error {
	_, err := r.db.Exec("UPDATE import_sessions SET status = ? WHERE session_code = ?", status, code)
	return err
}

func (r *ImportSessionRepository) UpdateProgress(code string, submitted int) error {
	_, err := r.db.Exec("UPDATE import_sessions SET submitted_rows = ? WHERE session_code = ?", submitted, code)
	return err
}

// FinishSession records the outcome of a submission run.
func (r *ImportSessionRepository) FinishSession(code string, submitted int, failedRow *int, errMsg string) error {
	status := models.ImportStatusCompleted
	var message interface{}
	if failedRow != nil {
		status = models.ImportStatusFailed
		message = errMsg
	}

	query := `UPDATE import_sessions SET status = ?, submitted_rows = ?, failed_row = ?, error_message = ?
	          WHERE session_code = ?`
	result, err := r.db.Exec(query, status, submitted, failedRow, message, code)
	if err != nil {
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("import session %s not found", code)
	}
	return nil
}

func (r *ImportSessionRepository) DeleteSession(code string) error {
	_, err := r.db.Exec("DELETE FROM import_sessions WHERE session_code = ?", code)
	return err
}
