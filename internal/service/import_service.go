package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"crm-web/internal/config"
	"crm-web/internal/importer"
	"crm-web/internal/models"
	"crm-web/internal/repository"
	"crm-web/internal/utils"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// TaskClientImportSubmit is the asynq task type that submits a validated session.
const TaskClientImportSubmit = "client_import:submit"

const previewRows = 10

const staleSessionMessage = "submission did not finish; resubmit to try again"

var (
	ErrQueueUnavailable = errors.New("background job processing is not available (Redis not connected)")
	ErrSessionNotFound  = errors.New("import session not found")
	ErrSessionBusy      = errors.New("import session is being submitted")
	ErrInvalidReport    = errors.New("invalid error report name")
)

// FileTooLargeError is returned for uploads above UPLOAD_MAX_SIZE.
type FileTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file size %s exceeds the %s limit",
		humanize.Bytes(uint64(e.Size)), humanize.Bytes(uint64(e.Limit)))
}

// SubmitTaskPayload is the body of a client_import:submit task.
type SubmitTaskPayload struct {
	SessionCode string `json:"session_code"`
}

// NewSubmitTask builds the task that submits a session. Submissions are not
// retried: a retry would create the already-submitted clients twice.
func NewSubmitTask(sessionCode string) (*asynq.Task, error) {
	payload, err := json.Marshal(SubmitTaskPayload{SessionCode: sessionCode})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskClientImportSubmit, payload, asynq.MaxRetry(0)), nil
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ImportOutcome is the result of an upload. Session is nil when the file was
// rejected by validation.
type ImportOutcome struct {
	Session *models.ImportSession      `json:"session,omitempty"`
	Result  *models.ClientImportResult `json:"result"`
	Preview []models.ImportClientRow   `json:"preview,omitempty"`
}

type ImportService struct {
	repo   *repository.ImportSessionRepository
	excel  *ExcelService
	queue  TaskEnqueuer
	redis  *redis.Client
	cfg    *config.Config
	logger *logrus.Logger
}

func NewImportService(
	repo *repository.ImportSessionRepository,
	excel *ExcelService,
	queue TaskEnqueuer,
	redis *redis.Client,
	cfg *config.Config,
	logger *logrus.Logger,
) *ImportService {
	return &ImportService{
		repo:   repo,
		excel:  excel,
		queue:  queue,
		redis:  redis,
		cfg:    cfg,
		logger: logger,
	}
}

// CheckUpload rejects files by extension and size before they are saved.
func (s *ImportService) CheckUpload(filename string, size int64) error {
	if !IsSupportedImportFile(filename) {
		return &importer.FileShapeError{Filename: filename, Err: importer.ErrUnsupportedFile}
	}
	if limit := int64(s.cfg.UploadMaxSize); limit > 0 && size > limit {
		return &FileTooLargeError{Size: size, Limit: limit}
	}
	return nil
}

// Import parses and validates a saved upload. A file with validation errors
// produces an error report and no session; a clean file produces a session
// in the validated state.
func (s *ImportService) Import(userID int, filename, filePath string) (*ImportOutcome, error) {
	log := s.logger.WithField("filename", filename)

	result, err := s.excel.ParseClientFile(filePath)
	if err != nil {
		return nil, err
	}

	if result.HasErrors() {
		reportName := fmt.Sprintf("import_errors_%s.xlsx", uuid.New().String()[:8])
		if err := os.MkdirAll(s.cfg.ExportPath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create export directory: %w", err)
		}
		if err := s.excel.GenerateImportErrorReport(result, filepath.Join(s.cfg.ExportPath, reportName)); err != nil {
			log.WithError(err).Warn("Failed to generate import error report")
		} else {
			result.ErrorReportPath = reportName
		}
		log.WithField("errors", len(result.ValidationErrors)).Info("Import rejected by validation")
		return &ImportOutcome{Result: result}, nil
	}

	rowsJSON, err := json.Marshal(result.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rows: %w", err)
	}

	session := &models.ImportSession{
		SessionCode: fmt.Sprintf("IMPORT-%s", uuid.New().String()[:8]),
		UserID:      userID,
		Filename:    filename,
		TotalRows:   len(result.Rows),
		Status:      models.ImportStatusValidated,
		RowsJSON:    string(rowsJSON),
	}
	if err := s.repo.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create import session: %w", err)
	}

	log.WithFields(logrus.Fields{
		"session_code": session.SessionCode,
		"rows":         session.TotalRows,
	}).Info("Import validated")

	preview := result.Rows
	if len(preview) > previewRows {
		preview = preview[:previewRows]
	}

	return &ImportOutcome{Session: session, Result: result, Preview: preview}, nil
}

// Viewer is the user acting on a session. Admins may act on every session,
// other users only on their own.
type Viewer struct {
	UserID int
	Admin  bool
}

func (v Viewer) canAccess(session *models.ImportSession) bool {
	return v.Admin || session.UserID == v.UserID
}

// Submit queues a validated (or previously failed) session for submission.
func (s *ImportService) Submit(ctx context.Context, code string, viewer Viewer) (*models.ImportSession, string, error) {
	if s.queue == nil {
		return nil, "", ErrQueueUnavailable
	}

	session, err := s.GetSession(code, viewer)
	if err != nil {
		return nil, "", err
	}
	if err := s.reclaimStale(session); err != nil {
		return nil, "", err
	}
	if session.IsLocked() {
		return nil, "", repository.ErrSessionLocked
	}

	task, err := NewSubmitTask(code)
	if err != nil {
		return nil, "", err
	}

	if err := s.repo.MarkQueued(code); err != nil {
		return nil, "", err
	}

	info, err := s.queue.EnqueueContext(ctx, task)
	if err != nil {
		if rerr := s.repo.UpdateSessionStatus(code, session.Status); rerr != nil {
			s.logger.WithError(rerr).WithField("session_code", code).Error("Failed to restore session status")
		}
		return nil, "", fmt.Errorf("failed to queue submission: %w", err)
	}

	session.Status = models.ImportStatusQueued
	session.FailedRow = nil
	session.ErrorMessage = ""
	s.publishProgress(ctx, models.NewImportProgress(code, session.Status, session.TotalRows, session.SubmittedRows))

	s.logger.WithFields(logrus.Fields{
		"session_code": code,
		"job_id":       info.ID,
	}).Info("Import submission queued")

	return session, info.ID, nil
}

// GetSession loads a session. Sessions the viewer cannot access are reported
// as not found.
func (s *ImportService) GetSession(code string, viewer Viewer) (*models.ImportSession, error) {
	session, err := s.repo.GetSessionByCode(code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if !viewer.canAccess(session) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// GetSessionRows returns the rows stored for a session.
func (s *ImportService) GetSessionRows(code string, viewer Viewer) ([]models.ImportClientRow, error) {
	if _, err := s.GetSession(code, viewer); err != nil {
		return nil, err
	}
	raw, err := s.repo.GetSessionRows(code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var rows []models.ImportClientRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	return rows, nil
}

// Progress prefers the worker's Redis snapshot and falls back to the
// counters stored on the session.
func (s *ImportService) Progress(ctx context.Context, code string, viewer Viewer) (*models.ImportProgress, error) {
	session, err := s.GetSession(code, viewer)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		raw, err := s.redis.Get(ctx, models.ImportProgressKey(code)).Bytes()
		switch {
		case err == nil:
			var p models.ImportProgress
			if jerr := json.Unmarshal(raw, &p); jerr == nil {
				return &p, nil
			}
		case !errors.Is(err, redis.Nil):
			s.logger.WithError(err).WithField("session_code", code).Warn("Failed to read import progress")
		}
	}

	p := models.NewImportProgress(code, session.Status, session.TotalRows, session.SubmittedRows)
	return &p, nil
}

func (s *ImportService) ListSessions(params PageQuery) ([]models.ImportSession, int, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	return s.repo.GetSessions(params.Limit, utils.GetOffset(params.Page, params.Limit), params.UserID, params.Status)
}

// PageQuery selects a page of sessions. UserID 0 means every user.
type PageQuery struct {
	Page   int
	Limit  int
	UserID int
	Status string
}

// DeleteSession removes a session unless a submission is in flight.
func (s *ImportService) DeleteSession(ctx context.Context, code string, viewer Viewer) error {
	session, err := s.GetSession(code, viewer)
	if err != nil {
		return err
	}
	if err := s.reclaimStale(session); err != nil {
		return err
	}
	if session.Status == models.ImportStatusQueued || session.Status == models.ImportStatusSubmitting {
		return ErrSessionBusy
	}
	if err := s.repo.DeleteSession(code); err != nil {
		return err
	}
	if s.redis != nil {
		s.redis.Del(ctx, models.ImportProgressKey(code))
	}
	return nil
}

// ExportSessions writes the session list to an .xlsx file under ExportPath
// and returns its path.
func (s *ImportService) ExportSessions(userID int, status string) (string, error) {
	sessions, _, err := s.repo.GetSessions(100000, 0, userID, status)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.cfg.ExportPath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	name := fmt.Sprintf("import_sessions_%s.xlsx", time.Now().Format("20060102_150405"))
	path := filepath.Join(s.cfg.ExportPath, name)
	if err := s.excel.ExportSessionsList(sessions, path); err != nil {
		return "", err
	}
	return path, nil
}

// TemplatePath writes a fresh import template and returns its path.
func (s *ImportService) TemplatePath() (string, error) {
	if err := os.MkdirAll(s.cfg.ExportPath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(s.cfg.ExportPath, "client_import_template.xlsx")
	if err := s.excel.GenerateClientTemplate(path); err != nil {
		return "", err
	}
	return path, nil
}

// ErrorReportPath resolves a report name returned by Import.
func (s *ImportService) ErrorReportPath(name string) (string, error) {
	if name != filepath.Base(name) || !strings.HasPrefix(name, "import_errors_") || filepath.Ext(name) != ".xlsx" {
		return "", ErrInvalidReport
	}
	path := filepath.Join(s.cfg.ExportPath, name)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// reclaimStale fails a queued or submitting session whose worker has not
// touched it for ImportStaleAfter, so it can be resubmitted or deleted.
func (s *ImportService) reclaimStale(session *models.ImportSession) error {
	if session.Status != models.ImportStatusQueued && session.Status != models.ImportStatusSubmitting {
		return nil
	}
	cutoff := time.Now().Add(-s.cfg.ImportStaleAfter)
	if s.cfg.ImportStaleAfter <= 0 || !session.UpdatedAt.Before(cutoff) {
		return nil
	}

	reclaimed, err := s.repo.ReclaimStale(session.SessionCode, cutoff, staleSessionMessage)
	if err != nil {
		return fmt.Errorf("failed to reclaim stale session: %w", err)
	}
	if !reclaimed {
		return nil
	}

	s.logger.WithFields(logrus.Fields{
		"session_code": session.SessionCode,
		"status":       session.Status,
		"updated_at":   session.UpdatedAt,
	}).Warn("Reclaimed stale import session")

	zero := 0
	session.Status = models.ImportStatusFailed
	session.FailedRow = &zero
	session.ErrorMessage = staleSessionMessage
	return nil
}

func (s *ImportService) publishProgress(ctx context.Context, p models.ImportProgress) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, models.ImportProgressKey(p.SessionCode), data, models.ImportProgressTTL).Err(); err != nil {
		s.logger.WithError(err).WithField("session_code", p.SessionCode).Warn("Failed to store import progress")
	}
}
