package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crm-web/internal/importer"
	"crm-web/internal/models"
	"crm-web/internal/repository"
	"crm-web/internal/service"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ClientCreator is satisfied by *crmapi.Client.
type ClientCreator interface {
	CreateClient(ctx context.Context, payload models.ClientPayload) (*models.CreatedClient, error)
}

const finishAttempts = 3

// SubmitTaskHandler creates the clients of one import session, one at a time.
type SubmitTaskHandler struct {
	repo       *repository.ImportSessionRepository
	crm        ClientCreator
	redis      *redis.Client
	logger     *logrus.Logger
	retryDelay time.Duration
}

func NewSubmitTaskHandler(repo *repository.ImportSessionRepository, crm ClientCreator, redis *redis.Client, logger *logrus.Logger) *SubmitTaskHandler {
	return &SubmitTaskHandler{
		repo:       repo,
		crm:        crm,
		redis:      redis,
		logger:     logger,
		retryDelay: 500 * time.Millisecond,
	}
}

func (h *SubmitTaskHandler) Handle(ctx context.Context, task *asynq.Task) error {
	var payload service.SubmitTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	code := payload.SessionCode
	log := h.logger.WithField("session_code", code)

	session, err := h.repo.GetSessionByCode(code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Session no longer exists, skipping submission")
			return fmt.Errorf("session %s not found: %w", code, asynq.SkipRetry)
		}
		h.release(ctx, code, 0, fmt.Sprintf("failed to load session: %v", err))
		return fmt.Errorf("failed to get session: %v: %w", err, asynq.SkipRetry)
	}
	if session.Status != models.ImportStatusQueued {
		log.WithField("status", session.Status).Info("Session is not queued, skipping submission")
		return nil
	}

	if err := h.repo.MarkSubmitting(code); err != nil {
		if errors.Is(err, repository.ErrSessionLocked) {
			log.Info("Session was claimed elsewhere, skipping submission")
			return nil
		}
		h.release(ctx, code, session.TotalRows, fmt.Sprintf("failed to start submission: %v", err))
		return fmt.Errorf("failed to update session status: %v: %w", err, asynq.SkipRetry)
	}

	raw, err := h.repo.GetSessionRows(code)
	if err != nil {
		h.fail(ctx, session, 0, nil, fmt.Sprintf("failed to load rows: %v", err))
		return fmt.Errorf("failed to load rows: %v: %w", err, asynq.SkipRetry)
	}
	var rows []models.ImportClientRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		h.fail(ctx, session, 0, nil, fmt.Sprintf("stored rows are unreadable: %v", err))
		return fmt.Errorf("failed to decode rows: %v: %w", err, asynq.SkipRetry)
	}

	h.publish(ctx, models.NewImportProgress(code, models.ImportStatusSubmitting, len(rows), 0))
	log.WithField("rows", len(rows)).Info("Starting client submission")

	result := importer.SubmitSequential(ctx, rows, func(ctx context.Context, i int, row models.ImportClientRow) (*models.CreatedClient, error) {
		body, err := importer.BuildClientPayload(row)
		if err != nil {
			return nil, err
		}
		created, err := h.crm.CreateClient(ctx, body)
		if err != nil {
			return nil, err
		}
		if err := h.repo.UpdateProgress(code, i+1); err != nil {
			log.WithError(err).Warn("Failed to record submission progress")
		}
		h.publish(ctx, models.NewImportProgress(code, models.ImportStatusSubmitting, len(rows), i+1))
		return created, nil
	})

	submitted := len(result.Succeeded)
	if result.OK() {
		if err := h.finish(code, submitted); err != nil {
			log.WithError(err).WithField("submitted", submitted).Error("Failed to record completed import")
			return fmt.Errorf("failed to finish session: %v: %w", err, asynq.SkipRetry)
		}
		h.publish(ctx, models.NewImportProgress(code, models.ImportStatusCompleted, len(rows), submitted))
		log.WithField("submitted", submitted).Info("Client import completed")
		return nil
	}

	failedRow := rows[result.FailedAt].Row
	h.fail(ctx, session, submitted, &failedRow, result.Err.Error())
	log.WithError(result.Err).WithFields(logrus.Fields{
		"submitted":  submitted,
		"failed_row": failedRow,
	}).Warn("Client import stopped at first failure")

	return fmt.Errorf("row %d: %v: %w", failedRow, result.Err, asynq.SkipRetry)
}

// finish records a completed run. Every client already exists at this point,
// so the write is attempted finishAttempts times before giving up.
func (h *SubmitTaskHandler) finish(code string, submitted int) error {
	var err error
	for attempt := 1; attempt <= finishAttempts; attempt++ {
		if err = h.repo.FinishSession(code, submitted, nil, ""); err == nil {
			return nil
		}
		if attempt < finishAttempts {
			time.Sleep(h.retryDelay)
		}
	}
	return err
}

func (h *SubmitTaskHandler) fail(ctx context.Context, session *models.ImportSession, submitted int, failedRow *int, msg string) {
	if failedRow == nil {
		zero := 0
		failedRow = &zero
	}
	if err := h.repo.FinishSession(session.SessionCode, submitted, failedRow, msg); err != nil {
		h.logger.WithError(err).WithField("session_code", session.SessionCode).Error("Failed to mark session failed")
	}
	// The task context may already be cancelled.
	h.publish(context.WithoutCancel(ctx), models.NewImportProgress(session.SessionCode, models.ImportStatusFailed, session.TotalRows, submitted))
}

// release fails a session this worker never started submitting, unless it
// has already moved past queued or submitting.
func (h *SubmitTaskHandler) release(ctx context.Context, code string, total int, msg string) {
	released, err := h.repo.FailUnfinished(code, msg)
	if err != nil {
		h.logger.WithError(err).WithField("session_code", code).Error("Failed to release session")
		return
	}
	if released {
		h.publish(context.WithoutCancel(ctx), models.NewImportProgress(code, models.ImportStatusFailed, total, 0))
	}
}

func (h *SubmitTaskHandler) publish(ctx context.Context, p models.ImportProgress) {
	if h.redis == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := h.redis.Set(ctx, models.ImportProgressKey(p.SessionCode), data, models.ImportProgressTTL).Err(); err != nil {
		h.logger.WithError(err).WithField("session_code", p.SessionCode).Warn("Failed to publish import progress")
	}
}
