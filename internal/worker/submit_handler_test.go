package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"crm-web/internal/crmapi"
	"crm-web/internal/models"
	"crm-web/internal/repository"
	"crm-web/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionLabels = []string{"id", "session_code", "user_id", "filename", "total_rows",
	"submitted_rows", "failed_row", "status", "error_message", "created_at", "updated_at"}

type fakeCRM struct {
	failOn int
	err    error
	names  []string
}

func (f *fakeCRM) CreateClient(ctx context.Context, payload models.ClientPayload) (*models.CreatedClient, error) {
	f.names = append(f.names, payload.Name)
	if len(f.names) == f.failOn {
		return nil, f.err
	}
	return &models.CreatedClient{ID: models.ClientID(payload.Name), Name: payload.Name}, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newHandler(t *testing.T, crm ClientCreator, rdb *redis.Client) (*SubmitTaskHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := repository.NewImportSessionRepository(sqlx.NewDb(db, "mysql"))
	return NewSubmitTaskHandler(repo, crm, rdb, quietLogger()), mock
}

func submitTask(t *testing.T, code string) *asynq.Task {
	t.Helper()
	task, err := service.NewSubmitTask(code)
	require.NoError(t, err)
	return task
}

func importRows(names ...string) []models.ImportClientRow {
	rows := make([]models.ImportClientRow, len(names))
	for i, n := range names {
		rows[i] = models.ImportClientRow{Row: i + 2, ClientName: n}
	}
	return rows
}

func expectSession(t *testing.T, mock sqlmock.Sqlmock, code, status string, rows []models.ImportClientRow) {
	t.Helper()
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM import_sessions WHERE session_code = \\?").
		WithArgs(code).
		WillReturnRows(sqlmock.NewRows(sessionLabels).
			AddRow(1, code, 7, "clients.xlsx", len(rows), 0, nil, status, "", now, now))
	if status != models.ImportStatusQueued {
		return
	}
	expectClaim(mock, code).WillReturnResult(sqlmock.NewResult(0, 1))
	raw, err := json.Marshal(rows)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT rows_json FROM import_sessions").
		WithArgs(code).
		WillReturnRows(sqlmock.NewRows([]string{"rows_json"}).AddRow(string(raw)))
}

func expectClaim(mock sqlmock.Sqlmock, code string) *sqlmock.ExpectedExec {
	return mock.ExpectExec("UPDATE import_sessions SET status = \\? WHERE session_code = \\? AND status = \\?").
		WithArgs(models.ImportStatusSubmitting, code, models.ImportStatusQueued)
}

func expectQueuedSession(mock sqlmock.Sqlmock, code string, total int) {
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM import_sessions WHERE session_code = \\?").
		WithArgs(code).
		WillReturnRows(sqlmock.NewRows(sessionLabels).
			AddRow(1, code, 7, "clients.xlsx", total, 0, nil, models.ImportStatusQueued, "", now, now))
}

func TestHandle_SubmitsEveryRowInOrder(t *testing.T) {
	crm := &fakeCRM{}
	h, mock := newHandler(t, crm, nil)
	rows := importRows("Acme", "Globex", "Initech")

	expectSession(t, mock, "IMPORT-abc", models.ImportStatusQueued, rows)
	for i := range rows {
		mock.ExpectExec("UPDATE import_sessions SET submitted_rows = \\?").
			WithArgs(i+1, "IMPORT-abc").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec("UPDATE import_sessions SET status = \\?, submitted_rows = \\?").
		WithArgs(models.ImportStatusCompleted, 3, sqlmock.AnyArg(), sqlmock.AnyArg(), "IMPORT-abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, h.Handle(context.Background(), submitTask(t, "IMPORT-abc")))
	assert.Equal(t, []string{"Acme", "Globex", "Initech"}, crm.names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_StopsAtFirstFailure(t *testing.T) {
	crm := &fakeCRM{failOn: 2, err: &crmapi.APIError{StatusCode: 409, Message: "client already exists"}}
	h, mock := newHandler(t, crm, nil)
	rows := importRows("Acme", "Globex", "Initech")

	expectSession(t, mock, "IMPORT-abc", models.ImportStatusQueued, rows)
	mock.ExpectExec("UPDATE import_sessions SET submitted_rows = \\?").
		WithArgs(1, "IMPORT-abc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE import_sessions SET status = \\?, submitted_rows = \\?").
		WithArgs(models.ImportStatusFailed, 1, 3, "client already exists", "IMPORT-abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := h.Handle(context.Background(), submitTask(t, "IMPORT-abc"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Equal(t, []string{"Acme", "Globex"}, crm.names, "rows after the failure are never attempted")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_SkipsSessionThatIsNotQueued(t *testing.T) {
	crm := &fakeCRM{}
	h, mock := newHandler(t, crm, nil)

	expectSession(t, mock, "IMPORT-abc", models.ImportStatusCompleted, importRows("Acme"))

	require.NoError(t, h.Handle(context.Background(), submitTask(t, "IMPORT-abc")))
	assert.Empty(t, crm.names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_PublishesProgress(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()
	crm := &fakeCRM{}
	h, mock := newHandler(t, crm, rdb)
	rows := importRows("Acme", "Globex")

	expectSet := func(status string, submitted int) {
		data, err := json.Marshal(models.NewImportProgress("IMPORT-abc", status, 2, submitted))
		require.NoError(t, err)
		rmock.ExpectSet("import:progress:IMPORT-abc", data, models.ImportProgressTTL).SetVal("OK")
	}
	expectSet(models.ImportStatusSubmitting, 0)
	expectSet(models.ImportStatusSubmitting, 1)
	expectSet(models.ImportStatusSubmitting, 2)
	expectSet(models.ImportStatusCompleted, 2)

	expectSession(t, mock, "IMPORT-abc", models.ImportStatusQueued, rows)
	mock.ExpectExec("UPDATE import_sessions SET submitted_rows").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE import_sessions SET submitted_rows").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE import_sessions SET status").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, h.Handle(context.Background(), submitTask(t, "IMPORT-abc")))
	assert.NoError(t, rmock.ExpectationsWereMet())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_RejectsMalformedPayload(t *testing.T) {
	h, _ := newHandler(t, &fakeCRM{}, nil)

	err := h.Handle(context.Background(), asynq.NewTask(service.TaskClientImportSubmit, []byte("{")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandle_StatusUpdateFailureReleasesSession(t *testing.T) {
	crm := &fakeCRM{}
	h, mock := newHandler(t, crm, nil)

	expectQueuedSession(mock, "IMPORT-abc", 2)
	expectClaim(mock, "IMPORT-abc").WillReturnError(errors.New("deadlock found"))
	mock.ExpectExec("UPDATE import_sessions SET status = \\?, failed_row = 0, error_message = \\?").
		WithArgs(models.ImportStatusFailed, "failed to start submission: deadlock found", "IMPORT-abc",
			models.ImportStatusQueued, models.ImportStatusSubmitting).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := h.Handle(context.Background(), submitTask(t, "IMPORT-abc"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Empty(t, crm.names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_SessionLoadFailureReleasesSession(t *testing.T) {
	h, mock := newHandler(t, &fakeCRM{}, nil)

	mock.ExpectQuery("SELECT (.+) FROM import_sessions WHERE session_code = \\?").
		WithArgs("IMPORT-abc").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectExec("UPDATE import_sessions SET status = \\?, failed_row = 0").
		WithArgs(models.ImportStatusFailed, "failed to load session: connection reset", "IMPORT-abc",
			models.ImportStatusQueued, models.ImportStatusSubmitting).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := h.Handle(context.Background(), submitTask(t, "IMPORT-abc"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_RowLoadFailureMarksSessionFailed(t *testing.T) {
	crm := &fakeCRM{}
	h, mock := newHandler(t, crm, nil)

	expectQueuedSession(mock, "IMPORT-abc", 2)
	expectClaim(mock, "IMPORT-abc").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT rows_json FROM import_sessions").
		WithArgs("IMPORT-abc").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectExec("UPDATE import_sessions SET status = \\?, submitted_rows = \\?").
		WithArgs(models.ImportStatusFailed, 0, 0, "failed to load rows: connection reset", "IMPORT-abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := h.Handle(context.Background(), submitTask(t, "IMPORT-abc"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Empty(t, crm.names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_SkipsSessionClaimedElsewhere(t *testing.T) {
	crm := &fakeCRM{}
	h, mock := newHandler(t, crm, nil)

	expectQueuedSession(mock, "IMPORT-abc", 1)
	expectClaim(mock, "IMPORT-abc").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, h.Handle(context.Background(), submitTask(t, "IMPORT-abc")))
	assert.Empty(t, crm.names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_RetriesCompletionWrite(t *testing.T) {
	crm := &fakeCRM{}
	h, mock := newHandler(t, crm, nil)
	h.retryDelay = 0
	rows := importRows("Acme")

	expectSession(t, mock, "IMPORT-abc", models.ImportStatusQueued, rows)
	mock.ExpectExec("UPDATE import_sessions SET submitted_rows = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	finish := "UPDATE import_sessions SET status = \\?, submitted_rows = \\?"
	mock.ExpectExec(finish).WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectExec(finish).
		WithArgs(models.ImportStatusCompleted, 1, sqlmock.AnyArg(), sqlmock.AnyArg(), "IMPORT-abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, h.Handle(context.Background(), submitTask(t, "IMPORT-abc")))
	assert.Equal(t, []string{"Acme"}, crm.names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandle_CompletionWriteGivesUp(t *testing.T) {
	h, mock := newHandler(t, &fakeCRM{}, nil)
	h.retryDelay = 0

	expectSession(t, mock, "IMPORT-abc", models.ImportStatusQueued, importRows("Acme"))
	mock.ExpectExec("UPDATE import_sessions SET submitted_rows = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	for i := 0; i < finishAttempts; i++ {
		mock.ExpectExec("UPDATE import_sessions SET status = \\?, submitted_rows = \\?").
			WillReturnError(errors.New("lock wait timeout"))
	}

	err := h.Handle(context.Background(), submitTask(t, "IMPORT-abc"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.NoError(t, mock.ExpectationsWereMet())
}
