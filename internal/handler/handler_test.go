package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crm-web/internal/config"
	"crm-web/internal/models"
	"crm-web/internal/repository"
	"crm-web/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newImportApp(t *testing.T) (*fiber.App, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		UploadMaxSize: 1 << 20,
		UploadPath:    t.TempDir(),
		ExportPath:    t.TempDir(),
	}
	repo := repository.NewImportSessionRepository(sqlx.NewDb(db, "mysql"))
	svc := service.NewImportService(repo, service.NewExcelService(), nil, nil, cfg, quietLogger())
	h := NewImportHandler(svc, cfg)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", 7)
		c.Locals("role", "user")
		return c.Next()
	})
	app.Post("/imports", h.Upload)
	app.Post("/imports/:code/submit", h.Submit)
	app.Get("/imports/:code", h.GetSession)
	app.Get("/imports/:code/rows", h.GetSessionRows)
	app.Delete("/imports/:code", h.DeleteSession)
	app.Get("/imports/error-report/:filename", h.DownloadErrorReport)
	return app, mock
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/imports", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestUpload_Valid(t *testing.T) {
	app, mock := newImportApp(t)
	mock.ExpectExec("INSERT INTO import_sessions").WillReturnResult(sqlmock.NewResult(1, 1))

	resp, err := app.Test(uploadRequest(t, "clients.csv", "Client Name,City\nAcme,Pune\n\nGlobex,Delhi\n"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	env := decode(t, resp)
	assert.True(t, env.Success)
	var data struct {
		Session     models.ImportSession     `json:"session"`
		SkippedRows int                      `json:"skipped_rows"`
		Preview     []models.ImportClientRow `json:"preview"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, models.ImportStatusValidated, data.Session.Status)
	assert.Equal(t, 1, data.SkippedRows)
	require.Len(t, data.Preview, 2)
	assert.Equal(t, 4, data.Preview[1].Row)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpload_RowErrorsRejectWholeFile(t *testing.T) {
	app, mock := newImportApp(t)

	resp, err := app.Test(uploadRequest(t, "clients.csv", "Client Name,City\nAcme,Pune\n  ,Mumbai\n"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	env := decode(t, resp)
	assert.False(t, env.Success)
	var data struct {
		Errors      []models.ImportValidationError `json:"errors"`
		ErrorReport string                         `json:"error_report"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, []models.ImportValidationError{
		{Row: 3, Field: "Client Name", Message: "Client Name is required"},
	}, data.Errors)
	require.True(t, strings.HasPrefix(data.ErrorReport, "/api/v1/imports/error-report/"))

	name := strings.TrimPrefix(data.ErrorReport, "/api/v1/imports/error-report/")
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/imports/error-report/"+name, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpload_FileShapeErrors(t *testing.T) {
	app, _ := newImportApp(t)

	resp, err := app.Test(uploadRequest(t, "clients.csv", "Client Name,City\n"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "file must have headers and at least one row", decode(t, resp).Message)

	resp, err = app.Test(uploadRequest(t, "clients.txt", "Client Name\nAcme\n"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Blank rows only: no session is stored.
	resp, err = app.Test(uploadRequest(t, "clients.csv", "Client Name,City\n , \n,\n"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "file must have headers and at least one row", decode(t, resp).Message)
}

func TestSubmit_QueueUnavailable(t *testing.T) {
	app, _ := newImportApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/imports/IMPORT-abc/submit", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestGetSession_NotFound(t *testing.T) {
	app, mock := newImportApp(t)
	mock.ExpectQuery("SELECT (.+) FROM import_sessions").
		WithArgs("IMPORT-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/imports/IMPORT-missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSessionRoutes_HideOtherUsersSessions(t *testing.T) {
	app, mock := newImportApp(t)
	labels := []string{"id", "session_code", "user_id", "filename", "total_rows",
		"submitted_rows", "failed_row", "status", "error_message", "created_at", "updated_at"}
	now := time.Now()

	requests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/imports/IMPORT-other", nil),
		httptest.NewRequest(http.MethodGet, "/imports/IMPORT-other/rows", nil),
		httptest.NewRequest(http.MethodDelete, "/imports/IMPORT-other", nil),
	}
	for _, req := range requests {
		mock.ExpectQuery("SELECT (.+) FROM import_sessions").
			WithArgs("IMPORT-other").
			WillReturnRows(sqlmock.NewRows(labels).
				AddRow(2, "IMPORT-other", 9, "theirs.csv", 3, 0, nil, models.ImportStatusValidated, "", now, now))

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, req.Method+" "+req.URL.Path)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactCheck(t *testing.T) {
	app := fiber.New()
	app.Post("/contacts/check", NewContactHandler(service.NewContactService()).Check)

	send := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/contacts/check", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := send(`{"contacts":[{"name":"Jane Doe","email":"jane@acme.io"},{"name":"jane doe","email":"Jane@Acme.io"}]}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	var result models.ContactCheckResult
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &result))
	assert.Equal(t, []models.DuplicatePair{{FirstIndex: 0, DuplicateIndex: 1}}, result.Duplicates)

	resp = send(`{"contacts":[{"name":"Jane Doe","email":"jane@acme.io","phone":"98765 43210"}]}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestDashboardHandler(t *testing.T) {
	cfg := &config.Config{FinOpsPollInterval: time.Minute, ActivityPollInterval: time.Minute}
	dash := service.NewDashboardService(nil, nil, cfg, quietLogger())

	app := fiber.New()
	h := NewDashboardHandler(dash)
	app.Get("/dashboard/finops", h.FinOps)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard/finops", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var summary models.FinOpsSummary
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &summary))
	assert.True(t, summary.Stale, "no tick yet, fallback snapshot is served")
}
