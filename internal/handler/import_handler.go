package handler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"crm-web/internal/config"
	"crm-web/internal/importer"
	"crm-web/internal/repository"
	"crm-web/internal/service"
	"crm-web/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ImportHandler struct {
	importService *service.ImportService
	cfg           *config.Config
}

func NewImportHandler(importService *service.ImportService, cfg *config.Config) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		cfg:           cfg,
	}
}

// Upload validates an import file. Any row error rejects the whole file.
func (h *ImportHandler) Upload(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(int)

	file, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File is required", err)
	}

	if err := h.importService.CheckUpload(file.Filename, file.Size); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if err := os.MkdirAll(h.cfg.UploadPath, 0o755); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to prepare upload directory", err)
	}
	filePath := filepath.Join(h.cfg.UploadPath, uuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveFile(file, filePath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save file", err)
	}
	defer os.Remove(filePath)

	outcome, err := h.importService.Import(userID, file.Filename, filePath)
	if err != nil {
		if importer.IsFileShapeError(err) {
			var fse *importer.FileShapeError
			errors.As(err, &fse)
			return utils.ErrorResponse(c, fiber.StatusBadRequest, fse.Err.Error(), nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to import file", err)
	}

	if outcome.Result.HasErrors() {
		data := fiber.Map{
			"errors":     outcome.Result.ValidationErrors,
			"total_rows": outcome.Result.TotalRows,
		}
		if outcome.Result.ErrorReportPath != "" {
			data["error_report"] = "/api/v1/imports/error-report/" + outcome.Result.ErrorReportPath
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(utils.Response{
			Success: false,
			Message: fmt.Sprintf("Import rejected: %d row error(s) found, nothing was imported", len(outcome.Result.ValidationErrors)),
			Data:    data,
		})
	}

	return utils.SuccessResponse(c, "File validated successfully", fiber.Map{
		"session":      outcome.Session,
		"total_rows":   outcome.Session.TotalRows,
		"skipped_rows": outcome.Result.SkippedRows,
		"preview":      outcome.Preview,
	})
}

func (h *ImportHandler) Submit(c *fiber.Ctx) error {
	code := c.Params("code")

	session, jobID, err := h.importService.Submit(c.UserContext(), code, viewerOf(c))
	if err != nil {
		return h.sessionError(c, err, "Failed to queue submission")
	}

	return c.Status(fiber.StatusAccepted).JSON(utils.Response{
		Success: true,
		Message: "Submission started",
		Data: fiber.Map{
			"job_id":  jobID,
			"session": session,
		},
	})
}

func (h *ImportHandler) GetSessions(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(int)
	role, _ := c.Locals("role").(string)

	params := utils.GetPaginationParams(c)

	// Admins see every session, users only their own.
	filterUserID := 0
	if role != "admin" {
		filterUserID = userID
	}

	sessions, total, err := h.importService.ListSessions(service.PageQuery{
		Page:   params.Page,
		Limit:  params.Limit,
		UserID: filterUserID,
		Status: params.Status,
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve sessions", err)
	}

	pagination := utils.CalculatePagination(params.Page, params.Limit, int64(total))
	return utils.PaginatedResponseBuilder(c, "Sessions retrieved successfully", sessions, pagination)
}

func (h *ImportHandler) GetSession(c *fiber.Ctx) error {
	session, err := h.importService.GetSession(c.Params("code"), viewerOf(c))
	if err != nil {
		return h.sessionError(c, err, "Failed to retrieve session")
	}
	return utils.SuccessResponse(c, "Session retrieved successfully", session)
}

func (h *ImportHandler) GetSessionRows(c *fiber.Ctx) error {
	rows, err := h.importService.GetSessionRows(c.Params("code"), viewerOf(c))
	if err != nil {
		return h.sessionError(c, err, "Failed to retrieve rows")
	}
	return utils.SuccessResponse(c, "Rows retrieved successfully", rows)
}

func (h *ImportHandler) GetProgress(c *fiber.Ctx) error {
	progress, err := h.importService.Progress(c.UserContext(), c.Params("code"), viewerOf(c))
	if err != nil {
		return h.sessionError(c, err, "Failed to retrieve progress")
	}
	return utils.SuccessResponse(c, "Progress retrieved successfully", progress)
}

func (h *ImportHandler) DeleteSession(c *fiber.Ctx) error {
	if err := h.importService.DeleteSession(c.UserContext(), c.Params("code"), viewerOf(c)); err != nil {
		return h.sessionError(c, err, "Failed to delete session")
	}
	return utils.SuccessResponse(c, "Session deleted successfully", nil)
}

func (h *ImportHandler) ExportSessions(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(int)
	role, _ := c.Locals("role").(string)
	if role == "admin" {
		userID = 0
	}

	path, err := h.importService.ExportSessions(userID, c.Query("status"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export sessions", err)
	}
	return c.Download(path, filepath.Base(path))
}

func (h *ImportHandler) DownloadTemplate(c *fiber.Ctx) error {
	path, err := h.importService.TemplatePath()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate template", err)
	}
	return c.Download(path, "client_import_template.xlsx")
}

func (h *ImportHandler) DownloadErrorReport(c *fiber.Ctx) error {
	path, err := h.importService.ErrorReportPath(c.Params("filename"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidReport) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
		}
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Error report not found", err)
	}
	return c.Download(path, filepath.Base(path))
}

// viewerOf reads the caller set by AuthMiddleware.
func viewerOf(c *fiber.Ctx) service.Viewer {
	userID, _ := c.Locals("user_id").(int)
	role, _ := c.Locals("role").(string)
	return service.Viewer{UserID: userID, Admin: role == "admin"}
}

func (h *ImportHandler) sessionError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Session not found", nil)
	case errors.Is(err, repository.ErrSessionLocked), errors.Is(err, service.ErrSessionBusy):
		return utils.ErrorResponse(c, fiber.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrQueueUnavailable):
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, err.Error(), nil)
	}
	return utils.ErrorResponse(c, fiber.StatusInternalServerError, fallback, err)
}
