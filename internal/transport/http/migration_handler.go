package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/rabble-claw/studio-coop/internal/domain"
	"github.com/rabble-claw/studio-coop/internal/service"
	"github.com/rabble-claw/studio-coop/internal/util"
)

type MigrationHandler struct {
	service *service.MigrationService
}

func NewMigrationHandler(svc *service.MigrationService) *MigrationHandler {
	return &MigrationHandler{service: svc}
}

func RegisterMigrations(e *echo.Echo, auth *service.AuthService, svc *service.MigrationService) {
	handler := NewMigrationHandler(svc)

	group := e.Group("/api/v1/:orgId/migrate", RequireAuth(auth), RequireOrgStaff(auth))
	group.POST("/upload", handler.upload)
	group.POST("/preview", handler.preview)
	group.POST("/execute", handler.execute)
	group.GET("/status", handler.status)
}

type uploadRequest struct {
	CSV string `json:"csv"`
}

type previewRequest struct {
	CSV     string                 `json:"csv"`
	Columns []domain.ColumnMapping `json:"columns"`
}

// upload parses the CSV and returns a preview built from the auto-detected
// column mapping.
func (h *MigrationHandler) upload(c echo.Context) error {
	var req uploadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	preview, err := h.service.Upload(c.Request().Context(), req.CSV)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, util.Data("preview", preview))
}

// preview re-validates under a caller-edited mapping.
func (h *MigrationHandler) preview(c echo.Context) error {
	var req previewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	preview, err := h.service.Preview(c.Request().Context(), req.CSV, req.Columns)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, util.Data("preview", preview))
}

func (h *MigrationHandler) execute(c echo.Context) error {
	orgID, err := uuid.Parse(c.Param("orgId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid organization id"))
	}

	var req previewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	result, err := h.service.Execute(c.Request().Context(), orgID, req.CSV, req.Columns)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, util.Data("result", result))
}

// status is a static placeholder: imports run synchronously within the
// request, so there is no job state to report.
func (h *MigrationHandler) status(c echo.Context) error {
	return c.JSON(http.StatusOK, util.Envelope{
		"status":     "idle",
		"lastImport": nil,
	})
}

func (h *MigrationHandler) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrMigrationEmptyCSV),
		errors.Is(err, service.ErrMigrationNoDataRows),
		errors.Is(err, service.ErrMigrationNoColumns),
		errors.Is(err, service.ErrMigrationNoEmailColumn):
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	case errors.Is(err, service.ErrMigrationTooLarge),
		errors.Is(err, service.ErrMigrationRowLimit):
		return c.JSON(http.StatusRequestEntityTooLarge, util.Error(err.Error()))
	case errors.Is(err, service.ErrOrganizationNotFound):
		return c.JSON(http.StatusNotFound, util.Error(err.Error()))
	default:
		return c.JSON(http.StatusInternalServerError, util.Error("internal error"))
	}
}
