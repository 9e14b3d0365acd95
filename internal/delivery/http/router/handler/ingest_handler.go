package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"stride/internal/delivery/devstub"
	"stride/internal/delivery/http/response"
	"stride/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// IngestHandler drives the scripted sync job.
type IngestHandler struct {
	sim    *devstub.Simulator
	logger *slog.Logger
}

// NewIngestHandler is the constructor for IngestHandler, injected by Fx.
func NewIngestHandler(sim *devstub.Simulator, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{
		sim:    sim,
		logger: logger,
	}
}

type runRequest struct {
	Endpoints    []string `json:"endpoints" validate:"omitempty,dive,oneof=activities sleep heart_rate stress body_battery steps"`
	FullBackfill bool     `json:"full_backfill"`
	StartDate    string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// Run triggers the simulated job and acknowledges immediately; the job
// "executes" in simulated time and is observed via Status.
func (h *IngestHandler) Run(c echo.Context) error {
	var input runRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid sync request")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}

	endpoints, err := h.sim.Trigger(input.Endpoints)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, usecase.RunSyncOutput{
		Started:   true,
		Message:   "sync scheduled",
		Endpoints: endpoints,
	})
}

// Status returns the current job snapshot.
func (h *IngestHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sim.Status())
}

// History returns one page of past runs.
func (h *IngestHandler) History(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	records, total := h.sim.History(page, perPage)

	return c.JSON(http.StatusOK, usecase.HistoryOutput{
		Records: records,
		Page:    page,
		PerPage: perPage,
		Total:   total,
	})
}

// Connection returns the coarse wearable-provider connection state.
func (h *IngestHandler) Connection(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sim.Connection())
}
