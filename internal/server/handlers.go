package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/menufest/menufest/internal/agent/core"
	"github.com/menufest/menufest/internal/agent/telemetry"
	"github.com/menufest/menufest/internal/store"
)

// PipelineRunner is the orchestrator surface the handlers need.
// *core.Orchestrator satisfies it.
type PipelineRunner interface {
	Run(ctx context.Context, req core.PipelineRequest) (core.PipelineResult, error)
	RunFromSelectorFile(ctx context.Context, selectorFile string, req core.PipelineRequest) (core.PipelineResult, error)
	RunStatus(ctx context.Context, runID string) (store.RunStatus, bool, error)
}

// StatsSource exposes telemetry snapshots. *telemetry.Telemetry
// satisfies it.
type StatsSource interface {
	GetMetrics() telemetry.Metrics
	GetCostSummary() telemetry.CostSummary
}

// PipelineHandler serves pipeline runs over HTTP.
type PipelineHandler struct {
	Runner PipelineRunner
	Stats  StatsSource
}

// Register mounts the pipeline routes on a group.
func (h *PipelineHandler) Register(g *echo.Group) {
	g.POST("/pipeline", h.run)
	g.POST("/pipeline/replay", h.replay)
	g.GET("/runs/:id", h.status)
	if h.Stats != nil {
		g.GET("/stats", h.stats)
	}
}

func (h *PipelineHandler) run(c echo.Context) error {
	var req core.PipelineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.Runner.Run(c.Request().Context(), req)
	if err != nil {
		if result.RunID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		// the run started: surface its final state alongside the failure
		return c.JSON(http.StatusInternalServerError, result)
	}
	return c.JSON(http.StatusOK, result)
}

// ReplayRequest reruns the planner half from a persisted selector file.
type ReplayRequest struct {
	SelectorFile string `json:"selector_file"`
	core.PipelineRequest
}

func (h *PipelineHandler) replay(c echo.Context) error {
	var req ReplayRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SelectorFile == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "selector_file is required")
	}

	result, err := h.Runner.RunFromSelectorFile(c.Request().Context(), req.SelectorFile, req.PipelineRequest)
	if err != nil {
		if result.RunID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusInternalServerError, result)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *PipelineHandler) status(c echo.Context) error {
	runID := c.Param("id")
	status, ok, err := h.Runner.RunStatus(c.Request().Context(), runID)
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	return c.JSON(http.StatusOK, status)
}

func (h *PipelineHandler) stats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"metrics": h.Stats.GetMetrics(),
		"costs":   h.Stats.GetCostSummary(),
	})
}
