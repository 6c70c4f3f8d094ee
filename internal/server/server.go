// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/menufest/menufest/config"
	"github.com/menufest/menufest/internal/agent/core"
	"github.com/menufest/menufest/internal/agent/telemetry"
	"github.com/menufest/menufest/internal/artifact"
	"github.com/menufest/menufest/internal/recipes"
	"github.com/menufest/menufest/internal/store"
)

// Run builds the full dependency graph and serves until the listener
// stops.
func Run(addr string, cfgPath string) error {
	cfg := config.LoadConfig(cfgPath)
	if addr == "" {
		addr = cfg.Server.Address
	}

	if err := cfg.Storage.Postgres.Validate(); err != nil {
		return err
	}
	if err := cfg.Storage.Artifacts.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("connect inventory store: %w", err)
	}
	defer st.Close()

	corpus, err := recipes.Load(cfg.Recipes.DataFile)
	if err != nil {
		return fmt.Errorf("load recipe corpus: %w", err)
	}

	artifacts, err := artifact.New(cfg.Storage.Artifacts.Dir)
	if err != nil {
		return err
	}

	var runs store.RunStatusStore
	if cfg.Storage.Redis.Enabled() {
		runs, err = store.NewRedisRunStore(ctx, cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, cfg.Storage.Redis.Timeout)
		if err != nil {
			return fmt.Errorf("connect run store: %w", err)
		}
	} else {
		runs = store.NewMemoryRunStore()
	}

	provider, err := core.NewLLMProvider(cfg.LLM)
	if err != nil {
		return err
	}

	tele := telemetry.NewTelemetry(cfg.Telemetry)
	orch := core.NewOrchestrator(cfg, provider, st, corpus, artifacts, runs, tele)

	e := NewEcho()
	h := &PipelineHandler{Runner: orch, Stats: tele}
	h.Register(e.Group("/api"))

	return e.Start(addr)
}

// NewEcho builds the echo instance with the shared middleware stack and
// the operational endpoints.
func NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// unified error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return e
}
