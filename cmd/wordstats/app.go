package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/abstract-wordstats/internal/config"
	"github.com/helixir/abstract-wordstats/internal/observability"
)

// metricsShutdownTimeout bounds the metrics server shutdown.
const metricsShutdownTimeout = 5 * time.Second

var (
	metricsOnce    sync.Once
	processMetrics *observability.Metrics
)

// metricsFor registers the metrics once per process; later namespaces are ignored.
func metricsFor(namespace string) *observability.Metrics {
	metricsOnce.Do(func() { processMetrics = observability.NewMetrics(namespace) })
	return processMetrics
}

// app is the state shared by one command invocation.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *observability.Metrics
	runID   string
	command string
}

func newApp(opts *rootOptions, command string) (*app, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(opts.logLevel)
	}

	runID := observability.NewRunID()
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metricsFor(cfg.Metrics.Namespace),
		runID:   runID,
		command: command,
	}, nil
}

// context attaches the run identifier and command name to ctx.
func (a *app) context(ctx context.Context) context.Context {
	return observability.WithRunContextFull(ctx, observability.RunContext{
		RunID:   a.runID,
		Command: a.command,
	})
}

// runLogger returns the logger carrying the run fields.
func (a *app) runLogger() zerolog.Logger {
	return observability.WithRunContext(a.logger, a.runID, a.command)
}

// startMetrics serves /metrics while the command runs when enabled. The returned
// function stops the server and writes the textfile snapshot when configured.
func (a *app) startMetrics() func() {
	logger := a.runLogger()

	var server *http.Server
	if a.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(a.cfg.Metrics.Path, promhttp.Handler())
		server = &http.Server{
			Addr:              a.cfg.Metrics.Address,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info().Str("address", server.Addr).Msg("metrics server starting")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	return func() {
		if server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				logger.Error().Err(err).Msg("metrics server shutdown error")
			}
		}
		if path := a.cfg.Metrics.TextfilePath; path != "" {
			if err := observability.WriteTextfile(path); err != nil {
				logger.Error().Err(err).Str("path", path).Msg("failed to write metrics textfile")
				return
			}
			logger.Debug().Str("path", path).Msg("metrics textfile written")
		}
	}
}
