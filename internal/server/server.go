// Package server exposes the forecast engine and run history over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iwvelando/heloc-forecast/internal/cache"
	"github.com/iwvelando/heloc-forecast/internal/config"
	"github.com/iwvelando/heloc-forecast/internal/forecast"
	"github.com/iwvelando/heloc-forecast/internal/store"
	"github.com/iwvelando/heloc-forecast/internal/telemetry"
	"github.com/iwvelando/heloc-forecast/pkg/constants"
	"github.com/iwvelando/heloc-forecast/pkg/domain"
	"github.com/iwvelando/heloc-forecast/pkg/output"
)

// Error codes carried in the "code" field of error responses.
const (
	codeInvalidInput  = "invalid_input"
	codeNonAmortizing = "non_amortizing"
	codeInvalidConfig = "invalid_config"
	codeTimeout       = "timeout"
	codeRateLimited   = "rate_limited"
	codeNotFound      = "not_found"
	codeUnavailable   = "unavailable"
	codeInternal      = "internal"
)

// RunStore persists and retrieves forecast runs.
type RunStore interface {
	SaveRun(ctx context.Context, f forecast.Forecast) (string, error)
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	LoadRun(ctx context.Context, id string) (store.Run, error)
}

// Handler serves the forecast API.
type Handler struct {
	logger        *zap.Logger
	mux           *http.ServeMux
	maxUploadSize int64
	version       string
	timeout       time.Duration
	limiter       *RateLimiter
	runs          RunStore
	cache         cache.Cache
	fixedTime     *time.Time
	tracer        trace.Tracer
}

// Option customizes a Handler.
type Option func(*Handler)

// WithRunStore enables run history and the save=true query parameter.
func WithRunStore(s RunStore) Option {
	return func(h *Handler) {
		h.runs = s
	}
}

// WithCache shares simulation results across requests.
func WithCache(c cache.Cache) Option {
	return func(h *Handler) {
		h.cache = c
	}
}

// WithFixedTime pins the clock used for scenarios without a start date.
func WithFixedTime(t time.Time) Option {
	return func(h *Handler) {
		fixed := t
		h.fixedTime = &fixed
	}
}

// NewHandler constructs the HTTP handler for the forecast API. Close releases
// its rate limiter.
func NewHandler(logger *zap.Logger, cfg *Config, version string, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &Config{}
		_ = cfg.normalize()
	}

	maxUploadSize := cfg.UploadSizeBytes()
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &Handler{
		logger:        logger,
		mux:           http.NewServeMux(),
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		timeout:       cfg.RequestTimeout(),
		tracer:        telemetry.Tracer("server"),
	}
	if cfg.RateLimitPerMinute > 0 {
		h.limiter = NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	}
	for _, opt := range opts {
		opt(h)
	}

	h.mux.HandleFunc("POST /api/simulate", h.rateLimit(h.handleSimulate))
	h.mux.HandleFunc("POST /api/forecast", h.rateLimit(h.handleForecast))
	h.mux.HandleFunc("GET /api/runs", h.handleListRuns)
	h.mux.HandleFunc("GET /api/runs/{id}", h.handleGetRun)
	h.mux.HandleFunc("GET /api/version", h.handleVersion)

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Close stops background work owned by the handler.
func (h *Handler) Close() {
	if h.limiter != nil {
		h.limiter.Stop()
	}
}

type forecastResponse struct {
	Results  []forecast.Forecast `json:"results"`
	RunIDs   []string            `json:"runIds,omitempty"`
	CSV      string              `json:"csv"`
	Warnings []string            `json:"warnings,omitempty"`
	Duration string              `json:"duration"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// handleSimulate accepts a configuration as a JSON body.
func (h *Handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSimulate"
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondReadError(w, r, err, op)
		return
	}

	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(body), "json")
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, codeInvalidConfig, err.Error(), op)
		return
	}
	h.runForecast(w, r, cfg, start, op)
}

// handleForecast accepts a configuration file as a multipart upload named
// "file". The format follows the file extension and defaults to YAML.
func (h *Handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleForecast"
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.respondReadError(w, r, err, op)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, codeInvalidConfig, "missing configuration file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	configType := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	if configType == "" {
		configType = "yaml"
	}
	cfg, err := config.LoadConfigurationFromReader(file, configType)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, codeInvalidConfig, err.Error(), op)
		return
	}
	h.runForecast(w, r, cfg, start, op)
}

func (h *Handler) runForecast(w http.ResponseWriter, r *http.Request, cfg *config.Configuration, start time.Time, op string) {
	ctx, span := h.tracer.Start(r.Context(), op)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	save := r.URL.Query().Get("save") == "true"
	if save && h.runs == nil {
		h.respondError(w, r, http.StatusServiceUnavailable, codeUnavailable, "run history is not configured", op)
		return
	}

	warnings := cfg.ValidateConfiguration()

	var runnerOpts []forecast.Option
	if h.cache != nil {
		runnerOpts = append(runnerOpts, forecast.WithCache(h.cache))
	}
	if h.fixedTime != nil {
		runnerOpts = append(runnerOpts, forecast.WithFixedTime(*h.fixedTime))
	}
	runner, err := forecast.NewRunner(h.logger, cfg, runnerOpts...)
	if err != nil {
		h.respondEngineError(w, r, span, err, op)
		return
	}
	results, err := runner.Run(ctx)
	if err != nil {
		h.respondEngineError(w, r, span, err, op)
		return
	}
	span.SetAttributes(attribute.Int("heloc.scenarios", len(results)))

	var runIDs []string
	if save {
		for _, f := range results {
			id, err := h.runs.SaveRun(ctx, f)
			if err != nil {
				h.respondEngineError(w, r, span, fmt.Errorf("saving run for scenario %q: %w", f.Name, err), op)
				return
			}
			runIDs = append(runIDs, id)
		}
	}

	var csvBuf bytes.Buffer
	if err := output.CsvFormat(&csvBuf, results); err != nil {
		h.respondEngineError(w, r, span, err, op)
		return
	}

	elapsed := time.Since(start)
	h.logger.Info("forecast computed",
		zap.String("op", op),
		zap.Int("scenarios", len(results)),
		zap.Int("warnings", len(warnings)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, forecastResponse{
		Results:  results,
		RunIDs:   runIDs,
		CSV:      csvBuf.String(),
		Warnings: warnings,
		Duration: elapsed.String(),
	})
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleListRuns"
	if h.runs == nil {
		h.respondError(w, r, http.StatusServiceUnavailable, codeUnavailable, "run history is not configured", op)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondError(w, r, http.StatusBadRequest, codeInvalidInput, fmt.Sprintf("invalid limit %q", raw), op)
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, codeInternal, err.Error(), op)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	h.writeJSON(w, http.StatusOK, map[string][]store.Run{"runs": runs})
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGetRun"
	if h.runs == nil {
		h.respondError(w, r, http.StatusServiceUnavailable, codeUnavailable, "run history is not configured", op)
		return
	}

	run, err := h.runs.LoadRun(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.respondError(w, r, http.StatusNotFound, codeNotFound, err.Error(), op)
	case err != nil:
		h.respondError(w, r, http.StatusInternalServerError, codeInternal, err.Error(), op)
	default:
		h.writeJSON(w, http.StatusOK, run)
	}
}

func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *Handler) respondReadError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.respondError(w, r, http.StatusRequestEntityTooLarge, codeInvalidConfig,
			fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
		return
	}
	h.respondError(w, r, http.StatusBadRequest, codeInvalidConfig, fmt.Sprintf("failed to read request: %v", err), op)
}

// respondEngineError maps simulation failures to HTTP statuses.
func (h *Handler) respondEngineError(w http.ResponseWriter, r *http.Request, span trace.Span, err error, op string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var inputErr *domain.InputError
	switch {
	case errors.As(err, &inputErr):
		h.respondWith(w, r, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: codeInvalidInput, Field: inputErr.Field}, op)
	case errors.Is(err, domain.ErrNonAmortizing):
		h.respondError(w, r, http.StatusBadRequest, codeNonAmortizing, err.Error(), op)
	case errors.Is(err, context.DeadlineExceeded):
		h.respondError(w, r, http.StatusGatewayTimeout, codeTimeout, "forecast exceeded the request timeout", op)
	default:
		h.respondError(w, r, http.StatusInternalServerError, codeInternal, err.Error(), op)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, code, msg, op string) {
	h.respondWith(w, r, status, errorResponse{Error: msg, Code: code}, op)
}

func (h *Handler) respondWith(w http.ResponseWriter, r *http.Request, status int, resp errorResponse, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("code", resp.Code),
		zap.String("error", resp.Error),
	)
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
