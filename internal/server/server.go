// Package server exposes text generation over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/born-ml/gpt2/internal/generate"
	"github.com/born-ml/gpt2/internal/metrics"
)

// DefaultMaxSamples bounds nsamples and batch_size per request.
const DefaultMaxSamples = 64

// Config configures a Server.
type Config struct {
	Model      string
	Generator  *generate.TextGenerator
	Metrics    *metrics.Metrics // optional
	Defaults   generate.GenerateConfig
	MaxSamples int
	Logger     zerolog.Logger
}

// Server handles generation requests.
type Server struct {
	cfg Config
}

// New returns a Server. Zero MaxSamples means DefaultMaxSamples.
func New(cfg Config) *Server {
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = DefaultMaxSamples
	}
	return &Server{cfg: cfg}
}

// GenerateRequest is the body of POST /v1/generate. Omitted fields take the
// server defaults.
type GenerateRequest struct {
	Prompt         string   `json:"prompt"`
	Length         *int     `json:"length,omitempty"`
	NSamples       *int     `json:"nsamples,omitempty"`
	BatchSize      *int     `json:"batch_size,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	TopK           *int     `json:"top_k,omitempty"`
	TopP           *float64 `json:"top_p,omitempty"`
	Seed           *int64   `json:"seed,omitempty"`
	IncludeContext bool     `json:"include_context"`
}

// GenerateResponse is returned by POST /v1/generate.
type GenerateResponse struct {
	ID      string            `json:"id"`
	Model   string            `json:"model"`
	Samples []generate.Sample `json:"samples"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Register adds the routes to e.
func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/generate", s.handleGenerate)
	e.GET("/healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		h := s.cfg.Metrics.Handler()
		e.GET("/metrics", func(c *echo.Context) error {
			h.ServeHTTP(c.Response(), c.Request())
			return nil
		})
	}
}

// Handler returns an echo instance with the routes and standard middleware.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	s.Register(e)
	return e
}

// Start serves on addr until ctx is canceled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.cfg.Logger.Info().Str("address", addr).Str("model", s.cfg.Model).Msg("starting server")
	sc := echo.StartConfig{
		Address: addr,
		BeforeServeFunc: func(srv *http.Server) error {
			srv.ReadHeaderTimeout = 10 * time.Second
			return nil
		},
	}
	return sc.Start(ctx, s.Handler())
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "model": s.cfg.Model})
}

func (s *Server) handleGenerate(c *echo.Context) error {
	var req GenerateRequest
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return s.fail(c, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
	}

	cfg := s.requestConfig(req)
	if cfg.NSamples > s.cfg.MaxSamples {
		return s.fail(c, http.StatusBadRequest,
			fmt.Errorf("%w: %d exceeds the server limit of %d", generate.ErrInvalidSamples, cfg.NSamples, s.cfg.MaxSamples))
	}
	if cfg.BatchSize > s.cfg.MaxSamples {
		return s.fail(c, http.StatusBadRequest,
			fmt.Errorf("%w: batch_size %d exceeds the server limit of %d", generate.ErrInvalidBatch, cfg.BatchSize, s.cfg.MaxSamples))
	}

	start := time.Now()
	samples, err := s.cfg.Generator.Generate(c.Request().Context(), req.Prompt, cfg)
	if err != nil {
		status := http.StatusInternalServerError
		if isConfigError(err) {
			status = http.StatusBadRequest
		}
		return s.fail(c, status, err)
	}

	id := "gen-" + uuid.NewString()
	s.cfg.Logger.Info().
		Str("id", id).
		Int("samples", len(samples)).
		Int("length", cfg.Length).
		Dur("elapsed", time.Since(start)).
		Msg("generated")
	s.count("ok")

	return c.JSON(http.StatusOK, GenerateResponse{ID: id, Model: s.cfg.Model, Samples: samples})
}

func (s *Server) requestConfig(req GenerateRequest) generate.GenerateConfig {
	cfg := s.cfg.Defaults
	cfg.IncludeContext = req.IncludeContext
	if req.Length != nil {
		cfg.Length = *req.Length
	}
	if req.NSamples != nil {
		cfg.NSamples = *req.NSamples
	}
	if req.BatchSize != nil {
		cfg.BatchSize = *req.BatchSize
	}
	if req.Temperature != nil {
		cfg.Sampling.Temperature = *req.Temperature
	}
	if req.TopK != nil {
		cfg.Sampling.TopK = *req.TopK
	}
	if req.TopP != nil {
		cfg.Sampling.TopP = *req.TopP
	}
	if req.Seed != nil {
		cfg.Sampling.Seed = *req.Seed
	}
	return cfg
}

func (s *Server) fail(c *echo.Context, status int, err error) error {
	label := "error"
	if status == http.StatusBadRequest {
		label = "bad_request"
	}
	s.count(label)
	s.cfg.Logger.Warn().Err(err).Int("status", status).Msg("generate failed")
	return c.JSON(status, ErrorResponse{Error: err.Error()})
}

func (s *Server) count(status string) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RequestsTotal.WithLabelValues(status).Inc()
	}
}

var configErrors = []error{
	generate.ErrInvalidTemperature,
	generate.ErrInvalidTopK,
	generate.ErrInvalidTopP,
	generate.ErrInvalidLength,
	generate.ErrLengthTooLong,
	generate.ErrInvalidBatch,
	generate.ErrInvalidSamples,
}

func isConfigError(err error) bool {
	for _, target := range configErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
