// Package server exposes the pipeline, translation and run ledger over a
// JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sematube/internal/ledger"
	"sematube/internal/logging"
	"sematube/internal/pipeline"
	"sematube/internal/translation"
)

// Runner executes pipeline requests.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Translator translates free text.
type Translator interface {
	Translate(ctx context.Context, text, target, source string) (translation.Result, error)
}

// RunLog lists recorded runs.
type RunLog interface {
	Runs(ctx context.Context, limit int) ([]ledger.Summary, error)
	Run(ctx context.Context, requestID string) (ledger.Detail, error)
}

// Options configures a Server.
type Options struct {
	Bind       string
	Pipeline   Runner
	Translator Translator
	Runs       RunLog
	Gatherer   prometheus.Gatherer
	// DefaultMux applies when a job request omits "mux".
	DefaultMux bool
	Logger     *slog.Logger
}

// Server is the HTTP API.
type Server struct {
	opts     Options
	echo     *echo.Echo
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// New builds the router. Call Start to listen.
func New(opts Options) (*Server, error) {
	if opts.Pipeline == nil {
		return nil, errors.New("server: pipeline is required")
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "server"),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleHTTPError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("http request",
				logging.String("method", v.Method),
				logging.String("uri", v.URI),
				logging.Int("status", v.Status),
				logging.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	api := e.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/jobs", s.handleJob)
	api.POST("/translate", s.handleTranslate)
	api.GET("/runs", s.handleRuns)
	api.GET("/runs/:id", s.handleRun)
	api.GET("/languages", s.handleLanguages)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	s.echo = e
	s.server = &http.Server{
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on the configured address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.opts.Bind)
	if bind == "" {
		return errors.New("server: bind address is required")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
