// Package rest serves the live control surface of a running load test.
package rest

import (
	"context"
	"fmt"
	"time"

	"yqhp/loadtest-engine/internal/reporter/prometheus"
	"yqhp/loadtest-engine/internal/runner"
	"yqhp/loadtest-engine/pkg/metrics"
	"yqhp/loadtest-engine/pkg/types"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
)

// RunController is the part of runner.Controller the API drives.
type RunController interface {
	Status() runner.Status
	Stop()
	Registry() *metrics.Registry
	Plan() *types.TestPlan
	Report() *types.SummaryReport
}

// Config holds the configuration for the REST API server.
type Config struct {
	// Address is the address to listen on (e.g., "localhost:6565").
	Address string `yaml:"address" env:"LOADTEST_API_ADDRESS"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// EnableMetrics exposes the registry in the Prometheus format on /metrics.
	EnableMetrics bool `yaml:"enable_metrics"`

	// AccessLog enables the per-request log line.
	AccessLog bool `yaml:"access_log"`
}

// DefaultConfig returns a default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:       "localhost:6565",
		ReadTimeout:   10 * time.Second,
		WriteTimeout:  10 * time.Second,
		EnableMetrics: true,
	}
}

// Server represents the REST API server.
type Server struct {
	app    *fiber.App
	ctrl   RunController
	config *Config
}

// NewServer creates a new REST API server bound to a controller.
func NewServer(ctrl RunController, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:           config.ReadTimeout,
		WriteTimeout:          config.WriteTimeout,
		ErrorHandler:          customErrorHandler,
		AppName:               "Load Test Engine API",
		DisableStartupMessage: true,
		// 子指标名在路径中是转义的，例如 http_reqs%7Bscenario:x%7D
		UnescapePath:          true,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
	})

	s := &Server{app: app, ctrl: ctrl, config: config}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.app.Use(fiberrecover.New(fiberrecover.Config{
		EnableStackTrace: true,
	}))

	if s.config.AccessLog {
		s.app.Use(fiberlogger.New(fiberlogger.Config{
			Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
			TimeFormat: "2006-01-02 15:04:05",
		}))
	}
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", s.health)

	v1 := s.app.Group("/v1")
	v1.Get("/status", s.getStatus)
	v1.Patch("/status", s.patchStatus)
	v1.Get("/metrics", s.listMetrics)
	v1.Get("/metrics/:name", s.getMetric)
	v1.Get("/thresholds", s.getThresholds)
	v1.Get("/report", s.getReport)

	if s.config.EnableMetrics {
		collector := prometheus.NewCollector(s.ctrl.Registry(), s.ctrl.Plan().Tags)
		s.app.Get("/metrics", adaptor.HTTPHandler(prometheus.Handler(collector)))
	}
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	return s.app.Listen(s.config.Address)
}

// StartWithContext listens until ctx is done, then shuts down.
func (s *Server) StartWithContext(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- s.app.Listen(s.config.Address)
	}()

	select {
	case <-ctx.Done():
		return s.ShutdownWithTimeout(5 * time.Second)
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// ShutdownWithTimeout gracefully shuts down the server with a timeout.
func (s *Server) ShutdownWithTimeout(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

// App returns the underlying fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   fmt.Sprintf("error_%d", code),
		Message: message,
	})
}
