// Package rest provides the control-surface HTTP server that runs
// alongside the MCP transport: health and readiness probes, version
// info and the current write-gate position. It never exposes the tool
// surface itself.
package rest

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"terramcp/internal/tools"
)

// Config holds the configuration for the control-surface server.
type Config struct {
	// Address is the address to listen on (e.g., ":8765").
	Address string `yaml:"address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DefaultConfig returns a default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:      ":8765",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Server is the control-surface HTTP server.
type Server struct {
	app     *fiber.App
	config  *Config
	gate    *tools.Gate
	version string
	started time.Time
}

// NewServer creates a control-surface server reporting the given
// version and gate.
func NewServer(config *Config, gate *tools.Gate, version string) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:           config.ReadTimeout,
		WriteTimeout:          config.WriteTimeout,
		DisableStartupMessage: true,
		AppName:               "terramcp control surface",
	})

	s := &Server{
		app:     app,
		config:  config,
		gate:    gate,
		version: version,
		started: time.Now(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.app.Use(fiberrecover.New())
}

func (s *Server) setupRoutes() {
	s.app.Get("/healthz", s.healthCheck)
	s.app.Get("/readyz", s.readyCheck)
	s.app.Get("/version", s.versionInfo)
	s.app.Get("/status", s.status)
}

// healthCheck handles GET /healthz
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// readyCheck handles GET /readyz
func (s *Server) readyCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ready"})
}

// versionInfo handles GET /version
func (s *Server) versionInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"version": s.version})
}

// status handles GET /status
func (s *Server) status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"version":        s.version,
		"writes_enabled": s.gate.WritesEnabled(),
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

// Start starts the control-surface server.
func (s *Server) Start() error {
	return s.app.Listen(s.config.Address)
}

// StartWithContext runs the server until the context is cancelled.
func (s *Server) StartWithContext(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.config.Address)
	}()
	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}
