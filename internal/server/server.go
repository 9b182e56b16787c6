// Package server is the bridge's OpenAI-compatible HTTP surface: chat
// completions (streaming and not), the model listing, and a health
// probe, all bound to loopback.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"cascade-bridge/internal/config"
	"cascade-bridge/internal/credentials"
	"cascade-bridge/internal/registry"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	healthProbeTimeout  = 3 * time.Second
)

// Completer abstracts the cascade client so handlers can be tested
// against a stub backend.
type Completer interface {
	Complete(ctx context.Context, creds credentials.Credentials, text string, model registry.Resolved, emit func(string) error) error
}

type Server struct {
	cfg       config.Config
	resolver  *credentials.Resolver
	completer Completer
	app       *echo.Echo
	address   string
	startedAt int64
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, resolver *credentials.Resolver, completer Completer) (*Server, error) {
	if resolver == nil {
		return nil, errors.New("credential resolver must not be nil")
	}
	if completer == nil {
		return nil, errors.New("completer must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = openAIErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))

	srv := &Server{
		cfg:       cfg,
		resolver:  resolver,
		completer: completer,
		app:       e,
		address:   fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
		startedAt: time.Now().Unix(),
	}

	srv.registerRoutes()

	return srv, nil
}

// Run binds the loopback listener and blocks until the context is
// cancelled. A busy port means another instance already serves; the
// caller exits non-zero on the returned error.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("bind %s (another instance running?): %w", s.address, err)
	}

	slog.Info("starting server", "addr", s.address)

	httpServer := &http.Server{
		Handler: s.app,
		// Read/write timeouts would cut off the long polling window, so
		// only idle connections are bounded.
		IdleTimeout: s.cfg.Server.IdleTimeout,
	}
	s.app.Listener = listener

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/v1/models", s.handleModels)
	s.app.GET("/models", s.handleModels)
	s.app.POST("/v1/chat/completions", s.handleChatCompletions)
	s.app.POST("/chat/completions", s.handleChatCompletions)
	s.app.RouteNotFound("/*", func(c echo.Context) error {
		return requestError{Status: http.StatusNotFound, Message: "unknown endpoint " + c.Request().URL.Path}
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthProbeTimeout)
	defer cancel()

	body := map[string]any{"ok": true, "windsurf": false}
	if creds, err := s.resolver.Resolve(ctx); err == nil {
		body["windsurf"] = true
		body["version"] = creds.Version
	}
	return c.JSON(http.StatusOK, body)
}

func (s *Server) handleModels(c echo.Context) error {
	entries := registry.List()
	data := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		row := map[string]any{
			"id":       entry.ID,
			"object":   "model",
			"created":  s.startedAt,
			"owned_by": "windsurf",
		}
		if len(entry.Variants) > 0 {
			row["variants"] = entry.Variants
		}
		data = append(data, row)
	}
	return c.JSON(http.StatusOK, map[string]any{"object": "list", "data": data})
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid request payload: %v", err),
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
		}
	}
	return nil
}
