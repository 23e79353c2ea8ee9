// Package httpserver exposes the bot's read-only HTTP surface: health,
// player stats, leaderboard and Prometheus metrics.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mansionnet/quizbot/internal/domain"
	"github.com/mansionnet/quizbot/internal/platform/version"
)

// healthChecker pings one backing dependency.
type healthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo    *echo.Echo
	players domain.PlayerStore
	checks  []namedCheck
	port    string
}

type namedCheck struct {
	name    string
	checker healthChecker
}

func NewServer(port string, players domain.PlayerStore) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))

	srv := &Server{
		echo:    e,
		players: players,
		port:    port,
	}
	srv.registerRoutes()
	return srv
}

// AddHealthCheck registers a dependency the readiness probe must ping.
func (s *Server) AddHealthCheck(name string, checker healthChecker) {
	s.checks = append(s.checks, namedCheck{name: name, checker: checker})
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/version", func(c echo.Context) error {
		return c.JSON(200, version.Get())
	})
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/api/leaderboard", s.handleLeaderboard)
	s.echo.GET("/api/players/:username", s.handlePlayer)
}

func (s *Server) Start() error {
	slog.Info("Starting HTTP server", "port", s.port)
	return s.echo.Start(fmt.Sprintf(":%s", s.port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	for _, check := range s.checks {
		if err := check.checker.Ping(ctx); err != nil {
			return c.JSON(503, map[string]any{
				"status":       "unhealthy",
				"failed_check": check.name,
				"error":        err.Error(),
			})
		}
	}
	return c.JSON(200, map[string]string{"status": "ok"})
}
