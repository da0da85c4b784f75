package server

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rbergman/wordwall/internal/apperrors"
)

func (s *Server) registerRoutes() {
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(apperrors.Middleware())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))

	limiter := newRateLimiter(s.config.SubmitRate, s.config.SubmitBurst)

	s.echo.POST("/api/sessions", s.handleCreateSession)
	s.echo.GET("/api/sessions", s.handleListSessions)
	s.echo.POST("/api/sessions/:id/feedback", s.handleSubmit, limiter)
	s.echo.GET("/api/sessions/:id/snapshot", s.handleSnapshot)
	s.echo.POST("/api/sessions/:id/open", s.handleOpenSession)
	s.echo.POST("/api/sessions/:id/close", s.handleCloseSession)
	s.echo.DELETE("/api/sessions/:id/words/:word", s.handleDeleteWord)

	s.echo.GET("/ws/sessions/:id", s.handleWebSocket)

	s.registerHealthRoutes()
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.Info("Request", attrs...)
			return nil
		},
	})
}
