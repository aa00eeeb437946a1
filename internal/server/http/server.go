package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/handyman/internal/config"
	"github.com/Additional-Code/handyman/internal/observability"
	"github.com/Additional-Code/handyman/internal/presentation/http/response"
	"github.com/Additional-Code/handyman/pkg/errorbank"
)

// APIPrefix is the path every domain route is mounted under.
const APIPrefix = "/api"

// Module exposes the HTTP server lifecycle to Fx.
var Module = fx.Module("http_server",
	fx.Provide(NewEcho, NewRouter),
	fx.Invoke(Run),
)

// Router hands transport packages the API group and the admin gate.
type Router struct {
	API   *echo.Group
	Admin echo.MiddlewareFunc
}

// NewEcho configures the Echo router with basic middleware.
func NewEcho(cfg config.Config, obs *observability.Manager, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if limit := bodyLimit(cfg.Upload); limit != "" {
		e.Use(middleware.BodyLimit(limit))
	}

	if obs != nil && obs.TracingEnabled() {
		e.Use(otelecho.Middleware(cfg.Observability.ServiceName))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	if obs != nil && obs.MetricsEnabled() && obs.MetricsHandler() != nil {
		e.GET(cfg.Observability.PrometheusPath, echo.WrapHandler(obs.MetricsHandler()))
	}

	return e
}

// NewRouter mounts the API group.
func NewRouter(e *echo.Echo, cfg config.Config) Router {
	return Router{
		API:   e.Group(APIPrefix),
		Admin: AdminAuth(cfg.Admin),
	}
}

// bodyLimit allows a full set of photos plus form fields.
func bodyLimit(cfg config.Upload) string {
	if cfg.MaxFileSize <= 0 {
		return ""
	}
	photos := int64(cfg.MaxPhotos)
	if photos < 1 {
		photos = 1
	}
	return fmt.Sprintf("%dK", (photos*cfg.MaxFileSize+1<<20)>>10)
}

// errorHandler renders framework errors (unknown routes, auth, body limit)
// with the same envelope as handler errors.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *echo.HTTPError
		if !errors.As(err, &httpErr) {
			if err := response.New(c).WithError(err).Build(); err != nil {
				logger.Warn("write error response", zap.Error(err))
			}
			return
		}

		message := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok && m != "" {
			message = m
		}
		var appErr *errorbank.AppError
		switch httpErr.Code {
		case http.StatusUnauthorized:
			appErr = errorbank.Unauthorized("authentication required")
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			appErr = errorbank.NotFound(message)
		case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
			appErr = errorbank.BadRequest(message)
		default:
			appErr = errorbank.Internal(message, errorbank.WithCause(err))
		}
		if err := response.New(c).WithStatus(httpErr.Code).WithError(appErr).Build(); err != nil {
			logger.Warn("write error response", zap.Error(err))
		}
	}
}

// requestLogger writes one zap line per request. Server errors carry the
// underlying cause that the response envelope hides from the client.
func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if appErr, ok := c.Get(response.ErrorKey).(*errorbank.AppError); ok && appErr.StatusCode() >= http.StatusInternalServerError {
				logger.Error("request failed", append(fields, zap.Error(appErr))...)
				return nil
			}
			logger.Debug("request handled", fields...)
			return nil
		},
	})
}

// Run starts the HTTP server and ties it to the Fx lifecycle.
func Run(lc fx.Lifecycle, cfg config.Config, e *echo.Echo, logger *zap.Logger) {
	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)

	server := &http.Server{
		Addr:    addr,
		Handler: e,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting HTTP server", zap.String("addr", addr))
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping HTTP server")
			return server.Shutdown(ctx)
		},
	})
}
