package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	syncecho "github.com/pilab-dev/reelsync/api/echo"
	"github.com/pilab-dev/reelsync/config"
	"github.com/pilab-dev/reelsync/log"
	"github.com/pilab-dev/reelsync/middleware"
)

const readHeaderTimeout = 5 * time.Second

// NewHTTPServer creates the echo instance serving syncAPI on cfg.HTTPAddr.
// Requests need the bearer token when cfg.APIToken is set.
func NewHTTPServer(cfg *config.Config, appLogger log.Logger, syncAPI *syncecho.SyncAPI) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.Addr = cfg.HTTPAddr
	e.Server.ReadHeaderTimeout = readHeaderTimeout

	e.Use(echomw.Recover())
	e.Use(requestLogger(appLogger))
	e.Use(syncecho.TracingMiddleware())
	if cfg.APIToken != "" {
		e.Use(middleware.BearerAuth(cfg.APIToken))
	}

	syncAPI.RegisterRoutes(e)

	return e
}

func requestLogger(appLogger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			fields := log.Fields{
				"method":  req.Method,
				"path":    c.Path(),
				"status":  c.Response().Status,
				"latency": time.Since(start).String(),
			}
			if err != nil {
				appLogger.Error(req.Context(), "HTTP request failed", err, fields)
			} else if c.Response().Status >= http.StatusInternalServerError {
				appLogger.Warn(req.Context(), "HTTP request", fields)
			} else {
				appLogger.Debug(req.Context(), "HTTP request", fields)
			}

			return nil
		}
	}
}
