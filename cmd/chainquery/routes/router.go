package routes

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lyzr/chainquery/cmd/chainquery/container"
	"github.com/lyzr/chainquery/common/logger"
)

// NewRouter builds the Echo server with middleware, health check and query routes
func NewRouter(c *container.Container) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(c.Components.Logger)

	setupMiddleware(e, c)

	RegisterHealthRoutes(e, c)
	RegisterQueryRoutes(e, c)

	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo, c *container.Container) {
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(ec echo.Context, id string) {
			req := ec.Request()
			ec.SetRequest(req.WithContext(logger.ContextWithRequestID(req.Context(), id)))
		},
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: c.Components.Config.Service.AllowedOrigins,
	}))
}

// errorHandler answers unknown routes and wrong methods with 405 and keeps
// the message shape of the query responses
func errorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, ec echo.Context) {
		if ec.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "Something Went Wrong"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			switch he.Code {
			case http.StatusNotFound, http.StatusMethodNotAllowed:
				status = http.StatusMethodNotAllowed
				message = "Endpoint not allowed"
			case http.StatusInternalServerError:
			default:
				status = he.Code
				if m, ok := he.Message.(string); ok {
					message = m
				} else {
					message = http.StatusText(he.Code)
				}
			}
		}

		if status >= http.StatusInternalServerError {
			log.WithContext(ec.Request().Context()).Error("unhandled request error", "error", err)
		}

		var werr error
		if ec.Request().Method == http.MethodHead {
			werr = ec.NoContent(status)
		} else {
			werr = ec.JSON(status, map[string]string{"message": message})
		}
		if werr != nil {
			log.Warn("failed to write error response", "error", werr)
		}
	}
}
