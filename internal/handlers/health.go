package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is a backing service the health check reports on
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthCheck reports the status of each named dependency. MongoDB is the only one
// whose failure makes the service unhealthy.
func HealthCheck(mongo Pinger, optional map[string]Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := map[string]string{"mongodb": "up"}
		if err := mongo.Ping(ctx); err != nil {
			deps["mongodb"] = "down"
			status = http.StatusServiceUnavailable
		}
		for name, p := range optional {
			deps[name] = "up"
			if err := p.Ping(ctx); err != nil {
				deps[name] = "down"
			}
		}

		health := "healthy"
		if status != http.StatusOK {
			health = "unhealthy"
		}
		return c.JSON(status, echo.Map{
			"status":       health,
			"service":      "inkwell-api",
			"dependencies": deps,
		})
	}
}
