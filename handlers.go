package agrosite

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func (a *App) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Database: "ok"}
	if p, ok := a.Store.(pinger); ok {
		if err := p.Ping(c.Request().Context()); err != nil {
			a.requestLogger(c).Error().Err(err).Msg("database ping failed")
			resp.Status = "degraded"
			resp.Database = "unreachable"
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
	}
	return c.JSON(http.StatusOK, resp)
}
