package routers

import (
	"net/http"

	"relay-api/internal/ctx"
	"relay-api/internal/shared"

	"github.com/labstack/echo/v4"
)

// Health always answers 200; load balancers read the body for the upstream
// reachability state.
func (rr *RelayRouter) Health(cc echo.Context) error {
	c := cc.(*ctx.Context)

	status := "ok"
	if !rr.up.Reachable(c.Request().Context()) {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, shared.HealthResponse{
		Status:      status,
		UpstreamURL: rr.up.BaseURL(),
	})
}
