package routers

import (
	"context"
	"net/http"

	"relay-api/internal/ctx"
	"relay-api/internal/shared"

	"github.com/labstack/echo/v4"
)

func (rr *RelayRouter) Models(cc echo.Context) error {
	c := cc.(*ctx.Context)

	reqCtx, cancel := context.WithTimeout(c.Request().Context(), shared.DefaultCatalogTimeout)
	defer cancel()

	body, rerr := rr.catalog.Models(reqCtx)
	if rerr != nil {
		return c.JSON(rerr.StatusCode, shared.NewAPIError(rerr))
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
}
