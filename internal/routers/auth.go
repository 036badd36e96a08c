package routers

import (
	"encoding/json"
	"io"
	"net/http"

	"relay-api/internal/ctx"
	"relay-api/internal/shared"

	"github.com/labstack/echo/v4"
)

func (rr *RelayRouter) Login(cc echo.Context) error {
	c := cc.(*ctx.Context)

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		c.Log.Errorw("Failed to read request body", "error", err.Error())
		return c.JSON(http.StatusBadRequest, shared.NewAPIError(shared.ErrInvalidRequest))
	}

	var req shared.LoginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, shared.NewAPIError(shared.ErrInvalidRequest))
	}

	token, rerr := rr.tokens.Issue(req.Email, req.Password)
	if rerr != nil {
		return c.JSON(rerr.StatusCode, shared.NewAPIError(rerr))
	}

	return c.JSON(http.StatusOK, shared.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}
