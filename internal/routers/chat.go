package routers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"relay-api/internal/ctx"
	"relay-api/internal/shared"

	"github.com/labstack/echo/v4"
)

// Chat relays one authenticated chat request. Headers are written lazily on
// the first record so failures before streaming still get a real status
// code; once the first record is on the wire, failures travel in-band as a
// terminal error frame.
func (rr *RelayRouter) Chat(cc echo.Context) error {
	c := cc.(*ctx.Context)

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		c.Log.Errorw("Failed to read request body", "error", err.Error())
		return c.JSON(http.StatusBadRequest, shared.NewAPIError(shared.ErrInvalidRequest))
	}

	var req shared.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, shared.NewAPIError(shared.ErrInvalidRequest))
	}

	c.Log = c.Log.With("model", req.Model)

	headersSent := false
	emit := func(raw []byte) error {
		if ctxErr := c.Request().Context().Err(); ctxErr != nil {
			return ctxErr
		}
		if !headersSent {
			c.Response().Header().Set("Content-Type", "application/x-ndjson")
			c.Response().Header().Set("Cache-Control", "no-cache")
			c.Response().Header().Set("Connection", "keep-alive")
			c.Response().WriteHeader(http.StatusOK)
			headersSent = true
		}
		if _, werr := fmt.Fprintf(c.Response(), "%s\n", raw); werr != nil {
			return werr
		}
		c.Response().Flush()
		return nil
	}

	result, rerr := rr.engine.Relay(c.Request().Context(), &req, emit)
	if rerr != nil {
		if headersSent {
			// Status already on the wire; the engine has emitted the
			// in-band error frame.
			c.Log.Errorw("Error after streaming started", "error", rerr.Err)
			return nil
		}
		return c.JSON(rerr.StatusCode, shared.NewAPIError(rerr))
	}

	c.Log.Infow("Relay session finished",
		"state", string(result.State),
		"chunks", result.Chunks,
		"skipped", result.Skipped)
	return nil
}
