package relay

import (
	"context"
	"errors"
	"net/http"

	"relay-api/internal/shared"
)

// ClassifyConnectError maps a failure to open the upstream connection onto
// the client-visible taxonomy. Raw transport detail stays in logs only.
func ClassifyConnectError(ctx context.Context, err error) *shared.RequestError {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		// Downstream left before the connection opened; nothing to send.
		return nil
	}
	return shared.ErrUpstreamUnreachable
}

// ClassifyStatus maps a non-2xx upstream status observed before streaming
// began. The backend answers 404 for a model it does not serve.
func ClassifyStatus(status int) *shared.RequestError {
	switch {
	case status == http.StatusNotFound:
		return shared.ErrModelNotFound
	case status >= 400 && status < 500:
		return shared.ErrInvalidRequest
	default:
		return shared.ErrUpstreamUnreachable
	}
}
