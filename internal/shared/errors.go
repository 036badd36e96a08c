package shared

import (
	"errors"
	"fmt"
)

// RequestError is used when we want a specific error message and StatusCode.
// Sane defaults are listed below. For routes that need custom error messages,
// a request error can be generated and a handler expects the router to return
// the exact message inside the request error msg.
//
// Internal detail belongs in the error chain for logging; the message placed
// in Err is what the client is allowed to see.
type RequestError struct {
	StatusCode int
	Kind       string
	Err        error
}

func (r *RequestError) Error() string {
	return fmt.Sprintf("status %d: err %v", r.StatusCode, r.Err)
}

// Closed set of client-visible failure kinds.
const (
	KindUnauthenticated     = "unauthenticated"
	KindTokenExpired        = "token_expired"
	KindUpstreamUnreachable = "upstream_unreachable"
	KindModelNotFound       = "model_not_found"
	KindMalformedRequest    = "malformed_request"
	KindInternalError       = "internal_error"
)

var (
	ErrMissingAuth   = &RequestError{Err: errors.New("missing authorization header"), StatusCode: 401, Kind: KindUnauthenticated}
	ErrInvalidFormat = &RequestError{Err: errors.New("invalid authentication format"), StatusCode: 401, Kind: KindUnauthenticated}
	ErrInvalidToken  = &RequestError{Err: errors.New("invalid token"), StatusCode: 401, Kind: KindUnauthenticated}
	ErrTokenExpired  = &RequestError{Err: errors.New("token expired"), StatusCode: 401, Kind: KindTokenExpired}
	ErrUnauthorized  = &RequestError{Err: errors.New("invalid credentials"), StatusCode: 401, Kind: KindUnauthenticated}

	ErrInvalidRequest = &RequestError{Err: errors.New("invalid request body"), StatusCode: 400, Kind: KindMalformedRequest}
	ErrEmptyMessages  = &RequestError{Err: errors.New("messages must not be empty"), StatusCode: 400, Kind: KindMalformedRequest}
	ErrMissingModel   = &RequestError{Err: errors.New("model is required"), StatusCode: 400, Kind: KindMalformedRequest}

	ErrModelNotFound       = &RequestError{Err: errors.New("model not found"), StatusCode: 404, Kind: KindModelNotFound}
	ErrFileNotFound        = &RequestError{Err: errors.New("file not found"), StatusCode: 404, Kind: KindMalformedRequest}
	ErrUnsafeFilename      = &RequestError{Err: errors.New("invalid filename"), StatusCode: 400, Kind: KindMalformedRequest}
	ErrUploadTooLarge      = &RequestError{Err: errors.New("upload exceeds size limit"), StatusCode: 413, Kind: KindMalformedRequest}
	ErrUpstreamUnreachable = &RequestError{Err: errors.New("inference backend unreachable"), StatusCode: 502, Kind: KindUpstreamUnreachable}

	ErrInternalServerError = &RequestError{Err: errors.New("internal server error"), StatusCode: 500, Kind: KindInternalError}
)

// APIError is the JSON body returned for every structured error response.
type APIError struct {
	Message string `json:"message"`
	Object  string `json:"object"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// NewAPIError builds the wire form of a RequestError.
func NewAPIError(rerr *RequestError) APIError {
	message := "request failed"
	if rerr.Err != nil {
		message = rerr.Err.Error()
	}
	return APIError{
		Message: message,
		Object:  "error",
		Type:    rerr.Kind,
		Code:    rerr.StatusCode,
	}
}
