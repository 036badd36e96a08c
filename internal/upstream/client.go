// Package upstream is the thin client for the local inference backend.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"relay-api/internal/shared"

	"go.uber.org/zap"
)

const (
	chatPath = "/api/chat"
	tagsPath = "/api/tags"
)

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.SugaredLogger
}

func NewClient(baseURL string, log *zap.SugaredLogger) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid upstream url %q", baseURL)
	}

	tr := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: shared.DefaultDialTimeout,
		}).DialContext,
		TLSHandshakeTimeout: shared.DefaultDialTimeout,
		DisableKeepAlives:   false,
	}
	// No overall client timeout: generation duration is unbounded and
	// cancellation is driven by the caller's context.
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: tr},
		log:     log,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Chat opens the streaming chat request and hands back the live response.
// The caller owns the body and must close it on every exit path.
func (c *Client) Chat(ctx context.Context, body []byte) (*http.Response, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Connection", "keep-alive")

	res, err := c.http.Do(r)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Tags fetches the raw model catalog body from the backend.
func (c *Client) Tags(ctx context.Context) ([]byte, int, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tagsPath, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building tags request: %w", err)
	}

	res, err := c.http.Do(r)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			c.log.Warnw("Failed to close tags response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, res.StatusCode, fmt.Errorf("reading tags response: %w", err)
	}
	return body, res.StatusCode, nil
}

// Reachable reports whether the backend answers within a short probe window.
func (c *Client) Reachable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, shared.DefaultProbeTimeout)
	defer cancel()

	r, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return false
	}
	res, err := c.http.Do(r)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<10))
	_ = res.Body.Close()
	return true
}
