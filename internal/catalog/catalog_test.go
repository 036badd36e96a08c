package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"relay-api/internal/shared"
	"relay-api/internal/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestModelsPassthrough(t *testing.T) {
	body := `{"models":[{"name":"llama3:latest"},{"name":"mistral:latest"}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	client, err := upstream.NewClient(server.URL, zap.NewNop().Sugar())
	require.NoError(t, err)
	cat := New(client, nil, zap.NewNop().Sugar())

	got, rerr := cat.Models(context.Background())
	require.Nil(t, rerr)
	assert.JSONEq(t, body, string(got))
}

func TestModelsUpstreamDown(t *testing.T) {
	client, err := upstream.NewClient("http://127.0.0.1:1", zap.NewNop().Sugar())
	require.NoError(t, err)
	cat := New(client, nil, zap.NewNop().Sugar())

	_, rerr := cat.Models(context.Background())
	require.NotNil(t, rerr)
	assert.Equal(t, shared.ErrUpstreamUnreachable, rerr)
}

func TestModelsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "broken", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := upstream.NewClient(server.URL, zap.NewNop().Sugar())
	require.NoError(t, err)
	cat := New(client, nil, zap.NewNop().Sugar())

	_, rerr := cat.Models(context.Background())
	require.NotNil(t, rerr)
	assert.Equal(t, 502, rerr.StatusCode)
}
