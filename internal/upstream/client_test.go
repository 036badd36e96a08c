package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "not a url", "localhost:11434", "://x"} {
		_, err := NewClient(u, zap.NewNop().Sugar())
		assert.Error(t, err, "url %q", u)
	}
}

func TestChatPostsToChatPath(t *testing.T) {
	var gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(server.URL+"/", zap.NewNop().Sugar())
	require.NoError(t, err)

	res, err := client.Chat(context.Background(), []byte(`{"model":"llama3"}`))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, "/api/chat", gotPath)
	assert.JSONEq(t, `{"model":"llama3"}`, gotBody)
}

func TestTagsReturnsStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("nope"))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, zap.NewNop().Sugar())
	require.NoError(t, err)

	body, status, err := client.Tags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, status)
	assert.Equal(t, "nope", string(body))
}

func TestReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Ollama is running"))
	}))

	client, err := NewClient(server.URL, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.True(t, client.Reachable(context.Background()))

	server.Close()
	assert.False(t, client.Reachable(context.Background()))
}
