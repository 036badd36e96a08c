package routers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"relay-api/internal/auth"
	"relay-api/internal/catalog"
	"relay-api/internal/files"
	"relay-api/internal/middleware"
	"relay-api/internal/relay"
	"relay-api/internal/shared"
	"relay-api/internal/upstream"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	echo     *echo.Echo
	cfg      *shared.Config
	tokens   *auth.TokenService
	chatHits *atomic.Int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop().Sugar()

	chatHits := &atomic.Int64{}
	fakeUpstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			chatHits.Add(1)
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Hel"},"done":false}`)
			fmt.Fprintln(w, `{"message":{"role":"assistant","content":"lo"},"done":false}`)
			fmt.Fprintln(w, `{"done":true,"done_reason":"stop","eval_count":75}`)
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[{"name":"llama3:latest"}]}`))
		default:
			_, _ = w.Write([]byte("Ollama is running"))
		}
	}))
	t.Cleanup(fakeUpstream.Close)

	cfg := &shared.Config{
		UpstreamURL:   fakeUpstream.URL,
		AdminEmail:    "admin@local",
		AdminPassword: "changeme",
		JWTSecret:     "integration-test-secret",
		TokenLifetime: 24 * time.Hour,
		UploadDir:     t.TempDir(),
		MaxUploadSize: 1 << 20,
	}
	require.NoError(t, cfg.Validate())

	upstreamClient, err := upstream.NewClient(cfg.UpstreamURL, log)
	require.NoError(t, err)
	store, err := files.NewStore(cfg.UploadDir, cfg.MaxUploadSize, log)
	require.NoError(t, err)
	tokens := auth.NewTokenService(cfg)

	e := echo.New()
	base := e.Group("")
	base.Use(middleware.NewRecoverMiddleware(log))
	base.Use(middleware.NewTrackMiddleware(log))
	require.NoError(t, RegisterRoutes(base, Deps{
		Config:   cfg,
		Tokens:   tokens,
		Engine:   relay.NewEngine(upstreamClient, log),
		Catalog:  catalog.New(upstreamClient, nil, log),
		Store:    store,
		Upstream: upstreamClient,
		Log:      log,
	}))

	return &testEnv{echo: e, cfg: cfg, tokens: tokens, chatHits: chatHits}
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) login(t *testing.T) string {
	t.Helper()
	token, rerr := env.tokens.Issue("admin@local", "changeme")
	require.Nil(t, rerr)
	return token
}

func jsonReq(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestLoginIssuesToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonReq(http.MethodPost, "/login", `{"email":"admin@local","password":"changeme"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp shared.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonReq(http.MethodPost, "/login", `{"email":"admin@local","password":"wrong"}`))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body, "access_token")
}

func TestLoginMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonReq(http.MethodPost, "/login", `{"email":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(jsonReq(http.MethodPost, "/login", `{"email":"admin@local"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatStreamEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	req := jsonReq(http.MethodPost, "/chat", `{"model":"llama3","messages":[{"role":"user","content":"hi"}],"stream":true}`)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)

	var chunks []shared.StreamChunk
	for _, line := range lines {
		var c shared.StreamChunk
		require.NoError(t, json.Unmarshal([]byte(line), &c))
		chunks = append(chunks, c)
	}
	assert.Equal(t, "Hel", chunks[0].Message.Content)
	assert.Equal(t, "lo", chunks[1].Message.Content)
	assert.True(t, chunks[2].Done)
	assert.Equal(t, 75, chunks[2].EvalCount)
	assert.False(t, chunks[0].Done)
	assert.False(t, chunks[1].Done)
}

func TestChatRejectsMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	for _, body := range []string{
		`not json`,
		`{"model":"llama3","messages":[]}`,
		`{"messages":[{"role":"user","content":"hi"}]}`,
	} {
		req := jsonReq(http.MethodPost, "/chat", body)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := env.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
	assert.Equal(t, int64(0), env.chatHits.Load())
}

func TestAuthGateBlocksBeforeUpstream(t *testing.T) {
	env := newTestEnv(t)

	expired := mintToken(t, env.cfg.JWTSecret, time.Now().Add(-time.Hour))
	valid := env.login(t)
	tampered := valid[:len(valid)-4] + "AAAA"

	cases := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"no token", func(r *http.Request) {}},
		{"not bearer", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }},
		{"tampered", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tampered) }},
		{"expired", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := jsonReq(http.MethodPost, "/chat", `{"model":"llama3","messages":[{"role":"user","content":"hi"}]}`)
			tc.setup(req)
			rec := env.do(req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	assert.Equal(t, int64(0), env.chatHits.Load(), "unauthenticated requests must never reach the upstream")
}

func TestExpiredTokenMessageIsDistinct(t *testing.T) {
	env := newTestEnv(t)
	expired := mintToken(t, env.cfg.JWTSecret, time.Now().Add(-time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec := env.do(req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body shared.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, shared.KindTokenExpired, body.Type)
}

func TestModelsPassthrough(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"models":[{"name":"llama3:latest"}]}`, rec.Body.String())
}

func TestUploadDownloadRoundtrip(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "report.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("file contents"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp shared.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/files/"+resp.Filename, resp.DownloadPath)

	dlReq := httptest.NewRequest(http.MethodGet, resp.DownloadPath, nil)
	dlReq.Header.Set("Authorization", "Bearer "+token)
	dlRec := env.do(dlReq)

	require.Equal(t, http.StatusOK, dlRec.Code)
	content, err := io.ReadAll(dlRec.Body)
	require.NoError(t, err)
	assert.Equal(t, "file contents", string(content))
}

func TestDownloadUnknownAndUnsafeNames(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	req := httptest.NewRequest(http.MethodGet, "/files/nonexistent.txt", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusNotFound, env.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/files/..%2F..%2Fetc%2Fpasswd", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := env.do(req)
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusNotFound}, rec.Code)
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp shared.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, env.cfg.UpstreamURL, resp.UpstreamURL)
}

func mintToken(t *testing.T, secret string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "admin@local",
		Issuer:    shared.TokenIssuer,
		IssuedAt:  jwt.NewNumericDate(expiresAt.Add(-time.Hour)),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}
