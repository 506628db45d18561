package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"example.com/cadeado/internal/auth"
	"example.com/cadeado/internal/config"
	"example.com/cadeado/internal/game"
	"example.com/cadeado/internal/httpapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	var cfg config.Config
	cfg.CORS.Origins = []string{"https://play.example"}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewService([]byte("test-secret"))
	svc := game.NewMatchService(game.Config{Rules: game.DefaultRules()}, game.NewInMemoryMatchStore(), game.NewLocalBroker(), nil, log)
	authH := &httpapi.AuthHandler{Auth: tokens}

	health := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	return newHandler(cfg, game.NewServer(svc, tokens, log), authH, tokens, health)
}

func TestHandler_Routes(t *testing.T) {
	h := newTestHandler(t)

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/me", http.StatusUnauthorized},
		{http.MethodGet, "/api/matches", http.StatusUnauthorized},
		{http.MethodPost, "/api/matches/abc/guess", http.StatusUnauthorized},
		{http.MethodGet, "/api/auth/login", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nowhere", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestHandler_CORS(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/matches", nil)
	req.Header.Set("Origin", "https://play.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	// browsers send the requested header names lowercased
	req.Header.Set("Access-Control-Request-Headers", "authorization")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Less(t, rec.Code, 300)
	assert.Equal(t, "https://play.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
