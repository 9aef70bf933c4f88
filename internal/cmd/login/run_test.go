package login

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimidiyP/shinomontaz-base/internal/app"
	"github.com/dimidiyP/shinomontaz-base/internal/db"
)

func loginServer(t *testing.T, exp time.Time) *httptest.Server {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Post("/api/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Username, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Неверный логин или пароль"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": tok,
			"token_type":   "bearer",
			"user":         map[string]any{"username": req.Username, "role": "user", "permissions": []string{"view"}},
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func configFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf("db:\n  path: %s\nlog:\n  level: error\n", filepath.Join(dir, "state.db"))
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(cfg), 0o600))
	return p
}

func TestLoginStoresSessionAndPrefs(t *testing.T) {
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	srv := loginServer(t, exp)
	cfg := configFile(t)

	var out, stderr bytes.Buffer
	err := run(ctx, []string{"-config", cfg, "-addr", srv.URL, "-u", "user", "-password", "secret"}, nil, &out, &stderr)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Logged in to "+srv.URL+" as user (user)")
	assert.Contains(t, out.String(), "Session expires")

	e, err := app.Open(ctx, app.Flags{Config: cfg}, app.Options{Stderr: &stderr})
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, srv.URL, e.Server())

	s, err := e.Session(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "user", s.Identity.Username)
	assert.True(t, s.ExpiresAt.Equal(exp))

	last, ok, err := e.DB.GetPref(ctx, db.PrefLastUsername)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "user", last)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := loginServer(t, time.Now().Add(time.Hour))
	cfg := configFile(t)
	var out, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", cfg, "-addr", srv.URL, "-u", "user", "-password", "nope"}, nil, &out, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Неверный логин или пароль")
	assert.Empty(t, out.String())
}

func TestLoginNeedsUsername(t *testing.T) {
	srv := loginServer(t, time.Now().Add(time.Hour))
	var out, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", configFile(t), "-addr", srv.URL, "-password", "secret"}, nil, &out, &stderr)
	assert.ErrorContains(t, err, "username is required")
}
