package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimidiyP/shinomontaz-base/internal/auth"
	"github.com/dimidiyP/shinomontaz-base/internal/db"
	"github.com/dimidiyP/shinomontaz-base/internal/errs"
)

func testFlags(t *testing.T, addr string) Flags {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf("db:\n  path: %s\nlog:\n  file: %s\n",
		filepath.Join(dir, "state.db"), filepath.Join(dir, "logs", "app.log"))
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(cfg), 0o600))
	return Flags{Config: p, Addr: addr}
}

func TestOpenAndSession(t *testing.T) {
	ctx := context.Background()
	var stderr bytes.Buffer
	e, err := Open(ctx, testFlags(t, "http://127.0.0.1:1/"), Options{Stderr: &stderr})
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, "http://127.0.0.1:1", e.Server())

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	_, err = e.Session(ctx, now)
	assert.True(t, errs.Is(err, errs.CodeUnauthorized))

	s := auth.Session{
		Token:     "tok",
		Identity:  auth.Identity{Username: "user", Role: auth.RoleUser, Permissions: []auth.Capability{auth.CapView}},
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, e.DB.SaveSession(ctx, e.Server(), s))

	got, err := e.Session(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "user", got.Identity.Username)
	assert.Equal(t, "tok", e.Client.Token())

	_, err = e.Session(ctx, now.Add(2*time.Hour))
	assert.True(t, errs.Is(err, errs.CodeUnauthorized))
}

func TestOpenFallsBackToLastServer(t *testing.T) {
	ctx := context.Background()
	f := testFlags(t, "")

	_, err := Open(ctx, f, Options{Stderr: &bytes.Buffer{}})
	require.ErrorIs(t, err, ErrNoServer)

	e, err := Open(ctx, f, Options{Offline: true, Stderr: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Nil(t, e.Client)
	require.NoError(t, e.DB.SetPref(ctx, db.PrefLastServer, "https://storage.example"))
	require.NoError(t, e.Close())

	e, err = Open(ctx, f, Options{Stderr: &bytes.Buffer{}})
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, "https://storage.example", e.Server())
}

func TestOpenLogsToFile(t *testing.T) {
	ctx := context.Background()
	f := testFlags(t, "http://127.0.0.1:1")
	e, err := Open(ctx, f, Options{LogToFile: true})
	require.NoError(t, err)
	e.Log.Info("dashboard started")
	require.NoError(t, e.Close())

	b, err := os.ReadFile(e.Config.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(b), "dashboard started")
}

func TestResolvePassword(t *testing.T) {
	var out bytes.Buffer

	got, err := ResolvePassword("flag-pw", false, os.Stdin, &out)
	require.NoError(t, err)
	assert.Equal(t, "flag-pw", got)

	_, err = ResolvePassword("flag-pw", true, os.Stdin, &out)
	assert.Error(t, err)

	t.Setenv(PasswordEnv, "env-pw")
	got, err = ResolvePassword("", true, os.Stdin, &out)
	require.NoError(t, err)
	assert.Equal(t, "env-pw", got)

	t.Setenv(PasswordEnv, "")
	_, err = ResolvePassword("", true, os.Stdin, &out)
	assert.Error(t, err)
}

func TestResolvePasswordFromPipe(t *testing.T) {
	p := filepath.Join(t.TempDir(), "stdin")
	require.NoError(t, os.WriteFile(p, []byte("piped secret\n"), 0o600))
	in, err := os.Open(p)
	require.NoError(t, err)
	defer in.Close()

	var out bytes.Buffer
	got, err := ResolvePassword("", false, in, &out)
	require.NoError(t, err)
	assert.Equal(t, "piped secret", got)
	assert.Equal(t, "Password: ", out.String())
}
