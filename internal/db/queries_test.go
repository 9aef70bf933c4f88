package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimidiyP/shinomontaz-base/internal/auth"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	d, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := openTest(t)

	_, ok, err := d.LoadSession(ctx, "https://shina.example.ru")
	require.NoError(t, err)
	assert.False(t, ok)

	exp := time.Unix(1893456000, 0)
	s := auth.Session{
		Token:     "tok",
		Identity:  auth.Identity{Username: "user", Role: auth.RoleUser, Permissions: []auth.Capability{auth.CapStore, auth.CapView}},
		ExpiresAt: exp,
	}
	require.NoError(t, d.SaveSession(ctx, "https://shina.example.ru", s))

	got, ok, err := d.LoadSession(ctx, "https://shina.example.ru")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok", got.Session.Token)
	assert.Equal(t, s.Identity, got.Session.Identity)
	assert.True(t, exp.Equal(got.Session.ExpiresAt))
	assert.NotZero(t, got.CreatedAt)

	s.Token = "tok2"
	s.ExpiresAt = time.Time{}
	require.NoError(t, d.SaveSession(ctx, "https://shina.example.ru", s))
	got, _, err = d.LoadSession(ctx, "https://shina.example.ru")
	require.NoError(t, err)
	assert.Equal(t, "tok2", got.Session.Token)
	assert.True(t, got.Session.ExpiresAt.IsZero())

	require.NoError(t, d.DeleteSession(ctx, "https://shina.example.ru"))
	require.NoError(t, d.DeleteSession(ctx, "https://shina.example.ru"))
	_, ok, err = d.LoadSession(ctx, "https://shina.example.ru")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveSessionRequiresToken(t *testing.T) {
	d := openTest(t)
	assert.Error(t, d.SaveSession(context.Background(), "srv", auth.Session{}))
	assert.Error(t, d.SaveSession(context.Background(), "", auth.Session{Token: "x"}))
}

func TestPurgeExpiredSessions(t *testing.T) {
	ctx := context.Background()
	d := openTest(t)
	now := time.Unix(1700000000, 0)

	require.NoError(t, d.SaveSession(ctx, "old", auth.Session{Token: "a", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, d.SaveSession(ctx, "fresh", auth.Session{Token: "b", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, d.SaveSession(ctx, "unknown", auth.Session{Token: "c"}))

	n, err := d.PurgeExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, _ := d.LoadSession(ctx, "fresh")
	assert.True(t, ok)
	_, ok, _ = d.LoadSession(ctx, "unknown")
	assert.True(t, ok)
}

func TestPrefs(t *testing.T) {
	ctx := context.Background()
	d := openTest(t)

	_, ok, err := d.GetPref(ctx, PrefRecordsSort)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.SetPref(ctx, PrefRecordsSort, "full_name:asc"))
	require.NoError(t, d.SetPref(ctx, PrefRecordsSort, "full_name:desc"))
	v, ok, err := d.GetPref(ctx, PrefRecordsSort)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "full_name:desc", v)

	assert.Error(t, d.SetPref(ctx, "", "x"))
}

func TestReopenKeepsDataAndSkipsMigrations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	d, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, d.SetPref(ctx, PrefLastUsername, "admin"))
	require.NoError(t, d.Close())

	d, err = Open(ctx, path)
	require.NoError(t, err)
	defer d.Close()
	v, ok, err := d.GetPref(ctx, PrefLastUsername)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "admin", v)
}
