package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/dimidiyP/shinomontaz-base/internal/auth"
)

// nowUnix returns the current Unix timestamp in seconds.
func nowUnix() int64 { return time.Now().Unix() }

// SaveSession stores s as the session for server, replacing any previous
// one.
func (d *DB) SaveSession(ctx context.Context, server string, s auth.Session) error {
	if server == "" || s.Token == "" {
		return errors.New("server and token are required")
	}
	perms, err := json.Marshal(s.Identity.Permissions)
	if err != nil {
		return err
	}
	var exp int64
	if !s.ExpiresAt.IsZero() {
		exp = s.ExpiresAt.Unix()
	}
	_, err = d.sql.ExecContext(ctx, `
INSERT INTO sessions(server, token, username, role, permissions, expires_at, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(server) DO UPDATE SET
  token=excluded.token, username=excluded.username, role=excluded.role,
  permissions=excluded.permissions, expires_at=excluded.expires_at, created_at=excluded.created_at
`, server, s.Token, s.Identity.Username, string(s.Identity.Role), string(perms), exp, nowUnix())
	return err
}

// LoadSession returns the cached session for server. Expired sessions are
// returned as found; callers decide what to do with them.
func (d *DB) LoadSession(ctx context.Context, server string) (StoredSession, bool, error) {
	var (
		st          StoredSession
		role, perms string
		exp         int64
	)
	err := d.sql.QueryRowContext(ctx, `
SELECT server, token, username, role, permissions, expires_at, created_at
FROM sessions WHERE server = ?
`, server).Scan(&st.Server, &st.Session.Token, &st.Session.Identity.Username, &role, &perms, &exp, &st.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredSession{}, false, nil
	}
	if err != nil {
		return StoredSession{}, false, err
	}
	st.Session.Identity.Role = auth.Role(role)
	if err := json.Unmarshal([]byte(perms), &st.Session.Identity.Permissions); err != nil {
		return StoredSession{}, false, err
	}
	if exp > 0 {
		st.Session.ExpiresAt = time.Unix(exp, 0)
	}
	return st, true, nil
}

// DeleteSession forgets the session for server. Deleting a missing
// session is not an error.
func (d *DB) DeleteSession(ctx context.Context, server string) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM sessions WHERE server = ?", server)
	return err
}

// PurgeExpiredSessions deletes sessions whose expiry is known and past.
func (d *DB) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at > 0 AND expires_at <= ?", now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetPref fetches a single preference. The boolean indicates whether the
// key exists.
func (d *DB) GetPref(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := d.sql.QueryRowContext(ctx, "SELECT value FROM prefs WHERE key = ?", key).Scan(&v)
	if err == nil {
		return v, true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	return "", false, err
}

// SetPref upserts a preference.
func (d *DB) SetPref(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("pref key is required")
	}
	_, err := d.sql.ExecContext(ctx, `
INSERT INTO prefs(key, value, updated_at) VALUES(?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, key, value, nowUnix())
	return err
}
