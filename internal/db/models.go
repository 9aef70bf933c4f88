package db

import "github.com/dimidiyP/shinomontaz-base/internal/auth"

// StoredSession is a cached login for one backend address.
type StoredSession struct {
	Server    string
	Session   auth.Session
	CreatedAt int64
}

// Preference keys.
const (
	PrefLastServer   = "last_server"
	PrefLastUsername = "last_username"
	PrefRecordsSort  = "records.sort"
)
