// Package app wires the pieces every subcommand needs: configuration,
// logging, the local state database and the backend client.
package app

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dimidiyP/shinomontaz-base/internal/auth"
	"github.com/dimidiyP/shinomontaz-base/internal/config"
	"github.com/dimidiyP/shinomontaz-base/internal/db"
	"github.com/dimidiyP/shinomontaz-base/internal/errs"
	"github.com/dimidiyP/shinomontaz-base/internal/logging"
	"github.com/dimidiyP/shinomontaz-base/internal/storeapi"
	"github.com/dimidiyP/shinomontaz-base/internal/version"
)

// Flags are accepted by every subcommand. Set flags override the config
// file and the environment.
type Flags struct {
	Config   string
	Addr     string
	LogLevel string
	Insecure bool
}

// Register adds the common flags to fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.Config, "config", "", "path to config.yaml (default: user config dir)")
	fs.StringVar(&f.Addr, "addr", "", "backend address, e.g. https://storage.example")
	fs.StringVar(&f.LogLevel, "log-level", "", "log level: debug|info|warning|error")
	fs.BoolVar(&f.Insecure, "insecure", false, "skip TLS verification (self-signed backends only)")
}

// Options tune Open for one subcommand.
type Options struct {
	// LogToFile sends logs to log.file instead of stderr. The dashboard
	// needs the terminal for itself.
	LogToFile bool
	// Stderr receives logs when LogToFile is false.
	Stderr io.Writer
	// Offline skips the backend client; no server address is required.
	Offline bool
}

// Env is an opened environment. Close releases it.
type Env struct {
	Config config.Config
	Log    *slog.Logger
	DB     *db.DB
	Client *storeapi.Client

	logCloser io.Closer
}

// ErrNoServer is returned when no backend address is configured.
var ErrNoServer = errors.New("backend address is not set: use -addr, server.addr in config.yaml or SHINOMONTAZ_SERVER_ADDR")

// Open loads configuration and opens the state database and the client.
func Open(ctx context.Context, f Flags, opt Options) (*Env, error) {
	c, err := config.Load(f.Config)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(f.LogLevel) != "" {
		c.Log.Level = f.LogLevel
	}
	if f.Insecure {
		c.Server.Insecure = true
	}

	lopt := logging.Options{Level: c.Log.Level, JSON: c.Log.JSON, Writer: opt.Stderr}
	if opt.LogToFile {
		lopt.File = c.Log.File
	}
	lg, closer, err := logging.New(lopt)
	if err != nil {
		return nil, err
	}
	e := &Env{Config: c, Log: lg, logCloser: closer}

	d, err := db.Open(ctx, c.DB.Path)
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	e.DB = d

	if opt.Offline {
		return e, nil
	}
	addr := strings.TrimRight(strings.TrimSpace(f.Addr), "/")
	if addr == "" {
		addr = c.Server.Addr
	}
	if addr == "" {
		if last, ok, err := d.GetPref(ctx, db.PrefLastServer); err == nil && ok {
			addr = last
		}
	}
	if addr == "" {
		_ = e.Close()
		return nil, ErrNoServer
	}
	client, err := storeapi.NewClient(storeapi.ClientOptions{
		Addr:      addr,
		Insecure:  c.Server.Insecure,
		Timeout:   c.Server.Timeout,
		UserAgent: "shinomontaz/" + version.Version,
		Logger:    lg,
		CacheSize: c.Cache.Size,
		CacheTTL:  c.Cache.TTL,
	})
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	e.Client = client
	return e, nil
}

// Server is the backend address sessions are stored under.
func (e *Env) Server() string {
	if e.Client == nil {
		return ""
	}
	return e.Client.BaseURL()
}

// Session loads the cached login for the current server and hands its
// token to the client.
func (e *Env) Session(ctx context.Context, now time.Time) (auth.Session, error) {
	stored, ok, err := e.DB.LoadSession(ctx, e.Server())
	if err != nil {
		return auth.Session{}, err
	}
	if !ok {
		return auth.Session{}, errs.New(errs.CodeUnauthorized, "not logged in to "+e.Server()+": run shinomontaz login")
	}
	if stored.Session.Expired(now) {
		return auth.Session{}, errs.New(errs.CodeUnauthorized, "session expired: run shinomontaz login")
	}
	e.Client.SetToken(stored.Session.Token)
	return stored.Session, nil
}

// Close releases the database and the log file.
func (e *Env) Close() error {
	var errList []error
	if e.DB != nil {
		errList = append(errList, e.DB.Close())
	}
	if e.logCloser != nil {
		errList = append(errList, e.logCloser.Close())
	}
	return errors.Join(errList...)
}
