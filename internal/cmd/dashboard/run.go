// Package dashboard implements "shinomontaz dashboard", the interactive
// record board.
package dashboard

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dimidiyP/shinomontaz-base/internal/app"
	"github.com/dimidiyP/shinomontaz-base/internal/auth"
	"github.com/dimidiyP/shinomontaz-base/internal/dashboard"
	"github.com/dimidiyP/shinomontaz-base/internal/db"
	"github.com/dimidiyP/shinomontaz-base/internal/records"
)

type Options struct {
	app.Flags
	DownloadDir string
}

func Run(args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	var opt Options
	opt.Flags.Register(fs)
	fs.StringVar(&opt.DownloadDir, "download-dir", "", "where PDF acts and Excel exports are saved (default: current dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, err := app.Open(ctx, opt.Flags, app.Options{LogToFile: true})
	if err != nil {
		return err
	}
	defer e.Close()
	lg := e.Log.With("component", "cmd/dashboard")

	if n, err := e.DB.PurgeExpiredSessions(ctx, time.Now()); err != nil {
		lg.Warn("purge expired sessions", "err", err)
	} else if n > 0 {
		lg.Debug("purged expired sessions", "count", n)
	}

	var session *auth.Session
	if s, err := e.Session(ctx, time.Now()); err == nil {
		session = &s
	} else {
		lg.Info("no usable session, showing login", "err", err)
	}

	username, _, err := e.DB.GetPref(ctx, db.PrefLastUsername)
	if err != nil {
		lg.Warn("read pref", "key", db.PrefLastUsername, "err", err)
	}
	var sort records.SortSpec
	if v, ok, err := e.DB.GetPref(ctx, db.PrefRecordsSort); err == nil && ok {
		if sort, err = records.ParseSortSpec(v); err != nil {
			lg.Warn("ignoring saved sort", "value", v, "err", err)
		}
	}

	dir := opt.DownloadDir
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		}
	}
	dir, _ = filepath.Abs(dir)

	m := dashboard.New(dashboard.Options{
		Backend:     e.Client,
		Store:       e.DB,
		Server:      e.Server(),
		Session:     session,
		Username:    username,
		Sort:        sort,
		DownloadDir: dir,
		Timeout:     e.Config.Server.Timeout,
		Logger:      e.Log,
		Context:     ctx,
	})
	lg.Info("dashboard started", "server", e.Server(), "resumed", session != nil)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return err
	}
	return e.DB.SetPref(ctx, db.PrefLastServer, e.Server())
}
