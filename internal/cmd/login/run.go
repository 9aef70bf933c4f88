// Package login implements "shinomontaz login": it exchanges credentials
// for a token and caches the session locally.
package login

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dimidiyP/shinomontaz-base/internal/app"
	"github.com/dimidiyP/shinomontaz-base/internal/db"
	"github.com/dimidiyP/shinomontaz-base/internal/validate"
)

// Options captures CLI flags for login.
type Options struct {
	app.Flags
	Username    string
	Password    string
	PasswordEnv bool
}

// Run parses login flags and stores the new session.
func Run(args []string) error {
	return run(context.Background(), args, os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, in *os.File, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opt Options
	opt.Flags.Register(fs)
	fs.StringVar(&opt.Username, "u", "", "username (default: last used)")
	fs.StringVar(&opt.Password, "password", "", "password (prompted when omitted)")
	fs.BoolVar(&opt.PasswordEnv, "password-env", false, "read password from "+app.PasswordEnv)
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := app.Open(ctx, opt.Flags, app.Options{Stderr: stderr})
	if err != nil {
		return err
	}
	defer e.Close()

	username := strings.TrimSpace(opt.Username)
	if username == "" {
		if last, ok, err := e.DB.GetPref(ctx, db.PrefLastUsername); err == nil && ok {
			username = last
		}
	}
	if username == "" {
		return fmt.Errorf("username is required (-u)")
	}
	if err := validate.Username(username); err != nil {
		return err
	}
	password, err := app.ResolvePassword(opt.Password, opt.PasswordEnv, in, stderr)
	if err != nil {
		return err
	}

	s, err := e.Client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := e.DB.SaveSession(ctx, e.Server(), s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := e.DB.SetPref(ctx, db.PrefLastUsername, username); err != nil {
		return err
	}
	if err := e.DB.SetPref(ctx, db.PrefLastServer, e.Server()); err != nil {
		return err
	}
	if n, err := e.DB.PurgeExpiredSessions(ctx, time.Now()); err != nil {
		e.Log.Warn("purge expired sessions", "err", err)
	} else if n > 0 {
		e.Log.Debug("purged expired sessions", "count", n)
	}

	fmt.Fprintf(stdout, "Logged in to %s as %s (%s)\n", e.Server(), s.Identity.Username, s.Identity.Role)
	if !s.ExpiresAt.IsZero() {
		fmt.Fprintf(stdout, "Session expires %s\n", s.ExpiresAt.Local().Format("02.01.2006 15:04"))
	}
	return nil
}
