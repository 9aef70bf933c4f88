// Package logout implements "shinomontaz logout".
package logout

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dimidiyP/shinomontaz-base/internal/app"
)

func Run(args []string) error {
	return run(context.Background(), args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f app.Flags
	f.Register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := app.Open(ctx, f, app.Options{Stderr: stderr})
	if err != nil {
		return err
	}
	defer e.Close()

	// The backend keeps no server-side session; forgetting the token is
	// all a logout does.
	if err := e.DB.DeleteSession(ctx, e.Server()); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Logged out of %s\n", e.Server())
	return nil
}
