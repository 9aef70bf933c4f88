// Package whoami implements "shinomontaz whoami": it prints the cached
// identity and what it is allowed to do.
package whoami

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dimidiyP/shinomontaz-base/internal/app"
	"github.com/dimidiyP/shinomontaz-base/internal/auth"
)

func Run(args []string) error {
	return run(context.Background(), args, os.Stdout, os.Stderr, time.Now)
}

type output struct {
	Server      string            `json:"server"`
	Username    string            `json:"username"`
	Role        auth.Role         `json:"role"`
	Permissions []auth.Capability `json:"permissions"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, now func() time.Time) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f app.Flags
	var asJSON bool
	f.Register(fs)
	fs.BoolVar(&asJSON, "json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := app.Open(ctx, f, app.Options{Stderr: stderr})
	if err != nil {
		return err
	}
	defer e.Close()

	s, err := e.Session(ctx, now())
	if err != nil {
		return err
	}
	out := output{
		Server:      e.Server(),
		Username:    s.Identity.Username,
		Role:        s.Identity.Role,
		Permissions: s.Identity.Permissions,
	}
	if !s.ExpiresAt.IsZero() {
		out.ExpiresAt = &s.ExpiresAt
	}
	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	perms := make([]string, 0, len(out.Permissions))
	for _, p := range out.Permissions {
		perms = append(perms, string(p))
	}
	fmt.Fprintf(stdout, "%s@%s (%s)\n", out.Username, out.Server, out.Role)
	fmt.Fprintf(stdout, "permissions: %s\n", strings.Join(perms, ", "))
	if out.ExpiresAt != nil {
		fmt.Fprintf(stdout, "expires: %s\n", out.ExpiresAt.Local().Format("02.01.2006 15:04"))
	}
	return nil
}
