// Command shinomontaz is the terminal client for the tire storage
// backend. It dispatches to subcommands like login, dashboard and records.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/dimidiyP/shinomontaz-base/internal/cmd/calc"
	"github.com/dimidiyP/shinomontaz-base/internal/cmd/crm"
	"github.com/dimidiyP/shinomontaz-base/internal/cmd/dashboard"
	"github.com/dimidiyP/shinomontaz-base/internal/cmd/login"
	"github.com/dimidiyP/shinomontaz-base/internal/cmd/logout"
	"github.com/dimidiyP/shinomontaz-base/internal/cmd/records"
	"github.com/dimidiyP/shinomontaz-base/internal/cmd/whoami"
	"github.com/dimidiyP/shinomontaz-base/internal/version"
)

// main is the process entry point and forwards to run for testable logic.
func main() {
	// A missing .env is normal; the environment and config.yaml still apply.
	_ = godotenv.Load()
	if err := run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// run parses argv and invokes the matching subcommand handler.
// It returns an error for missing or unknown subcommands.
func run(argv []string) error {
	if len(argv) < 2 {
		usage()
		return fmt.Errorf("missing subcommand")
	}

	switch argv[1] {
	case "login":
		return login.Run(argv[2:])
	case "logout":
		return logout.Run(argv[2:])
	case "whoami":
		return whoami.Run(argv[2:])
	case "dashboard":
		return dashboard.Run(argv[2:])
	case "records":
		return records.Run(argv[2:])
	case "calc":
		return calc.Run(argv[2:])
	case "crm":
		return crm.Run(argv[2:])
	case "version":
		fmt.Println(version.Version)
		return nil
	case "-h", "--help", "help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown subcommand: %s", argv[1])
	}
}

// usage prints the canonical CLI syntax to stderr.
func usage() {
	fmt.Fprintln(os.Stderr, "shinomontaz <login|logout|whoami|dashboard|records|calc|crm|version> [flags]")
}
