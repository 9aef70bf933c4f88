// Package crm implements "shinomontaz crm": inspect and trigger the
// backend's RetailCRM order synchronization.
package crm

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dimidiyP/shinomontaz-base/internal/app"
	"github.com/dimidiyP/shinomontaz-base/internal/storeapi"
)

const usage = "shinomontaz crm <status|sync|orders> [flags]"

type api interface {
	RetailCRMStatus(ctx context.Context) (storeapi.CRMStatus, error)
	RetailCRMSync(ctx context.Context) (string, error)
	RetailCRMOrders(ctx context.Context) ([]storeapi.CRMOrder, error)
}

var orderColumns = []string{"number", "status", "firstName", "lastName", "phone", "totalSumm"}

func Run(args []string) error {
	return run(context.Background(), args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return errors.New("missing crm subcommand")
	}
	sub := args[0]
	fs := flag.NewFlagSet("crm "+sub, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f app.Flags
	f.Register(fs)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	e, err := app.Open(ctx, f, app.Options{Stderr: stderr})
	if err != nil {
		return err
	}
	defer e.Close()
	if _, err := e.Session(ctx, time.Now()); err != nil {
		return err
	}
	return exec(ctx, e.Client, sub, *asJSON, stdout)
}

func exec(ctx context.Context, c api, sub string, asJSON bool, w io.Writer) error {
	switch sub {
	case "status":
		s, err := c.RetailCRMStatus(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(w, s)
		}
		state := "stopped"
		if s.SchedulerRunning {
			state = "running"
		}
		fmt.Fprintf(w, "scheduler: %s\napi: %s\nlast sync: %d orders\n", state, s.APIURL, s.LastSyncOrders)
		return nil
	case "sync":
		msg, err := c.RetailCRMSync(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, msg)
		return nil
	case "orders":
		orders, err := c.RetailCRMOrders(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(w, orders)
		}
		for _, o := range orders {
			for i, col := range orderColumns {
				if i > 0 {
					fmt.Fprint(w, "\t")
				}
				fmt.Fprint(w, o.String(col))
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%d orders\n", len(orders))
		return nil
	}
	return fmt.Errorf("unknown crm subcommand: %s", sub)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
