// Package calc implements "shinomontaz calc": price a tire service from
// the command line, fetch a saved calculation, or upload a new price list.
package calc

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dimidiyP/shinomontaz-base/internal/app"
	"github.com/dimidiyP/shinomontaz-base/internal/auth"
	"github.com/dimidiyP/shinomontaz-base/internal/calc"
)

// pricer is the calculator surface of the backend client.
type pricer interface {
	CalculatorSettings(ctx context.Context, vehicle calc.VehicleType) (calc.Settings, error)
	SaveCalculatorSettings(ctx context.Context, s calc.Settings) error
	Calculate(ctx context.Context, req calc.Request) (calc.Result, error)
	SaveCalculation(ctx context.Context, req calc.Request) (calc.SavedResult, error)
	CalculationResult(ctx context.Context, id string) (calc.SavedResult, error)
}

type options struct {
	vehicle  string
	size     string
	wheels   int
	services list
	extras   list
	local    bool
	save     bool
	result   string
	settings bool
	upload   string
	json     bool
}

// list is a comma separated flag value.
type list []string

func (l *list) String() string { return strings.Join(*l, ",") }

func (l *list) Set(v string) error {
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			*l = append(*l, p)
		}
	}
	return nil
}

func Run(args []string) error {
	return run(context.Background(), args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("calc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f app.Flags
	var o options
	f.Register(fs)
	fs.StringVar(&o.vehicle, "vehicle", string(calc.Passenger), "passenger|truck")
	fs.StringVar(&o.size, "size", "", "tire size, e.g. R16")
	fs.IntVar(&o.wheels, "wheels", 4, "number of wheels (1-12)")
	fs.Var(&o.services, "services", "service ids, comma separated")
	fs.Var(&o.extras, "options", "additional option ids, comma separated")
	fs.BoolVar(&o.local, "local", false, "only print the local estimate")
	fs.BoolVar(&o.save, "save", false, "store the calculation on the server and print its id")
	fs.StringVar(&o.result, "result", "", "print a saved calculation by id")
	fs.BoolVar(&o.settings, "settings", false, "print the price list for -vehicle")
	fs.StringVar(&o.upload, "upload", "", "replace the price list from a JSON file (calculator_management)")
	fs.BoolVar(&o.json, "json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := app.Open(ctx, f, app.Options{Stderr: stderr})
	if err != nil {
		return err
	}
	defer e.Close()

	c := &calculator{api: e.Client, out: stdout}
	if o.upload != "" {
		s, err := e.Session(ctx, time.Now())
		if err != nil {
			return err
		}
		c.who = &s.Identity
	}
	return c.run(ctx, o)
}

type calculator struct {
	api pricer
	who *auth.Identity
	out io.Writer
}

func (c *calculator) run(ctx context.Context, o options) error {
	if o.result != "" {
		id, err := calc.ParseResultID(o.result)
		if err != nil {
			return err
		}
		saved, err := c.api.CalculationResult(ctx, id)
		if err != nil {
			return err
		}
		if o.json {
			return c.printJSON(saved)
		}
		c.printResult("saved "+saved.UniqueID, saved.Calculation)
		return nil
	}
	if o.upload != "" {
		return c.upload(ctx, o.upload)
	}

	vehicle, err := calc.ParseVehicleType(o.vehicle)
	if err != nil {
		return err
	}
	settings, err := c.api.CalculatorSettings(ctx, vehicle)
	if err != nil {
		return err
	}
	if o.settings {
		if o.json {
			return c.printJSON(settings)
		}
		c.printSettings(settings)
		return nil
	}

	req := calc.Request{
		VehicleType:       vehicle,
		TireSize:          o.size,
		WheelCount:        o.wheels,
		SelectedServices:  o.services,
		AdditionalOptions: o.extras,
	}
	est, err := calc.Estimate(settings, req)
	if err != nil {
		return err
	}
	if o.local {
		if o.json {
			return c.printJSON(est)
		}
		c.printResult("estimate", est)
		return nil
	}

	if o.save {
		saved, err := c.api.SaveCalculation(ctx, req)
		if err != nil {
			return err
		}
		if o.json {
			return c.printJSON(saved)
		}
		c.printResult("saved "+saved.UniqueID, saved.Calculation)
		return nil
	}

	res, err := c.api.Calculate(ctx, req)
	if err != nil {
		return err
	}
	if o.json {
		return c.printJSON(res)
	}
	c.printResult("server", res)
	if res.TotalTime != est.TotalTime || res.TotalCost != est.TotalCost {
		fmt.Fprintf(c.out, "local estimate differs: %d min, %d RUB\n", est.TotalTime, est.TotalCost)
	}
	return nil
}

func (c *calculator) upload(ctx context.Context, path string) error {
	if !auth.HasPermission(c.who, auth.CapCalculatorManagement) {
		return fmt.Errorf("%s permission required", auth.CapCalculatorManagement)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var s calc.Settings
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if _, err := calc.ParseVehicleType(string(s.VehicleType)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if s.HourlyRate <= 0 {
		return errors.New(path + ": hourly_rate must be positive")
	}
	if err := c.api.SaveCalculatorSettings(ctx, s); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "saved %s price list (%d services, %d options)\n", s.VehicleType, len(s.Services), len(s.AdditionalOptions))
	return nil
}

func (c *calculator) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *calculator) printResult(label string, r calc.Result) {
	fmt.Fprintf(c.out, "%s: %s %s x%d [%s]\n", label, r.VehicleType, r.TireSize, r.WheelCount, strings.Join(r.SelectedServices, ", "))
	if len(r.AdditionalOptions) > 0 {
		fmt.Fprintf(c.out, "options: %s\n", strings.Join(r.AdditionalOptions, ", "))
	}
	fmt.Fprintf(c.out, "base %d min, multiplier %.2f\n", r.Breakdown.BaseTime, r.Breakdown.Multiplier)
	fmt.Fprintf(c.out, "total %d min, %d RUB\n", r.TotalTime, r.TotalCost)
}

func (c *calculator) printSettings(s calc.Settings) {
	fmt.Fprintf(c.out, "%s: %.0f RUB/h\n", s.VehicleType, s.HourlyRate)
	sizes := s.Sizes()
	for _, svc := range s.Services {
		state := ""
		if !svc.Enabled {
			state = " (disabled)"
		}
		fmt.Fprintf(c.out, "  %s %s%s\n", svc.ID, svc.Name, state)
		for _, size := range sizes {
			if m, ok := svc.TimeBySize[size]; ok {
				fmt.Fprintf(c.out, "    %s: %d min\n", size, m)
			}
		}
	}
	for _, opt := range s.AdditionalOptions {
		fmt.Fprintf(c.out, "  %s %s x%.2f\n", opt.ID, opt.Name, opt.TimeMultiplier)
	}
}
