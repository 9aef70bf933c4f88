// Package records implements "shinomontaz records", the scripting
// surface over the record board: list, search, take, release, delete,
// pdf, export and import.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dimidiyP/shinomontaz-base/internal/app"
	"github.com/dimidiyP/shinomontaz-base/internal/auth"
	"github.com/dimidiyP/shinomontaz-base/internal/fsutil"
	"github.com/dimidiyP/shinomontaz-base/internal/records"
	"github.com/dimidiyP/shinomontaz-base/internal/sheet"
	"github.com/dimidiyP/shinomontaz-base/internal/storeapi"
)

const usage = "shinomontaz records <list|search|take|release|delete|pdf|export|import> [flags] [args]"

// api is the part of the backend client the subcommands use.
type api interface {
	records.Service
	SearchRecords(ctx context.Context, query string, by storeapi.SearchType) ([]records.Record, error)
	RecordPDF(ctx context.Context, id string, w io.Writer) (int64, error)
	ExportExcel(ctx context.Context, w io.Writer) (int64, error)
	ImportExcel(ctx context.Context, filename string, r io.Reader) (string, error)
}

type runner struct {
	api    api
	who    *auth.Identity
	out    io.Writer
	errOut io.Writer
	log    *slog.Logger
}

// Run dispatches a records subcommand.
func Run(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return errors.New("missing records subcommand")
	}
	sub, rest := args[0], args[1:]
	if sub == "-h" || sub == "--help" || sub == "help" {
		fmt.Fprintln(os.Stderr, usage)
		return nil
	}

	fs := flag.NewFlagSet("records "+sub, flag.ContinueOnError)
	var f app.Flags
	f.Register(fs)
	cmd, err := command(sub, fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, usage)
		return err
	}
	if err := fs.Parse(rest); err != nil {
		return err
	}

	ctx := context.Background()
	e, err := app.Open(ctx, f, app.Options{Stderr: os.Stderr})
	if err != nil {
		return err
	}
	defer e.Close()
	s, err := e.Session(ctx, time.Now())
	if err != nil {
		return err
	}
	r := &runner{
		api:    e.Client,
		who:    &s.Identity,
		out:    os.Stdout,
		errOut: os.Stderr,
		log:    e.Log.With("component", "cmd/records"),
	}
	return cmd(ctx, r, fs.Args())
}

type subcommand func(ctx context.Context, r *runner, args []string) error

// command registers the flags of sub on fs and returns its handler.
func command(sub string, fs *flag.FlagSet) (subcommand, error) {
	switch sub {
	case "list":
		var o listOptions
		fs.Var(&o.filters, "filter", "field=substring, repeatable (fields: "+strings.Join(records.FilterableFields, ", ")+")")
		fs.StringVar(&o.sort, "sort", "", "sort key (fields: "+strings.Join(records.SortableFields, ", ")+")")
		fs.BoolVar(&o.desc, "desc", false, "sort descending")
		fs.BoolVar(&o.json, "json", false, "print JSON")
		fs.StringVar(&o.xlsx, "xlsx", "", "also write the listed rows to this .xlsx file")
		return func(ctx context.Context, r *runner, _ []string) error { return r.list(ctx, o) }, nil
	case "search":
		by := fs.String("by", string(storeapi.SearchByName), "record_number|full_name|phone")
		asJSON := fs.Bool("json", false, "print JSON")
		return func(ctx context.Context, r *runner, args []string) error {
			return r.search(ctx, strings.Join(args, " "), *by, *asJSON)
		}, nil
	case "take":
		return func(ctx context.Context, r *runner, args []string) error {
			return r.transition(ctx, records.TransitionTakeToStorage, args)
		}, nil
	case "release":
		return func(ctx context.Context, r *runner, args []string) error {
			return r.transition(ctx, records.TransitionRelease, args)
		}, nil
	case "delete":
		return func(ctx context.Context, r *runner, args []string) error { return r.delete(ctx, args) }, nil
	case "pdf":
		out := fs.String("o", "", "output file (default act_<number>.pdf)")
		return func(ctx context.Context, r *runner, args []string) error { return r.pdf(ctx, args, *out) }, nil
	case "export":
		out := fs.String("o", "", "output file (default records_<timestamp>.xlsx)")
		return func(ctx context.Context, r *runner, _ []string) error { return r.export(ctx, *out, time.Now()) }, nil
	case "import":
		return func(ctx context.Context, r *runner, args []string) error { return r.importFile(ctx, args) }, nil
	}
	return nil, fmt.Errorf("unknown records subcommand: %s", sub)
}

// filterFlag collects repeated -filter field=value pairs.
type filterFlag records.FilterSet

func (f *filterFlag) String() string {
	parts := make([]string, 0, len(*f))
	for _, k := range records.FilterSet(*f).Keys() {
		parts = append(parts, k+"="+(*f)[k])
	}
	return strings.Join(parts, ",")
}

func (f *filterFlag) Set(v string) error {
	field, value, ok := strings.Cut(v, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return fmt.Errorf("filter %q: want field=value", v)
	}
	if !isFilterable(field) {
		return fmt.Errorf("filter %q: field %s cannot be filtered", v, field)
	}
	if *f == nil {
		*f = filterFlag{}
	}
	(*f)[field] = value
	return nil
}

func isFilterable(field string) bool {
	if strings.HasPrefix(field, records.CustomFieldPrefix) {
		return true
	}
	for _, k := range records.FilterableFields {
		if k == field {
			return true
		}
	}
	return false
}

type listOptions struct {
	filters filterFlag
	sort    string
	desc    bool
	json    bool
	xlsx    string
}

// board loads the records into a fresh board.
func (r *runner) board(ctx context.Context) (*records.Board, error) {
	b := records.NewBoard()
	if err := b.Refresh(ctx, r.api); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *runner) list(ctx context.Context, o listOptions) error {
	spec := records.SortSpec{}
	if o.sort != "" {
		var err error
		if spec, err = records.ParseSortSpec(o.sort); err != nil {
			return err
		}
		if o.desc {
			spec.Direction = records.Descending
		}
	}

	b, err := r.board(ctx)
	if err != nil {
		return err
	}
	for field, value := range o.filters {
		b.SetFilter(field, value)
	}
	b.SetSort(spec)
	view := b.View()

	if o.xlsx != "" {
		if err := writeXLSX(o.xlsx, view); err != nil {
			return err
		}
		fmt.Fprintf(r.errOut, "wrote %d rows to %s\n", len(view), o.xlsx)
	}
	if o.json {
		return printJSON(r.out, view)
	}
	printTable(r.out, view)
	fmt.Fprintf(r.out, "%d of %d records\n", b.Len(), b.Total())
	return nil
}

func writeXLSX(path string, recs []records.Record) error {
	return fsutil.Create(path, func(w io.Writer) error { return sheet.WriteView(w, recs, nil) })
}

func (r *runner) search(ctx context.Context, query, by string, asJSON bool) error {
	st, err := storeapi.ParseSearchType(by)
	if err != nil {
		return err
	}
	if strings.TrimSpace(query) == "" {
		return errors.New("search query is required")
	}
	recs, err := r.api.SearchRecords(ctx, query, st)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(r.out, recs)
	}
	printTable(r.out, recs)
	return nil
}

// resolve maps record ids or "#number" references onto records.
func resolve(b *records.Board, refs []string) ([]records.Record, error) {
	if len(refs) == 0 {
		return nil, errors.New("at least one record id or #number is required")
	}
	out := make([]records.Record, 0, len(refs))
	for _, ref := range refs {
		rec, ok := find(b, ref)
		if !ok {
			return nil, fmt.Errorf("%s: %w", ref, records.ErrNotFound)
		}
		out = append(out, rec)
	}
	return out, nil
}

func find(b *records.Board, ref string) (records.Record, bool) {
	if rec, ok := b.Find(ref); ok {
		return rec, true
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(ref, "#"), 10, 64)
	if err != nil {
		return records.Record{}, false
	}
	for _, rec := range b.View() {
		if rec.Number == n {
			return rec, true
		}
	}
	return records.Record{}, false
}

func (r *runner) transition(ctx context.Context, t records.Transition, refs []string) error {
	b, err := r.board(ctx)
	if err != nil {
		return err
	}
	targets, err := resolve(b, refs)
	if err != nil {
		return err
	}
	for _, rec := range targets {
		if err := b.Transition(ctx, r.api, r.who, rec.ID, t); err != nil {
			if errors.Is(err, records.ErrActionNotAllowed) {
				return fmt.Errorf("record #%d (%s): %w", rec.Number, rec.Status, err)
			}
			return fmt.Errorf("record #%d: %w", rec.Number, err)
		}
		r.log.Info("record transitioned", "record_id", rec.ID, "transition", string(t))
		fmt.Fprintf(r.out, "#%d %s\n", rec.Number, t.To())
	}
	return nil
}

func (r *runner) delete(ctx context.Context, refs []string) error {
	if !auth.HasPermission(r.who, auth.CapDeleteRecords) {
		return fmt.Errorf("%w: %s required", records.ErrActionNotAllowed, auth.CapDeleteRecords)
	}
	b, err := r.board(ctx)
	if err != nil {
		return err
	}
	targets, err := resolve(b, refs)
	if err != nil {
		return err
	}
	b.ToggleBulk()
	for _, rec := range targets {
		if b.Tracker().Selection().Has(rec.ID) {
			continue
		}
		if err := b.ToggleSelected(rec.ID); err != nil {
			return err
		}
	}
	sent := b.Tracker().Selection().Len()
	n, err := b.BulkDelete(ctx, r.api)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "deleted %d of %d records, %d remain\n", n, sent, b.Total())
	return nil
}

func (r *runner) pdf(ctx context.Context, refs []string, path string) error {
	if len(refs) != 1 {
		return errors.New("exactly one record id or #number is required")
	}
	b, err := r.board(ctx)
	if err != nil {
		return err
	}
	targets, err := resolve(b, refs)
	if err != nil {
		return err
	}
	rec := targets[0]
	if !records.Actions(rec, r.who).PrintAct {
		return fmt.Errorf("%w: %s required", records.ErrActionNotAllowed, auth.CapStore)
	}
	if path == "" {
		path = "act_" + strconv.FormatInt(rec.Number, 10) + ".pdf"
	}
	n, err := download(path, func(w io.Writer) (int64, error) { return r.api.RecordPDF(ctx, rec.ID, w) })
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "saved %s (%d bytes)\n", path, n)
	return nil
}

func (r *runner) export(ctx context.Context, path string, now time.Time) error {
	if path == "" {
		path = "records_" + now.Format("20060102_150405") + ".xlsx"
	}
	n, err := download(path, func(w io.Writer) (int64, error) { return r.api.ExportExcel(ctx, w) })
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "saved %s (%d bytes)\n", path, n)
	return nil
}

// download writes into path and removes the partial file on failure.
func download(path string, fetch func(io.Writer) (int64, error)) (int64, error) {
	var n int64
	err := fsutil.Create(path, func(w io.Writer) error {
		var err error
		n, err = fetch(w)
		return err
	})
	return n, err
}

func (r *runner) importFile(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("exactly one .xlsx file is required")
	}
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := sheet.CheckImport(f)
	if err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	msg, err := r.api.ImportExcel(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	r.log.Info("import uploaded", "file", path, "rows", rows)
	fmt.Fprintln(r.out, msg)
	return nil
}

func printJSON(w io.Writer, recs []records.Record) error {
	if recs == nil {
		recs = []records.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

var listFields = []string{
	records.FieldNumber,
	records.FieldFullName,
	records.FieldPhone,
	records.FieldCarBrand,
	records.FieldSize,
	records.FieldStorageLocation,
	records.FieldStatus,
	records.FieldCreatedAt,
}

func printTable(w io.Writer, recs []records.Record) {
	headers := make([]string, 0, len(listFields))
	for _, f := range listFields {
		headers = append(headers, sheet.Title(f))
	}
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		row := make([]string, 0, len(listFields))
		for _, f := range listFields {
			v := rec.Field(f)
			if f == records.FieldCreatedAt {
				if t, ok := rec.CreatedTime(); ok {
					v = t.Format("02.01.2006 15:04")
				}
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}
