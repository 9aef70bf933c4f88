package records

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dimidiyP/shinomontaz-base/internal/auth"
)

// Lister fetches the full record collection.
type Lister interface {
	ListRecords(ctx context.Context) ([]Record, error)
}

// Transitioner asks the backend to move a record to its next status.
// The returned record is nil when the backend confirms without echoing it.
type Transitioner interface {
	Transition(ctx context.Context, id string, t Transition) (*Record, error)
}

// Service is everything the board needs from the backend.
type Service interface {
	Lister
	Deleter
	Transitioner
}

// ErrNotFound is returned for ids that are not on the board.
var ErrNotFound = errors.New("record not found")

// ErrActionNotAllowed is returned when a transition is not offered for a
// record in its current status or to the current identity.
var ErrActionNotAllowed = errors.New("action not allowed")

// Board is the state of the record list screen. Every mutator recomputes
// the view and drops selected ids that are no longer visible. A Board is
// not safe for concurrent use.
type Board struct {
	source  []Record
	filters FilterSet
	sort    SortSpec
	tracker Tracker
	view    []Record
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{filters: FilterSet{}, view: []Record{}}
}

// View returns the composed rows.
func (b *Board) View() []Record { return slices.Clone(b.view) }

// Len returns the number of composed rows.
func (b *Board) Len() int { return len(b.view) }

// Row returns the i-th composed row.
func (b *Board) Row(i int) (Record, bool) {
	if i < 0 || i >= len(b.view) {
		return Record{}, false
	}
	return b.view[i], true
}

// Total returns the number of records before filtering.
func (b *Board) Total() int { return len(b.source) }

// Filters returns a copy of the active filters.
func (b *Board) Filters() FilterSet { return b.filters.Clone() }

// Sort returns the active sort spec.
func (b *Board) Sort() SortSpec { return b.sort }

// Tracker returns the bulk-selection state.
func (b *Board) Tracker() Tracker { return b.tracker }

// Find looks a record up by id in the source collection.
func (b *Board) Find(id string) (Record, bool) {
	for _, r := range b.source {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// ApplyRecords replaces the source collection.
func (b *Board) ApplyRecords(recs []Record) {
	b.source = slices.Clone(recs)
	b.recompose()
}

// SetFilter sets or clears the filter for one field.
func (b *Board) SetFilter(field, value string) {
	b.filters = b.filters.With(field, value)
	b.recompose()
}

// ClearFilters removes every filter and empties the selection.
func (b *Board) ClearFilters() {
	b.filters = FilterSet{}
	b.tracker = b.tracker.Clear()
	b.recompose()
}

// SortBy applies a column selection.
func (b *Board) SortBy(key string) {
	b.sort = b.sort.Select(key)
	b.recompose()
}

// SetSort replaces the sort spec, used to restore a saved preference.
func (b *Board) SetSort(spec SortSpec) {
	b.sort = spec
	b.recompose()
}

// ToggleBulk switches bulk mode; the selection always starts empty.
func (b *Board) ToggleBulk() {
	b.tracker = b.tracker.ToggleBulk()
}

// ToggleSelected flips one visible record in bulk mode.
func (b *Board) ToggleSelected(id string) error {
	if !slices.Contains(IDs(b.view), id) {
		return ErrNotFound
	}
	t, err := b.tracker.Toggle(id)
	if err != nil {
		return err
	}
	b.tracker = t
	return nil
}

// SelectAll selects every visible record, or clears when all already are.
func (b *Board) SelectAll() error {
	t, err := b.tracker.SelectAll(IDs(b.view))
	if err != nil {
		return err
	}
	b.tracker = t
	return nil
}

// AllSelected is the checked state of the "select all" box.
func (b *Board) AllSelected() bool {
	return b.tracker.Selection().AllSelected(IDs(b.view))
}

// ApplyTransition records a confirmed status change. updated is the
// backend's copy of the record when it sent one.
func (b *Board) ApplyTransition(id string, t Transition, updated *Record) error {
	idx := slices.IndexFunc(b.source, func(r Record) bool { return r.ID == id })
	if idx < 0 {
		return ErrNotFound
	}
	next := b.source[idx].Clone()
	if updated != nil {
		next = updated.Clone()
	} else {
		next.Status = t.To()
	}
	source := slices.Clone(b.source)
	source[idx] = next
	b.source = source
	b.recompose()
	return nil
}

// ApplyBulkDelete handles the outcome of a bulk delete request. It
// reports whether the source collection should be refetched. On error the
// selection is kept for a retry.
func (b *Board) ApplyBulkDelete(err error) (refresh bool) {
	if err != nil {
		return false
	}
	b.tracker = b.tracker.Clear()
	return true
}

// Refresh refetches the source collection. On failure nothing changes.
func (b *Board) Refresh(ctx context.Context, l Lister) error {
	recs, err := l.ListRecords(ctx)
	if err != nil {
		return err
	}
	b.ApplyRecords(recs)
	return nil
}

// BulkDelete deletes the selection and refetches the records on success.
func (b *Board) BulkDelete(ctx context.Context, svc Service) (int, error) {
	t, n, err := b.tracker.Delete(ctx, svc)
	if err != nil {
		return 0, err
	}
	b.tracker = t
	if err := b.Refresh(ctx, svc); err != nil {
		return n, fmt.Errorf("refresh after delete: %w", err)
	}
	return n, nil
}

// Transition requests t for record id if it is offered to id's holder,
// and applies it only after the backend confirms.
func (b *Board) Transition(ctx context.Context, svc Transitioner, who *auth.Identity, id string, t Transition) error {
	r, ok := b.Find(id)
	if !ok {
		return ErrNotFound
	}
	if !Actions(r, who).Allows(t) {
		return ErrActionNotAllowed
	}
	updated, err := svc.Transition(ctx, id, t)
	if err != nil {
		return err
	}
	return b.ApplyTransition(id, t, updated)
}

func (b *Board) recompose() {
	b.view = Compose(b.source, b.filters, b.sort)
	b.tracker = b.tracker.Retain(IDs(b.view))
}
