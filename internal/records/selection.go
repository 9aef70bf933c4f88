package records

import (
	"context"
	"errors"
	"sort"
)

// Selection is an immutable set of record ids targeted by a bulk
// operation. The zero value is empty and ready to use.
type Selection struct {
	ids map[string]struct{}
}

// SelectAllVisible returns a selection holding exactly visibleIDs.
func SelectAllVisible(visibleIDs []string) Selection {
	ids := make(map[string]struct{}, len(visibleIDs))
	for _, id := range visibleIDs {
		ids[id] = struct{}{}
	}
	return Selection{ids: ids}
}

// Toggle returns a copy of s with id added or removed.
func (s Selection) Toggle(id string) Selection {
	ids := make(map[string]struct{}, len(s.ids)+1)
	for k := range s.ids {
		ids[k] = struct{}{}
	}
	if _, ok := ids[id]; ok {
		delete(ids, id)
	} else {
		ids[id] = struct{}{}
	}
	return Selection{ids: ids}
}

// Clear returns a new empty selection and leaves s unchanged.
func (s Selection) Clear() Selection { return Selection{} }

// Has reports whether id is selected.
func (s Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids.
func (s Selection) Len() int { return len(s.ids) }

// IDs returns the selected ids in sorted order.
func (s Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Retain drops ids that are not in visibleIDs.
func (s Selection) Retain(visibleIDs []string) Selection {
	if len(s.ids) == 0 {
		return s
	}
	ids := make(map[string]struct{}, len(s.ids))
	for _, id := range visibleIDs {
		if _, ok := s.ids[id]; ok {
			ids[id] = struct{}{}
		}
	}
	return Selection{ids: ids}
}

// AllSelected is the checked state of the "select all" box.
func (s Selection) AllSelected(visibleIDs []string) bool {
	return len(visibleIDs) > 0 && s.Len() == len(visibleIDs)
}

// Deleter removes records by id and reports how many actually existed.
type Deleter interface {
	BulkDelete(ctx context.Context, ids []string) (int, error)
}

// ErrNothingSelected is returned when a bulk delete has no targets.
var ErrNothingSelected = errors.New("no records selected")

// ErrBulkModeOff is returned when selection is attempted outside bulk mode.
var ErrBulkModeOff = errors.New("bulk mode is off")

// Tracker couples a selection with the bulk-mode switch.
type Tracker struct {
	bulk bool
	sel  Selection
}

// BulkMode reports whether multi-record selection is enabled.
func (t Tracker) BulkMode() bool { return t.bulk }

// Selection returns the current selection.
func (t Tracker) Selection() Selection { return t.sel }

// ToggleBulk switches bulk mode. Both entering and leaving start from an
// empty selection.
func (t Tracker) ToggleBulk() Tracker {
	return Tracker{bulk: !t.bulk}
}

// Toggle flips id when bulk mode is on.
func (t Tracker) Toggle(id string) (Tracker, error) {
	if !t.bulk {
		return t, ErrBulkModeOff
	}
	t.sel = t.sel.Toggle(id)
	return t, nil
}

// SelectAll selects exactly the visible ids, or clears the selection when
// they are all selected already.
func (t Tracker) SelectAll(visibleIDs []string) (Tracker, error) {
	if !t.bulk {
		return t, ErrBulkModeOff
	}
	if t.sel.AllSelected(visibleIDs) {
		t.sel = t.sel.Clear()
		return t, nil
	}
	t.sel = SelectAllVisible(visibleIDs)
	return t, nil
}

// Retain prunes ids that left the visible set.
func (t Tracker) Retain(visibleIDs []string) Tracker {
	t.sel = t.sel.Retain(visibleIDs)
	return t
}

// Clear empties the selection and keeps the mode.
func (t Tracker) Clear() Tracker {
	t.sel = t.sel.Clear()
	return t
}

// Delete sends the selection to d exactly once. On success the selection
// is cleared and the deleted count returned; the count may be lower than
// the number of ids sent. On failure the tracker is returned unchanged so
// the user can retry.
func (t Tracker) Delete(ctx context.Context, d Deleter) (Tracker, int, error) {
	if t.sel.Len() == 0 {
		return t, 0, ErrNothingSelected
	}
	n, err := d.BulkDelete(ctx, t.sel.IDs())
	if err != nil {
		return t, 0, err
	}
	return t.Clear(), n, nil
}
