package records

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimidiyP/shinomontaz-base/internal/auth"
)

// fakeService is a hand-written backend double with func fields.
type fakeService struct {
	listFn       func(ctx context.Context) ([]Record, error)
	bulkDeleteFn func(ctx context.Context, ids []string) (int, error)
	transitionFn func(ctx context.Context, id string, t Transition) (*Record, error)

	deleteCalls int
}

func (f *fakeService) ListRecords(ctx context.Context) ([]Record, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakeService) BulkDelete(ctx context.Context, ids []string) (int, error) {
	f.deleteCalls++
	if f.bulkDeleteFn != nil {
		return f.bulkDeleteFn(ctx, ids)
	}
	return len(ids), nil
}

func (f *fakeService) Transition(ctx context.Context, id string, t Transition) (*Record, error) {
	if f.transitionFn != nil {
		return f.transitionFn(ctx, id, t)
	}
	return nil, nil
}

var (
	clerk = &auth.Identity{Username: "user", Role: auth.RoleUser, Permissions: []auth.Capability{auth.CapStore, auth.CapView}}
	boss  = &auth.Identity{Username: "admin", Role: auth.RoleAdmin, Permissions: auth.AllCapabilities()}
)

func TestActionsFollowStatusAndCapability(t *testing.T) {
	recs := []Record{
		{ID: "1", Status: StatusNew},
		{ID: "2", Status: StatusInStorage},
		{ID: "3", Status: StatusReleased},
	}

	a := Actions(recs[0], boss)
	assert.True(t, a.TakeToStorage)
	assert.False(t, a.Release)

	a = Actions(recs[1], boss)
	assert.False(t, a.TakeToStorage)
	assert.True(t, a.Release)

	a = Actions(recs[2], boss)
	assert.False(t, a.TakeToStorage)
	assert.False(t, a.Release)
	assert.True(t, recs[2].Status.Terminal())

	// store without release: only the take action survives.
	assert.True(t, Actions(recs[0], clerk).TakeToStorage)
	assert.False(t, Actions(recs[1], clerk).Release)
	assert.False(t, Actions(recs[1], clerk).Delete)

	assert.Equal(t, ActionSet{}, Actions(recs[0], nil))
}

func TestSelectionToggleAndClear(t *testing.T) {
	var s Selection
	s = s.Toggle("a").Toggle("b")
	assert.Equal(t, []string{"a", "b"}, s.IDs())
	s2 := s.Toggle("a")
	assert.Equal(t, []string{"b"}, s2.IDs())
	assert.True(t, s.Has("a"), "toggle must not modify the receiver")
	assert.Equal(t, 0, s.Clear().Len())
	assert.Equal(t, []string{"a", "b"}, s.IDs())
}

func TestSelectAllVisibleGoesStaleWhenViewNarrows(t *testing.T) {
	visible := []string{"a", "b", "c"}
	s := SelectAllVisible(visible)
	assert.True(t, s.AllSelected(visible))

	narrowed := []string{"b"}
	assert.False(t, s.AllSelected(narrowed))
	assert.True(t, s.Retain(narrowed).AllSelected(narrowed))
	assert.False(t, Selection{}.AllSelected(nil))
}

func TestTrackerBulkModeResetsSelection(t *testing.T) {
	var tr Tracker
	_, err := tr.Toggle("a")
	assert.ErrorIs(t, err, ErrBulkModeOff)

	tr = tr.ToggleBulk()
	require.True(t, tr.BulkMode())
	tr, err = tr.Toggle("a")
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Selection().Len())

	tr = tr.ToggleBulk()
	assert.False(t, tr.BulkMode())
	assert.Equal(t, 0, tr.Selection().Len())

	tr = tr.ToggleBulk()
	assert.Equal(t, 0, tr.Selection().Len())
}

func TestTrackerDeletePartialCountAndFailure(t *testing.T) {
	svc := &fakeService{}
	tr := Tracker{}.ToggleBulk()
	tr, _ = tr.SelectAll([]string{"1", "2", "3"})

	svc.bulkDeleteFn = func(_ context.Context, ids []string) (int, error) {
		return 0, errors.New("boom")
	}
	after, n, err := tr.Delete(context.Background(), svc)
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, []string{"1", "2", "3"}, after.Selection().IDs())

	svc.bulkDeleteFn = func(_ context.Context, ids []string) (int, error) {
		assert.Equal(t, []string{"1", "2", "3"}, ids)
		return 2, nil
	}
	after, n, err = after.Delete(context.Background(), svc)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, after.Selection().Len())
	assert.True(t, after.BulkMode())
	assert.Equal(t, 2, svc.deleteCalls)

	_, _, err = after.Delete(context.Background(), svc)
	assert.ErrorIs(t, err, ErrNothingSelected)
	assert.Equal(t, 2, svc.deleteCalls)
}

func TestBoardPrunesSelectionWhenFilterNarrows(t *testing.T) {
	b := NewBoard()
	b.ApplyRecords(sample())
	b.ToggleBulk()
	require.NoError(t, b.SelectAll())
	require.True(t, b.AllSelected())
	assert.Equal(t, 4, b.Tracker().Selection().Len())

	b.SetFilter(FieldPhone, "999")
	assert.Equal(t, []string{"a", "c"}, b.Tracker().Selection().IDs())
	assert.True(t, b.AllSelected())

	require.NoError(t, b.ToggleSelected("a"))
	assert.False(t, b.AllSelected())
	assert.ErrorIs(t, b.ToggleSelected("b"), ErrNotFound)

	b.ClearFilters()
	assert.Equal(t, 0, b.Tracker().Selection().Len())
	assert.Equal(t, 4, b.Len())
}

func TestBoardSelectAllTwiceClears(t *testing.T) {
	b := NewBoard()
	b.ApplyRecords(sample())
	assert.ErrorIs(t, b.SelectAll(), ErrBulkModeOff)
	b.ToggleBulk()
	require.NoError(t, b.SelectAll())
	require.NoError(t, b.SelectAll())
	assert.Equal(t, 0, b.Tracker().Selection().Len())
}

func TestBoardSortAndFilterCompose(t *testing.T) {
	b := NewBoard()
	b.ApplyRecords(sample())
	b.SortBy(FieldNumber)
	assert.Equal(t, []int64{1, 2, 3, 4}, numbers(b.View()))
	b.SortBy(FieldNumber)
	assert.Equal(t, []int64{4, 3, 2, 1}, numbers(b.View()))
	b.SetFilter(FieldStatus, "взята")
	assert.Equal(t, []int64{2, 1}, numbers(b.View()))
	assert.Equal(t, 4, b.Total())

	r, ok := b.Row(0)
	require.True(t, ok)
	assert.Equal(t, "d", r.ID)
	_, ok = b.Row(5)
	assert.False(t, ok)
}

func TestBoardBulkDeleteRefreshesOnSuccess(t *testing.T) {
	ctx := context.Background()
	remaining := sample()[3:]
	svc := &fakeService{
		// one of the three ids was already gone on the server
		bulkDeleteFn: func(_ context.Context, ids []string) (int, error) { return 2, nil },
		listFn:       func(context.Context) ([]Record, error) { return remaining, nil },
	}
	b := NewBoard()
	b.ApplyRecords(sample())
	b.ToggleBulk()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, b.ToggleSelected(id))
	}

	n, err := b.BulkDelete(ctx, svc)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, b.Tracker().Selection().Len())
	assert.Equal(t, []string{"d"}, IDs(b.View()))
}

func TestBoardBulkDeleteFailureKeepsEverything(t *testing.T) {
	ctx := context.Background()
	listed := false
	svc := &fakeService{
		bulkDeleteFn: func(context.Context, []string) (int, error) { return 0, errors.New("503") },
		listFn: func(context.Context) ([]Record, error) {
			listed = true
			return nil, nil
		},
	}
	b := NewBoard()
	b.ApplyRecords(sample())
	b.SetFilter(FieldPhone, "+7")
	b.SortBy(FieldFullName)
	b.ToggleBulk()
	require.NoError(t, b.SelectAll())

	_, err := b.BulkDelete(ctx, svc)
	require.Error(t, err)
	assert.False(t, listed)
	assert.Equal(t, 4, b.Tracker().Selection().Len())
	assert.Equal(t, FilterSet{FieldPhone: "+7"}, b.Filters())
	assert.Equal(t, SortSpec{Key: FieldFullName}, b.Sort())
	assert.Equal(t, 4, b.Total())
}

func TestBoardApplyBulkDelete(t *testing.T) {
	b := NewBoard()
	b.ApplyRecords(sample())
	b.ToggleBulk()
	require.NoError(t, b.SelectAll())

	assert.False(t, b.ApplyBulkDelete(errors.New("timeout")))
	assert.Equal(t, 4, b.Tracker().Selection().Len())

	assert.True(t, b.ApplyBulkDelete(nil))
	assert.Equal(t, 0, b.Tracker().Selection().Len())
}

func TestBoardRefreshFailureKeepsRecords(t *testing.T) {
	b := NewBoard()
	b.ApplyRecords(sample())
	err := b.Refresh(context.Background(), &fakeService{
		listFn: func(context.Context) ([]Record, error) { return nil, errors.New("offline") },
	})
	require.Error(t, err)
	assert.Equal(t, 4, b.Total())
}

func TestBoardTransitionAppliesOnlyAfterConfirmation(t *testing.T) {
	ctx := context.Background()
	b := NewBoard()
	b.ApplyRecords(sample())

	failing := &fakeService{transitionFn: func(context.Context, string, Transition) (*Record, error) {
		return nil, errors.New("conflict")
	}}
	require.Error(t, b.Transition(ctx, failing, boss, "a", TransitionTakeToStorage))
	r, _ := b.Find("a")
	assert.Equal(t, StatusNew, r.Status)

	ok := &fakeService{}
	require.NoError(t, b.Transition(ctx, ok, boss, "a", TransitionTakeToStorage))
	r, _ = b.Find("a")
	assert.Equal(t, StatusInStorage, r.Status)

	echo := &fakeService{transitionFn: func(_ context.Context, id string, tr Transition) (*Record, error) {
		return &Record{ID: id, Number: 3, FullName: "Toyota", Status: tr.To(), ReleasedBy: "admin"}, nil
	}}
	require.NoError(t, b.Transition(ctx, echo, boss, "a", TransitionRelease))
	r, _ = b.Find("a")
	assert.Equal(t, StatusReleased, r.Status)
	assert.Equal(t, "admin", r.ReleasedBy)

	assert.ErrorIs(t, b.Transition(ctx, ok, boss, "a", TransitionRelease), ErrActionNotAllowed)
	assert.ErrorIs(t, b.Transition(ctx, ok, clerk, "b", TransitionRelease), ErrActionNotAllowed)
	assert.ErrorIs(t, b.Transition(ctx, ok, boss, "nope", TransitionRelease), ErrNotFound)
}

func TestTransitionEndpoints(t *testing.T) {
	assert.Equal(t, StatusNew, TransitionTakeToStorage.From())
	assert.Equal(t, StatusInStorage, TransitionTakeToStorage.To())
	assert.Equal(t, StatusInStorage, TransitionRelease.From())
	assert.Equal(t, StatusReleased, TransitionRelease.To())
	assert.Equal(t, auth.CapRelease, TransitionRelease.Capability())
	assert.Equal(t, auth.CapStore, TransitionTakeToStorage.Capability())

	next, ok := StatusNew.Next()
	assert.True(t, ok)
	assert.Equal(t, TransitionTakeToStorage, next)
	next, ok = StatusInStorage.Next()
	assert.True(t, ok)
	assert.Equal(t, TransitionRelease, next)
	_, ok = StatusReleased.Next()
	assert.False(t, ok)
}
