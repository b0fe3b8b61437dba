package board

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/hull/internal/ledger"
	"github.com/roach88/hull/internal/notify"
	"github.com/roach88/hull/internal/store"
	"github.com/roach88/hull/internal/testutil"
)

// recorder collects notifications synchronously.
type recorder struct {
	mu   sync.Mutex
	seen []notify.Notification
}

func (r *recorder) Notify(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

func (r *recorder) all() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.seen...)
}

type fixture struct {
	gw    *Gateway
	store *store.Store
	clock *testutil.DeterministicClock
	hooks *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f := &fixture{store: st, clock: testutil.NewDeterministicClock(), hooks: &recorder{}}
	f.gw = New(st,
		WithClock(f.clock.Now),
		WithIDGenerator(testutil.NewSequentialIDs("").Next),
		WithNotifier(f.hooks),
	)
	return f
}

func (f *fixture) group(t *testing.T, name string) Group {
	t.Helper()
	gr, err := f.gw.CreateGroup(context.Background(), NewGroup{Name: name})
	require.NoError(t, err)
	return gr
}

func (f *fixture) item(t *testing.T, groupID int64, title string) Item {
	t.Helper()
	it, err := f.gw.CreateItem(context.Background(), NewItem{Title: title, GroupID: groupID})
	require.NoError(t, err)
	return it
}

func (f *fixture) events(t *testing.T) []ledger.Event {
	t.Helper()
	evs, err := ledger.ReadPage(context.Background(), f.store.DB(), 0, 10_000)
	require.NoError(t, err)
	return evs
}

func (f *fixture) eventCount(t *testing.T) int {
	t.Helper()
	n, err := ledger.Count(context.Background(), f.store.DB())
	require.NoError(t, err)
	return int(n)
}

func (f *fixture) lastEvent(t *testing.T) ledger.Event {
	t.Helper()
	evs := f.events(t)
	require.NotEmpty(t, evs)
	return evs[len(evs)-1]
}

// positionsByTitle maps each item title in a group to its position.
func (f *fixture) positionsByTitle(t *testing.T, groupID int64) map[string]int64 {
	t.Helper()
	items, err := f.gw.ListItemsByGroup(context.Background(), groupID)
	require.NoError(t, err)
	out := make(map[string]int64, len(items))
	for _, it := range items {
		out[it.Title] = it.Position
	}
	return out
}

// requireDense asserts positions are exactly first, first+1, ..., first+n-1.
func requireDense(t *testing.T, positions []int64, first int64) {
	t.Helper()
	sorted := append([]int64(nil), positions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, p := range sorted {
		require.Equal(t, first+int64(i), p, "positions not dense: %v", sorted)
	}
}

func ptr[T any](v T) *T { return &v }
