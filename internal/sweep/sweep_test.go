package sweep

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hull/internal/board"
	"github.com/roach88/hull/internal/ledger"
	"github.com/roach88/hull/internal/store"
	"github.com/roach88/hull/internal/testutil"
)

func TestSweepOnce(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	clock := testutil.NewDeterministicClock()
	gw := board.New(st, board.WithClock(clock.Now))
	ctx := context.Background()

	for _, id := range []string{"stale", "idle"} {
		_, err := gw.CreateWorker(ctx, board.NewWorker{ID: id, Sigil: id})
		require.NoError(t, err)
	}
	_, err = gw.UpdateWorkerStatus(ctx, "stale", board.WorkerBusy)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = gw.CreateWorker(ctx, board.NewWorker{ID: "fresh", Sigil: "f"})
	require.NoError(t, err)
	_, err = gw.UpdateWorkerStatus(ctx, "fresh", board.WorkerBusy)
	require.NoError(t, err)

	s := New(gw, 10*time.Minute, WithClock(clock.Peek))
	swept, err := s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, swept)

	w, err := gw.GetWorker(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, board.WorkerIdle, w.Status)
	w, err = gw.GetWorker(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, board.WorkerBusy, w.Status)

	swept, err = s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, swept)
}

type fakeGateway struct {
	stale   []board.Worker
	errs    map[string]error
	fresh   map[string]bool
	updated []string
}

func (f *fakeGateway) ListStaleWorkers(context.Context, string, time.Time) ([]board.Worker, error) {
	return f.stale, nil
}

func (f *fakeGateway) MarkIdleIfStale(_ context.Context, id string, _ time.Time) (board.Worker, bool, error) {
	if err := f.errs[id]; err != nil {
		return board.Worker{}, false, err
	}
	if f.fresh[id] {
		return board.Worker{ID: id, Status: board.WorkerBusy}, false, nil
	}
	f.updated = append(f.updated, id)
	return board.Worker{ID: id, Status: board.WorkerIdle}, true, nil
}

func TestSweepOnce_SkipsVanishedWorkers(t *testing.T) {
	gw := &fakeGateway{
		stale: []board.Worker{{ID: "a"}, {ID: "gone"}, {ID: "b"}},
		errs:  map[string]error{"gone": &board.Error{Code: board.CodeNotFound}},
	}
	swept, err := New(gw, time.Minute).SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, swept)
}

func TestSweepOnce_SkipsWorkersNoLongerStale(t *testing.T) {
	gw := &fakeGateway{
		stale: []board.Worker{{ID: "a"}, {ID: "revived"}},
		fresh: map[string]bool{"revived": true},
	}
	swept, err := New(gw, time.Minute).SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, swept)
	assert.Equal(t, []string{"a"}, gw.updated)
}

// racingGateway runs late on the real gateway right after the stale list is
// taken, the way a worker report can land mid-pass.
type racingGateway struct {
	*board.Gateway
	late    func(ctx context.Context, gw *board.Gateway) error
	lateErr error
}

func (r *racingGateway) ListStaleWorkers(ctx context.Context, status string, cutoff time.Time) ([]board.Worker, error) {
	ws, err := r.Gateway.ListStaleWorkers(ctx, status, cutoff)
	if err == nil {
		r.lateErr = r.late(ctx, r.Gateway)
	}
	return ws, err
}

func TestSweepOnce_LateReportWins(t *testing.T) {
	tests := []struct {
		name   string
		late   func(ctx context.Context, gw *board.Gateway) error
		status string
	}{
		{
			name: "status change",
			late: func(ctx context.Context, gw *board.Gateway) error {
				_, err := gw.UpdateWorkerStatus(ctx, "w1", board.WorkerDone)
				return err
			},
			status: board.WorkerDone,
		},
		{
			name: "heartbeat",
			late: func(ctx context.Context, gw *board.Gateway) error {
				_, err := gw.Heartbeat(ctx, "w1")
				return err
			},
			status: board.WorkerBusy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := store.Open(filepath.Join(t.TempDir(), "sweep.db"))
			require.NoError(t, err)
			t.Cleanup(func() { st.Close() })
			clock := testutil.NewDeterministicClock()
			gw := board.New(st, board.WithClock(clock.Now))
			ctx := context.Background()

			_, err = gw.CreateWorker(ctx, board.NewWorker{ID: "w1", Sigil: "w"})
			require.NoError(t, err)
			_, err = gw.UpdateWorkerStatus(ctx, "w1", board.WorkerBusy)
			require.NoError(t, err)
			clock.Advance(time.Hour)

			before, err := ledger.Count(ctx, st.DB())
			require.NoError(t, err)

			racing := &racingGateway{Gateway: gw, late: tt.late}
			swept, err := New(racing, 10*time.Minute, WithClock(clock.Peek)).SweepOnce(ctx)
			require.NoError(t, err)
			require.NoError(t, racing.lateErr)
			assert.Empty(t, swept)

			w, err := gw.GetWorker(ctx, "w1")
			require.NoError(t, err)
			assert.Equal(t, tt.status, w.Status)

			after, err := ledger.Count(ctx, st.DB())
			require.NoError(t, err)
			assert.Equal(t, before+1, after, "only the late report is logged")
		})
	}
}

func TestSweepOnce_StopsForMaintenance(t *testing.T) {
	gw := &fakeGateway{
		stale: []board.Worker{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		errs:  map[string]error{"b": &board.Error{Code: board.CodeMaintenance}},
	}
	swept, err := New(gw, time.Minute).SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, swept)
}

func TestSweepOnce_ReturnsOtherErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	gw := &fakeGateway{
		stale: []board.Worker{{ID: "a"}},
		errs:  map[string]error{"a": boom},
	}
	_, err := New(gw, time.Minute).SweepOnce(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRun_StopsOnCancel(t *testing.T) {
	gw := &fakeGateway{stale: []board.Worker{{ID: "a"}}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		New(gw, time.Minute).Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
