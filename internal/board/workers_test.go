package board

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hull/internal/ledger"
	"github.com/roach88/hull/internal/notify"
)

func TestCreateWorker_GeneratesID(t *testing.T) {
	f := newFixture(t)

	w, err := f.gw.CreateWorker(context.Background(), NewWorker{Sigil: "🦀"})
	require.NoError(t, err)
	assert.Equal(t, "worker-0001", w.ID)
	assert.Equal(t, WorkerIdle, w.Status)
	assert.Nil(t, w.GroupID)
	assert.Equal(t, w.CreatedAt, w.LastSeen)

	ev := f.lastEvent(t)
	assert.Equal(t, ledger.KindSpriteCreated, ev.Kind)
	payload, err := ledger.Decode[Worker](ev)
	require.NoError(t, err)
	assert.Equal(t, w, payload)
}

func TestCreateWorker_DefaultGeneratorIsUUID(t *testing.T) {
	f := newFixture(t)
	gw := New(f.store)

	w, err := gw.CreateWorker(context.Background(), NewWorker{Sigil: "s"})
	require.NoError(t, err)
	assert.Len(t, w.ID, 36)
}

func TestCreateWorker_IDConflicts(t *testing.T) {
	f := newFixture(t)
	_, err := f.gw.CreateWorker(context.Background(), NewWorker{ID: "alpha", Sigil: "a"})
	require.NoError(t, err)

	_, err = f.gw.CreateWorker(context.Background(), NewWorker{ID: "alpha", Sigil: "b"})
	assert.True(t, IsConflict(err), "live duplicate")

	_, err = f.gw.DeleteWorker(context.Background(), "alpha")
	require.NoError(t, err)

	_, err = f.gw.CreateWorker(context.Background(), NewWorker{ID: "alpha", Sigil: "c"})
	assert.True(t, IsConflict(err), "id seen in the ledger")
}

func TestCreateWorker_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.gw.CreateWorker(context.Background(), NewWorker{ID: "has space", Sigil: "x"})
	assert.True(t, IsValidation(err))

	_, err = f.gw.CreateWorker(context.Background(), NewWorker{Sigil: ""})
	assert.True(t, IsValidation(err))

	_, err = f.gw.CreateWorker(context.Background(), NewWorker{Sigil: "x", GroupID: ptr(int64(5))})
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 0, f.eventCount(t))
}

func TestUpdateWorkerStatus(t *testing.T) {
	f := newFixture(t)
	w, err := f.gw.CreateWorker(context.Background(), NewWorker{Sigil: "x"})
	require.NoError(t, err)

	out, err := f.gw.UpdateWorkerStatus(context.Background(), w.ID, WorkerBusy)
	require.NoError(t, err)
	assert.Equal(t, WorkerBusy, out.Status)
	assert.True(t, out.LastSeen.After(w.LastSeen.Time))
	assert.Equal(t, out.LastSeen, out.UpdatedAt)
	assert.Equal(t, ledger.KindSpriteUpdated, f.lastEvent(t).Kind)

	_, err = f.gw.UpdateWorkerStatus(context.Background(), w.ID, " ")
	assert.True(t, IsValidation(err))

	_, err = f.gw.UpdateWorkerStatus(context.Background(), "ghost", WorkerBusy)
	assert.True(t, IsNotFound(err))
}

func TestHeartbeat(t *testing.T) {
	f := newFixture(t)
	w, err := f.gw.CreateWorker(context.Background(), NewWorker{Sigil: "x"})
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	out, err := f.gw.Heartbeat(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.Status, out.Status)
	assert.True(t, out.LastSeen.Sub(w.LastSeen.Time) >= time.Hour)
}

func TestAssignWorker(t *testing.T) {
	f := newFixture(t)
	g := f.group(t, "Doing")
	w, err := f.gw.CreateWorker(context.Background(), NewWorker{Sigil: "x"})
	require.NoError(t, err)

	out, err := f.gw.AssignWorker(context.Background(), w.ID, &g.ID)
	require.NoError(t, err)
	require.NotNil(t, out.GroupID)
	assert.Equal(t, g.ID, *out.GroupID)

	// Same group again: still an update event, but no reassignment.
	_, err = f.gw.AssignWorker(context.Background(), w.ID, &g.ID)
	require.NoError(t, err)

	out, err = f.gw.AssignWorker(context.Background(), w.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, out.GroupID)

	hooks := f.hooks.all()
	require.Len(t, hooks, 2)
	assert.Equal(t, notify.TopicGroupReassigned, hooks[0].Topic)
	assert.Equal(t, "sprite", hooks[0].Entity)
	assert.Nil(t, hooks[0].From)
	assert.Equal(t, g.ID, *hooks[0].To)
	assert.Equal(t, g.ID, *hooks[1].From)
	assert.Nil(t, hooks[1].To)

	byGroup, err := f.gw.ListWorkersByGroup(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Empty(t, byGroup)
}

func TestAssignWorker_BlocksGroupDelete(t *testing.T) {
	f := newFixture(t)
	g := f.group(t, "Doing")
	_, err := f.gw.CreateWorker(context.Background(), NewWorker{ID: "w1", Sigil: "x", GroupID: &g.ID})
	require.NoError(t, err)

	_, err = f.gw.DeleteGroup(context.Background(), g.ID)
	assert.True(t, IsConflict(err))
}

func TestDeleteWorker(t *testing.T) {
	f := newFixture(t)
	w, err := f.gw.CreateWorker(context.Background(), NewWorker{Sigil: "x"})
	require.NoError(t, err)

	ok, err := f.gw.DeleteWorker(context.Background(), w.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ledger.KindSpriteDeleted, f.lastEvent(t).Kind)

	ok, err = f.gw.DeleteWorker(context.Background(), w.ID)
	assert.False(t, ok)
	assert.True(t, IsNotFound(err))

	all, err := f.gw.ListWorkers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestListStaleWorkers(t *testing.T) {
	f := newFixture(t)
	old, err := f.gw.CreateWorker(context.Background(), NewWorker{ID: "old", Sigil: "o"})
	require.NoError(t, err)
	_, err = f.gw.UpdateWorkerStatus(context.Background(), old.ID, WorkerBusy)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	fresh, err := f.gw.CreateWorker(context.Background(), NewWorker{ID: "fresh", Sigil: "f"})
	require.NoError(t, err)
	_, err = f.gw.UpdateWorkerStatus(context.Background(), fresh.ID, WorkerBusy)
	require.NoError(t, err)

	stale, err := f.gw.ListStaleWorkers(context.Background(), WorkerBusy, f.clock.Peek().Add(-30*time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].ID)
}

func TestListStaleWorkers_SubSecondCutoff(t *testing.T) {
	f := newFixture(t)
	w, err := f.gw.CreateWorker(context.Background(), NewWorker{ID: "w", Sigil: "w"})
	require.NoError(t, err)
	w, err = f.gw.UpdateWorkerStatus(context.Background(), w.ID, WorkerBusy)
	require.NoError(t, err)

	stale, err := f.gw.ListStaleWorkers(context.Background(), WorkerBusy, w.LastSeen.Add(500*time.Millisecond))
	require.NoError(t, err)
	require.Len(t, stale, 1, "whole-second last_seen is before a fractional cutoff")

	stale, err = f.gw.ListStaleWorkers(context.Background(), WorkerBusy, w.LastSeen.Time)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestMarkIdleIfStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, id := range []string{"busy", "done"} {
		_, err := f.gw.CreateWorker(ctx, NewWorker{ID: id, Sigil: id})
		require.NoError(t, err)
	}
	busy, err := f.gw.UpdateWorkerStatus(ctx, "busy", WorkerBusy)
	require.NoError(t, err)
	_, err = f.gw.UpdateWorkerStatus(ctx, "done", WorkerDone)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	cutoff := f.clock.Peek().Add(-10 * time.Minute)

	t.Run("not busy", func(t *testing.T) {
		n := f.eventCount(t)
		out, marked, err := f.gw.MarkIdleIfStale(ctx, "done", cutoff)
		require.NoError(t, err)
		assert.False(t, marked)
		assert.Equal(t, WorkerDone, out.Status)
		assert.Equal(t, n, f.eventCount(t))
	})

	t.Run("seen after cutoff", func(t *testing.T) {
		n := f.eventCount(t)
		_, marked, err := f.gw.MarkIdleIfStale(ctx, "busy", busy.LastSeen.Add(-time.Second))
		require.NoError(t, err)
		assert.False(t, marked)
		assert.Equal(t, n, f.eventCount(t))
	})

	t.Run("stale", func(t *testing.T) {
		out, marked, err := f.gw.MarkIdleIfStale(ctx, "busy", cutoff)
		require.NoError(t, err)
		assert.True(t, marked)
		assert.Equal(t, WorkerIdle, out.Status)
		assert.Equal(t, busy.LastSeen, out.LastSeen, "marking idle is not a sighting")

		ev := f.lastEvent(t)
		assert.Equal(t, ledger.KindSpriteUpdated, ev.Kind)
		p, err := ledger.Decode[Worker](ev)
		require.NoError(t, err)
		assert.Equal(t, WorkerIdle, p.Status)
	})

	t.Run("missing", func(t *testing.T) {
		_, _, err := f.gw.MarkIdleIfStale(ctx, "ghost", cutoff)
		assert.True(t, IsNotFound(err))
	})
}
