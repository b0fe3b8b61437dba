package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.False(t, os.IsNotExist(err), "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		s.Close()
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"event_log", "wip_groups", "notes", "sprites"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found after idempotent opens", table)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	assert.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	assert.NoError(t, s.Close())
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name, want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
		{"user_version", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, s.verifyPragma(tt.name, tt.want))
		})
	}
}

func TestSchema_EventLogIsAppendOnly(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO event_log (timestamp, event_type, payload) VALUES ('t', 'NOTE_CREATED', '{}')`)
	require.NoError(t, err)

	_, err = s.db.Exec(`UPDATE event_log SET payload = '{"x":1}'`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	_, err = s.db.Exec(`DELETE FROM event_log`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM event_log`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO wip_groups (name, position, created_at, updated_at) VALUES ('a', 1, 't', 't')`)
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM wip_groups`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO wip_groups (name, position, created_at, updated_at) VALUES ('a', 1, 't', 't')`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM wip_groups`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTx_RejectedDuringMaintenance(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.Maintenance(ctx, func(tx *sql.Tx) error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	assert.True(t, s.InMaintenance())

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		t.Error("mutation ran during maintenance")
		return nil
	})
	assert.ErrorIs(t, err, ErrMaintenance)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, s.InMaintenance())

	assert.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error { return nil }))
}
