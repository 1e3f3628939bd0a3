package sqldb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/receiptbook/internal/storage"
	"github.com/mmynk/receiptbook/internal/storage/dialect"
)

// mockSequence hands out one sqlmock handle per (re)connect.
type mockSequence struct {
	dbs   []*sql.DB
	mocks []sqlmock.Sqlmock
	next  int
}

func newMockSequence(t *testing.T, n int) *mockSequence {
	t.Helper()
	seq := &mockSequence{}
	for i := 0; i < n; i++ {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		seq.dbs = append(seq.dbs, db)
		seq.mocks = append(seq.mocks, mock)
	}
	return seq
}

func (s *mockSequence) open(ctx context.Context) (*sql.DB, error) {
	if s.next >= len(s.dbs) {
		return nil, errors.New("no more connections")
	}
	db := s.dbs[s.next]
	s.next++
	return db, nil
}

func (s *mockSequence) verify(t *testing.T) {
	t.Helper()
	for i, m := range s.mocks {
		assert.NoError(t, m.ExpectationsWereMet(), "connection %d", i)
	}
}

var noteUpdate = regexp.QuoteMeta(noteMapping.Update())

func TestStatementPreparedOncePerConnection(t *testing.T) {
	seq := newMockSequence(t, 1)
	prep := seq.mocks[0].ExpectPrepare(noteUpdate)
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))

	conn, err := Open(context.Background(), dialect.SQLite, seq.open)
	require.NoError(t, err)
	gw := NewGateway(conn, noteMapping)

	require.NoError(t, gw.Update(context.Background(), &note{ID: "n1", Version: 0}))
	require.NoError(t, gw.Update(context.Background(), &note{ID: "n1", Version: 1}))
	seq.verify(t)
}

func TestReconnectRepreparesAndRetriesOnce(t *testing.T) {
	seq := newMockSequence(t, 2)

	first := seq.mocks[0]
	first.ExpectPrepare(noteUpdate).
		ExpectExec().
		WillReturnError(io.ErrUnexpectedEOF)
	first.ExpectClose()

	second := seq.mocks[1]
	second.ExpectPrepare(noteUpdate).
		ExpectExec().
		WithArgs("u1", "text", false, sqlmock.AnyArg(), "n1", int64(1), int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	conn, err := Open(context.Background(), dialect.SQLite, seq.open)
	require.NoError(t, err)
	gw := NewGateway(conn, noteMapping)

	n := &note{ID: "n1", UserID: "u1", Text: "text", Version: 0}
	require.NoError(t, gw.Update(context.Background(), n))
	assert.Equal(t, int64(1), n.Version)
	assert.Equal(t, uint64(2), conn.Generation())
	seq.verify(t)
}

func TestSecondConnectionFailureEscalates(t *testing.T) {
	seq := newMockSequence(t, 2)

	seq.mocks[0].ExpectPrepare(noteUpdate).ExpectExec().WillReturnError(io.ErrUnexpectedEOF)
	seq.mocks[0].ExpectClose()
	seq.mocks[1].ExpectPrepare(noteUpdate).ExpectExec().WillReturnError(fmt.Errorf("read: %w", io.EOF))

	conn, err := Open(context.Background(), dialect.SQLite, seq.open)
	require.NoError(t, err)
	gw := NewGateway(conn, noteMapping)

	err = gw.Update(context.Background(), &note{ID: "n1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrConnectionLost))
	assert.False(t, storage.IsConflict(err))
	seq.verify(t)
}

func TestReconnectFailureEscalates(t *testing.T) {
	seq := newMockSequence(t, 1)
	seq.mocks[0].ExpectPrepare(noteUpdate).ExpectExec().WillReturnError(io.ErrUnexpectedEOF)
	seq.mocks[0].ExpectClose()

	conn, err := Open(context.Background(), dialect.SQLite, seq.open)
	require.NoError(t, err)
	gw := NewGateway(conn, noteMapping)

	err = gw.Update(context.Background(), &note{ID: "n1"})
	assert.True(t, errors.Is(err, storage.ErrConnectionLost))
}

func TestQueryErrorsAreNotRetried(t *testing.T) {
	seq := newMockSequence(t, 2)
	seq.mocks[0].ExpectPrepare(noteUpdate).ExpectExec().WillReturnError(errors.New("UNIQUE constraint failed"))

	conn, err := Open(context.Background(), dialect.SQLite, seq.open)
	require.NoError(t, err)
	gw := NewGateway(conn, noteMapping)

	err = gw.Update(context.Background(), &note{ID: "n1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE constraint failed")
	assert.Equal(t, uint64(1), conn.Generation(), "no reconnect for logic errors")
	assert.Equal(t, 1, seq.next)
	seq.verify(t)
}

func TestZeroRowsIsConflict(t *testing.T) {
	seq := newMockSequence(t, 1)
	seq.mocks[0].ExpectPrepare(noteUpdate).ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))

	conn, err := Open(context.Background(), dialect.SQLite, seq.open)
	require.NoError(t, err)
	gw := NewGateway(conn, noteMapping)

	n := &note{ID: "n1", Version: 4}
	err = gw.Update(context.Background(), n)
	assert.True(t, storage.IsConflict(err))
	assert.Equal(t, int64(4), n.Version, "a failed update must not touch the caller's version")
	seq.verify(t)
}

func TestPostgresPlaceholdersAreRebound(t *testing.T) {
	seq := newMockSequence(t, 1)
	seq.mocks[0].ExpectPrepare(regexp.QuoteMeta("DELETE FROM notes WHERE id = $1 AND version = $2")).
		ExpectExec().
		WithArgs("n1", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	conn, err := Open(context.Background(), dialect.Postgres, seq.open)
	require.NoError(t, err)
	gw := NewGateway(conn, noteMapping)

	require.NoError(t, gw.DeleteVersion(context.Background(), &note{ID: "n1", Version: 2}))
	seq.verify(t)
}

func TestIsConnectionLost(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", driver.ErrBadConn, true},
		{"conn done", sql.ErrConnDone, true},
		{"wrapped eof", fmt.Errorf("read: %w", io.EOF), true},
		{"closed database", errors.New("sql: database is closed"), true},
		{"no rows", sql.ErrNoRows, false},
		{"canceled", context.Canceled, false},
		{"constraint", errors.New("UNIQUE constraint failed: notes.id"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConnectionLost(tt.err))
		})
	}
}

func TestOpenRejectsUnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), "oracle", func(ctx context.Context) (*sql.DB, error) {
		return nil, errors.New("unreachable")
	})
	assert.Error(t, err)
}

func TestCustomLostDetector(t *testing.T) {
	seq := newMockSequence(t, 2)
	seq.mocks[0].ExpectPrepare(noteUpdate).ExpectExec().WillReturnError(errors.New("server has gone away"))
	seq.mocks[0].ExpectClose()
	seq.mocks[1].ExpectPrepare(noteUpdate).ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))

	detector := func(err error) bool {
		return err != nil && err.Error() == "server has gone away"
	}
	conn, err := Open(context.Background(), dialect.MySQL, seq.open, WithLostDetector(detector))
	require.NoError(t, err)
	gw := NewGateway(conn, noteMapping)

	require.NoError(t, gw.Update(context.Background(), &note{ID: "n1"}))
	assert.Equal(t, uint64(2), conn.Generation())
	seq.verify(t)
}
