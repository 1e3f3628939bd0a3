package changefeed

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/mmynk/receiptbook/internal/storage"
	"github.com/mmynk/receiptbook/internal/storage/dialect"
	"github.com/mmynk/receiptbook/internal/storage/mapping"
	"github.com/mmynk/receiptbook/internal/storage/sqldb"
)

type tag struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Version   int64  `json:"version"`
	IsDeleted bool   `json:"is_deleted"`
	UpdatedAt int64  `json:"updated_at"`
}

var tagMapping = mapping.MustNew(mapping.Config[tag]{
	Table: "tags",
	ID:    func(t *tag) *string { return &t.ID },
	Properties: []mapping.Property[tag]{
		mapping.String("user_id", func(t *tag) *string { return &t.UserID }),
		mapping.String("name", func(t *tag) *string { return &t.Name }),
		mapping.Bool("is_deleted", func(t *tag) *bool { return &t.IsDeleted }),
	},
	Version:   func(t *tag) *int64 { return &t.Version },
	UpdatedAt: func(t *tag) *int64 { return &t.UpdatedAt },
	Tombstone: "is_deleted",
	Owner:     "user_id",
})

type clock struct{ ms int64 }

func (c *clock) now() time.Time { return time.UnixMilli(c.ms) }

func newTagGateway(t *testing.T) (*sqldb.Gateway[tag], *clock) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.db")
	conn, err := sqldb.Open(context.Background(), dialect.SQLite, func(ctx context.Context) (*sql.DB, error) {
		return sql.Open("sqlite", path)
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ddl, err := tagMapping.CreateTable(dialect.SQLite)
	require.NoError(t, err)
	for _, stmt := range ddl {
		_, err := conn.Exec(context.Background(), "migrate", "tags", stmt)
		require.NoError(t, err)
	}
	c := &clock{ms: 100}
	return sqldb.NewGateway(conn, tagMapping, sqldb.WithClock(c.now)), c
}

func TestChangesLifecycle(t *testing.T) {
	ctx := context.Background()
	gw, c := newTagGateway(t)
	feed, err := New(gw, Identity[tag]())
	require.NoError(t, err)

	const t0, t1, t2, t3 = 50, 100, 200, 300

	c.ms = t1
	require.NoError(t, gw.Create(ctx, &tag{ID: "c1", UserID: "u1", Name: "food"}))

	t.Run("create is reported after creation", func(t *testing.T) {
		records, err := feed.Changes(ctx, "u1", t0)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, ActionCreate, records[0].Action)
		assert.Equal(t, "c1", records[0].ID)
		require.NotNil(t, records[0].Body)
		assert.Equal(t, int64(0), records[0].Body.Version)
	})

	t.Run("checkpoint is exclusive", func(t *testing.T) {
		records, err := feed.Changes(ctx, "u1", t1)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	c.ms = t2
	require.NoError(t, gw.Update(ctx, &tag{ID: "c1", UserID: "u1", Name: "groceries", Version: 0}))

	t.Run("update is reported after the edit", func(t *testing.T) {
		records, err := feed.Changes(ctx, "u1", t1)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, ActionUpdate, records[0].Action)
		assert.Equal(t, "groceries", records[0].Body.Name)
		assert.Equal(t, int64(1), records[0].Body.Version)
	})

	c.ms = t3
	require.NoError(t, gw.Update(ctx, &tag{ID: "c1", UserID: "u1", Name: "groceries", IsDeleted: true, Version: 1}))

	t.Run("soft delete is reported with a null body", func(t *testing.T) {
		records, err := feed.Changes(ctx, "u1", t2)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, ActionDelete, records[0].Action)
		assert.Equal(t, int64(t3), records[0].UpdatedAt)
		assert.Nil(t, records[0].Body)

		raw, err := json.Marshal(records[0])
		require.NoError(t, err)
		assert.JSONEq(t, `{"action":"delete","id":"c1","updated_at":300,"body":null}`, string(raw))
	})

	t.Run("record timestamp resumes the feed", func(t *testing.T) {
		records, err := feed.Changes(ctx, "u1", t0)
		require.NoError(t, err)
		require.Len(t, records, 1)
		next, err := feed.Changes(ctx, "u1", records[0].UpdatedAt)
		require.NoError(t, err)
		assert.Empty(t, next)
	})

	t.Run("repeated query is idempotent", func(t *testing.T) {
		first, err := feed.Changes(ctx, "u1", t0)
		require.NoError(t, err)
		second, err := feed.Changes(ctx, "u1", t0)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		require.Len(t, first, 1, "one entity is reported once")
	})
}

func TestChangesAreScopedToOwnerAndOrdered(t *testing.T) {
	ctx := context.Background()
	gw, c := newTagGateway(t)
	feed, err := New(gw, Identity[tag]())
	require.NoError(t, err)

	c.ms = 200
	require.NoError(t, gw.Create(ctx, &tag{ID: "b", UserID: "u1"}))
	require.NoError(t, gw.Create(ctx, &tag{ID: "a", UserID: "u1"}))
	c.ms = 150
	require.NoError(t, gw.Create(ctx, &tag{ID: "z", UserID: "u1"}))
	require.NoError(t, gw.Create(ctx, &tag{ID: "x", UserID: "u2"}))

	records, err := feed.Changes(ctx, "u1", 0)
	require.NoError(t, err)
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"z", "a", "b"}, ids)
}

func TestProjectionOnlySeesLiveRows(t *testing.T) {
	ctx := context.Background()
	gw, c := newTagGateway(t)

	var seen int
	feed, err := New(gw, func(_ context.Context, rows []*tag) ([]string, error) {
		seen = len(rows)
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = strings.ToUpper(r.Name)
		}
		return out, nil
	})
	require.NoError(t, err)

	c.ms = 10
	require.NoError(t, gw.Create(ctx, &tag{ID: "live", UserID: "u1", Name: "kept"}))
	require.NoError(t, gw.Create(ctx, &tag{ID: "gone", UserID: "u1", Name: "dropped", IsDeleted: true}))

	records, err := feed.Changes(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, seen)

	byID := map[string]ChangeRecord[string]{}
	for _, r := range records {
		byID[r.ID] = r
	}
	assert.Equal(t, ActionDelete, byID["gone"].Action)
	assert.Nil(t, byID["gone"].Body)
	require.NotNil(t, byID["live"].Body)
	assert.Equal(t, "KEPT", *byID["live"].Body)
}

func TestNewRejectsUnclassifiableMappings(t *testing.T) {
	untracked := mapping.MustNew(mapping.Config[tag]{
		Table: "tags",
		ID:    func(t *tag) *string { return &t.ID },
		Properties: []mapping.Property[tag]{
			mapping.String("user_id", func(t *tag) *string { return &t.UserID }),
		},
		Version: func(t *tag) *int64 { return &t.Version },
		Owner:   "user_id",
	})
	gw := sqldb.NewGateway(nil, untracked)

	_, err := New(gw, Identity[tag]())
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrConfiguration)
}
