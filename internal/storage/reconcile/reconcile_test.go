package reconcile

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/mmynk/receiptbook/internal/storage"
	"github.com/mmynk/receiptbook/internal/storage/dialect"
	"github.com/mmynk/receiptbook/internal/storage/mapping"
	"github.com/mmynk/receiptbook/internal/storage/sqldb"
)

type line struct {
	ID      string
	OrderID string
	Label   string
	Pos     int
}

var lineMapping = mapping.MustNew(mapping.Config[line]{
	Table: "lines",
	ID:    func(l *line) *string { return &l.ID },
	Properties: []mapping.Property[line]{
		mapping.String("order_id", func(l *line) *string { return &l.OrderID }),
		mapping.String("label", func(l *line) *string { return &l.Label }),
		mapping.Int("pos", func(l *line) *int { return &l.Pos }),
	},
	Indexes: []string{"order_id"},
})

func newChildren(t *testing.T) *Children[line] {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reconcile.db")
	conn, err := sqldb.Open(context.Background(), dialect.SQLite, func(ctx context.Context) (*sql.DB, error) {
		return sql.Open("sqlite", path)
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ddl, err := lineMapping.CreateTable(dialect.SQLite)
	require.NoError(t, err)
	for _, stmt := range ddl {
		_, err := conn.Exec(context.Background(), "migrate", "lines", stmt)
		require.NoError(t, err)
	}

	return &Children[line]{
		Gateway:      sqldb.NewGateway(conn, lineMapping),
		ParentColumn: "order_id",
		SetParent:    func(l *line, id string) { l.OrderID = id },
		SetOrder:     func(l *line, i int) { l.Pos = i },
	}
}

func stored(t *testing.T, c *Children[line], parentID string) []*line {
	t.Helper()
	all, err := c.Gateway.Select("order_id = ? ORDER BY pos", parentID).All(context.Background())
	require.NoError(t, err)
	return all
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	c := newChildren(t)

	t.Run("new parent creates every item", func(t *testing.T) {
		res, err := c.Sync(ctx, "o1", []*line{{ID: "i1", Label: "a"}, {ID: "i2", Label: "b"}}, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"i1", "i2"}, res.Created)
		assert.Empty(t, res.Updated)
		assert.Empty(t, res.Deleted)

		rows := stored(t, c, "o1")
		require.Len(t, rows, 2)
		assert.Equal(t, "i1", rows[0].ID)
		assert.Equal(t, 0, rows[0].Pos)
		assert.Equal(t, "o1", rows[1].OrderID)
		assert.Equal(t, 1, rows[1].Pos)
	})

	t.Run("dropped item is deleted and survivor reordered", func(t *testing.T) {
		res, err := c.Sync(ctx, "o1", []*line{{ID: "i2", Label: "b2"}}, true)
		require.NoError(t, err)
		assert.Empty(t, res.Created)
		assert.Equal(t, []string{"i2"}, res.Updated)
		assert.Equal(t, []string{"i1"}, res.Deleted)

		rows := stored(t, c, "o1")
		require.Len(t, rows, 1)
		assert.Equal(t, "i2", rows[0].ID)
		assert.Equal(t, "b2", rows[0].Label)
		assert.Equal(t, 0, rows[0].Pos)
	})

	t.Run("mixed create update and delete", func(t *testing.T) {
		res, err := c.Sync(ctx, "o1", []*line{{ID: "i3", Label: "c"}, {ID: "i2", Label: "b3"}}, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"i3"}, res.Created)
		assert.Equal(t, []string{"i2"}, res.Updated)
		assert.Empty(t, res.Deleted)

		rows := stored(t, c, "o1")
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"i3", "i2"}, []string{rows[0].ID, rows[1].ID})
	})

	t.Run("empty list removes all children", func(t *testing.T) {
		res, err := c.Sync(ctx, "o1", nil, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"i2", "i3"}, res.Deleted)
		assert.Empty(t, stored(t, c, "o1"))
	})
}

func TestSyncLeavesOtherParentsAlone(t *testing.T) {
	ctx := context.Background()
	c := newChildren(t)

	_, err := c.Sync(ctx, "o1", []*line{{ID: "a1"}}, false)
	require.NoError(t, err)
	_, err = c.Sync(ctx, "o2", []*line{{ID: "b1"}}, false)
	require.NoError(t, err)

	_, err = c.Sync(ctx, "o2", nil, true)
	require.NoError(t, err)

	assert.Len(t, stored(t, c, "o1"), 1)
	assert.Empty(t, stored(t, c, "o2"))
}

func TestSyncRejectsBadIDsBeforeWriting(t *testing.T) {
	tests := []struct {
		name  string
		items []*line
		field string
	}{
		{"empty id", []*line{{ID: "x1"}, {ID: ""}}, "items[1].id"},
		{"duplicate id", []*line{{ID: "x1"}, {ID: "x1"}}, "items[1].id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newChildren(t)
			_, err := c.Sync(context.Background(), "o1", tt.items, false)
			require.Error(t, err)
			assert.True(t, storage.IsValidation(err))
			assert.Contains(t, err.Error(), tt.field)
			assert.Empty(t, stored(t, c, "o1"), "nothing may be written")
		})
	}
}
