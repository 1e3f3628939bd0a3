package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/receiptbook/internal/storage/sqldb"
)

const migrationsTable = "schema_migrations"

type migration struct {
	version int64
	name    string
	ddl     func(dialect string) ([]string, error)
}

type tableDDL interface {
	CreateTable(dialect string) ([]string, error)
}

// Tables are created parents first.
var migrations = []migration{
	{version: 1, name: "initial schema", ddl: createTables(
		userMapping, deviceMapping, budgetMapping, categoryMapping, receiptMapping, receiptItemMapping,
	)},
}

func createTables(tables ...tableDDL) func(string) ([]string, error) {
	return func(d string) ([]string, error) {
		var out []string
		for _, t := range tables {
			stmts, err := t.CreateTable(d)
			if err != nil {
				return nil, err
			}
			out = append(out, stmts...)
		}
		return out, nil
	}
}

// Migrate applies every migration newer than the recorded schema version.
func Migrate(ctx context.Context, conn *sqldb.Conn) error {
	_, err := conn.Exec(ctx, "migrate", migrationsTable, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (version BIGINT NOT NULL PRIMARY KEY, name VARCHAR(255) NOT NULL, applied_at BIGINT NOT NULL)",
		migrationsTable,
	))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", migrationsTable, err)
	}

	current, err := SchemaVersion(ctx, conn)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		stmts, err := m.ddl(conn.Dialect())
		if err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		for _, stmt := range stmts {
			if _, err := conn.Exec(ctx, "migrate", migrationsTable, stmt); err != nil {
				return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
			}
		}
		_, err = conn.Exec(ctx, "migrate", migrationsTable,
			"INSERT INTO "+migrationsTable+" (version, name, applied_at) VALUES (?, ?, ?)",
			m.version, m.name, time.Now().UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
		slog.Info("Applied migration", "version", m.version, "name", m.name)
	}
	return nil
}

// SchemaVersion returns the newest applied migration, or 0.
func SchemaVersion(ctx context.Context, conn *sqldb.Conn) (int64, error) {
	var version int64
	err := conn.Query(ctx, "migrate", migrationsTable,
		"SELECT COALESCE(MAX(version), 0) FROM "+migrationsTable, nil,
		func(rows *sql.Rows) error {
			version = 0
			if rows.Next() {
				return rows.Scan(&version)
			}
			return nil
		})
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// LatestSchemaVersion is the version Migrate brings a database to.
func LatestSchemaVersion() int64 {
	return migrations[len(migrations)-1].version
}
