package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// dialect captures the differences between the supported SQL backends.
type dialect struct {
	name       string
	numbered   bool // $1, $2 placeholders instead of ?
	migrations []string
}

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var sqliteDialect = dialect{
	name: "sqlite",
	migrations: []string{
		// Migration 1: Initial schema
		`CREATE TABLE IF NOT EXISTS suppliers (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL UNIQUE,
			contact_person TEXT NOT NULL DEFAULT '',
			email          TEXT NOT NULL DEFAULT '',
			phone          TEXT NOT NULL DEFAULT '',
			address        TEXT NOT NULL DEFAULT '',
			notes          TEXT NOT NULL DEFAULT '',
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS products (
			id                TEXT PRIMARY KEY,
			name              TEXT NOT NULL,
			supplier          TEXT NOT NULL DEFAULT '',
			quantity          INTEGER NOT NULL DEFAULT 0 CHECK(quantity >= 0),
			restock_threshold INTEGER NOT NULL DEFAULT 0 CHECK(restock_threshold >= 0),
			price             TEXT NOT NULL DEFAULT '0',
			unit              TEXT NOT NULL DEFAULT '',
			created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_products_supplier ON products(supplier);
		CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);

		CREATE TABLE IF NOT EXISTS cart_items (
			id                TEXT PRIMARY KEY,
			product_id        TEXT NOT NULL,
			product_name      TEXT NOT NULL,
			supplier          TEXT NOT NULL DEFAULT '',
			unit              TEXT NOT NULL DEFAULT '',
			price             TEXT NOT NULL DEFAULT '0',
			current_stock     INTEGER NOT NULL DEFAULT 0,
			restock_threshold INTEGER NOT NULL DEFAULT 0,
			needed_quantity   INTEGER NOT NULL DEFAULT 1,
			user_name         TEXT NOT NULL,
			added_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_cart_user ON cart_items(user_name);

		CREATE TABLE IF NOT EXISTS activity_logs (
			id        TEXT PRIMARY KEY,
			actor     TEXT NOT NULL,
			action    TEXT NOT NULL,
			details   TEXT NOT NULL DEFAULT '',
			timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON activity_logs(timestamp);`,
	},
}

var postgresDialect = dialect{
	name:     "postgres",
	numbered: true,
	migrations: []string{
		// Migration 1: Initial schema
		`CREATE TABLE IF NOT EXISTS suppliers (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL UNIQUE,
			contact_person TEXT NOT NULL DEFAULT '',
			email          TEXT NOT NULL DEFAULT '',
			phone          TEXT NOT NULL DEFAULT '',
			address        TEXT NOT NULL DEFAULT '',
			notes          TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS products (
			id                TEXT PRIMARY KEY,
			name              TEXT NOT NULL,
			supplier          TEXT NOT NULL DEFAULT '',
			quantity          INTEGER NOT NULL DEFAULT 0 CHECK(quantity >= 0),
			restock_threshold INTEGER NOT NULL DEFAULT 0 CHECK(restock_threshold >= 0),
			price             NUMERIC(12,2) NOT NULL DEFAULT 0,
			unit              TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_products_supplier ON products(supplier);
		CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);

		CREATE TABLE IF NOT EXISTS cart_items (
			id                TEXT PRIMARY KEY,
			product_id        TEXT NOT NULL,
			product_name      TEXT NOT NULL,
			supplier          TEXT NOT NULL DEFAULT '',
			unit              TEXT NOT NULL DEFAULT '',
			price             NUMERIC(12,2) NOT NULL DEFAULT 0,
			current_stock     INTEGER NOT NULL DEFAULT 0,
			restock_threshold INTEGER NOT NULL DEFAULT 0,
			needed_quantity   INTEGER NOT NULL DEFAULT 1,
			user_name         TEXT NOT NULL,
			added_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_cart_user ON cart_items(user_name);

		CREATE TABLE IF NOT EXISTS activity_logs (
			id        TEXT PRIMARY KEY,
			actor     TEXT NOT NULL,
			action    TEXT NOT NULL,
			details   TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON activity_logs(timestamp);`,
	},
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB, d dialect) error {
	// Ensure migration tracking table exists
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(d.migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(d.migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(d.rebind("INSERT INTO schema_migrations (version) VALUES (?)"), i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
