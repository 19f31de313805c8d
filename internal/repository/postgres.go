package repository

import (
	"database/sql"
	"fmt"

	"tether-data/internal/config"

	_ "github.com/lib/pq"
)

// NewPostgresDB 创建PostgreSQL数据库连接
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// EnsureSchema 建表（幂等）；本地开发直接 go run 即可起服务
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS global_templates (
			template_id    TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			description    TEXT NOT NULL DEFAULT '',
			scope          VARCHAR(10) NOT NULL,
			static_fields  JSONB NOT NULL DEFAULT '[]',
			dynamic_fields JSONB NOT NULL DEFAULT '[]',
			created        TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_by     TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS tethers (
			tether_id     TEXT PRIMARY KEY,
			template_id   TEXT NOT NULL,
			scope         VARCHAR(10) NOT NULL,
			static_values JSONB NOT NULL DEFAULT '{}',
			locked        BOOLEAN NOT NULL DEFAULT FALSE,
			created       TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_by    TEXT NOT NULL DEFAULT ''
		)`,
		// owner_id = '' 表示 terra 共享流；aura 流按 (owner_id, tether_id) 分区
		`CREATE TABLE IF NOT EXISTS log_entries (
			owner_id     TEXT NOT NULL DEFAULT '',
			tether_id    TEXT NOT NULL,
			entry_id     TEXT NOT NULL,
			ts           TIMESTAMPTZ NOT NULL,
			submitted_by TEXT NOT NULL,
			location     TEXT NOT NULL DEFAULT '',
			fields       JSONB NOT NULL DEFAULT '{}',
			PRIMARY KEY (owner_id, tether_id, entry_id)
		)`,
		`CREATE TABLE IF NOT EXISTS reference_content (
			tether_id   TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			image_url   TEXT NOT NULL DEFAULT '',
			updated     TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_by  TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS vendor_contacts (
			contact_id   TEXT PRIMARY KEY,
			tether_id    TEXT NOT NULL,
			contact_type VARCHAR(20) NOT NULL,
			name         TEXT NOT NULL,
			phone        TEXT NOT NULL DEFAULT '',
			email        TEXT NOT NULL DEFAULT '',
			website      TEXT NOT NULL DEFAULT '',
			address      TEXT NOT NULL DEFAULT '',
			notes        TEXT NOT NULL DEFAULT '',
			created      TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_by   TEXT NOT NULL DEFAULT '',
			updated      TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_log_entries_owner ON log_entries (owner_id, tether_id)`,
		`CREATE INDEX IF NOT EXISTS idx_vendor_contacts_tether ON vendor_contacts (tether_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
