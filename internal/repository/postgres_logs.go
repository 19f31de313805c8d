package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"tether-data/internal/domain"
)

// PostgresLogsRepository 日志条目Repository实现
// owner_id = '' 表示 terra 共享流；aura 流按 (owner_id, tether_id) 分区
type PostgresLogsRepository struct {
	db *sql.DB
}

// NewPostgresLogsRepository 创建日志Repository
func NewPostgresLogsRepository(db *sql.DB) *PostgresLogsRepository {
	return &PostgresLogsRepository{db: db}
}

var _ LogsRepository = (*PostgresLogsRepository)(nil)

func (r *PostgresLogsRepository) AppendEntry(ctx context.Context, stream domain.LogStream, entry *domain.LogEntry) error {
	fieldsJSON, err := json.Marshal(entry.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO log_entries (owner_id, tether_id, entry_id, ts, submitted_by, location, fields)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		stream.OwnerID, stream.TetherID, entry.EntryID, entry.Timestamp, entry.SubmittedBy, entry.Location, fieldsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

func (r *PostgresLogsRepository) ListEntries(ctx context.Context, stream domain.LogStream) ([]*domain.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT entry_id, tether_id, ts, submitted_by, location, fields
		 FROM log_entries
		 WHERE owner_id = $1 AND tether_id = $2
		 ORDER BY entry_id ASC`,
		stream.OwnerID, stream.TetherID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.LogEntry
	for rows.Next() {
		e, err := scanLogEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *PostgresLogsRepository) DeleteSharedEntries(ctx context.Context, tetherID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM log_entries WHERE owner_id = '' AND tether_id = $1`, tetherID); err != nil {
		return fmt.Errorf("failed to delete shared entries: %w", err)
	}
	return nil
}

func (r *PostgresLogsRepository) CountSharedByTether(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tether_id, COUNT(*) FROM log_entries WHERE owner_id = '' GROUP BY tether_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to count shared entries: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (r *PostgresLogsRepository) ListUserTetherIDs(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT tether_id FROM log_entries WHERE owner_id = $1 ORDER BY tether_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user tethers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tether_id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresLogsRepository) ListAllShared(ctx context.Context) (SharedLogs, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT entry_id, tether_id, ts, submitted_by, location, fields
		 FROM log_entries WHERE owner_id = '' ORDER BY entry_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared logs: %w", err)
	}
	defer rows.Close()

	all := SharedLogs{}
	for rows.Next() {
		e, err := scanLogEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if all[e.TetherID] == nil {
			all[e.TetherID] = map[string]*domain.LogEntry{}
		}
		all[e.TetherID][e.EntryID] = e
	}
	return all, rows.Err()
}

func (r *PostgresLogsRepository) ReplaceAllShared(ctx context.Context, logs SharedLogs) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM log_entries WHERE owner_id = ''`); err != nil {
		return fmt.Errorf("failed to clear shared logs: %w", err)
	}
	for tetherID, entries := range logs {
		for entryID, e := range entries {
			if err := insertEntryTx(ctx, tx, "", tetherID, entryID, e); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (r *PostgresLogsRepository) ListAllUserLogs(ctx context.Context) (UserLogs, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT owner_id, entry_id, tether_id, ts, submitted_by, location, fields
		 FROM log_entries WHERE owner_id <> '' ORDER BY entry_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user logs: %w", err)
	}
	defer rows.Close()

	all := UserLogs{}
	for rows.Next() {
		var ownerID string
		var e domain.LogEntry
		var fieldsJSON []byte
		if err := rows.Scan(&ownerID, &e.EntryID, &e.TetherID, &e.Timestamp, &e.SubmittedBy, &e.Location, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
		}
		if all[ownerID] == nil {
			all[ownerID] = map[string]map[string]*domain.LogEntry{}
		}
		if all[ownerID][e.TetherID] == nil {
			all[ownerID][e.TetherID] = map[string]*domain.LogEntry{}
		}
		entry := e
		all[ownerID][e.TetherID][e.EntryID] = &entry
	}
	return all, rows.Err()
}

func (r *PostgresLogsRepository) ReplaceAllUserLogs(ctx context.Context, logs UserLogs) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM log_entries WHERE owner_id <> ''`); err != nil {
		return fmt.Errorf("failed to clear user logs: %w", err)
	}
	for ownerID, byTether := range logs {
		for tetherID, entries := range byTether {
			for entryID, e := range entries {
				if err := insertEntryTx(ctx, tx, ownerID, tetherID, entryID, e); err != nil {
					return err
				}
			}
		}
	}
	return tx.Commit()
}

func insertEntryTx(ctx context.Context, tx *sql.Tx, ownerID, tetherID, entryID string, e *domain.LogEntry) error {
	fieldsJSON, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO log_entries (owner_id, tether_id, entry_id, ts, submitted_by, location, fields)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ownerID, tetherID, entryID, e.Timestamp, e.SubmittedBy, e.Location, fieldsJSON,
	); err != nil {
		return fmt.Errorf("failed to import entry %s: %w", entryID, err)
	}
	return nil
}

func scanLogEntry(row rowScanner) (*domain.LogEntry, error) {
	var e domain.LogEntry
	var fieldsJSON []byte
	if err := row.Scan(&e.EntryID, &e.TetherID, &e.Timestamp, &e.SubmittedBy, &e.Location, &fieldsJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
	}
	return &e, nil
}
