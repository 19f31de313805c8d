package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"tether-data/internal/domain"
)

// PostgresTethersRepository 标签记录Repository实现
type PostgresTethersRepository struct {
	db *sql.DB
}

// NewPostgresTethersRepository 创建标签记录Repository
func NewPostgresTethersRepository(db *sql.DB) *PostgresTethersRepository {
	return &PostgresTethersRepository{db: db}
}

var _ TethersRepository = (*PostgresTethersRepository)(nil)

func (r *PostgresTethersRepository) GetTether(ctx context.Context, tetherID string) (*domain.Tether, error) {
	if tetherID == "" {
		return nil, domain.ErrNotFound
	}

	query := `
		SELECT tether_id, template_id, scope, static_values, locked, created, created_by
		FROM tethers
		WHERE tether_id = $1
	`
	tether, err := scanTether(r.db.QueryRowContext(ctx, query, tetherID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tether: %w", err)
	}
	return tether, nil
}

func (r *PostgresTethersRepository) CreateTether(ctx context.Context, tether *domain.Tether) error {
	valuesJSON, err := json.Marshal(tether.StaticValues)
	if err != nil {
		return fmt.Errorf("failed to marshal static_values: %w", err)
	}

	// upsert：并发分配同一 unbound tether 为 last-write-wins（接受的设计缺口）
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO tethers (tether_id, template_id, scope, static_values, locked, created, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (tether_id)
		 DO UPDATE SET template_id = EXCLUDED.template_id,
		               scope = EXCLUDED.scope,
		               static_values = EXCLUDED.static_values,
		               locked = EXCLUDED.locked,
		               created = EXCLUDED.created,
		               created_by = EXCLUDED.created_by`,
		tether.TetherID, tether.TemplateID, string(tether.Scope), valuesJSON, tether.Locked, tether.Created, tether.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create tether: %w", err)
	}
	return nil
}

func (r *PostgresTethersRepository) SetLocked(ctx context.Context, tetherID string, locked bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tethers SET locked = $2 WHERE tether_id = $1`, tetherID, locked)
	if err != nil {
		return fmt.Errorf("failed to set locked: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresTethersRepository) DeleteTether(ctx context.Context, tetherID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tethers WHERE tether_id = $1`, tetherID); err != nil {
		return fmt.Errorf("failed to delete tether: %w", err)
	}
	return nil
}

func (r *PostgresTethersRepository) ListTethers(ctx context.Context) ([]*domain.Tether, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tether_id, template_id, scope, static_values, locked, created, created_by
		 FROM tethers ORDER BY created DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tethers: %w", err)
	}
	defer rows.Close()

	var tethers []*domain.Tether
	for rows.Next() {
		t, err := scanTether(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tether: %w", err)
		}
		tethers = append(tethers, t)
	}
	return tethers, rows.Err()
}

func (r *PostgresTethersRepository) ListAllTethers(ctx context.Context) (map[string]*domain.Tether, error) {
	list, err := r.ListTethers(ctx)
	if err != nil {
		return nil, err
	}
	all := make(map[string]*domain.Tether, len(list))
	for _, t := range list {
		all[t.TetherID] = t
	}
	return all, nil
}

func (r *PostgresTethersRepository) ReplaceAllTethers(ctx context.Context, tethers map[string]*domain.Tether) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tethers`); err != nil {
		return fmt.Errorf("failed to clear tethers: %w", err)
	}
	for id, t := range tethers {
		valuesJSON, err := json.Marshal(t.StaticValues)
		if err != nil {
			return fmt.Errorf("failed to marshal static_values: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tethers (tether_id, template_id, scope, static_values, locked, created, created_by)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, t.TemplateID, string(t.Scope), valuesJSON, t.Locked, t.Created, t.CreatedBy,
		); err != nil {
			return fmt.Errorf("failed to import tether %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func scanTether(row rowScanner) (*domain.Tether, error) {
	var t domain.Tether
	var scope string
	var valuesJSON []byte
	if err := row.Scan(&t.TetherID, &t.TemplateID, &scope, &valuesJSON, &t.Locked, &t.Created, &t.CreatedBy); err != nil {
		return nil, err
	}
	t.Scope = domain.Scope(scope)
	if err := json.Unmarshal(valuesJSON, &t.StaticValues); err != nil {
		return nil, fmt.Errorf("failed to unmarshal static_values: %w", err)
	}
	return &t, nil
}
