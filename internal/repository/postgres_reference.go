package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tether-data/internal/domain"
)

// PostgresReferenceRepository 参考内容Repository实现
type PostgresReferenceRepository struct {
	db *sql.DB
}

// NewPostgresReferenceRepository 创建参考内容Repository
func NewPostgresReferenceRepository(db *sql.DB) *PostgresReferenceRepository {
	return &PostgresReferenceRepository{db: db}
}

var _ ReferenceRepository = (*PostgresReferenceRepository)(nil)

func (r *PostgresReferenceRepository) GetContent(ctx context.Context, tetherID string) (*domain.ReferenceContent, error) {
	if tetherID == "" {
		return nil, domain.ErrNotFound
	}

	var c domain.ReferenceContent
	err := r.db.QueryRowContext(ctx,
		`SELECT tether_id, title, description, image_url, updated, updated_by
		 FROM reference_content WHERE tether_id = $1`, tetherID,
	).Scan(&c.TetherID, &c.Title, &c.Description, &c.ImageURL, &c.Updated, &c.UpdatedBy)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reference content: %w", err)
	}
	return &c, nil
}

func (r *PostgresReferenceRepository) UpsertContent(ctx context.Context, content *domain.ReferenceContent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reference_content (tether_id, title, description, image_url, updated, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (tether_id)
		 DO UPDATE SET title = EXCLUDED.title,
		               description = EXCLUDED.description,
		               image_url = EXCLUDED.image_url,
		               updated = EXCLUDED.updated,
		               updated_by = EXCLUDED.updated_by`,
		content.TetherID, content.Title, content.Description, content.ImageURL, content.Updated, content.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert reference content: %w", err)
	}
	return nil
}

func (r *PostgresReferenceRepository) DeleteContent(ctx context.Context, tetherID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM reference_content WHERE tether_id = $1`, tetherID); err != nil {
		return fmt.Errorf("failed to delete reference content: %w", err)
	}
	return nil
}

func (r *PostgresReferenceRepository) ListAllContent(ctx context.Context) (map[string]*domain.ReferenceContent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tether_id, title, description, image_url, updated, updated_by FROM reference_content`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reference content: %w", err)
	}
	defer rows.Close()

	all := map[string]*domain.ReferenceContent{}
	for rows.Next() {
		var c domain.ReferenceContent
		if err := rows.Scan(&c.TetherID, &c.Title, &c.Description, &c.ImageURL, &c.Updated, &c.UpdatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan reference content: %w", err)
		}
		content := c
		all[c.TetherID] = &content
	}
	return all, rows.Err()
}

func (r *PostgresReferenceRepository) ReplaceAllContent(ctx context.Context, content map[string]*domain.ReferenceContent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reference_content`); err != nil {
		return fmt.Errorf("failed to clear reference content: %w", err)
	}
	for id, c := range content {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reference_content (tether_id, title, description, image_url, updated, updated_by)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, c.Title, c.Description, c.ImageURL, c.Updated, c.UpdatedBy,
		); err != nil {
			return fmt.Errorf("failed to import reference content %s: %w", id, err)
		}
	}
	return tx.Commit()
}
