package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"tether-data/internal/domain"
)

// PostgresTemplatesRepository 模板Repository实现
type PostgresTemplatesRepository struct {
	db *sql.DB
}

// NewPostgresTemplatesRepository 创建模板Repository
func NewPostgresTemplatesRepository(db *sql.DB) *PostgresTemplatesRepository {
	return &PostgresTemplatesRepository{db: db}
}

// 确保实现了接口
var _ TemplatesRepository = (*PostgresTemplatesRepository)(nil)

func (r *PostgresTemplatesRepository) CreateTemplate(ctx context.Context, tpl *domain.Template) error {
	staticJSON, err := json.Marshal(tpl.StaticFields)
	if err != nil {
		return fmt.Errorf("failed to marshal static_fields: %w", err)
	}
	dynamicJSON, err := json.Marshal(tpl.DynamicFields)
	if err != nil {
		return fmt.Errorf("failed to marshal dynamic_fields: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO global_templates (template_id, name, description, scope, static_fields, dynamic_fields, created, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tpl.TemplateID, tpl.Name, tpl.Description, string(tpl.Scope), staticJSON, dynamicJSON, tpl.Created, tpl.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (r *PostgresTemplatesRepository) GetTemplate(ctx context.Context, templateID string) (*domain.Template, error) {
	if templateID == "" {
		return nil, domain.ErrNotFound
	}

	query := `
		SELECT template_id, name, description, scope, static_fields, dynamic_fields, created, created_by
		FROM global_templates
		WHERE template_id = $1
	`
	tpl, err := scanTemplate(r.db.QueryRowContext(ctx, query, templateID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return tpl, nil
}

func (r *PostgresTemplatesRepository) ListTemplates(ctx context.Context, scope domain.Scope) ([]*domain.Template, error) {
	query := `
		SELECT template_id, name, description, scope, static_fields, dynamic_fields, created, created_by
		FROM global_templates
	`
	args := []any{}
	if scope != "" {
		query += ` WHERE scope = $1`
		args = append(args, string(scope))
	}
	query += ` ORDER BY created DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*domain.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

func (r *PostgresTemplatesRepository) DeleteTemplate(ctx context.Context, templateID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM global_templates WHERE template_id = $1`, templateID)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresTemplatesRepository) ListAllTemplates(ctx context.Context) (map[string]*domain.Template, error) {
	list, err := r.ListTemplates(ctx, "")
	if err != nil {
		return nil, err
	}
	all := make(map[string]*domain.Template, len(list))
	for _, tpl := range list {
		all[tpl.TemplateID] = tpl
	}
	return all, nil
}

func (r *PostgresTemplatesRepository) ReplaceAllTemplates(ctx context.Context, templates map[string]*domain.Template) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM global_templates`); err != nil {
		return fmt.Errorf("failed to clear templates: %w", err)
	}
	for id, tpl := range templates {
		staticJSON, err := json.Marshal(tpl.StaticFields)
		if err != nil {
			return fmt.Errorf("failed to marshal static_fields: %w", err)
		}
		dynamicJSON, err := json.Marshal(tpl.DynamicFields)
		if err != nil {
			return fmt.Errorf("failed to marshal dynamic_fields: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO global_templates (template_id, name, description, scope, static_fields, dynamic_fields, created, created_by)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id, tpl.Name, tpl.Description, string(tpl.Scope), staticJSON, dynamicJSON, tpl.Created, tpl.CreatedBy,
		); err != nil {
			return fmt.Errorf("failed to import template %s: %w", id, err)
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*domain.Template, error) {
	var tpl domain.Template
	var scope string
	var staticJSON, dynamicJSON []byte
	if err := row.Scan(&tpl.TemplateID, &tpl.Name, &tpl.Description, &scope, &staticJSON, &dynamicJSON, &tpl.Created, &tpl.CreatedBy); err != nil {
		return nil, err
	}
	tpl.Scope = domain.Scope(scope)
	if err := json.Unmarshal(staticJSON, &tpl.StaticFields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal static_fields: %w", err)
	}
	if err := json.Unmarshal(dynamicJSON, &tpl.DynamicFields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dynamic_fields: %w", err)
	}
	return &tpl, nil
}
