package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tether-data/internal/domain"
)

// PostgresContactsRepository 厂商联系人Repository实现
type PostgresContactsRepository struct {
	db *sql.DB
}

// NewPostgresContactsRepository 创建联系人Repository
func NewPostgresContactsRepository(db *sql.DB) *PostgresContactsRepository {
	return &PostgresContactsRepository{db: db}
}

var _ ContactsRepository = (*PostgresContactsRepository)(nil)

const contactColumns = `contact_id, tether_id, contact_type, name, phone, email, website, address, notes, created, created_by, updated`

func (r *PostgresContactsRepository) GetContact(ctx context.Context, tetherID, contactID string) (*domain.VendorContact, error) {
	c, err := scanContact(r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM vendor_contacts WHERE tether_id = $1 AND contact_id = $2`,
		tetherID, contactID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return c, nil
}

func (r *PostgresContactsRepository) ListContacts(ctx context.Context, tetherID string) ([]*domain.VendorContact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM vendor_contacts WHERE tether_id = $1 ORDER BY created DESC`,
		tetherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*domain.VendorContact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (r *PostgresContactsRepository) CreateContact(ctx context.Context, contact *domain.VendorContact) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vendor_contacts (`+contactColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		contact.ContactID, contact.TetherID, string(contact.Type), contact.Name,
		contact.Phone, contact.Email, contact.Website, contact.Address, contact.Notes,
		contact.Created, contact.CreatedBy, contact.Updated,
	)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

func (r *PostgresContactsRepository) UpdateContact(ctx context.Context, contact *domain.VendorContact) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE vendor_contacts
		 SET contact_type = $3, name = $4, phone = $5, email = $6, website = $7, address = $8, notes = $9, updated = $10
		 WHERE tether_id = $1 AND contact_id = $2`,
		contact.TetherID, contact.ContactID, string(contact.Type), contact.Name,
		contact.Phone, contact.Email, contact.Website, contact.Address, contact.Notes, contact.Updated,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresContactsRepository) DeleteContact(ctx context.Context, tetherID, contactID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM vendor_contacts WHERE tether_id = $1 AND contact_id = $2`, tetherID, contactID)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresContactsRepository) ListAllContacts(ctx context.Context) (map[string]map[string]*domain.VendorContact, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+contactColumns+` FROM vendor_contacts`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	all := map[string]map[string]*domain.VendorContact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		if all[c.TetherID] == nil {
			all[c.TetherID] = map[string]*domain.VendorContact{}
		}
		all[c.TetherID][c.ContactID] = c
	}
	return all, rows.Err()
}

func (r *PostgresContactsRepository) ReplaceAllContacts(ctx context.Context, contacts map[string]map[string]*domain.VendorContact) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vendor_contacts`); err != nil {
		return fmt.Errorf("failed to clear contacts: %w", err)
	}
	for tetherID, byID := range contacts {
		for contactID, c := range byID {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vendor_contacts (`+contactColumns+`)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				contactID, tetherID, string(c.Type), c.Name,
				c.Phone, c.Email, c.Website, c.Address, c.Notes,
				c.Created, c.CreatedBy, c.Updated,
			); err != nil {
				return fmt.Errorf("failed to import contact %s: %w", contactID, err)
			}
		}
	}
	return tx.Commit()
}

func scanContact(row rowScanner) (*domain.VendorContact, error) {
	var c domain.VendorContact
	var ctype string
	if err := row.Scan(&c.ContactID, &c.TetherID, &ctype, &c.Name,
		&c.Phone, &c.Email, &c.Website, &c.Address, &c.Notes,
		&c.Created, &c.CreatedBy, &c.Updated); err != nil {
		return nil, err
	}
	c.Type = domain.ContactType(ctype)
	return &c, nil
}
