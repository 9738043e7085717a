package guardian

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL guardian repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the guardian_contacts table if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate guardian_contacts: %w", err)
	}
	return nil
}

// List returns a user's contacts, oldest first.
func (r *PostgresRepository) List(ctx context.Context, userID string) ([]*Contact, error) {
	query := `
		SELECT id, user_id, name, phone, created_at
		FROM guardian_contacts
		WHERE user_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []*Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.CreatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return contacts, nil
}

// Count returns how many contacts a user has.
func (r *PostgresRepository) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM guardian_contacts WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

// Create stores a new contact.
func (r *PostgresRepository) Create(ctx context.Context, c *Contact) error {
	query := `
		INSERT INTO guardian_contacts (id, user_id, name, phone, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, c.ID, c.UserID, c.Name, c.Phone, c.CreatedAt)
	return err
}

// Delete removes a contact owned by the user.
func (r *PostgresRepository) Delete(ctx context.Context, userID, contactID string) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM guardian_contacts WHERE id = $1 AND user_id = $2`,
		contactID, userID,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrContactNotFound
	}

	return nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
