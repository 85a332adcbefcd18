package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
	"github.com/padmaraj-kv/powersplit-sub000/internal/storage"
)

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// UpsertContact inserts a contact or updates the phone number of the
// existing contact with the same name for that user.
func (s *SQLiteStore) UpsertContact(ctx context.Context, contact *models.Contact) error {
	now := s.now()
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (id, user_id, name, name_key, phone_number, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, name_key) DO UPDATE SET
		   name = excluded.name,
		   phone_number = excluded.phone_number,
		   updated_at = excluded.updated_at`,
		contact.ID, contact.UserID, contact.Name, nameKey(contact.Name), contact.PhoneNumber,
		toMillis(contact.CreatedAt), toMillis(contact.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert contact: %w", err)
	}

	// The conflict path keeps the stored ID; read it back so callers see it.
	stored, err := s.FindContactByName(ctx, contact.UserID, contact.Name)
	if err != nil {
		return err
	}
	contact.ID = stored.ID
	contact.CreatedAt = stored.CreatedAt
	return nil
}

// FindContactByName looks up a user's contact by case-insensitive name.
func (s *SQLiteStore) FindContactByName(ctx context.Context, userID, name string) (*models.Contact, error) {
	c := &models.Contact{}
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, phone_number, created_at, updated_at
		 FROM contacts WHERE user_id = ? AND name_key = ?`,
		userID, nameKey(name),
	).Scan(&c.ID, &c.UserID, &c.Name, &c.PhoneNumber, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contact not found: %s: %w", name, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}
