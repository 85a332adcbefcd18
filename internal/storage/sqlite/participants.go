package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
	"github.com/padmaraj-kv/powersplit-sub000/internal/storage"
)

const participantColumns = `p.id, p.bill_id, p.name, p.phone_number, p.contact_id, p.amount_owed,
	p.payment_status, p.paid_at, p.created_at, p.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (models.BillParticipant, error) {
	var (
		p                    models.BillParticipant
		contactID            sql.NullString
		status               string
		paidAt               sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(&p.ID, &p.BillID, &p.Name, &p.PhoneNumber, &contactID, &p.AmountOwed,
		&status, &paidAt, &createdAt, &updatedAt)
	if err != nil {
		return p, err
	}
	p.ContactID = contactID.String
	p.PaymentStatus = models.PaymentStatus(status)
	p.PaidAt = fromNullMillis(paidAt)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

func (s *SQLiteStore) listParticipants(ctx context.Context, billID string) ([]models.BillParticipant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+participantColumns+" FROM bill_participants p WHERE p.bill_id = ? ORDER BY p.position",
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []models.BillParticipant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

// GetParticipant retrieves a bill participant by ID.
func (s *SQLiteStore) GetParticipant(ctx context.Context, participantID string) (*models.BillParticipant, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+participantColumns+" FROM bill_participants p WHERE p.id = ?",
		participantID,
	)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("participant not found: %s: %w", participantID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &p, nil
}

// UpdateParticipantStatus records a delivery outcome for a participant.
// Confirmed participants are never moved back.
func (s *SQLiteStore) UpdateParticipantStatus(ctx context.Context, participantID string, status models.PaymentStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bill_participants SET payment_status = ?, updated_at = ?
		 WHERE id = ? AND payment_status != ?`,
		string(status), toMillis(s.now()), participantID, string(models.PaymentConfirmed),
	)
	if err != nil {
		return fmt.Errorf("failed to update participant status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, "SELECT 1 FROM bill_participants WHERE id = ?", participantID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("participant not found: %s: %w", participantID, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check participant existence: %w", err)
		}
	}
	return nil
}

// ConfirmParticipant marks a participant confirmed unless it already is.
func (s *SQLiteStore) ConfirmParticipant(ctx context.Context, participantID string, paidAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bill_participants SET payment_status = ?, paid_at = ?, updated_at = ?
		 WHERE id = ? AND payment_status != ?`,
		string(models.PaymentConfirmed), toMillis(paidAt), toMillis(s.now()),
		participantID, string(models.PaymentConfirmed),
	)
	if err != nil {
		return false, fmt.Errorf("failed to confirm participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to confirm participant: %w", err)
	}
	return n == 1, nil
}

// FindActiveParticipantsByPhone returns unconfirmed participants for phone on
// active bills created since the given time, newest bill first.
func (s *SQLiteStore) FindActiveParticipantsByPhone(ctx context.Context, phone string, since time.Time) ([]models.BillParticipant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+participantColumns+`
		 FROM bill_participants p
		 JOIN bills b ON b.id = p.bill_id
		 WHERE p.phone_number = ?
		   AND p.payment_status != ?
		   AND b.status = ?
		   AND b.created_at >= ?
		 ORDER BY b.created_at DESC, b.rowid DESC, p.position`,
		phone, string(models.PaymentConfirmed), string(models.BillActive), toMillis(since),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find participants by phone: %w", err)
	}
	defer rows.Close()

	var participants []models.BillParticipant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}
