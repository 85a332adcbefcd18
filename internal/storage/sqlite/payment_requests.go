package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
	"github.com/padmaraj-kv/powersplit-sub000/internal/storage"
)

// CreatePaymentRequest persists a new payment request.
func (s *SQLiteStore) CreatePaymentRequest(ctx context.Context, req *models.PaymentRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = s.now()
	}
	if req.Status == "" {
		req.Status = models.PaymentPending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_requests (id, bill_id, participant_id, payment_link, status,
		 delivery_method, delivery_attempts, last_error, created_at, confirmed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.BillID, req.ParticipantID, nullString(req.PaymentLink), string(req.Status),
		nullString(string(req.DeliveryMethod)), req.DeliveryAttempts, nullString(req.LastError),
		toMillis(req.CreatedAt), nullTime(req.ConfirmedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment request: %w", err)
	}
	return nil
}

// LatestPaymentRequest retrieves the newest payment request for a participant.
func (s *SQLiteStore) LatestPaymentRequest(ctx context.Context, participantID string) (*models.PaymentRequest, error) {
	req := &models.PaymentRequest{}
	var (
		link, method, lastError sql.NullString
		status                  string
		createdAt               int64
		confirmedAt             sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, bill_id, participant_id, payment_link, status, delivery_method,
		 delivery_attempts, last_error, created_at, confirmed_at
		 FROM payment_requests WHERE participant_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		participantID,
	).Scan(&req.ID, &req.BillID, &req.ParticipantID, &link, &status, &method,
		&req.DeliveryAttempts, &lastError, &createdAt, &confirmedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment request not found for participant %s: %w", participantID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment request: %w", err)
	}

	req.PaymentLink = link.String
	req.Status = models.PaymentStatus(status)
	req.DeliveryMethod = models.DeliveryMethod(method.String)
	req.LastError = lastError.String
	req.CreatedAt = fromMillis(createdAt)
	req.ConfirmedAt = fromNullMillis(confirmedAt)
	return req, nil
}

// UpdatePaymentRequest saves the mutable fields of a payment request.
func (s *SQLiteStore) UpdatePaymentRequest(ctx context.Context, req *models.PaymentRequest) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE payment_requests SET payment_link = ?, status = ?, delivery_method = ?,
		 delivery_attempts = ?, last_error = ?, confirmed_at = ?
		 WHERE id = ?`,
		nullString(req.PaymentLink), string(req.Status), nullString(string(req.DeliveryMethod)),
		req.DeliveryAttempts, nullString(req.LastError), nullTime(req.ConfirmedAt), req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("payment request not found: %s: %w", req.ID, storage.ErrNotFound)
	}
	return nil
}
