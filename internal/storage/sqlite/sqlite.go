// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
	"github.com/padmaraj-kv/powersplit-sub000/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps the foreign_keys pragma in effect and
	// serializes writers.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateBill persists a new bill with its items and participants.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	now := s.now()
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = now
	}
	bill.UpdatedAt = now
	if bill.Status == "" {
		bill.Status = models.BillActive
	}
	if bill.Currency == "" {
		bill.Currency = models.DefaultCurrency
	}
	if bill.Description == "" {
		bill.Description = generateDescription(bill.Participants, now)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bills (id, organizer_id, organizer_phone, total_amount, description, currency,
		 merchant, bill_date, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, bill.OrganizerID, bill.OrganizerPhone, bill.TotalAmount, bill.Description, bill.Currency,
		nullString(bill.Merchant), nullTime(bill.BillDate), string(bill.Status),
		toMillis(bill.CreatedAt), toMillis(bill.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	for i, item := range bill.Items {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO bill_items (id, bill_id, position, name, amount, quantity) VALUES (?, ?, ?, ?, ?, ?)",
			uuid.New().String(), bill.ID, i, item.Name, item.Amount, quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}

	for i := range bill.Participants {
		p := &bill.Participants[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.BillID = bill.ID
		if p.PaymentStatus == "" {
			p.PaymentStatus = models.PaymentPending
		}
		p.CreatedAt = now
		p.UpdatedAt = now

		_, err = tx.ExecContext(ctx,
			`INSERT INTO bill_participants (id, bill_id, position, name, phone_number, contact_id,
			 amount_owed, payment_status, paid_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.BillID, i, p.Name, p.PhoneNumber, nullString(p.ContactID),
			p.AmountOwed, string(p.PaymentStatus), nullTime(p.PaidAt),
			toMillis(p.CreatedAt), toMillis(p.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetBill retrieves a bill by ID, including all items and participants.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	bill := &models.Bill{}
	var (
		merchant             sql.NullString
		billDate             sql.NullInt64
		status               string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, organizer_id, organizer_phone, total_amount, description, currency,
		 merchant, bill_date, status, created_at, updated_at
		 FROM bills WHERE id = ?`,
		billID,
	).Scan(&bill.ID, &bill.OrganizerID, &bill.OrganizerPhone, &bill.TotalAmount, &bill.Description,
		&bill.Currency, &merchant, &billDate, &status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bill not found: %s: %w", billID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	bill.Merchant = merchant.String
	bill.BillDate = fromNullMillis(billDate)
	bill.Status = models.BillStatus(status)
	bill.CreatedAt = fromMillis(createdAt)
	bill.UpdatedAt = fromMillis(updatedAt)

	itemRows, err := s.db.QueryContext(ctx,
		"SELECT name, amount, quantity FROM bill_items WHERE bill_id = ? ORDER BY position",
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item models.BillItem
		if err := itemRows.Scan(&item.Name, &item.Amount, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		bill.Items = append(bill.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	participants, err := s.listParticipants(ctx, billID)
	if err != nil {
		return nil, err
	}
	bill.Participants = participants

	return bill, nil
}

// CompleteBill marks an active bill completed.
func (s *SQLiteStore) CompleteBill(ctx context.Context, billID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE bills SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		string(models.BillCompleted), toMillis(at), billID, string(models.BillActive),
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to complete bill: %w", err)
	}
	return n == 1, nil
}

// generateDescription creates a description from participant names.
func generateDescription(participants []models.BillParticipant, now time.Time) string {
	if len(participants) == 0 {
		return fmt.Sprintf("Bill - %s", now.Format("Jan 2, 2006"))
	}
	names := make([]string, len(participants))
	for i, p := range participants {
		names[i] = p.Name
	}
	if len(names) <= 3 {
		return fmt.Sprintf("Split with %s", strings.Join(names, ", "))
	}
	return fmt.Sprintf("Split with %s and %d others",
		strings.Join(names[:2], ", "),
		len(names)-2,
	)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
