// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

// ErrNotFound is returned (wrapped) when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// BillStore persists bills together with their participants.
type BillStore interface {
	// CreateBill persists a bill and its participants in one transaction.
	// Missing IDs and timestamps are populated by the store.
	CreateBill(ctx context.Context, bill *models.Bill) error

	// GetBill retrieves a bill with its items and participants.
	GetBill(ctx context.Context, billID string) (*models.Bill, error)

	// CompleteBill marks an active bill completed. It reports false when the
	// bill was not active.
	CompleteBill(ctx context.Context, billID string, at time.Time) (bool, error)
}

// ParticipantStore reads and advances bill participants.
type ParticipantStore interface {
	GetParticipant(ctx context.Context, participantID string) (*models.BillParticipant, error)

	// UpdateParticipantStatus records a delivery outcome (sent or failed).
	UpdateParticipantStatus(ctx context.Context, participantID string, status models.PaymentStatus) error

	// ConfirmParticipant marks the participant confirmed. It reports false,
	// without changing anything, when the participant was already confirmed.
	ConfirmParticipant(ctx context.Context, participantID string, paidAt time.Time) (bool, error)

	// FindActiveParticipantsByPhone returns unconfirmed participants with the
	// given phone number on active bills created at or after since, newest bill first.
	FindActiveParticipantsByPhone(ctx context.Context, phone string, since time.Time) ([]models.BillParticipant, error)
}

// PaymentRequestStore persists payment requests.
type PaymentRequestStore interface {
	CreatePaymentRequest(ctx context.Context, req *models.PaymentRequest) error

	// LatestPaymentRequest returns the most recent request for a participant.
	LatestPaymentRequest(ctx context.Context, participantID string) (*models.PaymentRequest, error)

	UpdatePaymentRequest(ctx context.Context, req *models.PaymentRequest) error
}

// ContactStore persists an organizer's contacts.
type ContactStore interface {
	// UpsertContact inserts or updates the contact matched by user and
	// case-insensitive name.
	UpsertContact(ctx context.Context, contact *models.Contact) error

	// FindContactByName looks up a contact by case-insensitive name.
	FindContactByName(ctx context.Context, userID, name string) (*models.Contact, error)
}

// ConversationStore persists conversation states keyed by (user, session).
type ConversationStore interface {
	GetConversation(ctx context.Context, userID, sessionID string) (*models.ConversationState, error)

	// SaveConversation inserts or replaces the state.
	SaveConversation(ctx context.Context, state *models.ConversationState) error
}

// Store defines the complete storage interface.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	BillStore
	ParticipantStore
	PaymentRequestStore
	ContactStore
	ConversationStore

	// Close releases any resources held by the store.
	Close() error
}
