package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when extraction does not report a currency.
const DefaultCurrency = "INR"

// BillData is the bill content extracted from the organizer's input.
// It is immutable once confirmed, except through an explicit re-extraction.
type BillData struct {
	// TotalAmount is the final bill amount. Must be positive.
	TotalAmount decimal.Decimal `json:"total_amount"`

	// Description says what the bill was for (e.g., "Dinner at Pizza Palace").
	Description string `json:"description"`

	// Items are the individual line items, when the input listed them.
	Items []BillItem `json:"items,omitempty"`

	// Currency is the ISO currency code. Only 2-place decimal currencies are supported.
	Currency string `json:"currency"`

	// Merchant is the restaurant or store name, if known.
	Merchant string `json:"merchant,omitempty"`

	// Date is when the bill was issued, if known.
	Date *time.Time `json:"date,omitempty"`
}

// BillItem is a single line item on a bill.
type BillItem struct {
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Quantity int             `json:"quantity"`
}

// Bill is the persisted record of a bill whose payment requests have been sent.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string

	// OrganizerID is the user who created the bill and receives notifications.
	OrganizerID string

	// OrganizerPhone is where payment and completion notifications are delivered.
	OrganizerPhone string

	TotalAmount decimal.Decimal
	Description string
	Currency    string
	Merchant    string
	BillDate    *time.Time
	Items       []BillItem

	// Status moves to completed only after the completion notification was delivered.
	Status BillStatus

	// Participants is populated by loaders that fetch the bill with its participants.
	Participants []BillParticipant

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConfirmedCount returns how many participants have confirmed payment.
func (b *Bill) ConfirmedCount() int {
	n := 0
	for _, p := range b.Participants {
		if p.PaymentStatus == PaymentConfirmed {
			n++
		}
	}
	return n
}

// AllConfirmed reports whether every participant on the bill has confirmed payment.
// A bill without participants is never complete.
func (b *Bill) AllConfirmed() bool {
	return len(b.Participants) > 0 && b.ConfirmedCount() == len(b.Participants)
}

// BillParticipant is the persisted record of one participant on a bill.
type BillParticipant struct {
	ID            string
	BillID        string
	Name          string
	PhoneNumber   string
	ContactID     string
	AmountOwed    decimal.Decimal
	PaymentStatus PaymentStatus
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Participant converts the record into the conversation-level participant.
func (p BillParticipant) Participant() Participant {
	return Participant{
		Name:          p.Name,
		PhoneNumber:   p.PhoneNumber,
		AmountOwed:    p.AmountOwed,
		PaymentStatus: p.PaymentStatus,
		ContactID:     p.ContactID,
	}
}

// PaymentRequest records one payment request sent to a participant.
type PaymentRequest struct {
	ID            string
	BillID        string
	ParticipantID string

	// PaymentLink is the deep link included in the request, if one was generated.
	PaymentLink string

	Status           PaymentStatus
	DeliveryMethod   DeliveryMethod
	DeliveryAttempts int
	LastError        string
	CreatedAt        time.Time
	ConfirmedAt      *time.Time
}

// MarkConfirmed sets the request to confirmed at the given time.
func (r *PaymentRequest) MarkConfirmed(at time.Time) {
	r.Status = PaymentConfirmed
	r.ConfirmedAt = &at
}
