package models

import "github.com/shopspring/decimal"

// Participant is a person who owes part of a bill.
// AmountOwed is set by the calculator; PaymentStatus only advances through
// delivery outcomes or payment confirmations.
type Participant struct {
	Name          string          `json:"name"`
	PhoneNumber   string          `json:"phone_number,omitempty"`
	AmountOwed    decimal.Decimal `json:"amount_owed"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	ContactID     string          `json:"contact_id,omitempty"`
}

// CloneParticipants returns a copy of ps so callers can modify it freely.
func CloneParticipants(ps []Participant) []Participant {
	if ps == nil {
		return nil
	}
	out := make([]Participant, len(ps))
	copy(out, ps)
	return out
}
