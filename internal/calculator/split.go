// Package calculator implements the bill split engine: equal and custom
// splits, split validation, display formatting and custom amount parsing.
//
// All arithmetic uses decimal.Decimal at two decimal places with half-up rounding.
package calculator

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

var (
	ErrNoParticipants     = errors.New("must have at least one participant")
	ErrNonPositiveTotal   = errors.New("bill total amount must be positive")
	ErrNonPositiveAmount  = errors.New("amount must be positive")
	ErrUnknownParticipant = errors.New("unknown participant")
)

// Precision is the number of decimal places kept for money.
const Precision = 2

var (
	// Tolerance is the largest difference between split sum and bill total that still validates.
	Tolerance = decimal.New(1, -Precision)

	smallAmount = decimal.NewFromInt(1)
	two         = decimal.NewFromInt(2)
)

// Quantize rounds d to two decimal places, half-up.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.Round(Precision)
}

// CalculateEqualSplits divides the bill total evenly among participants.
// The share is rounded half-up to two places and the rounding remainder is
// added entirely to the first participant in input order, so the shares
// always sum to the total exactly. Payment status is reset to pending.
func CalculateEqualSplits(bill models.BillData, participants []models.Participant) ([]models.Participant, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	if !bill.TotalAmount.IsPositive() {
		return nil, ErrNonPositiveTotal
	}

	n := decimal.NewFromInt(int64(len(participants)))
	share := bill.TotalAmount.DivRound(n, Precision)
	remainder := bill.TotalAmount.Sub(share.Mul(n))

	splits := models.CloneParticipants(participants)
	for i := range splits {
		splits[i].AmountOwed = share
		splits[i].PaymentStatus = models.PaymentPending
	}
	splits[0].AmountOwed = share.Add(remainder)

	slog.Debug("Calculated equal splits",
		"participants", len(splits),
		"share", share.StringFixed(Precision),
		"remainder", remainder.StringFixed(Precision),
	)
	return splits, nil
}

// ApplyCustomSplits overrides participant amounts. Overrides are keyed by
// participant name or contact ID. Participants without an override keep
// their current amount.
func ApplyCustomSplits(bill models.BillData, participants []models.Participant, overrides map[string]decimal.Decimal) ([]models.Participant, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	splits := models.CloneParticipants(participants)
	applied := 0
	for i := range splits {
		amount, ok := lookupOverride(overrides, splits[i])
		if !ok {
			continue
		}
		amount = Quantize(amount)
		if !amount.IsPositive() {
			return nil, fmt.Errorf("custom amount for %s: %w", splits[i].Name, ErrNonPositiveAmount)
		}
		splits[i].AmountOwed = amount
		applied++
	}

	slog.Debug("Applied custom splits", "overrides", len(overrides), "applied", applied)
	return splits, nil
}

func lookupOverride(overrides map[string]decimal.Decimal, p models.Participant) (decimal.Decimal, bool) {
	if amount, ok := overrides[p.Name]; ok {
		return amount, true
	}
	if p.ContactID != "" {
		if amount, ok := overrides[p.ContactID]; ok {
			return amount, true
		}
	}
	return decimal.Decimal{}, false
}

// ValidateSplits checks participant amounts against the bill total.
// The result is invalid when there are no participants, when the amounts
// differ from the total by more than Tolerance, or when any amount is not
// positive. Amounts above twice the equal share or below 1.00 only warn.
func ValidateSplits(bill models.BillData, participants []models.Participant) models.ValidationResult {
	result := models.ValidationResult{}
	if len(participants) == 0 {
		result.Errors = append(result.Errors, "No participants found for validation")
		return result
	}

	total := SumAmounts(participants)
	diff := bill.TotalAmount.Sub(total).Abs()
	if diff.GreaterThan(Tolerance) {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Split amounts (%s) don't match bill total (%s). Difference: %s",
			FormatAmount(bill.Currency, total),
			FormatAmount(bill.Currency, bill.TotalAmount),
			FormatAmount(bill.Currency, diff),
		))
	}

	var nonPositive []string
	for _, p := range participants {
		if !p.AmountOwed.IsPositive() {
			nonPositive = append(nonPositive, p.Name)
		}
	}
	if len(nonPositive) > 0 {
		result.Errors = append(result.Errors, "Negative or zero amounts found for: "+joinNames(nonPositive))
	}

	equalShare := bill.TotalAmount.Div(decimal.NewFromInt(int64(len(participants))))
	var large, small []string
	for _, p := range participants {
		if p.AmountOwed.GreaterThan(equalShare.Mul(two)) {
			large = append(large, fmt.Sprintf("%s (%s)", p.Name, FormatAmount(bill.Currency, p.AmountOwed)))
		}
		if p.AmountOwed.IsPositive() && p.AmountOwed.LessThan(smallAmount) {
			small = append(small, fmt.Sprintf("%s (%s)", p.Name, FormatAmount(bill.Currency, p.AmountOwed)))
		}
	}
	if len(large) > 0 {
		result.Warnings = append(result.Warnings, "Large amounts detected for: "+joinNames(large))
	}
	if len(small) > 0 {
		result.Warnings = append(result.Warnings, "Very small amounts for: "+joinNames(small))
	}

	result.IsValid = len(result.Errors) == 0
	slog.Debug("Validated splits",
		"valid", result.IsValid,
		"errors", len(result.Errors),
		"warnings", len(result.Warnings),
	)
	return result
}

// SumAmounts returns the sum of all participant amounts.
func SumAmounts(participants []models.Participant) decimal.Decimal {
	total := decimal.Zero
	for _, p := range participants {
		total = total.Add(p.AmountOwed)
	}
	return total
}
