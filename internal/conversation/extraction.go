package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/padmaraj-kv/powersplit-sub000/internal/calculator"
	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

var (
	minBillAmount = decimal.RequireFromString("0.01")
	maxBillAmount = decimal.RequireFromString("999999.99")
)

const maxFallbackQuestions = 3

// ValidateBillData checks an extracted bill against business rules.
func ValidateBillData(bill models.BillData, now time.Time) models.ValidationResult {
	var errs, warnings []string

	switch {
	case bill.TotalAmount.LessThan(minBillAmount):
		errs = append(errs, "Amount must be at least "+calculator.FormatAmount(bill.Currency, minBillAmount))
	case bill.TotalAmount.GreaterThan(maxBillAmount):
		errs = append(errs, "Amount cannot exceed "+calculator.FormatAmount(bill.Currency, maxBillAmount))
	}

	if len(bill.Items) > 0 {
		itemsTotal := decimal.Zero
		for _, it := range bill.Items {
			qty := it.Quantity
			if qty < 1 {
				qty = 1
			}
			itemsTotal = itemsTotal.Add(it.Amount.Mul(decimal.NewFromInt(int64(qty))))
		}
		if itemsTotal.Sub(bill.TotalAmount).Abs().GreaterThan(calculator.Tolerance) {
			warnings = append(warnings, fmt.Sprintf("Items total (%s) doesn't match bill total (%s)",
				calculator.FormatAmount(bill.Currency, itemsTotal), calculator.FormatAmount(bill.Currency, bill.TotalAmount)))
		}
	}

	if strings.TrimSpace(bill.Description) == "" {
		warnings = append(warnings, "Bill description is missing")
	}
	if bill.Date != nil && bill.Date.After(now) {
		warnings = append(warnings, "Bill date is in the future")
	}

	return models.ValidationResult{IsValid: len(errs) == 0, Errors: errs, Warnings: warnings}
}

// NormalizeBillData rounds amounts to two places and cleans up text fields.
// An empty description stays empty; the store names such bills after their
// participants.
func NormalizeBillData(bill models.BillData) models.BillData {
	out := bill
	out.TotalAmount = calculator.Quantize(bill.TotalAmount)
	out.Description = strings.TrimSpace(bill.Description)
	out.Merchant = strings.TrimSpace(bill.Merchant)
	out.Currency = strings.ToUpper(strings.TrimSpace(bill.Currency))
	if out.Currency == "" {
		out.Currency = models.DefaultCurrency
	}

	out.Items = nil
	for _, it := range bill.Items {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		out.Items = append(out.Items, models.BillItem{
			Name:     strings.TrimSpace(it.Name),
			Amount:   calculator.Quantize(it.Amount),
			Quantity: qty,
		})
	}
	return out
}

// MergeBillData fills the empty or zero fields of fresh from previous.
func MergeBillData(previous *models.BillData, fresh models.BillData) models.BillData {
	if previous == nil {
		return fresh
	}
	merged := fresh
	if !merged.TotalAmount.IsPositive() {
		merged.TotalAmount = previous.TotalAmount
	}
	if strings.TrimSpace(merged.Description) == "" {
		merged.Description = previous.Description
	}
	if merged.Merchant == "" {
		merged.Merchant = previous.Merchant
	}
	if merged.Currency == "" {
		merged.Currency = previous.Currency
	}
	if merged.Date == nil {
		merged.Date = previous.Date
	}
	if len(merged.Items) == 0 {
		merged.Items = previous.Items
	}
	return merged
}

// BillSummary renders the bill for the user to confirm.
func BillSummary(bill models.BillData) string {
	lines := []string{"📋 *Bill Summary*", ""}
	if bill.Merchant != "" {
		lines = append(lines, "🏪 *Restaurant/Store:* "+bill.Merchant)
	}
	lines = append(lines, "💰 *Total Amount:* "+calculator.FormatAmount(bill.Currency, bill.TotalAmount))
	if bill.Date != nil {
		lines = append(lines, "📅 *Date:* "+bill.Date.Format("02 Jan 2006"))
	}
	if bill.Description != "" {
		lines = append(lines, "📝 *Description:* "+bill.Description)
	}

	if len(bill.Items) > 0 {
		lines = append(lines, "", "🛍️ *Items:*")
		for _, it := range bill.Items {
			amount := calculator.FormatAmount(bill.Currency, it.Amount)
			if it.Quantity > 1 {
				lines = append(lines, fmt.Sprintf("  • %s (x%d) - %s", it.Name, it.Quantity, amount))
			} else {
				lines = append(lines, fmt.Sprintf("  • %s - %s", it.Name, amount))
			}
		}
	}

	lines = append(lines, "", "Is this information correct? Reply *yes* to continue or *no* to make changes.")
	return strings.Join(lines, "\n")
}

// FallbackQuestions asks for whatever the partial bill is missing.
func FallbackQuestions(bill models.BillData) []string {
	var qs []string
	if !bill.TotalAmount.IsPositive() {
		qs = append(qs, "What was the total amount of the bill?")
	}
	if bill.Merchant == "" {
		qs = append(qs, "Which restaurant or store was this bill from?")
	}
	if bill.Description == "" {
		qs = append(qs, "Could you provide a brief description of what this bill is for?")
	}
	if len(bill.Items) == 0 {
		qs = append(qs, "What items were included in this bill? (This helps with splitting)")
	}
	if len(qs) == 0 {
		qs = append(qs, "Could you provide any additional details about this bill?")
	}
	if len(qs) > maxFallbackQuestions {
		qs = qs[:maxFallbackQuestions]
	}
	return qs
}

func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "• " + it
	}
	return strings.Join(lines, "\n")
}

func genericClarification(t models.MessageType) string {
	switch t {
	case models.MessageImage:
		return "I couldn't read the bill clearly from the image. Please try taking a clearer photo or tell me the total amount and description."
	case models.MessageVoice:
		return "I couldn't understand the bill details from your voice message. Please try speaking more clearly or send the information as text."
	default:
		return "I need more information about your bill. Please provide the total amount and a brief description."
	}
}

const exampleBill = "Example: 'Total: ₹150, Lunch at Pizza Palace'"

func fallbackInstructions(t models.MessageType) string {
	base := "I'm having trouble processing your bill information. "
	switch t {
	case models.MessageImage:
		return base + "Please try:\n• Taking a clearer, well-lit photo\n• Typing the bill details instead\n• " + exampleBill
	case models.MessageVoice:
		return base + "Please try:\n• Speaking more clearly and slowly\n• Typing the bill details instead\n• " + exampleBill
	default:
		return base + "Please provide the bill information in this format:\n'Total: ₹[amount], [description]'\n\n" + exampleBill
	}
}

func formatValidationErrors(result models.ValidationResult) string {
	if len(result.Errors) == 0 {
		return "Please provide more information about your bill."
	}
	msgs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		lower := strings.ToLower(e)
		switch {
		case strings.Contains(lower, "amount"):
			msgs = append(msgs, "Please provide a valid bill amount")
		case strings.Contains(lower, "description"):
			msgs = append(msgs, "Please provide a description of what the bill is for")
		default:
			msgs = append(msgs, e)
		}
	}
	return "I need to clarify a few things about your bill:\n\n" + bulletList(msgs)
}
