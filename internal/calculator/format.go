package calculator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// FormatAmount renders amount with the currency symbol and two decimals.
// An empty currency is treated as INR.
func FormatAmount(currency string, amount decimal.Decimal) string {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	if sym, ok := currencySymbols[strings.ToUpper(currency)]; ok {
		return sym + amount.StringFixed(Precision)
	}
	return strings.ToUpper(currency) + " " + amount.StringFixed(Precision)
}

// StatusEmoji maps a payment status to its display marker.
func StatusEmoji(status models.PaymentStatus) string {
	switch status {
	case models.PaymentPending:
		return "⏳"
	case models.PaymentSent:
		return "📤"
	case models.PaymentConfirmed:
		return "✅"
	case models.PaymentFailed:
		return "❌"
	default:
		return "❓"
	}
}

// FormatSplitDisplay renders the split summary. Participants are listed by
// amount, highest first; ties keep their input order.
func FormatSplitDisplay(bill models.BillData, participants []models.Participant) string {
	if len(participants) == 0 {
		return "No participants found for display"
	}

	description := bill.Description
	if description == "" {
		description = "Bill"
	}

	var b strings.Builder
	b.WriteString("💰 *Bill Split Summary*\n")
	fmt.Fprintf(&b, "📄 %s\n", description)
	fmt.Fprintf(&b, "💵 Total: %s\n", FormatAmount(bill.Currency, bill.TotalAmount))
	fmt.Fprintf(&b, "👥 %d participants\n\n", len(participants))
	b.WriteString("*Individual Amounts:*\n")

	sorted := models.CloneParticipants(participants)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AmountOwed.GreaterThan(sorted[j].AmountOwed)
	})
	for i, p := range sorted {
		fmt.Fprintf(&b, "%d. %s: %s %s\n", i+1, p.Name, FormatAmount(bill.Currency, p.AmountOwed), StatusEmoji(p.PaymentStatus))
	}

	total := SumAmounts(participants)
	fmt.Fprintf(&b, "\n*Total splits: %s*", FormatAmount(bill.Currency, total))

	if diff := bill.TotalAmount.Sub(total).Abs(); diff.GreaterThan(Tolerance) {
		fmt.Fprintf(&b, "\n⚠️ _Difference from bill total: %s_", FormatAmount(bill.Currency, diff))
	}
	return b.String()
}

// FormatSplitConfirmation appends the confirmation prompt to the split display.
func FormatSplitConfirmation(bill models.BillData, participants []models.Participant) string {
	lines := []string{
		FormatSplitDisplay(bill, participants),
		"",
		"*Please confirm these splits:*",
		"• Reply *yes* to proceed with payment requests",
		"• Reply *no* or *change* to modify the amounts",
		"• You can also specify custom amounts like: 'John ₹50, Sarah ₹100'",
	}
	return strings.Join(lines, "\n")
}

// SplitStats summarises a set of splits.
type SplitStats struct {
	TotalParticipants int             `json:"total_participants"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	AverageAmount     decimal.Decimal `json:"average_amount"`
	MinAmount         decimal.Decimal `json:"min_amount"`
	MaxAmount         decimal.Decimal `json:"max_amount"`
	PendingCount      int             `json:"pending_count"`
	SentCount         int             `json:"sent_count"`
	ConfirmedCount    int             `json:"confirmed_count"`
	FailedCount       int             `json:"failed_count"`
}

// SummaryStats computes totals and status counts. It returns the zero value
// for an empty participant list.
func SummaryStats(participants []models.Participant) SplitStats {
	if len(participants) == 0 {
		return SplitStats{}
	}

	stats := SplitStats{
		TotalParticipants: len(participants),
		TotalAmount:       SumAmounts(participants),
		MinAmount:         participants[0].AmountOwed,
		MaxAmount:         participants[0].AmountOwed,
	}
	for _, p := range participants {
		if p.AmountOwed.LessThan(stats.MinAmount) {
			stats.MinAmount = p.AmountOwed
		}
		if p.AmountOwed.GreaterThan(stats.MaxAmount) {
			stats.MaxAmount = p.AmountOwed
		}
		switch p.PaymentStatus {
		case models.PaymentPending:
			stats.PendingCount++
		case models.PaymentSent:
			stats.SentCount++
		case models.PaymentConfirmed:
			stats.ConfirmedCount++
		case models.PaymentFailed:
			stats.FailedCount++
		}
	}
	stats.AverageAmount = stats.TotalAmount.DivRound(decimal.NewFromInt(int64(len(participants))), Precision)
	return stats
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
