package payment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/padmaraj-kv/powersplit-sub000/internal/calculator"
	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

func describe(description string) string {
	if description == "" {
		return "Shared Expense"
	}
	return description
}

// PaymentNotification tells the organizer that a participant has paid.
func PaymentNotification(name, currency string, amount decimal.Decimal, description string) string {
	return fmt.Sprintf(`✅ Payment Confirmed!

%s has confirmed payment of %s for "%s".

Great! One less person to follow up with. 😊

You can check the status of all payments by asking "show bill status".`,
		name, calculator.FormatAmount(currency, amount), describe(description))
}

// CompletionNotification tells the organizer that everyone has paid.
func CompletionNotification(bill *models.Bill) string {
	return fmt.Sprintf(`🎉 All Payments Complete!

Fantastic news! All %d participants have confirmed their payments for "%s".

💰 Total Amount: %s
✅ All payments confirmed

The bill is now complete. Thanks for using PowerSplit! 🙏`,
		len(bill.Participants), describe(bill.Description), calculator.FormatAmount(bill.Currency, bill.TotalAmount))
}

// ParticipantStatus is the answer to a participant's payment inquiry.
func ParticipantStatus(bill *models.Bill, p models.BillParticipant, link string) string {
	var b strings.Builder
	b.WriteString("📋 Your Bill Status\n\n")
	fmt.Fprintf(&b, "Bill: %s\n", describe(bill.Description))
	fmt.Fprintf(&b, "Your Amount: %s\n", calculator.FormatAmount(bill.Currency, p.AmountOwed))
	fmt.Fprintf(&b, "Status: %s\n\n", titleCase(string(p.PaymentStatus)))

	if p.PaymentStatus == models.PaymentConfirmed {
		b.WriteString("✅ Your payment has been confirmed. Thank you!")
		return b.String()
	}
	if link != "" {
		fmt.Fprintf(&b, "You can pay using this link:\n%s\n\n", link)
	}
	b.WriteString("Reply 'DONE' once you've completed the payment.")
	return b.String()
}

// PaymentRequestMessage is sent to a participant asking them to pay.
func PaymentRequestMessage(organizer string, bill *models.Bill, p models.BillParticipant, link string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s! 👋\n\n", p.Name)
	if organizer != "" {
		fmt.Fprintf(&b, "%s has split \"%s\" with you.\n", organizer, describe(bill.Description))
	} else {
		fmt.Fprintf(&b, "You've been added to the bill \"%s\".\n", describe(bill.Description))
	}
	fmt.Fprintf(&b, "💰 Your share: %s\n\n", calculator.FormatAmount(bill.Currency, p.AmountOwed))
	if link != "" {
		fmt.Fprintf(&b, "Pay here: %s\n\n", link)
	}
	b.WriteString("Reply 'DONE' once you've paid.")
	return b.String()
}

// ConfirmationReply is the chat reply to a participant whose payment was confirmed.
func ConfirmationReply(r Result) string {
	msg := fmt.Sprintf("✅ Thank you! Your payment of %s has been confirmed.", calculator.FormatAmount(r.Currency, r.Amount))
	if r.CompletionDetected {
		msg += "\n\n🎉 All payments for this bill are now complete!"
	}
	return msg
}

// BillStatus summarises the payment status of a bill for its organizer.
type BillStatus struct {
	BillID       string                   `json:"bill_id"`
	Description  string                   `json:"description"`
	Currency     string                   `json:"currency"`
	Status       models.BillStatus        `json:"status"`
	TotalAmount  decimal.Decimal          `json:"total_amount"`
	Collected    decimal.Decimal          `json:"collected"`
	Remaining    decimal.Decimal          `json:"remaining"`
	PaidCount    int                      `json:"paid_count"`
	PendingCount int                      `json:"pending_count"`
	Participants []ParticipantStatusEntry `json:"participants"`
	Stats        calculator.SplitStats    `json:"stats"`
}

// ParticipantStatusEntry is one line of a BillStatus.
type ParticipantStatusEntry struct {
	Name          string               `json:"name"`
	AmountOwed    decimal.Decimal      `json:"amount_owed"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
}

// StatusOf computes the live payment status of a bill.
func StatusOf(bill *models.Bill) BillStatus {
	st := BillStatus{
		BillID:      bill.ID,
		Description: describe(bill.Description),
		Currency:    bill.Currency,
		Status:      bill.Status,
		TotalAmount: bill.TotalAmount,
		Collected:   decimal.Zero,
	}
	split := make([]models.Participant, 0, len(bill.Participants))
	for _, p := range bill.Participants {
		split = append(split, p.Participant())
		st.Participants = append(st.Participants, ParticipantStatusEntry{
			Name:          p.Name,
			AmountOwed:    p.AmountOwed,
			PaymentStatus: p.PaymentStatus,
		})
		if p.PaymentStatus == models.PaymentConfirmed {
			st.PaidCount++
			st.Collected = st.Collected.Add(p.AmountOwed)
		} else {
			st.PendingCount++
		}
	}
	st.Stats = calculator.SummaryStats(split)
	st.Remaining = bill.TotalAmount.Sub(st.Collected)
	if st.Remaining.IsNegative() {
		st.Remaining = decimal.Zero
	}
	sort.SliceStable(st.Participants, func(i, j int) bool {
		return st.Participants[i].AmountOwed.GreaterThan(st.Participants[j].AmountOwed)
	})
	return st
}

// Format renders the status for chat.
func (st BillStatus) Format() string {
	var b strings.Builder
	b.WriteString("📊 *Bill Payment Status*\n")
	fmt.Fprintf(&b, "📄 %s\n", st.Description)
	fmt.Fprintf(&b, "💵 Total: %s\n\n", calculator.FormatAmount(st.Currency, st.TotalAmount))
	for i, p := range st.Participants {
		fmt.Fprintf(&b, "%d. %s: %s %s\n", i+1, p.Name,
			calculator.FormatAmount(st.Currency, p.AmountOwed), calculator.StatusEmoji(p.PaymentStatus))
	}
	fmt.Fprintf(&b, "\n✅ Paid: %d  ⏳ Pending: %d\n", st.PaidCount, st.PendingCount)
	fmt.Fprintf(&b, "💰 Collected: %s\n", calculator.FormatAmount(st.Currency, st.Collected))
	fmt.Fprintf(&b, "🧾 Remaining: %s", calculator.FormatAmount(st.Currency, st.Remaining))
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
