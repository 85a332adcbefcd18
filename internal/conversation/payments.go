package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/padmaraj-kv/powersplit-sub000/internal/calculator"
	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
	"github.com/padmaraj-kv/powersplit-sub000/internal/payment"
	"github.com/padmaraj-kv/powersplit-sub000/internal/storage"
)

const completeNote = "\n\n🎉 All payments for this bill are now complete!"

// SendingRequestsHandler persists the confirmed bill and sends a payment
// request to every participant.
type SendingRequestsHandler struct {
	requests RequestSender
	bills    BillLoader
}

func (h *SendingRequestsHandler) HandleMessage(ctx context.Context, state *models.ConversationState, msg models.Message) (StepResult, error) {
	wc := state.Context
	participants := wc.FinalParticipants
	if wc.BillData == nil || len(participants) == 0 {
		slog.Error("No confirmed splits in context for payment requests", "user_id", state.UserID)
		return moveTo(models.StepInitial,
			"I don't have the bill details anymore. Let's start over. Please send me your bill information.",
			models.ResetContext(true)), nil
	}

	if hasWord(normalized(msg.Content), "back", "change", "modify", "no") {
		if wc.BillID != "" {
			return reply("The bill has already been saved, so the splits can't be changed now. Reply *send* to retry the payment requests or *reset* to start over."), nil
		}
		return moveTo(models.StepConfirmingSplits,
			"Sure, let's review the splits again.\n\n"+calculator.FormatSplitConfirmation(*wc.BillData, participants),
			func(c *models.WorkflowContext) { c.SplitsConfirmed = false }), nil
	}

	var (
		bill    *models.Bill
		err     error
		updates []models.ContextUpdate
	)
	if wc.BillID == "" {
		organizerPhone := msg.SenderPhone()
		if organizerPhone == "" {
			organizerPhone = state.UserID
		}
		bill, err = h.requests.CreateBill(ctx, state.UserID, organizerPhone, *wc.BillData, participants)
		if err != nil {
			return StepResult{}, err
		}
		billID := bill.ID
		updates = append(updates, func(c *models.WorkflowContext) { c.BillID = billID })
	} else {
		bill, err = h.bills.GetBill(ctx, wc.BillID)
		if err != nil {
			return StepResult{}, fmt.Errorf("failed to load bill %s: %w", wc.BillID, err)
		}
	}

	summary, err := h.requests.SendRequests(ctx, bill, msg.Metadata[models.MetadataSenderName])
	if err != nil {
		// The bill is saved; keep its ID so the next attempt does not create it again.
		slog.Error("Failed to send payment requests", "bill_id", bill.ID, "error", err)
		return reply("I saved your bill but couldn't send the payment requests. Reply *send* to try again.", updates...), nil
	}

	statuses := make([]models.Participant, len(bill.Participants))
	for i, p := range bill.Participants {
		statuses[i] = p.Participant()
	}
	updates = append(updates, func(c *models.WorkflowContext) {
		c.CalculatedParticipants = statuses
		c.RequestsDelivered += summary.Delivered
		c.RequestsFailed = summary.Failed
		if summary.Delivered > 0 {
			c.RequestsSent = true
		}
	})

	content := formatDistribution(bill, summary)
	if summary.Delivered == 0 && summary.Failed > 0 {
		return reply(content+"\n\nI couldn't deliver any payment requests. Reply *send* to try again.", updates...), nil
	}
	return moveTo(models.StepTrackingPayments,
		content+"\n\nI'll let you know as people pay. Ask 'show status' any time to check progress.",
		updates...), nil
}

func formatDistribution(bill *models.Bill, summary payment.DistributionSummary) string {
	var b strings.Builder
	b.WriteString("📤 *Payment Requests*\n")
	fmt.Fprintf(&b, "📄 %s\n\n", bill.Description)
	for _, o := range summary.Outcomes {
		if o.Delivered {
			fmt.Fprintf(&b, "✅ %s - sent via %s\n", o.Name, o.Method)
		} else {
			fmt.Fprintf(&b, "❌ %s - not delivered\n", o.Name)
		}
	}
	fmt.Fprintf(&b, "\nDelivered: %d, Failed: %d", summary.Delivered, summary.Failed)
	return b.String()
}

func (h *SendingRequestsHandler) HelpMessage() string {
	return "I'm ready to send the payment requests.\n• Reply *send* to send them now\n• Reply *back* to change the splits\n\nType 'reset' to start over."
}

var statusPhrases = []string{
	"status", "show status", "bill status", "payment status",
	"who paid", "who hasn't paid", "check payments", "update",
}

// PaymentTrackingHandler records payment confirmations, answers inquiries
// and shows the organizer the payment status.
type PaymentTrackingHandler struct {
	payments PaymentTracker
	bills    BillLoader
}

func (h *PaymentTrackingHandler) HandleMessage(ctx context.Context, state *models.ConversationState, msg models.Message) (StepResult, error) {
	wc := state.Context

	if phone := msg.SenderPhone(); phone != "" {
		result, err := h.payments.ProcessConfirmationMessage(ctx, phone, msg.Content, msg.Timestamp)
		if err != nil {
			return StepResult{}, fmt.Errorf("failed to process payment confirmation: %w", err)
		}
		if result.Success {
			confirmed := result.ParticipantID
			update := func(c *models.WorkflowContext) { c.LastConfirmedParticipantID = confirmed }

			if result.CompletionDetected && result.BillID == wc.BillID {
				return moveTo(models.StepCompleted, payment.ConfirmationReply(result), update, func(c *models.WorkflowContext) {
					c.CompletionDetected = true
				}), nil
			}
			return reply(payment.ConfirmationReply(result), update), nil
		}

		answer, handled, err := h.payments.HandlePaymentInquiry(ctx, phone, msg.Content)
		if err != nil {
			return StepResult{}, fmt.Errorf("failed to answer payment inquiry: %w", err)
		}
		if handled {
			return reply(answer), nil
		}
	}

	if containsAny(normalized(msg.Content), statusPhrases...) {
		return h.status(ctx, state)
	}

	return reply("I'm currently tracking payments for your bill. Participants can reply 'DONE' when they've paid, or you can ask 'show status' to see the current payment status."), nil
}

func (h *PaymentTrackingHandler) status(ctx context.Context, state *models.ConversationState) (StepResult, error) {
	noBill := moveTo(models.StepInitial,
		"I don't have bill information available. Please start a new bill splitting session.",
		models.ResetContext(true))

	billID := state.Context.BillID
	if billID == "" {
		return noBill, nil
	}
	bill, err := h.bills.GetBill(ctx, billID)
	if errors.Is(err, storage.ErrNotFound) {
		return noBill, nil
	}
	if err != nil {
		return StepResult{}, fmt.Errorf("failed to load bill %s: %w", billID, err)
	}

	// A completion notification that failed earlier is retried here.
	if bill.AllConfirmed() && h.payments.EnsureCompletion(ctx, bill) {
		return moveTo(models.StepCompleted, payment.StatusOf(bill).Format()+completeNote, func(c *models.WorkflowContext) {
			c.CompletionDetected = true
		}), nil
	}
	return reply(payment.StatusOf(bill).Format()), nil
}

func (h *PaymentTrackingHandler) HelpMessage() string {
	return "I'm tracking payments for your bill.\n• Participants reply *DONE* once they've paid\n• Ask *show status* to see who has paid\n\nType 'reset' to start over."
}

var newBillPhrases = []string{"new bill", "another bill", "split another", "new split", "start over", "begin", "fresh start"}

// CompletionHandler answers once every participant has paid.
type CompletionHandler struct{}

func (h *CompletionHandler) HandleMessage(_ context.Context, _ *models.ConversationState, msg models.Message) (StepResult, error) {
	if containsAny(normalized(msg.Content), newBillPhrases...) {
		return moveTo(models.StepInitial,
			"Great! Let's start a new bill. Please send me the bill information - you can type the details, send a photo, or record a voice message.",
			models.ResetContext(false)), nil
	}
	return reply("Your previous bill has been completed! 🎉\n\nTo split a new bill, just send me the bill information. I can process text, photos, or voice messages."), nil
}

func (h *CompletionHandler) HelpMessage() string {
	return `Your previous bill has been completed successfully! 🎉

To split a new bill, you can:
• Type the bill details (amount, description, participants)
• Send a photo of the bill
• Record a voice message with the details

I'll help you through the entire process:
1. Extract bill information
2. Collect participant contacts
3. Calculate splits
4. Send payment requests
5. Track confirmations

Just send me your new bill information to get started!`
}
