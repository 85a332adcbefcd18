package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

// maxClarificationAttempts is how many failed extractions get clarifying
// questions before the fixed-format instructions are sent instead.
const maxClarificationAttempts = 2

var billKeywords = []string{"bill", "amount", "total", "split", "pay", "₹", "$", "rs", "rupees"}

// containsBillInfo reports whether the message looks like it carries a bill.
func containsBillInfo(msg models.Message) bool {
	if msg.MessageType == models.MessageImage || msg.MessageType == models.MessageVoice {
		return true
	}
	return containsAny(normalized(msg.Content), billKeywords...)
}

// InitialHandler welcomes the user and waits for bill information.
type InitialHandler struct{}

func (h *InitialHandler) HandleMessage(_ context.Context, _ *models.ConversationState, msg models.Message) (StepResult, error) {
	if !containsBillInfo(msg) {
		return reply("Hi! I'm here to help you split bills with friends. Please send me your bill information - you can type the details, send a photo of the bill, or record a voice message."), nil
	}

	pending := &models.PendingInput{
		Content:     msg.Content,
		MessageType: msg.MessageType,
		Media:       msg.Media,
	}
	return moveTo(models.StepExtractingBill,
		"I see you've sent bill information. Let me process that for you...\n\nReply *ok* to continue, or send any extra details.",
		func(c *models.WorkflowContext) {
			c.InputType = msg.MessageType
			c.PendingInput = pending
		},
	), nil
}

func (h *InitialHandler) HelpMessage() string {
	return `I can help you split bills with friends! Here's how:

1. Send me your bill information by:
   • Typing the bill details (amount, description, participants)
   • Taking a photo of the bill
   • Recording a voice message with the details

2. I'll help you:
   • Extract the bill information
   • Collect participant contacts
   • Calculate splits
   • Send payment requests via WhatsApp/SMS

Just send me your bill information to get started!`
}

// ExtractionHandler turns the user's input into BillData, asking clarifying
// questions when the input is incomplete.
type ExtractionHandler struct {
	ai  AIService
	now func() time.Time
}

func (h *ExtractionHandler) HandleMessage(ctx context.Context, state *models.ConversationState, msg models.Message) (StepResult, error) {
	wc := state.Context
	input := extractionInput(wc.PendingInput, msg)
	clearPending := func(c *models.WorkflowContext) { c.PendingInput = nil }

	data, err := h.extract(ctx, input)
	if err != nil {
		if ctx.Err() != nil {
			return StepResult{}, ctx.Err()
		}
		slog.Warn("Bill extraction failed",
			"user_id", state.UserID,
			"message_type", input.MessageType,
			"attempt", wc.AttemptCount+1,
			"error", err,
		)
		return h.extractionFailed(ctx, state, input, err, clearPending), nil
	}

	data = MergeBillData(wc.PartialBillData, data)
	result := ValidateBillData(data, h.now())
	if result.IsValid {
		bill := NormalizeBillData(data)
		slog.Info("Bill extracted",
			"user_id", state.UserID,
			"total", bill.TotalAmount.StringFixed(2),
			"items", len(bill.Items),
		)
		return moveTo(models.StepConfirmingBill, BillSummary(bill), clearPending, func(c *models.WorkflowContext) {
			c.BillData = &bill
			c.PartialBillData = nil
			c.AwaitingClarification = false
			c.ExtractionFailed = false
			c.AttemptCount = 0
			c.ValidationErrors = nil
			c.ValidationWarnings = result.Warnings
			c.LastExtractionError = ""
		}), nil
	}

	content := formatValidationErrors(result)
	if wc.AwaitingClarification {
		content = "I still need some information:\n\n" + bulletList(h.questions(ctx, data))
	}
	partial := data
	return reply(content, clearPending, func(c *models.WorkflowContext) {
		c.PartialBillData = &partial
		c.ValidationErrors = result.Errors
		c.AttemptCount++
	}), nil
}

func (h *ExtractionHandler) extractionFailed(ctx context.Context, state *models.ConversationState, input models.Message, cause error, clearPending models.ContextUpdate) StepResult {
	wc := state.Context
	record := func(c *models.WorkflowContext) {
		c.AttemptCount++
		c.LastExtractionError = cause.Error()
	}

	if wc.AttemptCount >= maxClarificationAttempts {
		return reply(fallbackInstructions(input.MessageType), clearPending, record, func(c *models.WorkflowContext) {
			c.ExtractionFailed = true
		})
	}

	partial := models.BillData{Currency: models.DefaultCurrency}
	if wc.PartialBillData != nil {
		partial = *wc.PartialBillData
	}
	intro := "I need some clarification about your bill:"
	if input.MessageType != models.MessageText {
		intro = genericClarification(input.MessageType)
	}
	content := intro + "\n\n" + bulletList(h.questions(ctx, partial))
	return reply(content, clearPending, record, func(c *models.WorkflowContext) {
		c.AwaitingClarification = true
	})
}

// questions asks the AI what is missing and falls back to rule-based questions.
func (h *ExtractionHandler) questions(ctx context.Context, partial models.BillData) []string {
	qs, err := h.ai.GenerateClarifyingQuestions(ctx, partial)
	if err != nil {
		slog.Warn("Clarifying question generation failed", "error", err)
	}
	if len(qs) == 0 {
		qs = FallbackQuestions(partial)
	}
	return qs
}

func (h *ExtractionHandler) extract(ctx context.Context, msg models.Message) (models.BillData, error) {
	switch msg.MessageType {
	case models.MessageVoice:
		if len(msg.Media) == 0 {
			return models.BillData{}, errors.New("no audio data found in voice message")
		}
		return h.ai.ExtractFromVoice(ctx, msg.Media)
	case models.MessageImage:
		if len(msg.Media) == 0 {
			return models.BillData{}, errors.New("no image data found in image message")
		}
		return h.ai.ExtractFromImage(ctx, msg.Media)
	default:
		if strings.TrimSpace(msg.Content) == "" {
			return models.BillData{}, errors.New("empty message")
		}
		return h.ai.ExtractFromText(ctx, msg.Content)
	}
}

// extractionInput picks what to extract from: the bill held since the
// initial step, the new message, or both when they are text.
func extractionInput(pending *models.PendingInput, msg models.Message) models.Message {
	if pending == nil || msg.MessageType != models.MessageText {
		return msg
	}
	ack := isAcknowledgement(msg.Content)

	in := msg
	if pending.MessageType != models.MessageText {
		if !ack && containsBillInfo(msg) {
			return msg
		}
		in.MessageType = pending.MessageType
		in.Media = pending.Media
		in.Content = pending.Content
		return in
	}
	in.Content = pending.Content
	if !ack {
		in.Content = pending.Content + "\n" + msg.Content
	}
	return in
}

func isAcknowledgement(content string) bool {
	s := normalized(content)
	return s == "" || hasWord(s, "ok", "okay", "yes", "y", "sure", "continue", "go", "proceed")
}

func (h *ExtractionHandler) HelpMessage() string {
	return "I'm reading your bill. Send the total amount and a short description, for example:\n'Total: ₹150, Lunch at Pizza Palace'\n\nYou can also send a photo of the bill or a voice message. Type 'reset' to start over."
}

type billDecision int

const (
	billAmbiguous billDecision = iota
	billConfirmed
	billModify
)

// BillConfirmationHandler asks the user to confirm the extracted bill.
type BillConfirmationHandler struct {
	ai AIService
}

func (h *BillConfirmationHandler) HandleMessage(ctx context.Context, state *models.ConversationState, msg models.Message) (StepResult, error) {
	wc := state.Context
	if wc.BillData == nil {
		slog.Error("No bill data in context for confirmation", "user_id", state.UserID)
		return moveTo(models.StepExtractingBill, "I don't have any bill information to confirm. Please send me your bill details."), nil
	}

	decision, ambiguous := h.classify(ctx, msg)
	switch decision {
	case billConfirmed:
		var b strings.Builder
		b.WriteString("Perfect! ✅ Bill confirmed.\n\n")
		if len(wc.ValidationWarnings) > 0 {
			fmt.Fprintf(&b, "⚠️ *Note:* %s\n\n", strings.Join(wc.ValidationWarnings, "; "))
		}
		b.WriteString("Now I need the contact details for everyone who should pay. Please provide names and phone numbers for all participants.\n\n")
		b.WriteString("You can send them like:\n• John - +91 9876543210\n• Sarah - +91 9876543211")

		confirmedAt := msg.Timestamp
		return moveTo(models.StepCollectingContacts, b.String(), func(c *models.WorkflowContext) {
			c.BillConfirmed = true
			c.BillConfirmedAt = &confirmedAt
			c.BillRejected = false
			c.ContactCollectionStarted = false
			c.MissingQuestions = nil
			c.ProcessedParticipants = nil
		}), nil

	case billModify:
		previous := *wc.BillData
		return moveTo(models.StepExtractingBill,
			"No problem! What would you like to change about the bill?\n\nPlease send me the corrected bill information.",
			func(c *models.WorkflowContext) {
				c.BillRejected = true
				c.BillConfirmed = false
				c.PartialBillData = &previous
				c.AwaitingClarification = false
				c.AttemptCount = 0
			}), nil

	default:
		return reply(ambiguous, func(c *models.WorkflowContext) {
			c.ClarificationCount++
		}), nil
	}
}

// classify decides between confirm, modify and ambiguous. The AI intent is
// trusted above 0.6 confidence; keywords are used when the AI fails.
func (h *BillConfirmationHandler) classify(ctx context.Context, msg models.Message) (billDecision, string) {
	intent, err := h.ai.RecognizeIntent(ctx, msg, models.StepConfirmingBill)
	if err != nil {
		slog.Warn("Intent recognition failed, using keywords", "error", err)
		content := normalized(msg.Content)
		switch {
		case hasWord(content, "no", "not", "wrong", "change", "modify", "incorrect"):
			return billModify, ""
		case hasWord(content, "yes", "ok", "okay", "correct", "right", "confirm", "good"):
			return billConfirmed, ""
		}
		return billAmbiguous, "Please reply *yes* to confirm the bill details or *no* to make changes."
	}

	if intent.Confidence > 0.6 {
		switch strings.ToLower(intent.Intent) {
		case models.IntentConfirm, "confirm_bill":
			return billConfirmed, ""
		case models.IntentModify, "modify_bill":
			return billModify, ""
		}
	}
	slog.Debug("Ambiguous bill confirmation", "intent", intent.Intent, "confidence", intent.Confidence)
	return billAmbiguous, "I didn't understand your response. Please reply *yes* to confirm or *no* to make changes."
}

func (h *BillConfirmationHandler) HelpMessage() string {
	return "Please check the bill summary above.\n• Reply *yes* if it is correct\n• Reply *no* to change it\n\nType 'reset' to start over."
}
