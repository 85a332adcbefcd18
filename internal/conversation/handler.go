// Package conversation drives the bill splitting dialogue: one StepHandler
// per conversation step and a StateMachine that routes each inbound message
// to the handler for the session's current step.
package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
	"github.com/padmaraj-kv/powersplit-sub000/internal/payment"
)

// StepResult is what a handler produced for one message.
type StepResult struct {
	Response models.Response

	// NextStep is nil when the conversation stays at the current step.
	NextStep *models.ConversationStep

	// Updates are applied to the workflow context in order.
	Updates []models.ContextUpdate
}

// StepHandler handles messages for exactly one conversation step.
// A returned error is treated as a transient handler failure.
type StepHandler interface {
	HandleMessage(ctx context.Context, state *models.ConversationState, msg models.Message) (StepResult, error)
	HelpMessage() string
}

// AIService extracts bills and recognises intents.
type AIService interface {
	RecognizeIntent(ctx context.Context, msg models.Message, step models.ConversationStep) (models.IntentResult, error)
	ExtractFromText(ctx context.Context, text string) (models.BillData, error)
	ExtractFromVoice(ctx context.Context, audio []byte) (models.BillData, error)
	ExtractFromImage(ctx context.Context, image []byte) (models.BillData, error)
	GenerateClarifyingQuestions(ctx context.Context, partial models.BillData) ([]string, error)
}

// ContactManager resolves participants to phone numbers.
type ContactManager interface {
	CollectParticipants(ctx context.Context, userID string, participants []models.Participant) ([]models.Participant, []string, error)
	HandleMissingContacts(ctx context.Context, userID string, participants []models.Participant, responses map[string]string) ([]models.Participant, []string, error)
}

// PaymentTracker records payment confirmations and answers inquiries.
type PaymentTracker interface {
	ProcessConfirmationMessage(ctx context.Context, phone, text string, ts time.Time) (payment.Result, error)
	HandlePaymentInquiry(ctx context.Context, phone, text string) (string, bool, error)
	EnsureCompletion(ctx context.Context, bill *models.Bill) bool
}

// RequestSender persists confirmed bills and sends payment requests.
type RequestSender interface {
	CreateBill(ctx context.Context, organizerID, organizerPhone string, data models.BillData, participants []models.Participant) (*models.Bill, error)
	SendRequests(ctx context.Context, bill *models.Bill, organizer string) (payment.DistributionSummary, error)
}

// BillLoader loads a persisted bill with its participants.
type BillLoader interface {
	GetBill(ctx context.Context, id string) (*models.Bill, error)
}

var (
	resetCommands = []string{"reset", "start over", "restart", "begin again", "new bill"}
	helpCommands  = []string{"help", "?", "what can you do", "commands"}
)

const resetResponse = "Starting over. Please send me your bill information."

func normalized(content string) string {
	return strings.ToLower(strings.TrimSpace(content))
}

// IsResetCommand reports whether the whole message is a reset phrase.
func IsResetCommand(content string) bool {
	return matchesExactly(normalized(content), resetCommands)
}

// IsHelpCommand reports whether the whole message is a help phrase.
func IsHelpCommand(content string) bool {
	return matchesExactly(normalized(content), helpCommands)
}

func matchesExactly(s string, phrases []string) bool {
	for _, p := range phrases {
		if s == p {
			return true
		}
	}
	return false
}

// handleGlobal answers the reset and help commands that every step accepts.
func handleGlobal(h StepHandler, msg models.Message) (StepResult, bool) {
	switch {
	case IsResetCommand(msg.Content):
		return StepResult{
			Response: models.TextResponse(resetResponse),
			NextStep: models.StepInitial.Ptr(),
			Updates:  []models.ContextUpdate{models.ResetContext(false)},
		}, true
	case IsHelpCommand(msg.Content):
		return reply(h.HelpMessage()), true
	}
	return StepResult{}, false
}

// withGlobal wraps a handler so the global commands are recognised before
// any step-specific logic runs.
type withGlobal struct {
	StepHandler
}

func (g withGlobal) HandleMessage(ctx context.Context, state *models.ConversationState, msg models.Message) (StepResult, error) {
	if res, ok := handleGlobal(g.StepHandler, msg); ok {
		return res, nil
	}
	return g.StepHandler.HandleMessage(ctx, state, msg)
}

func reply(content string, updates ...models.ContextUpdate) StepResult {
	return StepResult{Response: models.TextResponse(content), Updates: updates}
}

func moveTo(step models.ConversationStep, content string, updates ...models.ContextUpdate) StepResult {
	return StepResult{Response: models.TextResponse(content), NextStep: step.Ptr(), Updates: updates}
}

// containsAny reports whether s contains any of the phrases as a substring.
func containsAny(s string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// hasWord reports whether any of words appears in s as a whole word.
func hasWord(s string, words ...string) bool {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?' || r == '\n' || r == '\t'
	})
	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}
