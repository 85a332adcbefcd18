package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/padmaraj-kv/powersplit-sub000/internal/calculator"
	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

var inlineAmountPattern = regexp.MustCompile(`[₹$]\s*\d+|\d+\s*[₹$]|\d+\.\d{2}`)

const customAmountFormat = "'John ₹50, Sarah ₹100'"

// SplitCalculationHandler computes equal or custom splits.
type SplitCalculationHandler struct{}

func (h *SplitCalculationHandler) HandleMessage(_ context.Context, state *models.ConversationState, msg models.Message) (StepResult, error) {
	wc := state.Context
	if wc.BillData == nil {
		slog.Error("No bill data in context for split calculation", "user_id", state.UserID)
		return moveTo(models.StepInitial, "I don't have bill information. Let's start over.", models.ResetContext(true)), nil
	}
	if len(wc.FinalParticipants) == 0 {
		slog.Error("No participants in context for split calculation", "user_id", state.UserID)
		return moveTo(models.StepCollectingContacts, "I don't have participant information. Let's collect contacts first.\n\n"+participantFormat,
			func(c *models.WorkflowContext) {
				c.ContactCollectionStarted = false
				c.ContactsCollected = false
			}), nil
	}

	bill := *wc.BillData
	equal, err := calculator.CalculateEqualSplits(bill, wc.FinalParticipants)
	if err != nil {
		return StepResult{}, fmt.Errorf("failed to calculate equal splits: %w", err)
	}

	if !isCustomSplitRequest(msg.Content, wc.FinalParticipants) {
		result := calculator.ValidateSplits(bill, equal)
		if !result.IsValid {
			slog.Error("Equal split validation failed", "user_id", state.UserID, "errors", result.Errors)
			return reply("I encountered an error calculating equal splits. Please try again or contact support."), nil
		}
		return splitsReady(bill, equal, models.SplitEqual, result), nil
	}

	amounts := calculator.ParseCustomAmounts(msg.Content, wc.FinalParticipants)
	if len(amounts) == 0 {
		return reply("I couldn't understand the custom amounts. Please use format like:\n" + customAmountFormat + "\n\nOr reply 'equal' for equal splits."), nil
	}

	// Participants without an override keep their equal share.
	custom, err := calculator.ApplyCustomSplits(bill, equal, amounts)
	if err != nil {
		return reply(fmt.Sprintf("There are issues with your custom splits:\n\n• %s\n\nPlease provide corrected amounts or reply 'equal' for equal splits.", err)), nil
	}
	result := calculator.ValidateSplits(bill, custom)
	if !result.IsValid {
		errs := result.Errors
		return reply(
			"There are issues with your custom splits:\n\n"+bulletList(errs)+"\n\nPlease provide corrected amounts or reply 'equal' for equal splits.",
			func(c *models.WorkflowContext) { c.CustomSplitErrors = errs }), nil
	}
	return splitsReady(bill, custom, models.SplitCustom, result), nil
}

func splitsReady(bill models.BillData, participants []models.Participant, kind models.SplitType, result models.ValidationResult) StepResult {
	return moveTo(models.StepConfirmingSplits, calculator.FormatSplitConfirmation(bill, participants), func(c *models.WorkflowContext) {
		c.SplitsCalculated = true
		c.SplitType = kind
		c.CalculatedParticipants = participants
		c.CustomSplitErrors = nil
		c.ValidationWarnings = result.Warnings
	})
}

// isCustomSplitRequest decides between equal and custom splits. An explicit
// request for equal splits always wins.
func isCustomSplitRequest(content string, participants []models.Participant) bool {
	s := normalized(content)
	if containsAny(s, "equal", "same", "split equally", "divide equally") {
		return false
	}
	if containsAny(s, "₹", "should pay", ":") || inlineAmountPattern.MatchString(s) {
		return true
	}
	if hasWord(s, "rs", "rupees", "custom", "different", "change", "adjust", "more", "less", "owes") {
		return true
	}
	return len(calculator.ParseCustomAmounts(content, participants)) > 0
}

func (h *SplitCalculationHandler) HelpMessage() string {
	return "How should the bill be split?\n• Reply *equal* to split it equally\n• Or send custom amounts like " + customAmountFormat + "\n\nType 'reset' to start over."
}

var (
	splitYesWords   = []string{"yes", "y", "ok", "okay", "confirm", "confirmed", "correct", "right", "good", "perfect", "proceed", "send"}
	splitYesPhrases = []string{"looks good", "go ahead", "✓", "✅", "👍"}
	splitNoWords    = []string{"no", "n", "nope", "not", "wrong", "incorrect", "change", "modify", "adjust", "different", "recalculate", "redo", "back"}
	splitNoPhrases  = []string{"❌", "👎"}
)

func isSplitYes(s string) bool {
	return hasWord(s, splitYesWords...) || containsAny(s, splitYesPhrases...)
}

func isSplitNo(s string) bool {
	return hasWord(s, splitNoWords...) || containsAny(s, splitNoPhrases...)
}

// SplitConfirmationHandler asks the organizer to approve the splits.
type SplitConfirmationHandler struct{}

func (h *SplitConfirmationHandler) HandleMessage(_ context.Context, state *models.ConversationState, msg models.Message) (StepResult, error) {
	wc := state.Context
	if len(wc.CalculatedParticipants) == 0 || wc.BillData == nil {
		slog.Error("No calculated splits in context", "user_id", state.UserID)
		return moveTo(models.StepCalculatingSplits,
			"I don't have calculated splits. Let me calculate them first.\n\nReply *equal* for equal splits or send custom amounts like "+customAmountFormat+"."), nil
	}
	bill := *wc.BillData
	current := wc.CalculatedParticipants
	s := normalized(msg.Content)

	if inlineAmountPattern.MatchString(msg.Content) {
		return h.adjust(bill, current, msg.Content), nil
	}

	switch {
	case isSplitNo(s):
		return moveTo(models.StepCalculatingSplits,
			"No problem! Let's recalculate the splits.\n\nYou can:\n• Reply 'equal' for equal splits\n• Specify custom amounts like: "+customAmountFormat+"\n• Or tell me what changes you'd like to make",
			func(c *models.WorkflowContext) {
				c.SplitsCalculated = false
				c.SplitsConfirmed = false
			}), nil

	case isSplitYes(s):
		var b strings.Builder
		b.WriteString("Perfect! ✅ Splits confirmed.\n\n")
		if len(wc.ValidationWarnings) > 0 {
			fmt.Fprintf(&b, "⚠️ *Note:* %s\n\n", strings.Join(wc.ValidationWarnings, "; "))
		}
		fmt.Fprintf(&b, "I'll now send payment requests to all %d participants. Reply *send* to send them now, or *back* to change the splits.", len(current))
		return moveTo(models.StepSendingRequests, b.String(), func(c *models.WorkflowContext) {
			c.SplitsConfirmed = true
			c.FinalParticipants = current
		}), nil
	}

	content := "I need a clear confirmation. Here are the current splits:\n\n" +
		calculator.FormatSplitDisplay(bill, current) +
		"\n\nPlease reply:\n• *yes* to confirm and send payment requests\n• *no* to modify the splits\n• Or specify custom amounts like " + customAmountFormat
	return reply(content, func(c *models.WorkflowContext) { c.ClarificationCount++ }), nil
}

// adjust applies inline custom amounts and shows the result for confirmation.
func (h *SplitConfirmationHandler) adjust(bill models.BillData, current []models.Participant, content string) StepResult {
	amounts := calculator.ParseCustomAmounts(content, current)
	if len(amounts) == 0 {
		return reply("I couldn't understand the custom amounts. Please use format like:\n" + customAmountFormat + "\n\nOr reply 'yes' to confirm the current splits, or 'no' to recalculate.")
	}

	updated, err := calculator.ApplyCustomSplits(bill, current, amounts)
	if err != nil {
		return reply(fmt.Sprintf("There are issues with your custom amounts:\n\n• %s\n\nPlease provide corrected amounts or reply 'yes' to use the previous splits.", err))
	}
	result := calculator.ValidateSplits(bill, updated)
	if !result.IsValid {
		errs := result.Errors
		return reply(
			"There are issues with your custom amounts:\n\n"+bulletList(errs)+"\n\nPlease provide corrected amounts or reply 'yes' to use the previous splits.",
			func(c *models.WorkflowContext) { c.CustomSplitErrors = errs })
	}

	return reply("Updated splits:\n\n"+calculator.FormatSplitConfirmation(bill, updated), func(c *models.WorkflowContext) {
		c.CalculatedParticipants = updated
		c.SplitType = models.SplitCustomAdjusted
		c.CustomSplitErrors = nil
		c.ValidationWarnings = result.Warnings
	})
}

func (h *SplitConfirmationHandler) HelpMessage() string {
	return "Please review the splits above.\n• Reply *yes* to confirm and send payment requests\n• Reply *no* to recalculate\n• Or send custom amounts like " + customAmountFormat + "\n\nType 'reset' to start over."
}
