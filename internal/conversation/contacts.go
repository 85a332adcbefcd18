package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/padmaraj-kv/powersplit-sub000/internal/contacts"
	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

const participantFormat = "You can send them like:\n• John - +91 9876543210\n• Sarah - +91 9876543211"

// ContactCollectionHandler gathers participants and their phone numbers.
type ContactCollectionHandler struct {
	contacts ContactManager
}

func (h *ContactCollectionHandler) HandleMessage(ctx context.Context, state *models.ConversationState, msg models.Message) (StepResult, error) {
	wc := state.Context
	if wc.BillData == nil {
		slog.Error("No bill data in context for contact collection", "user_id", state.UserID)
		return moveTo(models.StepInitial,
			"I don't have bill information. Let's start over. Please send me your bill details.",
			models.ResetContext(true)), nil
	}

	if !wc.ContactCollectionStarted {
		return h.start(ctx, state, msg)
	}
	return h.answer(ctx, state, msg)
}

func (h *ContactCollectionHandler) start(ctx context.Context, state *models.ConversationState, msg models.Message) (StepResult, error) {
	participants := contacts.ParseParticipants(msg.Content)
	if len(participants) == 0 {
		return reply("I couldn't find any participants in your message. Please send the names and phone numbers of everyone who should pay.\n\n" + participantFormat), nil
	}

	updated, questions, err := h.contacts.CollectParticipants(ctx, state.UserID, participants)
	if err != nil {
		return StepResult{}, fmt.Errorf("failed to collect participants: %w", err)
	}

	if len(questions) > 0 {
		return reply(
			fmt.Sprintf("I need some contact information:\n\n%s\n\nPlease provide the missing phone numbers.", bulletList(questions)),
			func(c *models.WorkflowContext) {
				c.ContactCollectionStarted = true
				c.MissingQuestions = questions
				c.ProcessedParticipants = updated
			}), nil
	}

	return contactsComplete(
		fmt.Sprintf("Great! I have contact information for all %d participants. Let's calculate the splits.", len(updated)),
		updated), nil
}

func (h *ContactCollectionHandler) answer(ctx context.Context, state *models.ConversationState, msg models.Message) (StepResult, error) {
	processed := state.Context.ProcessedParticipants

	var pending []string
	for _, p := range processed {
		if p.PhoneNumber == "" || !contacts.ValidPhone(p.PhoneNumber) {
			pending = append(pending, p.Name)
		}
	}
	responses := contacts.ParseContactResponses(msg.Content, pending)

	final, remaining, err := h.contacts.HandleMissingContacts(ctx, state.UserID, processed, responses)
	if err != nil {
		return StepResult{}, fmt.Errorf("failed to apply contact answers: %w", err)
	}

	if len(remaining) > 0 {
		return reply(
			fmt.Sprintf("I still need:\n\n%s\n\nPlease provide the missing information.", bulletList(remaining)),
			func(c *models.WorkflowContext) {
				c.MissingQuestions = remaining
				c.ProcessedParticipants = final
			}), nil
	}

	return contactsComplete(
		fmt.Sprintf("Perfect! I now have contact information for all %d participants. Let's calculate the splits.", len(final)),
		final), nil
}

func contactsComplete(content string, participants []models.Participant) StepResult {
	content += "\n\nReply *equal* to split the bill equally, or send custom amounts like 'John ₹50, Sarah ₹100'."
	return moveTo(models.StepCalculatingSplits, content, func(c *models.WorkflowContext) {
		c.ContactsCollected = true
		c.MissingQuestions = nil
		c.ProcessedParticipants = participants
		c.FinalParticipants = participants
		c.CalculatedParticipants = nil
		c.SplitsCalculated = false
	})
}

func (h *ContactCollectionHandler) HelpMessage() string {
	return "Send me the name and phone number of everyone who should pay.\n\n" + participantFormat + "\n\nType 'reset' to start over."
}
