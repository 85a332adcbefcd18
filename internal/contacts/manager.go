// Package contacts resolves bill participants to phone numbers, using the
// organizer's contact history and asking for whatever is still missing.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
	"github.com/padmaraj-kv/powersplit-sub000/internal/storage"
)

// Manager collects participant contact details backed by a ContactStore.
type Manager struct {
	store storage.ContactStore
}

// NewManager creates a contact manager.
func NewManager(store storage.ContactStore) *Manager {
	return &Manager{store: store}
}

// MissingPhoneQuestion is asked when a participant has no phone number.
func MissingPhoneQuestion(name string) string {
	return fmt.Sprintf("What is %s's phone number?", name)
}

// InvalidPhoneQuestion is asked when a participant's phone number is invalid.
func InvalidPhoneQuestion(name string) string {
	return fmt.Sprintf("Please provide a valid phone number for %s", name)
}

// CollectParticipants normalises phone numbers, fills missing ones from the
// user's contact history and saves valid ones as contacts. It returns every
// participant together with one question per participant still lacking a
// valid number.
func (m *Manager) CollectParticipants(ctx context.Context, userID string, participants []models.Participant) ([]models.Participant, []string, error) {
	out := models.CloneParticipants(participants)
	var questions []string

	for i := range out {
		p := &out[i]
		if p.PhoneNumber == "" {
			contact, err := m.store.FindContactByName(ctx, userID, p.Name)
			switch {
			case err == nil:
				p.PhoneNumber = contact.PhoneNumber
				p.ContactID = contact.ID
				slog.Debug("Participant phone filled from history", "user_id", userID, "participant", p.Name)
				continue
			case errors.Is(err, storage.ErrNotFound):
				questions = append(questions, MissingPhoneQuestion(p.Name))
				continue
			default:
				return nil, nil, fmt.Errorf("failed to look up contact %s: %w", p.Name, err)
			}
		}

		if !ValidPhone(p.PhoneNumber) {
			questions = append(questions, InvalidPhoneQuestion(p.Name))
			continue
		}
		p.PhoneNumber = NormalizePhone(p.PhoneNumber)
		if err := m.saveContact(ctx, userID, p); err != nil {
			return nil, nil, err
		}
	}

	slog.Info("Processed participants",
		"user_id", userID,
		"participants", len(out),
		"missing", len(questions),
	)
	return out, questions, nil
}

// HandleMissingContacts applies answers keyed by ResponseKey(name) to the
// participants without a valid phone number and returns the questions that
// remain unanswered.
func (m *Manager) HandleMissingContacts(ctx context.Context, userID string, participants []models.Participant, responses map[string]string) ([]models.Participant, []string, error) {
	out := models.CloneParticipants(participants)
	var remaining []string

	for i := range out {
		p := &out[i]
		if p.PhoneNumber != "" && ValidPhone(p.PhoneNumber) {
			continue
		}

		answer, ok := responses[ResponseKey(p.Name)]
		if !ok {
			remaining = append(remaining, MissingPhoneQuestion(p.Name))
			continue
		}
		if !ValidPhone(answer) {
			remaining = append(remaining, InvalidPhoneQuestion(p.Name))
			continue
		}

		p.PhoneNumber = NormalizePhone(answer)
		if err := m.saveContact(ctx, userID, p); err != nil {
			return nil, nil, err
		}
	}

	return out, remaining, nil
}

func (m *Manager) saveContact(ctx context.Context, userID string, p *models.Participant) error {
	contact := &models.Contact{UserID: userID, Name: p.Name, PhoneNumber: p.PhoneNumber}
	if err := m.store.UpsertContact(ctx, contact); err != nil {
		return fmt.Errorf("failed to save contact %s: %w", p.Name, err)
	}
	p.ContactID = contact.ID
	return nil
}
