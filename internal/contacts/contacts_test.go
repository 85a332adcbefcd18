package contacts

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
	"github.com/padmaraj-kv/powersplit-sub000/internal/storage"
)

type memoryContacts struct {
	byKey map[string]*models.Contact
	next  int
}

func newMemoryContacts() *memoryContacts {
	return &memoryContacts{byKey: make(map[string]*models.Contact)}
}

func (m *memoryContacts) UpsertContact(_ context.Context, c *models.Contact) error {
	key := c.UserID + "/" + strings.ToLower(c.Name)
	if existing, ok := m.byKey[key]; ok {
		existing.PhoneNumber = c.PhoneNumber
		c.ID = existing.ID
		return nil
	}
	m.next++
	c.ID = fmt.Sprintf("contact-%d", m.next)
	stored := *c
	m.byKey[key] = &stored
	return nil
}

func (m *memoryContacts) FindContactByName(_ context.Context, userID, name string) (*models.Contact, error) {
	c, ok := m.byKey[userID+"/"+strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("contact not found: %s: %w", name, storage.ErrNotFound)
	}
	copied := *c
	return &copied, nil
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw   string
		want  string
		valid bool
	}{
		{"9876543210", "+919876543210", true},
		{"98765 43210", "+919876543210", true},
		{"919876543210", "+919876543210", true},
		{"09876543210", "+919876543210", true},
		{"+1 (650) 253-0000", "+16502530000", true},
		{"12345", "12345", false},
		{"+91 12345", "+9112345", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizePhone(tt.raw); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
			}
			if got := ValidPhone(tt.raw); got != tt.valid {
				t.Errorf("ValidPhone(%q) = %v, want %v", tt.raw, got, tt.valid)
			}
		})
	}
}

func TestParseParticipants(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantNames []string
		wantPhone map[string]string
	}{
		{
			name:      "names with and without phones",
			text:      "Alice 9876543210, Bob +91 98765 43211 and Charlie",
			wantNames: []string{"Alice", "Bob", "Charlie"},
			wantPhone: map[string]string{"Alice": "+919876543210", "Bob": "+919876543211", "Charlie": ""},
		},
		{
			name:      "leading filler and duplicates",
			text:      "split with Mary Jane; mary jane; Andrew",
			wantNames: []string{"Mary Jane", "Andrew"},
		},
		{
			name:      "dash separated",
			text:      "• John - +91 9876543210\n• Sarah - +91 9876543211",
			wantNames: []string{"John", "Sarah"},
			wantPhone: map[string]string{"John": "+919876543210", "Sarah": "+919876543211"},
		},
		{
			name:      "plain acknowledgement is not a name",
			text:      "ok",
			wantNames: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseParticipants(tt.text)
			if len(got) != len(tt.wantNames) {
				t.Fatalf("ParseParticipants(%q) = %+v, want names %v", tt.text, got, tt.wantNames)
			}
			for i, p := range got {
				if p.Name != tt.wantNames[i] {
					t.Errorf("participant %d = %q, want %q", i, p.Name, tt.wantNames[i])
				}
				if want, ok := tt.wantPhone[p.Name]; ok && p.PhoneNumber != want {
					t.Errorf("%s phone = %q, want %q", p.Name, p.PhoneNumber, want)
				}
			}
		})
	}
}

func TestParseContactResponses(t *testing.T) {
	got := ParseContactResponses("Bob: 9876543211, 9876543210", []string{"Alice", "Bob"})
	if got[ResponseKey("Bob")] != "9876543211" {
		t.Errorf("Bob = %q, want explicit pairing", got[ResponseKey("Bob")])
	}
	if got[ResponseKey("Alice")] != "9876543210" {
		t.Errorf("Alice = %q, want positional assignment", got[ResponseKey("Alice")])
	}
}

func TestManagerWorkflow(t *testing.T) {
	ctx := context.Background()
	store := newMemoryContacts()
	if err := store.UpsertContact(ctx, &models.Contact{UserID: "u1", Name: "Charlie", PhoneNumber: "+919000000003"}); err != nil {
		t.Fatalf("seed contact: %v", err)
	}
	m := NewManager(store)

	participants := []models.Participant{
		{Name: "Alice", PhoneNumber: "9876543210"},
		{Name: "Bob"},
		{Name: "charlie"},
		{Name: "Dave", PhoneNumber: "123"},
	}

	got, questions, err := m.CollectParticipants(ctx, "u1", participants)
	if err != nil {
		t.Fatalf("CollectParticipants failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d participants, want 4", len(got))
	}
	if got[0].PhoneNumber != "+919876543210" || got[0].ContactID == "" {
		t.Errorf("Alice = %+v, want normalised phone and contact id", got[0])
	}
	if got[2].PhoneNumber != "+919000000003" {
		t.Errorf("charlie phone = %q, want filled from history", got[2].PhoneNumber)
	}
	wantQuestions := []string{MissingPhoneQuestion("Bob"), InvalidPhoneQuestion("Dave")}
	if strings.Join(questions, "|") != strings.Join(wantQuestions, "|") {
		t.Errorf("questions = %v, want %v", questions, wantQuestions)
	}
	if participants[0].PhoneNumber != "9876543210" {
		t.Errorf("input participants were modified")
	}

	got, remaining, err := m.HandleMissingContacts(ctx, "u1", got, map[string]string{
		ResponseKey("Bob"):  "98765 43211",
		ResponseKey("Dave"): "555",
	})
	if err != nil {
		t.Fatalf("HandleMissingContacts failed: %v", err)
	}
	if got[1].PhoneNumber != "+919876543211" {
		t.Errorf("Bob phone = %q", got[1].PhoneNumber)
	}
	if len(remaining) != 1 || remaining[0] != InvalidPhoneQuestion("Dave") {
		t.Errorf("remaining = %v, want only Dave", remaining)
	}

	got, remaining, err = m.HandleMissingContacts(ctx, "u1", got, map[string]string{ResponseKey("Dave"): "+1 650 253 0000"})
	if err != nil {
		t.Fatalf("HandleMissingContacts failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("remaining = %v, want none", remaining)
	}
	if got[3].PhoneNumber != "+16502530000" {
		t.Errorf("Dave phone = %q", got[3].PhoneNumber)
	}
}
