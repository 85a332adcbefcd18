package contacts

import (
	"regexp"
	"strings"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

var (
	phonePattern     = regexp.MustCompile(`\+?\d[\d\s\-()]{8,16}\d`)
	participantSplit = regexp.MustCompile(`(?i)\s*(?:,|;|\n|\band\b|&)\s*`)
	nameCleanup      = regexp.MustCompile(`[^\p{L}\s.'-]`)
	namePrefix       = regexp.MustCompile(`(?i)^(?:with|between|for|split|among|it|this|the|us|me|participants?|people|friends?)\b[\s:]*`)
)

// Replies that are never participant names.
var notNames = map[string]bool{
	"yes": true, "no": true, "ok": true, "okay": true, "sure": true,
	"done": true, "none": true, "nobody": true, "thanks": true, "thank you": true,
}

// ParseParticipants extracts participants from free text such as
// "Alice 9876543210, Bob +91 98765 43211 and Charlie". Phone numbers are
// optional; names without a letter are ignored. Duplicate names keep the
// first occurrence.
func ParseParticipants(text string) []models.Participant {
	var participants []models.Participant
	seen := make(map[string]bool)

	for _, segment := range participantSplit.Split(text, -1) {
		phone := phonePattern.FindString(segment)
		name := segment
		if phone != "" {
			name = strings.Replace(name, phone, " ", 1)
		}
		name = nameCleanup.ReplaceAllString(name, " ")
		name = strings.Join(strings.Fields(name), " ")
		for {
			trimmed := strings.TrimSpace(namePrefix.ReplaceAllString(name, ""))
			if trimmed == name {
				break
			}
			name = trimmed
		}
		name = strings.TrimSpace(strings.Trim(name, ".'- "))
		if name == "" || notNames[strings.ToLower(name)] {
			continue
		}

		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true

		p := models.Participant{Name: name, PaymentStatus: models.PaymentPending}
		if phone != "" {
			p.PhoneNumber = NormalizePhone(phone)
		}
		participants = append(participants, p)
	}
	return participants
}

// ResponseKey is the key under which an answer for name is stored in the
// responses passed to HandleMissingContacts.
func ResponseKey(name string) string {
	return name + "_phone"
}

// ParseContactResponses maps phone numbers in text to the named participants.
// An explicit "Name: number" or "Name number" pairing wins; remaining numbers
// are assigned to the remaining names in order.
func ParseContactResponses(text string, pending []string) map[string]string {
	responses := make(map[string]string)
	var unassigned []string

	for _, segment := range participantSplit.Split(text, -1) {
		phone := phonePattern.FindString(segment)
		if phone == "" {
			continue
		}
		rest := strings.ToLower(strings.Replace(segment, phone, " ", 1))
		matched := false
		for _, name := range pending {
			if _, done := responses[ResponseKey(name)]; done {
				continue
			}
			if containsWord(rest, strings.ToLower(name)) {
				responses[ResponseKey(name)] = strings.TrimSpace(phone)
				matched = true
				break
			}
		}
		if !matched {
			unassigned = append(unassigned, strings.TrimSpace(phone))
		}
	}

	for _, name := range pending {
		if len(unassigned) == 0 {
			break
		}
		if _, done := responses[ResponseKey(name)]; done {
			continue
		}
		responses[ResponseKey(name)] = unassigned[0]
		unassigned = unassigned[1:]
	}
	return responses
}

func containsWord(haystack, word string) bool {
	if word == "" {
		return false
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(word) + `\b`)
	if err != nil {
		return strings.Contains(haystack, word)
	}
	return re.MatchString(haystack)
}
