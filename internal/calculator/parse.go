package calculator

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

// Matches "Name ₹50", "Name 50", "Name: 50", "Name - 50" and "Name rs 50".
// The rs token needs a word boundary so names like "Lars" keep their ending.
var customAmountRe = regexp.MustCompile(`(?i)([a-z][a-z ]*?)\s*[:\-]?\s*(?:₹\s*|\$\s*|\brs\.?\s*)?(\d+(?:\.\d{1,2})?)`)

// ParseCustomAmounts extracts per-participant amounts from free text.
// Names are matched case-insensitively against participants; a match
// segment that does not equal a participant name is retried with its
// leading words dropped, so "and Bob 35" still resolves to Bob.
// Unknown names and non-positive amounts are skipped. The result is keyed
// by the participant's name as stored.
func ParseCustomAmounts(content string, participants []models.Participant) map[string]decimal.Decimal {
	byName := make(map[string]string, len(participants))
	for _, p := range participants {
		byName[strings.ToLower(strings.TrimSpace(p.Name))] = p.Name
	}

	amounts := make(map[string]decimal.Decimal)
	for _, m := range customAmountRe.FindAllStringSubmatch(content, -1) {
		name, ok := resolveName(m[1], byName)
		if !ok {
			continue
		}
		amount, err := decimal.NewFromString(m[2])
		if err != nil {
			slog.Warn("Invalid custom amount", "value", m[2], "error", err)
			continue
		}
		if !amount.IsPositive() {
			continue
		}
		amounts[name] = amount
	}

	slog.Debug("Parsed custom amounts", "count", len(amounts))
	return amounts
}

func resolveName(segment string, byName map[string]string) (string, bool) {
	words := strings.Fields(strings.ToLower(segment))
	for i := range words {
		if name, ok := byName[strings.Join(words[i:], " ")]; ok {
			return name, true
		}
	}
	return "", false
}
