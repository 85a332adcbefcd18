package ai

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

const amountExpr = `(\d{1,3}(?:,\d{2,3})+(?:\.\d{1,2})?|\d{1,7}(?:\.\d{1,2})?)`

var (
	labelledAmount = regexp.MustCompile(`(?i)\b(?:total|amount|bill|paid|spent|cost)\b[^\d₹$]{0,12}(?:₹|rs\.?|inr|\$)?\s*` + amountExpr)
	prefixedAmount = regexp.MustCompile(`(?i)(?:₹|\brs\.?|\binr|\$)\s*` + amountExpr)
	suffixedAmount = regexp.MustCompile(`(?i)` + amountExpr + `\s*(?:₹|\brs\b|\brupees\b|\binr\b|\bbucks\b)`)
	bareAmount     = regexp.MustCompile(`(?:^|[^\d.])` + amountExpr + `(?:[^\d]|$)`)
	merchantRe     = regexp.MustCompile(`\b(?:at|from)\s+([A-Z][\w'&]*(?:\s+[A-Z][\w'&]*)*)`)
	itemRe         = regexp.MustCompile(`(?i)^\s*([a-z][a-z ]*?)\s*(?:\bx\s*(\d+)\s+)?[-:]?\s*(?:₹|\brs\.?|\$)?\s*(\d+(?:\.\d{1,2})?)\s*$`)
	dollarRe       = regexp.MustCompile(`(?i)\$|\busd\b|\bdollars?\b`)
	segmentSplit   = regexp.MustCompile(`[\n;]+|,\s+`)
	wordRe         = regexp.MustCompile(`[a-z]+|[✓✅👍❌👎]`)
)

var billKeywords = []string{"total", "amount", "bill", "paid", "spent", "cost"}

// Heuristic extracts bills and intents with regular expressions.
// It is used when no AI backend is configured.
type Heuristic struct{}

// NewHeuristic creates a Heuristic adapter.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// ExtractFromText finds the bill total, description, merchant and items in text.
func (h *Heuristic) ExtractFromText(_ context.Context, text string) (models.BillData, error) {
	total, ok := findTotal(text)
	if !ok {
		return models.BillData{}, fmt.Errorf("no amount found in text: %w", ErrExtraction)
	}

	data := models.BillData{
		TotalAmount: total,
		Currency:    models.DefaultCurrency,
		Description: findDescription(text),
	}
	if dollarRe.MatchString(text) {
		data.Currency = "USD"
	}
	if m := merchantRe.FindStringSubmatch(text); m != nil {
		data.Merchant = strings.TrimSpace(m[1])
	}
	data.Items = findItems(text)
	return data, nil
}

// ExtractFromVoice is not supported without a speech backend.
func (h *Heuristic) ExtractFromVoice(_ context.Context, _ []byte) (models.BillData, error) {
	return models.BillData{}, fmt.Errorf("voice messages need a transcription backend: %w", ErrUnsupported)
}

// ExtractFromImage is not supported without a vision backend.
func (h *Heuristic) ExtractFromImage(_ context.Context, _ []byte) (models.BillData, error) {
	return models.BillData{}, fmt.Errorf("images need a vision backend: %w", ErrUnsupported)
}

// RecognizeIntent classifies a message by keywords.
func (h *Heuristic) RecognizeIntent(_ context.Context, msg models.Message, _ models.ConversationStep) (models.IntentResult, error) {
	return KeywordIntent(msg.Content), nil
}

// GenerateClarifyingQuestions returns no questions; callers fall back to
// their own rule-based questions.
func (h *Heuristic) GenerateClarifyingQuestions(_ context.Context, _ models.BillData) ([]string, error) {
	return nil, nil
}

// KeywordIntent classifies text by whole-word keywords.
func KeywordIntent(text string) models.IntentResult {
	words := make(map[string]bool)
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		words[w] = true
	}
	has := func(list ...string) bool {
		for _, w := range list {
			if words[w] {
				return true
			}
		}
		return false
	}

	// "isn't" and "didn't" split into "isn"/"didn" plus "t".
	negated := has("not", "no", "nope", "nah", "n", "isn", "didn", "haven", "never")

	switch {
	case !negated && has("paid", "done", "completed"):
		return models.IntentResult{Intent: models.IntentConfirmPayment, Confidence: 0.8, NextAction: "update_payment"}
	case negated || has("wrong", "change", "modify", "incorrect", "❌", "👎"):
		return models.IntentResult{Intent: models.IntentModify, Confidence: 0.7, NextAction: "ask_changes"}
	case has("yes", "ok", "okay", "correct", "right", "confirm", "good", "✓", "✅", "👍"):
		return models.IntentResult{Intent: models.IntentConfirm, Confidence: 0.7, NextAction: "proceed"}
	default:
		return models.IntentResult{Intent: models.IntentGeneral, Confidence: 0.5, NextAction: "ask_clarification"}
	}
}

func findTotal(text string) (decimal.Decimal, bool) {
	for _, re := range []*regexp.Regexp{labelledAmount, prefixedAmount, suffixedAmount} {
		if m := re.FindStringSubmatch(text); m != nil {
			if d, ok := parseAmount(m[1]); ok {
				return d, true
			}
		}
	}

	// Otherwise the largest plain number is most likely the total.
	var best decimal.Decimal
	found := false
	for _, m := range bareAmount.FindAllStringSubmatch(text, -1) {
		d, ok := parseAmount(m[1])
		if ok && (!found || d.GreaterThan(best)) {
			best = d
			found = true
		}
	}
	return best, found
}

func parseAmount(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, false
	}
	return d, true
}

func findDescription(text string) string {
	for _, seg := range segmentSplit.Split(text, -1) {
		seg = strings.TrimSpace(seg)
		if seg == "" || strings.ContainsAny(seg, "0123456789₹$") {
			continue
		}
		lower := strings.ToLower(seg)
		isLabel := false
		for _, k := range billKeywords {
			if strings.HasPrefix(lower, k) {
				isLabel = true
				break
			}
		}
		if !isLabel {
			return seg
		}
	}
	return ""
}

func findItems(text string) []models.BillItem {
	var items []models.BillItem
	for _, seg := range segmentSplit.Split(text, -1) {
		m := itemRe.FindStringSubmatch(seg)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		lower := strings.ToLower(name)
		skip := false
		for _, k := range billKeywords {
			if strings.HasPrefix(lower, k) {
				skip = true
				break
			}
		}
		if skip || name == "" {
			continue
		}
		amount, ok := parseAmount(m[3])
		if !ok {
			continue
		}
		qty := 1
		if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
			qty = n
		}
		items = append(items, models.BillItem{Name: name, Amount: amount, Quantity: qty})
	}
	return items
}
