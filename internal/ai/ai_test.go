package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

func TestHeuristicExtractFromText(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		total       string
		description string
		merchant    string
		currency    string
		items       int
	}{
		{
			name:        "labelled total with merchant",
			text:        "Total: ₹150, Lunch at Pizza Palace",
			total:       "150",
			description: "Lunch at Pizza Palace",
			merchant:    "Pizza Palace",
			currency:    "INR",
		},
		{
			name:     "dollar prefix",
			text:     "$45.50 for coffee",
			total:    "45.5",
			currency: "USD",
		},
		{
			name:     "rupees suffix with thousands separator",
			text:     "Dinner was 1,200 rupees",
			total:    "1200",
			currency: "INR",
		},
		{
			name:     "item lines with total",
			text:     "Pizza 200\nCoke 50\nTotal 250",
			total:    "250",
			currency: "INR",
			items:    2,
		},
		{
			name:     "largest bare number",
			text:     "we had 3 pizzas for 840",
			total:    "840",
			currency: "INR",
		},
	}

	h := NewHeuristic()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.ExtractFromText(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("ExtractFromText() error = %v", err)
			}
			if !got.TotalAmount.Equal(decimal.RequireFromString(tt.total)) {
				t.Errorf("TotalAmount = %s, want %s", got.TotalAmount, tt.total)
			}
			if tt.description != "" && got.Description != tt.description {
				t.Errorf("Description = %q, want %q", got.Description, tt.description)
			}
			if got.Merchant != tt.merchant {
				t.Errorf("Merchant = %q, want %q", got.Merchant, tt.merchant)
			}
			if got.Currency != tt.currency {
				t.Errorf("Currency = %q, want %q", got.Currency, tt.currency)
			}
			if len(got.Items) != tt.items {
				t.Errorf("len(Items) = %d, want %d", len(got.Items), tt.items)
			}
		})
	}
}

func TestHeuristicExtractFromTextNoAmount(t *testing.T) {
	_, err := NewHeuristic().ExtractFromText(context.Background(), "hello there")
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("error = %v, want ErrExtraction", err)
	}
}

func TestHeuristicIgnoresPhoneNumbers(t *testing.T) {
	_, err := NewHeuristic().ExtractFromText(context.Background(), "call 9876543210")
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("error = %v, want ErrExtraction", err)
	}
}

func TestHeuristicMediaUnsupported(t *testing.T) {
	h := NewHeuristic()
	if _, err := h.ExtractFromVoice(context.Background(), []byte("ogg")); !errors.Is(err, ErrUnsupported) {
		t.Errorf("ExtractFromVoice() error = %v, want ErrUnsupported", err)
	}
	if _, err := h.ExtractFromImage(context.Background(), []byte("png")); !errors.Is(err, ErrUnsupported) {
		t.Errorf("ExtractFromImage() error = %v, want ErrUnsupported", err)
	}
}

func TestFindItemsQuantity(t *testing.T) {
	items := findItems("Pizza x2 400, Tax 50, Colors 100")
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3: %+v", len(items), items)
	}
	if items[0].Name != "Pizza" || items[0].Quantity != 2 {
		t.Errorf("items[0] = %+v, want Pizza x2", items[0])
	}
	if items[1].Name != "Tax" || !items[1].Amount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("items[1] = %+v, want Tax 50", items[1])
	}
	if items[2].Name != "Colors" {
		t.Errorf("items[2].Name = %q, want Colors", items[2].Name)
	}
}

func TestKeywordIntent(t *testing.T) {
	tests := []struct {
		text       string
		intent     string
		confidence float64
	}{
		{"yes", models.IntentConfirm, 0.7},
		{"Looks good 👍", models.IntentConfirm, 0.7},
		{"No, change it", models.IntentModify, 0.7},
		{"that's wrong", models.IntentModify, 0.7},
		{"that's not right", models.IntentModify, 0.7},
		{"not correct", models.IntentModify, 0.7},
		{"nope", models.IntentModify, 0.7},
		{"it isn't ok", models.IntentModify, 0.7},
		{"not paid yet", models.IntentModify, 0.7},
		{"I know", models.IntentGeneral, 0.5},
		{"done", models.IntentConfirmPayment, 0.8},
		{"I paid", models.IntentConfirmPayment, 0.8},
		{"what?", models.IntentGeneral, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := KeywordIntent(tt.text)
			if got.Intent != tt.intent {
				t.Errorf("Intent = %q, want %q", got.Intent, tt.intent)
			}
			if got.Confidence != tt.confidence {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.confidence)
			}
		})
	}
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  DefaultModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
	}
}

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAI("test-key", "", srv.URL+"/v1", nil)
}

func TestOpenAIExtractFromText(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse(`{"total_amount": 420.5, "description": "Dinner", "merchant": "Spice Hub", "date": "2026-03-14", "currency": "inr", "items": [{"name": "Curry", "amount": 420.5, "quantity": 1}]}`))
	})

	got, err := o.ExtractFromText(context.Background(), "dinner at spice hub 420.50")
	if err != nil {
		t.Fatalf("ExtractFromText() error = %v", err)
	}
	if !got.TotalAmount.Equal(decimal.RequireFromString("420.5")) {
		t.Errorf("TotalAmount = %s, want 420.5", got.TotalAmount)
	}
	if got.Currency != "INR" {
		t.Errorf("Currency = %q, want INR", got.Currency)
	}
	if got.Merchant != "Spice Hub" {
		t.Errorf("Merchant = %q, want Spice Hub", got.Merchant)
	}
	if got.Date == nil || got.Date.Day() != 14 {
		t.Errorf("Date = %v, want 2026-03-14", got.Date)
	}
	if len(got.Items) != 1 {
		t.Errorf("len(Items) = %d, want 1", len(got.Items))
	}
}

func TestOpenAIExtractZeroTotal(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse(`{"total_amount": 0, "description": ""}`))
	})

	_, err := o.ExtractFromText(context.Background(), "hi")
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("error = %v, want ErrExtraction", err)
	}
}

func TestOpenAIExtractFromVoice(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/audio/transcriptions":
			json.NewEncoder(w).Encode(map[string]any{"text": "lunch was 300 rupees"})
		case "/v1/chat/completions":
			json.NewEncoder(w).Encode(chatResponse(`{"total_amount": 300, "description": "Lunch"}`))
		default:
			http.NotFound(w, r)
		}
	})

	got, err := o.ExtractFromVoice(context.Background(), []byte("OggS fake audio"))
	if err != nil {
		t.Fatalf("ExtractFromVoice() error = %v", err)
	}
	if !got.TotalAmount.Equal(decimal.NewFromInt(300)) {
		t.Errorf("TotalAmount = %s, want 300", got.TotalAmount)
	}
	if got.Currency != models.DefaultCurrency {
		t.Errorf("Currency = %q, want %q", got.Currency, models.DefaultCurrency)
	}
}

func TestOpenAIRecognizeIntent(t *testing.T) {
	var prompt string
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) > 0 {
			prompt = req.Messages[0].Content
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse(`{"intent": "Confirm", "confidence": 0.92, "next_action": "proceed"}`))
	})

	got, err := o.RecognizeIntent(context.Background(), models.Message{Content: "sounds right"}, models.StepConfirmingBill)
	if err != nil {
		t.Fatalf("RecognizeIntent() error = %v", err)
	}
	if got.Intent != models.IntentConfirm || got.Confidence != 0.92 {
		t.Errorf("RecognizeIntent() = %+v, want confirm 0.92", got)
	}
	if !strings.Contains(prompt, string(models.StepConfirmingBill)) {
		t.Errorf("system prompt does not mention the current step: %q", prompt)
	}
}

func TestOpenAIClarifyingQuestionsCapped(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse(`{"questions": ["a?", "b?", "c?", "d?"]}`))
	})

	got, err := o.GenerateClarifyingQuestions(context.Background(), models.BillData{})
	if err != nil {
		t.Fatalf("GenerateClarifyingQuestions() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("len(questions) = %d, want 3", len(got))
	}
}
