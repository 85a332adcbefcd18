package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

// DefaultModel is used for chat and vision requests when none is configured.
const DefaultModel = openai.GPT4oMini

const extractionPrompt = `Extract bill information from the user's input.
Respond with a JSON object only:
{"total_amount": number, "description": string, "merchant": string or null,
 "date": "YYYY-MM-DD" or null, "currency": ISO code (default "INR"),
 "items": [{"name": string, "amount": number, "quantity": integer}]}
If no total can be found, set total_amount to 0.`

const intentPrompt = `Classify the user's message in a bill splitting chat.
The conversation is currently at step %q.
Intents: confirm, modify, confirm_payment, provide_bill, query_status, general.
Respond with a JSON object only:
{"intent": string, "confidence": number between 0 and 1, "entities": object of strings, "next_action": string}`

const questionsPrompt = `A user is splitting a bill. This is what was extracted so far:
%s
Ask at most 3 short questions that would fill in missing or unclear details.
Respond with a JSON object only: {"questions": [string]}`

// OpenAI implements bill extraction and intent recognition with the OpenAI
// chat, vision and transcription APIs.
type OpenAI struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAI creates an OpenAI adapter. An empty model selects DefaultModel
// and an empty baseURL selects the public API.
func NewOpenAI(apiKey, model, baseURL string, logger *slog.Logger) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

type extractedBill struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
	Description string          `json:"description"`
	Merchant    *string         `json:"merchant"`
	Date        *string         `json:"date"`
	Currency    string          `json:"currency"`
	Items       []struct {
		Name     string          `json:"name"`
		Amount   decimal.Decimal `json:"amount"`
		Quantity int             `json:"quantity"`
	} `json:"items"`
}

func (e extractedBill) billData() (models.BillData, error) {
	if !e.TotalAmount.IsPositive() {
		return models.BillData{}, fmt.Errorf("no positive total in model output: %w", ErrExtraction)
	}
	data := models.BillData{
		TotalAmount: e.TotalAmount,
		Description: strings.TrimSpace(e.Description),
		Currency:    strings.ToUpper(strings.TrimSpace(e.Currency)),
	}
	if data.Currency == "" {
		data.Currency = models.DefaultCurrency
	}
	if e.Merchant != nil {
		data.Merchant = strings.TrimSpace(*e.Merchant)
	}
	if e.Date != nil {
		if t, err := time.Parse(time.DateOnly, *e.Date); err == nil {
			data.Date = &t
		}
	}
	for _, it := range e.Items {
		if it.Name == "" {
			continue
		}
		data.Items = append(data.Items, models.BillItem{Name: it.Name, Amount: it.Amount, Quantity: it.Quantity})
	}
	return data, nil
}

// ExtractFromText extracts a bill from free text.
func (o *OpenAI) ExtractFromText(ctx context.Context, text string) (models.BillData, error) {
	var out extractedBill
	err := o.completeJSON(ctx, &out,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: extractionPrompt},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text},
	)
	if err != nil {
		return models.BillData{}, err
	}
	return out.billData()
}

// ExtractFromVoice transcribes the audio and extracts a bill from the transcript.
func (o *OpenAI) ExtractFromVoice(ctx context.Context, audio []byte) (models.BillData, error) {
	if len(audio) == 0 {
		return models.BillData{}, fmt.Errorf("empty audio: %w", ErrExtraction)
	}
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model: openai.Whisper1,
		// FilePath only names the upload; the content comes from Reader.
		FilePath: "audio.ogg",
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return models.BillData{}, fmt.Errorf("transcribe audio: %w", err)
	}
	transcript := strings.TrimSpace(resp.Text)
	if transcript == "" {
		return models.BillData{}, fmt.Errorf("empty transcript: %w", ErrExtraction)
	}
	o.logger.Debug("voice message transcribed", "chars", len(transcript))
	return o.ExtractFromText(ctx, transcript)
}

// ExtractFromImage reads a bill photo with the vision model.
func (o *OpenAI) ExtractFromImage(ctx context.Context, image []byte) (models.BillData, error) {
	if len(image) == 0 {
		return models.BillData{}, fmt.Errorf("empty image: %w", ErrExtraction)
	}
	dataURL := "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)

	var out extractedBill
	err := o.completeJSON(ctx, &out,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: extractionPrompt},
		openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: "This is a photo of the bill."},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailAuto,
				}},
			},
		},
	)
	if err != nil {
		return models.BillData{}, err
	}
	return out.billData()
}

// RecognizeIntent classifies the message in the context of the current step.
func (o *OpenAI) RecognizeIntent(ctx context.Context, msg models.Message, step models.ConversationStep) (models.IntentResult, error) {
	var out struct {
		Intent     string            `json:"intent"`
		Confidence float64           `json:"confidence"`
		Entities   map[string]string `json:"entities"`
		NextAction string            `json:"next_action"`
	}
	err := o.completeJSON(ctx, &out,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(intentPrompt, step)},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: msg.Content},
	)
	if err != nil {
		return models.IntentResult{}, err
	}
	return models.IntentResult{
		Intent:     strings.ToLower(strings.TrimSpace(out.Intent)),
		Confidence: out.Confidence,
		Entities:   out.Entities,
		NextAction: out.NextAction,
	}, nil
}

// GenerateClarifyingQuestions asks the model what is missing from a partial bill.
func (o *OpenAI) GenerateClarifyingQuestions(ctx context.Context, partial models.BillData) ([]string, error) {
	raw, err := json.Marshal(partial)
	if err != nil {
		return nil, err
	}
	var out struct {
		Questions []string `json:"questions"`
	}
	err = o.completeJSON(ctx, &out,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(questionsPrompt, raw)},
	)
	if err != nil {
		return nil, err
	}
	if len(out.Questions) > 3 {
		out.Questions = out.Questions[:3]
	}
	return out.Questions, nil
}

func (o *OpenAI) completeJSON(ctx context.Context, v any, msgs ...openai.ChatCompletionMessage) error {
	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("chat completion returned no choices: %w", ErrExtraction)
	}
	o.logger.Debug("chat completion",
		"model", o.model,
		"duration", time.Since(start),
		"tokens", resp.Usage.TotalTokens,
	)

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), v); err != nil {
		return fmt.Errorf("decode model output: %w: %v", ErrExtraction, err)
	}
	return nil
}
