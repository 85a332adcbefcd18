// Package service exposes the conversation engine over Connect RPC.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/padmaraj-kv/powersplit-sub000/internal/conversation"
	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
	"github.com/padmaraj-kv/powersplit-sub000/internal/payment"
	"github.com/padmaraj-kv/powersplit-sub000/internal/storage"
	"github.com/padmaraj-kv/powersplit-sub000/pkg/logging"
)

// DefaultSessionTimeout is how long an idle conversation is kept before it
// starts over.
const DefaultSessionTimeout = 24 * time.Hour

const defaultSessionID = "default"

// Processor runs one message through the conversation state machine.
type Processor interface {
	ProcessMessage(ctx context.Context, state *models.ConversationState, msg models.Message) models.Response
}

// PaymentDesk answers payment confirmations and inquiries from participants.
type PaymentDesk interface {
	ActiveParticipants(ctx context.Context, phone string) ([]models.BillParticipant, error)
	ProcessConfirmationMessage(ctx context.Context, phone, text string, ts time.Time) (payment.Result, error)
	HandlePaymentInquiry(ctx context.Context, phone, text string) (string, bool, error)
}

// MessageService loads the sender's conversation, runs the message through
// the state machine and persists the result.
type MessageService struct {
	store    storage.ConversationStore
	machine  Processor
	payments PaymentDesk
	timeout  time.Duration
	now      func() time.Time
}

// Option configures a MessageService.
type Option func(*MessageService)

// WithSessionTimeout sets how long an idle session survives.
func WithSessionTimeout(d time.Duration) Option {
	return func(s *MessageService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *MessageService) { s.now = now }
}

// NewMessageService creates a MessageService. payments may be nil, which
// disables the payment pre-check.
func NewMessageService(store storage.ConversationStore, machine Processor, payments PaymentDesk, opts ...Option) *MessageService {
	s := &MessageService{
		store:    store,
		machine:  machine,
		payments: payments,
		timeout:  DefaultSessionTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process handles one inbound message for a session and returns the reply
// together with the updated state.
func (s *MessageService) Process(ctx context.Context, sessionID string, msg models.Message) (models.Response, *models.ConversationState, error) {
	state, err := s.loadState(ctx, msg.UserID, sessionID)
	if err != nil {
		return models.Response{}, nil, err
	}

	if resp, ok := s.precheckPayment(ctx, state, msg); ok {
		return resp, state, nil
	}

	resp := s.machine.ProcessMessage(ctx, state, msg)

	state.UpdatedAt = s.now()
	if err := s.store.SaveConversation(ctx, state); err != nil {
		return models.Response{}, nil, fmt.Errorf("failed to save conversation: %w", err)
	}
	return resp, state, nil
}

// loadState returns the stored state, a fresh one when none exists, or a
// fresh one when the stored session has been idle past the timeout.
func (s *MessageService) loadState(ctx context.Context, userID, sessionID string) (*models.ConversationState, error) {
	now := s.now()
	state, err := s.store.GetConversation(ctx, userID, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Info("Starting conversation", "user_id", userID, "session_id", sessionID)
		return models.NewConversationState(userID, sessionID, now), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	if now.Sub(state.UpdatedAt) > s.timeout {
		slog.Info("Conversation expired, starting over",
			"user_id", userID,
			"session_id", sessionID,
			"step", state.CurrentStep,
			"idle", now.Sub(state.UpdatedAt).Round(time.Minute).String(),
		)
		fresh := models.NewConversationState(userID, sessionID, now)
		fresh.CreatedAt = state.CreatedAt
		return fresh, nil
	}
	return state, nil
}

// precheckPayment lets participants confirm payments or ask what they owe
// without disturbing the sender's own bill conversation. It only runs while
// the sender's session is idle.
func (s *MessageService) precheckPayment(ctx context.Context, state *models.ConversationState, msg models.Message) (models.Response, bool) {
	phone := msg.SenderPhone()
	if s.payments == nil || phone == "" {
		return models.Response{}, false
	}
	if state.CurrentStep != models.StepInitial && state.CurrentStep != models.StepCompleted {
		return models.Response{}, false
	}

	active, err := s.payments.ActiveParticipants(ctx, phone)
	if err != nil {
		slog.Warn("Payment pre-check failed", "phone", logging.MaskPhone(phone), "error", err)
		return models.Response{}, false
	}
	if len(active) == 0 {
		return models.Response{}, false
	}

	result, err := s.payments.ProcessConfirmationMessage(ctx, phone, msg.Content, msg.Timestamp)
	if err != nil {
		slog.Warn("Payment confirmation failed", "phone", logging.MaskPhone(phone), "error", err)
		return models.Response{}, false
	}
	if result.Success {
		return models.TextResponse(payment.ConfirmationReply(result)), true
	}

	answer, handled, err := s.payments.HandlePaymentInquiry(ctx, phone, msg.Content)
	if err != nil {
		slog.Warn("Payment inquiry failed", "phone", logging.MaskPhone(phone), "error", err)
		return models.Response{}, false
	}
	if handled {
		return models.TextResponse(answer), true
	}
	return models.Response{}, false
}

// HandleMessage implements the HandleMessage RPC.
func (s *MessageService) HandleMessage(ctx context.Context, req *connect.Request[HandleMessageRequest]) (*connect.Response[HandleMessageResponse], error) {
	msg, sessionID, err := toMessage(req.Msg, s.now())
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	resp, state, err := s.Process(ctx, sessionID, msg)
	if err != nil {
		slog.Error("HandleMessage failed", "user_id", msg.UserID, "session_id", sessionID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&HandleMessageResponse{
		Content:     resp.Content,
		MessageType: string(resp.MessageType),
		CurrentStep: string(state.CurrentStep),
	}), nil
}

// GetConversation implements the GetConversation RPC.
func (s *MessageService) GetConversation(ctx context.Context, req *connect.Request[GetConversationRequest]) (*connect.Response[GetConversationResponse], error) {
	userID := strings.TrimSpace(req.Msg.UserID)
	if userID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("user_id is required"))
	}
	sessionID := sessionOrDefault(req.Msg.SessionID)

	state, err := s.store.GetConversation(ctx, userID, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	if err != nil {
		slog.Error("GetConversation failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&GetConversationResponse{
		UserID:          state.UserID,
		SessionID:       state.SessionID,
		CurrentStep:     string(state.CurrentStep),
		StepDescription: conversation.StepDescription(state.CurrentStep),
		RetryCount:      state.RetryCount,
		MessageCount:    state.Context.MessageCount,
		BillID:          state.Context.BillID,
		UpdatedAt:       state.UpdatedAt,
	}), nil
}

func toMessage(req *HandleMessageRequest, now time.Time) (models.Message, string, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return models.Message{}, "", errors.New("user_id is required")
	}

	msgType := models.MessageType(strings.ToLower(strings.TrimSpace(req.MessageType)))
	switch msgType {
	case "":
		msgType = models.MessageText
	case models.MessageText, models.MessageVoice, models.MessageImage:
	default:
		return models.Message{}, "", fmt.Errorf("unsupported message_type %q", req.MessageType)
	}

	msg := models.Message{
		ID:          req.MessageID,
		UserID:      userID,
		Content:     req.Content,
		MessageType: msgType,
		Timestamp:   req.Timestamp,
		Media:       req.Media,
		Metadata:    map[string]string{},
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	if req.SenderPhone != "" {
		msg.Metadata[models.MetadataSenderPhone] = req.SenderPhone
	}
	if req.SenderName != "" {
		msg.Metadata[models.MetadataSenderName] = req.SenderName
	}
	return msg, sessionOrDefault(req.SessionID), nil
}

func sessionOrDefault(sessionID string) string {
	if s := strings.TrimSpace(sessionID); s != "" {
		return s
	}
	return defaultSessionID
}
