// Package notify defines the outbound messaging contract and a development
// sender that only logs.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
	"github.com/padmaraj-kv/powersplit-sub000/pkg/logging"
)

// ErrNoRecipient is returned when a message has no destination phone number.
var ErrNoRecipient = errors.New("no recipient phone number")

// Delivery describes a successful send.
type Delivery struct {
	// Method is the channel that finally delivered the message.
	Method models.DeliveryMethod

	// FallbackUsed is true when the primary channel failed.
	FallbackUsed bool

	// Attempts counts delivery attempts across channels.
	Attempts int
}

// Sender delivers a text message to a phone number, falling back to a
// secondary channel when the primary one fails. A non-nil error means the
// message was not delivered on any channel.
type Sender interface {
	SendMessageWithFallback(ctx context.Context, phone, text string) (Delivery, error)
}

// SentMessage is a message recorded by LogSender.
type SentMessage struct {
	Phone string
	Text  string
}

// LogSender logs messages instead of delivering them and keeps them in memory.
// It stands in for the WhatsApp/SMS gateway in development.
type LogSender struct {
	mu   sync.Mutex
	sent []SentMessage
}

// NewLogSender creates a LogSender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// SendMessageWithFallback records the message and reports WhatsApp delivery.
func (s *LogSender) SendMessageWithFallback(ctx context.Context, phone, text string) (Delivery, error) {
	if phone == "" {
		return Delivery{}, ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return Delivery{}, err
	}

	s.mu.Lock()
	s.sent = append(s.sent, SentMessage{Phone: phone, Text: text})
	s.mu.Unlock()

	slog.Info("Outbound message", "phone", logging.MaskPhone(phone), "chars", len(text))
	return Delivery{Method: models.DeliveryWhatsApp, Attempts: 1}, nil
}

// Sent returns a copy of the recorded messages.
func (s *LogSender) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentMessage, len(s.sent))
	copy(out, s.sent)
	return out
}
