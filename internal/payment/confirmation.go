// Package payment tracks payment confirmations from participants, notifies
// organizers and detects bill completion. It also sends the initial payment
// requests.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/padmaraj-kv/powersplit-sub000/internal/contacts"
	"github.com/padmaraj-kv/powersplit-sub000/internal/metrics"
	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
	"github.com/padmaraj-kv/powersplit-sub000/internal/notify"
	"github.com/padmaraj-kv/powersplit-sub000/internal/storage"
	"github.com/padmaraj-kv/powersplit-sub000/pkg/logging"
)

// DefaultLookback bounds how old a bill may be for confirmations to match it.
const DefaultLookback = 30 * 24 * time.Hour

const (
	reasonNotConfirmation = "Message does not appear to be a payment confirmation"
	reasonNoPending       = "No pending payments found for this phone number"
	reasonAlreadyDone     = "Payment already confirmed"
)

var confirmationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(done|paid|complete|completed|finished|confirmed|sent)\b`),
	regexp.MustCompile(`(?i)\bpayment\s+(done|made|sent|completed)\b`),
	regexp.MustCompile(`(?i)\bmoney\s+(sent|transferred|paid)\b`),
	regexp.MustCompile(`(?i)\bamount\s+(paid|sent|transferred)\b`),
	regexp.MustCompile(`✅|👍`),
}

var inquiryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(status|check|how much|amount|bill|payment)\b`),
	regexp.MustCompile(`(?i)\b(what.*owe|how.*much.*pay)\b`),
	regexp.MustCompile(`(?i)\b(bill.*details|payment.*info)\b`),
}

// Store is the persistence the confirmation service needs.
type Store interface {
	storage.BillStore
	storage.ParticipantStore
	storage.PaymentRequestStore
}

// Result describes the outcome of processing a payment confirmation.
type Result struct {
	Success       bool
	ParticipantID string
	BillID        string
	Amount        decimal.Decimal
	Currency      string

	// OrganizerNotified is true when the payment notification reached the organizer.
	OrganizerNotified bool

	// CompletionDetected is true only for the confirmation that made every
	// participant on the bill confirmed.
	CompletionDetected bool

	// CompletionNotified is true when the completion notification was
	// delivered and the bill was marked completed.
	CompletionNotified bool

	Error string
}

// ConfirmationService detects and records payment confirmations.
type ConfirmationService struct {
	store    Store
	sender   notify.Sender
	lookback time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics
}

// Option configures a ConfirmationService.
type Option func(*ConfirmationService)

// WithLookback sets how far back bills are searched for a phone number.
func WithLookback(d time.Duration) Option {
	return func(s *ConfirmationService) {
		if d > 0 {
			s.lookback = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *ConfirmationService) { s.now = now }
}

// WithMetrics records confirmation and completion metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ConfirmationService) { s.metrics = m }
}

// NewConfirmationService creates a confirmation service.
func NewConfirmationService(store Store, sender notify.Sender, opts ...Option) *ConfirmationService {
	s := &ConfirmationService{
		store:    store,
		sender:   sender,
		lookback: DefaultLookback,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsConfirmationMessage reports whether text reads as a payment confirmation.
func IsConfirmationMessage(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, re := range confirmationPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// IsInquiryMessage reports whether text asks about a bill or payment.
func IsInquiryMessage(text string) bool {
	for _, re := range inquiryPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// ActiveParticipants returns the unconfirmed participations of phone on
// active bills inside the lookback window, newest bill first.
func (s *ConfirmationService) ActiveParticipants(ctx context.Context, phone string) ([]models.BillParticipant, error) {
	phone = contacts.NormalizePhone(phone)
	if phone == "" {
		return nil, nil
	}
	participants, err := s.store.FindActiveParticipantsByPhone(ctx, phone, s.now().Add(-s.lookback))
	if err != nil {
		return nil, fmt.Errorf("failed to find active participants: %w", err)
	}
	return participants, nil
}

// ProcessConfirmationMessage records a payment confirmation sent from phone.
// Every active participation of the phone is processed; the first success is
// returned, otherwise the last failure. The error is non-nil only when the
// participations could not be looked up.
func (s *ConfirmationService) ProcessConfirmationMessage(ctx context.Context, phone, text string, ts time.Time) (Result, error) {
	if !IsConfirmationMessage(text) {
		return Result{Error: reasonNotConfirmation}, nil
	}

	participants, err := s.ActiveParticipants(ctx, phone)
	if err != nil {
		return Result{}, err
	}
	if len(participants) == 0 {
		slog.Info("No pending payments for phone", "phone", logging.MaskPhone(phone))
		s.metrics.Confirmation("no_match")
		return Result{Error: reasonNoPending}, nil
	}
	if ts.IsZero() {
		ts = s.now()
	}

	var first, last *Result
	for _, p := range participants {
		r := s.ConfirmParticipant(ctx, p, ts)
		if r.Success && first == nil {
			first = &r
		}
		if !r.Success {
			last = &r
		}
	}
	if first != nil {
		return *first, nil
	}
	return *last, nil
}

// ConfirmParticipant confirms one participation. Confirming an already confirmed
// participant succeeds without notifying anyone.
func (s *ConfirmationService) ConfirmParticipant(ctx context.Context, p models.BillParticipant, ts time.Time) Result {
	result := Result{ParticipantID: p.ID, BillID: p.BillID, Amount: p.AmountOwed}

	changed, err := s.store.ConfirmParticipant(ctx, p.ID, ts)
	if err != nil {
		slog.Error("Failed to confirm participant", "participant_id", p.ID, "error", err)
		s.metrics.Confirmation("error")
		result.Error = err.Error()
		return result
	}
	if !changed {
		slog.Info("Participant already confirmed", "participant_id", p.ID, "bill_id", p.BillID)
		s.metrics.Confirmation("duplicate")
		result.Success = true
		result.Error = reasonAlreadyDone
		return result
	}
	result.Success = true
	s.metrics.Confirmation("confirmed")

	s.markRequestConfirmed(ctx, p.ID, ts)

	bill, err := s.store.GetBill(ctx, p.BillID)
	if err != nil {
		// The confirmation is stored; notifications wait for the next event.
		slog.Error("Failed to load bill after confirmation", "bill_id", p.BillID, "error", err)
		return result
	}
	result.Currency = bill.Currency

	result.OrganizerNotified = s.notifyOrganizer(ctx, bill, p)

	if bill.AllConfirmed() {
		result.CompletionDetected = true
		s.metrics.Completion()
		result.CompletionNotified = s.completeBill(ctx, bill)
	}

	slog.Info("Payment confirmed",
		"participant_id", p.ID,
		"bill_id", bill.ID,
		"amount", p.AmountOwed.StringFixed(2),
		"organizer_notified", result.OrganizerNotified,
		"completion_detected", result.CompletionDetected,
	)
	return result
}

func (s *ConfirmationService) markRequestConfirmed(ctx context.Context, participantID string, ts time.Time) {
	req, err := s.store.LatestPaymentRequest(ctx, participantID)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		slog.Warn("Failed to load payment request", "participant_id", participantID, "error", err)
		return
	}
	req.MarkConfirmed(ts)
	if err := s.store.UpdatePaymentRequest(ctx, req); err != nil {
		slog.Warn("Failed to update payment request", "payment_request_id", req.ID, "error", err)
	}
}

func (s *ConfirmationService) notifyOrganizer(ctx context.Context, bill *models.Bill, p models.BillParticipant) bool {
	if bill.OrganizerPhone == "" {
		slog.Warn("No organizer phone for bill", "bill_id", bill.ID)
		return false
	}
	msg := PaymentNotification(p.Name, bill.Currency, p.AmountOwed, bill.Description)
	if _, err := s.sender.SendMessageWithFallback(ctx, bill.OrganizerPhone, msg); err != nil {
		slog.Error("Failed to send payment notification", "bill_id", bill.ID, "error", err)
		return false
	}
	return true
}

// completeBill sends the completion notification and marks the bill
// completed only when it was delivered.
func (s *ConfirmationService) completeBill(ctx context.Context, bill *models.Bill) bool {
	if bill.OrganizerPhone == "" {
		slog.Warn("No organizer phone for completion notification", "bill_id", bill.ID)
		return false
	}
	msg := CompletionNotification(bill)
	if _, err := s.sender.SendMessageWithFallback(ctx, bill.OrganizerPhone, msg); err != nil {
		slog.Warn("Bill complete but notification failed", "bill_id", bill.ID, "error", err)
		return false
	}
	if _, err := s.store.CompleteBill(ctx, bill.ID, s.now()); err != nil {
		slog.Error("Failed to mark bill completed", "bill_id", bill.ID, "error", err)
		return false
	}
	bill.Status = models.BillCompleted
	slog.Info("Bill completed", "bill_id", bill.ID)
	return true
}

// EnsureCompletion retries the completion notification for a bill whose
// participants have all confirmed but which is still active. It reports
// whether the bill is now completed.
func (s *ConfirmationService) EnsureCompletion(ctx context.Context, bill *models.Bill) bool {
	if bill.Status == models.BillCompleted {
		return true
	}
	if bill.Status != models.BillActive || !bill.AllConfirmed() {
		return false
	}
	return s.completeBill(ctx, bill)
}

// HandlePaymentInquiry answers a participant's question about what they owe.
// handled is false when text is not an inquiry or the phone has no active
// participation, so the caller can try other handling.
func (s *ConfirmationService) HandlePaymentInquiry(ctx context.Context, phone, text string) (string, bool, error) {
	if !IsInquiryMessage(text) {
		return "", false, nil
	}

	participants, err := s.ActiveParticipants(ctx, phone)
	if err != nil {
		return "", false, err
	}
	if len(participants) == 0 {
		return "", false, nil
	}

	p := participants[0]
	bill, err := s.store.GetBill(ctx, p.BillID)
	if errors.Is(err, storage.ErrNotFound) {
		return "Sorry, I couldn't find the bill details. Please contact the bill organizer.", true, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load bill for inquiry: %w", err)
	}

	link := ""
	if p.PaymentStatus != models.PaymentConfirmed {
		req, err := s.store.LatestPaymentRequest(ctx, p.ID)
		if err == nil {
			link = req.PaymentLink
		} else if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("Failed to load payment request", "participant_id", p.ID, "error", err)
		}
	}

	return ParticipantStatus(bill, p, link), true, nil
}
