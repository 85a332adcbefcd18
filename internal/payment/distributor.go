package payment

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/padmaraj-kv/powersplit-sub000/internal/metrics"
	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
	"github.com/padmaraj-kv/powersplit-sub000/internal/notify"
	"github.com/padmaraj-kv/powersplit-sub000/pkg/logging"
)

// LinkGenerator builds the payment link included in a payment request.
type LinkGenerator interface {
	PaymentLink(bill *models.Bill, p models.BillParticipant) (string, error)
}

// UPILinkGenerator builds upi://pay deep links to a fixed payee.
type UPILinkGenerator struct {
	VPA  string
	Name string
}

// PaymentLink returns a UPI deep link for the participant's share.
func (g UPILinkGenerator) PaymentLink(bill *models.Bill, p models.BillParticipant) (string, error) {
	if g.VPA == "" {
		return "", fmt.Errorf("payee VPA is not configured")
	}
	q := url.Values{}
	q.Set("pa", g.VPA)
	if g.Name != "" {
		q.Set("pn", g.Name)
	}
	q.Set("am", p.AmountOwed.StringFixed(2))
	q.Set("cu", bill.Currency)
	q.Set("tn", describe(bill.Description))
	return "upi://pay?" + q.Encode(), nil
}

// DeliveryOutcome is the result of sending one payment request.
type DeliveryOutcome struct {
	ParticipantID string
	Name          string
	Delivered     bool
	Method        models.DeliveryMethod
	Error         string
}

// DistributionSummary reports the payment requests sent for a bill.
type DistributionSummary struct {
	BillID    string
	Delivered int
	Failed    int
	Outcomes  []DeliveryOutcome
}

// Distributor persists confirmed bills and sends payment requests.
type Distributor struct {
	store   Store
	sender  notify.Sender
	links   LinkGenerator
	metrics *metrics.Metrics
}

// NewDistributor creates a Distributor. links may be nil, in which case
// requests are sent without a payment link.
func NewDistributor(store Store, sender notify.Sender, links LinkGenerator, m *metrics.Metrics) *Distributor {
	return &Distributor{store: store, sender: sender, links: links, metrics: m}
}

// CreateBill persists a bill with its participants for an organizer.
func (d *Distributor) CreateBill(ctx context.Context, organizerID, organizerPhone string, data models.BillData, participants []models.Participant) (*models.Bill, error) {
	bill := &models.Bill{
		OrganizerID:    organizerID,
		OrganizerPhone: organizerPhone,
		TotalAmount:    data.TotalAmount,
		Description:    data.Description,
		Currency:       data.Currency,
		Merchant:       data.Merchant,
		BillDate:       data.Date,
		Items:          data.Items,
		Status:         models.BillActive,
	}
	for _, p := range participants {
		bill.Participants = append(bill.Participants, models.BillParticipant{
			Name:          p.Name,
			PhoneNumber:   p.PhoneNumber,
			ContactID:     p.ContactID,
			AmountOwed:    p.AmountOwed,
			PaymentStatus: models.PaymentPending,
		})
	}
	if err := d.store.CreateBill(ctx, bill); err != nil {
		return nil, fmt.Errorf("failed to create bill: %w", err)
	}
	slog.Info("Bill created", "bill_id", bill.ID, "organizer_id", organizerID, "participants", len(bill.Participants))
	return bill, nil
}

// SendRequests sends a payment request to every participant that has not
// been reached yet (pending or failed). Participant statuses in bill are
// updated to match what was stored.
func (d *Distributor) SendRequests(ctx context.Context, bill *models.Bill, organizer string) (DistributionSummary, error) {
	summary := DistributionSummary{BillID: bill.ID}

	for i := range bill.Participants {
		p := &bill.Participants[i]
		if p.PaymentStatus == models.PaymentSent || p.PaymentStatus == models.PaymentConfirmed {
			continue
		}

		outcome, err := d.sendOne(ctx, bill, p, organizer)
		if err != nil {
			return summary, err
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
		if outcome.Delivered {
			summary.Delivered++
			d.metrics.PaymentRequest("sent")
		} else {
			summary.Failed++
			d.metrics.PaymentRequest("failed")
		}
	}

	slog.Info("Payment requests sent",
		"bill_id", bill.ID,
		"delivered", summary.Delivered,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (d *Distributor) sendOne(ctx context.Context, bill *models.Bill, p *models.BillParticipant, organizer string) (DeliveryOutcome, error) {
	outcome := DeliveryOutcome{ParticipantID: p.ID, Name: p.Name}

	link := ""
	if d.links != nil {
		l, err := d.links.PaymentLink(bill, *p)
		if err != nil {
			slog.Warn("Payment link unavailable", "participant_id", p.ID, "error", err)
		} else {
			link = l
		}
	}

	req := &models.PaymentRequest{
		BillID:        bill.ID,
		ParticipantID: p.ID,
		PaymentLink:   link,
		Status:        models.PaymentPending,
	}
	if err := d.store.CreatePaymentRequest(ctx, req); err != nil {
		return outcome, fmt.Errorf("failed to create payment request: %w", err)
	}

	status := models.PaymentSent
	if p.PhoneNumber == "" {
		status = models.PaymentFailed
		req.LastError = notify.ErrNoRecipient.Error()
	} else {
		delivery, err := d.sender.SendMessageWithFallback(ctx, p.PhoneNumber, PaymentRequestMessage(organizer, bill, *p, link))
		req.DeliveryAttempts = delivery.Attempts
		if err != nil {
			status = models.PaymentFailed
			req.LastError = err.Error()
			slog.Warn("Payment request delivery failed",
				"participant_id", p.ID,
				"phone", logging.MaskPhone(p.PhoneNumber),
				"error", err,
			)
		} else {
			req.DeliveryMethod = delivery.Method
			outcome.Method = delivery.Method
		}
	}

	req.Status = status
	if err := d.store.UpdatePaymentRequest(ctx, req); err != nil {
		return outcome, fmt.Errorf("failed to update payment request: %w", err)
	}
	if err := d.store.UpdateParticipantStatus(ctx, p.ID, status); err != nil {
		return outcome, fmt.Errorf("failed to update participant status: %w", err)
	}
	p.PaymentStatus = status

	outcome.Delivered = status == models.PaymentSent
	outcome.Error = req.LastError
	return outcome, nil
}
