package conversation

import (
	"time"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

// Deps are the collaborators the step handlers need.
type Deps struct {
	AI       AIService
	Contacts ContactManager
	Payments PaymentTracker
	Requests RequestSender
	Bills    BillLoader

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewHandlers builds the handler for every conversation step.
func NewHandlers(d Deps) map[models.ConversationStep]StepHandler {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return map[models.ConversationStep]StepHandler{
		models.StepInitial:            &InitialHandler{},
		models.StepExtractingBill:     &ExtractionHandler{ai: d.AI, now: now},
		models.StepConfirmingBill:     &BillConfirmationHandler{ai: d.AI},
		models.StepCollectingContacts: &ContactCollectionHandler{contacts: d.Contacts},
		models.StepCalculatingSplits:  &SplitCalculationHandler{},
		models.StepConfirmingSplits:   &SplitConfirmationHandler{},
		models.StepSendingRequests:    &SendingRequestsHandler{requests: d.Requests, bills: d.Bills},
		models.StepTrackingPayments:   &PaymentTrackingHandler{payments: d.Payments, bills: d.Bills},
		models.StepCompleted:          &CompletionHandler{},
	}
}
