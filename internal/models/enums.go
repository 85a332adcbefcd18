package models

// ConversationStep is a named stage of the bill splitting dialogue.
type ConversationStep string

const (
	StepInitial            ConversationStep = "initial"
	StepExtractingBill     ConversationStep = "extracting_bill"
	StepConfirmingBill     ConversationStep = "confirming_bill"
	StepCollectingContacts ConversationStep = "collecting_contacts"
	StepCalculatingSplits  ConversationStep = "calculating_splits"
	StepConfirmingSplits   ConversationStep = "confirming_splits"
	StepSendingRequests    ConversationStep = "sending_requests"
	StepTrackingPayments   ConversationStep = "tracking_payments"
	StepCompleted          ConversationStep = "completed"
)

// AllSteps returns every conversation step in dialogue order.
func AllSteps() []ConversationStep {
	return []ConversationStep{
		StepInitial,
		StepExtractingBill,
		StepConfirmingBill,
		StepCollectingContacts,
		StepCalculatingSplits,
		StepConfirmingSplits,
		StepSendingRequests,
		StepTrackingPayments,
		StepCompleted,
	}
}

// Valid reports whether s is one of the defined steps.
func (s ConversationStep) Valid() bool {
	for _, step := range AllSteps() {
		if s == step {
			return true
		}
	}
	return false
}

// Ptr returns a pointer to s. Used for StepResult.NextStep.
func (s ConversationStep) Ptr() *ConversationStep {
	return &s
}

// PaymentStatus tracks a participant's payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSent      PaymentStatus = "sent"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentFailed    PaymentStatus = "failed"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentSent, PaymentConfirmed, PaymentFailed:
		return true
	}
	return false
}

// MessageType is the kind of inbound message content.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageVoice MessageType = "voice"
	MessageImage MessageType = "image"
)

// BillStatus is the overall status of a persisted bill.
type BillStatus string

const (
	BillActive    BillStatus = "active"
	BillCompleted BillStatus = "completed"
	BillCancelled BillStatus = "cancelled"
)

// DeliveryMethod is the channel an outbound message finally went through.
type DeliveryMethod string

const (
	DeliveryWhatsApp DeliveryMethod = "whatsapp"
	DeliverySMS      DeliveryMethod = "sms"
)
