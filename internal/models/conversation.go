package models

import "time"

// ConversationState is where a (user, session) pair is in the dialogue.
// It is created on the first message of a session and mutated exactly once
// per inbound message by the state machine.
type ConversationState struct {
	UserID      string
	SessionID   string
	CurrentStep ConversationStep

	// Context accumulates data across steps.
	Context WorkflowContext

	// BillData and Participants mirror the latest values in Context.
	// They are refreshed by SyncFromContext after every handled message.
	BillData     *BillData
	Participants []Participant

	// RetryCount counts consecutive handler failures. It resets to 0 on
	// every successfully handled message.
	RetryCount int
	LastError  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewConversationState returns a fresh state at the initial step.
func NewConversationState(userID, sessionID string, now time.Time) *ConversationState {
	return &ConversationState{
		UserID:      userID,
		SessionID:   sessionID,
		CurrentStep: StepInitial,
		Context:     WorkflowContext{SessionStarted: &now},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SyncFromContext refreshes BillData and Participants from Context.
func (s *ConversationState) SyncFromContext() {
	s.BillData = s.Context.BillData
	s.Participants = s.Context.LatestParticipants()
}

// SplitType records how the current splits were produced.
type SplitType string

const (
	SplitEqual          SplitType = "equal"
	SplitCustom         SplitType = "custom"
	SplitCustomAdjusted SplitType = "custom_adjusted"
)

// PendingInput is a bill message received at the initial step, kept until
// the extraction step processes it.
type PendingInput struct {
	Content     string      `json:"content"`
	MessageType MessageType `json:"message_type"`
	Media       []byte      `json:"media,omitempty"`
}

// WorkflowContext holds the typed data accumulated across conversation steps.
// Each step owns a group of slots; slots from earlier steps stay available to
// later ones until the session is reset.
type WorkflowContext struct {
	MessageCount   int        `json:"message_count"`
	SessionStarted *time.Time `json:"session_started,omitempty"`
	ErrorReset     bool       `json:"error_reset,omitempty"`
	Reset          bool       `json:"reset,omitempty"`

	// initial
	InputType    MessageType   `json:"input_type,omitempty"`
	PendingInput *PendingInput `json:"pending_input,omitempty"`

	// extracting_bill
	BillData              *BillData `json:"bill_data,omitempty"`
	PartialBillData       *BillData `json:"partial_bill_data,omitempty"`
	AttemptCount          int       `json:"attempt_count,omitempty"`
	AwaitingClarification bool      `json:"awaiting_clarification,omitempty"`
	ExtractionFailed      bool      `json:"extraction_failed,omitempty"`
	ValidationErrors      []string  `json:"validation_errors,omitempty"`
	ValidationWarnings    []string  `json:"validation_warnings,omitempty"`
	LastExtractionError   string    `json:"last_extraction_error,omitempty"`

	// confirming_bill
	BillConfirmed      bool       `json:"bill_confirmed,omitempty"`
	BillConfirmedAt    *time.Time `json:"bill_confirmed_at,omitempty"`
	BillRejected       bool       `json:"bill_rejected,omitempty"`
	ClarificationCount int        `json:"clarification_count,omitempty"`

	// collecting_contacts
	ContactCollectionStarted bool          `json:"contact_collection_started,omitempty"`
	MissingQuestions         []string      `json:"missing_questions,omitempty"`
	ProcessedParticipants    []Participant `json:"processed_participants,omitempty"`
	FinalParticipants        []Participant `json:"final_participants,omitempty"`
	ContactsCollected        bool          `json:"contacts_collected,omitempty"`

	// calculating_splits / confirming_splits
	SplitType              SplitType     `json:"split_type,omitempty"`
	SplitsCalculated       bool          `json:"splits_calculated,omitempty"`
	CalculatedParticipants []Participant `json:"calculated_participants,omitempty"`
	CustomSplitErrors      []string      `json:"custom_split_errors,omitempty"`
	SplitsConfirmed        bool          `json:"splits_confirmed,omitempty"`

	// sending_requests
	BillID            string `json:"bill_id,omitempty"`
	RequestsSent      bool   `json:"requests_sent,omitempty"`
	RequestsDelivered int    `json:"requests_delivered,omitempty"`
	RequestsFailed    int    `json:"requests_failed,omitempty"`

	// tracking_payments / completed
	LastConfirmedParticipantID string `json:"last_confirmed_participant_id,omitempty"`
	CompletionDetected         bool   `json:"completion_detected,omitempty"`
}

// ContextUpdate mutates a WorkflowContext. Updates are applied in order, so
// later updates overwrite earlier ones.
type ContextUpdate func(*WorkflowContext)

// Apply applies updates in order.
func (c *WorkflowContext) Apply(updates ...ContextUpdate) {
	for _, u := range updates {
		if u != nil {
			u(c)
		}
	}
}

// LatestParticipants returns the most advanced participant list in the context.
func (c *WorkflowContext) LatestParticipants() []Participant {
	switch {
	case len(c.CalculatedParticipants) > 0:
		return c.CalculatedParticipants
	case len(c.FinalParticipants) > 0:
		return c.FinalParticipants
	default:
		return c.ProcessedParticipants
	}
}

// ResetContext replaces the context with a fresh one, keeping the message count
// and session start so they stay monotonic for the session.
func ResetContext(errorReset bool) ContextUpdate {
	return func(c *WorkflowContext) {
		*c = WorkflowContext{
			MessageCount:   c.MessageCount,
			SessionStarted: c.SessionStarted,
			ErrorReset:     errorReset,
			Reset:          !errorReset,
		}
	}
}
