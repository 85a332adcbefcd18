package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/padmaraj-kv/powersplit-sub000/internal/metrics"
	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

// DefaultMaxRetries is how many consecutive handler failures are tolerated
// before the session is reset.
const DefaultMaxRetries = 3

const (
	unknownStepResponse       = "I'm not sure where we are in our conversation. Let's start over. Please send me your bill information."
	invalidTransitionResponse = "I encountered an error processing your request. Let's start over."
	retriesExhaustedResponse  = "I'm having trouble processing your request. Let's start fresh. Please send me your bill information."
	transientErrorResponse    = "I encountered an error. Please try again or type 'reset' to start over."
)

var transitions = map[models.ConversationStep][]models.ConversationStep{
	models.StepInitial: {
		models.StepExtractingBill,
	},
	models.StepExtractingBill: {
		models.StepConfirmingBill,
		models.StepExtractingBill,
		models.StepInitial,
	},
	models.StepConfirmingBill: {
		models.StepCollectingContacts,
		models.StepExtractingBill,
		models.StepInitial,
	},
	models.StepCollectingContacts: {
		models.StepCalculatingSplits,
		models.StepCollectingContacts,
		models.StepInitial,
	},
	models.StepCalculatingSplits: {
		models.StepConfirmingSplits,
		models.StepCalculatingSplits,
		models.StepCollectingContacts,
		models.StepInitial,
	},
	models.StepConfirmingSplits: {
		models.StepSendingRequests,
		models.StepCalculatingSplits,
		models.StepInitial,
	},
	models.StepSendingRequests: {
		models.StepTrackingPayments,
		models.StepConfirmingSplits,
		models.StepInitial,
	},
	models.StepTrackingPayments: {
		models.StepCompleted,
		models.StepTrackingPayments,
		models.StepInitial,
	},
	models.StepCompleted: {
		models.StepInitial,
	},
}

var stepDescriptions = map[models.ConversationStep]string{
	models.StepInitial:            "Ready to receive bill information",
	models.StepExtractingBill:     "Processing bill information",
	models.StepConfirmingBill:     "Confirming bill details",
	models.StepCollectingContacts: "Collecting participant contacts",
	models.StepCalculatingSplits:  "Calculating bill splits",
	models.StepConfirmingSplits:   "Confirming split amounts",
	models.StepSendingRequests:    "Sending payment requests",
	models.StepTrackingPayments:   "Tracking payment confirmations",
	models.StepCompleted:          "Bill splitting completed",
}

// ValidNextSteps returns the steps reachable from step.
func ValidNextSteps(step models.ConversationStep) []models.ConversationStep {
	next := transitions[step]
	out := make([]models.ConversationStep, len(next))
	copy(out, next)
	return out
}

// IsValidTransition reports whether the conversation may move from one step to another.
func IsValidTransition(from, to models.ConversationStep) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StepDescription returns a human readable description of step.
func StepDescription(step models.ConversationStep) string {
	if d, ok := stepDescriptions[step]; ok {
		return d
	}
	return "Unknown step"
}

// StateMachine routes messages to the handler for the session's current step
// and applies the resulting transition. It is the single place where handler
// failures are turned into user-facing replies.
type StateMachine struct {
	handlers   map[models.ConversationStep]StepHandler
	maxRetries int
	metrics    *metrics.Metrics
}

// Option configures a StateMachine.
type Option func(*StateMachine)

// WithMaxRetries sets how many consecutive failures reset the session.
func WithMaxRetries(n int) Option {
	return func(m *StateMachine) {
		if n > 0 {
			m.maxRetries = n
		}
	}
}

// WithMetrics records message, transition and reset metrics.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *StateMachine) { m.metrics = mt }
}

// NewStateMachine creates a state machine over a fixed step→handler map.
// Every handler is wrapped so the reset and help commands work in any step.
func NewStateMachine(handlers map[models.ConversationStep]StepHandler, opts ...Option) *StateMachine {
	m := &StateMachine{
		handlers:   make(map[models.ConversationStep]StepHandler, len(handlers)),
		maxRetries: DefaultMaxRetries,
	}
	for step, h := range handlers {
		m.handlers[step] = withGlobal{h}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ProcessMessage handles one inbound message and mutates state accordingly.
// It always returns a response, even when the handler fails.
func (m *StateMachine) ProcessMessage(ctx context.Context, state *models.ConversationState, msg models.Message) models.Response {
	start := time.Now()
	defer m.metrics.ObserveDuration(start)

	from := state.CurrentStep
	handler, ok := m.handlers[from]
	if !ok {
		slog.Error("No handler for conversation step", "user_id", state.UserID, "step", from)
		m.metrics.Reset("unknown_step")
		m.resetSession(state)
		return models.TextResponse(unknownStepResponse)
	}

	result, err := m.invoke(ctx, handler, state, msg)
	if err != nil {
		return m.fail(state, err)
	}

	if next := result.NextStep; next != nil && *next != from {
		if !IsValidTransition(from, *next) {
			slog.Warn("Invalid conversation transition",
				"user_id", state.UserID,
				"from_step", from,
				"to_step", *next,
			)
			m.metrics.Transition(string(from), string(*next), "rejected")
			m.metrics.Message(string(from), "invalid_transition")
			return models.TextResponse(invalidTransitionResponse)
		}
		state.CurrentStep = *next
		m.metrics.Transition(string(from), string(*next), "applied")
		slog.Info("Conversation step changed",
			"user_id", state.UserID,
			"session_id", state.SessionID,
			"from_step", from,
			"to_step", *next,
		)
	}

	state.Context.Apply(result.Updates...)
	state.Context.MessageCount++
	state.RetryCount = 0
	state.LastError = ""
	state.SyncFromContext()
	m.metrics.Message(string(from), "ok")

	resp := result.Response
	if resp.MessageType == "" {
		resp.MessageType = models.MessageText
	}
	return resp
}

func (m *StateMachine) invoke(ctx context.Context, h StepHandler, state *models.ConversationState, msg models.Message) (result StepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.HandleMessage(ctx, state, msg)
}

func (m *StateMachine) fail(state *models.ConversationState, err error) models.Response {
	step := state.CurrentStep
	state.RetryCount++
	state.LastError = err.Error()
	m.metrics.HandlerError(string(step))
	m.metrics.Message(string(step), "error")
	slog.Error("Conversation handler failed",
		"user_id", state.UserID,
		"step", step,
		"retry_count", state.RetryCount,
		"error", err,
	)

	if state.RetryCount >= m.maxRetries {
		m.metrics.Reset("retries_exhausted")
		m.resetSession(state)
		return models.TextResponse(retriesExhaustedResponse)
	}
	return models.TextResponse(transientErrorResponse)
}

// resetSession forces the conversation back to the initial step with an
// error-marked context. The retry budget starts over.
func (m *StateMachine) resetSession(state *models.ConversationState) {
	state.CurrentStep = models.StepInitial
	state.Context.Apply(models.ResetContext(true))
	state.RetryCount = 0
	state.SyncFromContext()
}
