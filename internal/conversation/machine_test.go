package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
)

// stubHandler returns a fixed result or error.
type stubHandler struct {
	result StepResult
	err    error
	panics bool
	calls  int
}

func (s *stubHandler) HandleMessage(context.Context, *models.ConversationState, models.Message) (StepResult, error) {
	s.calls++
	if s.panics {
		panic("boom")
	}
	return s.result, s.err
}

func (s *stubHandler) HelpMessage() string { return "stub help" }

func newState(step models.ConversationStep) *models.ConversationState {
	st := models.NewConversationState("user-1", "session-1", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	st.CurrentStep = step
	return st
}

func textMessage(content string) models.Message {
	return models.Message{
		ID:          "m1",
		UserID:      "user-1",
		Content:     content,
		MessageType: models.MessageText,
		Timestamp:   time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC),
	}
}

func allStubs(h StepHandler) map[models.ConversationStep]StepHandler {
	m := make(map[models.ConversationStep]StepHandler)
	for _, s := range models.AllSteps() {
		m[s] = h
	}
	return m
}

func TestTransitionTable(t *testing.T) {
	legal := map[models.ConversationStep][]models.ConversationStep{
		models.StepInitial:            {models.StepExtractingBill},
		models.StepExtractingBill:     {models.StepConfirmingBill, models.StepExtractingBill, models.StepInitial},
		models.StepConfirmingBill:     {models.StepCollectingContacts, models.StepExtractingBill, models.StepInitial},
		models.StepCollectingContacts: {models.StepCalculatingSplits, models.StepCollectingContacts, models.StepInitial},
		models.StepCalculatingSplits:  {models.StepConfirmingSplits, models.StepCalculatingSplits, models.StepCollectingContacts, models.StepInitial},
		models.StepConfirmingSplits:   {models.StepSendingRequests, models.StepCalculatingSplits, models.StepInitial},
		models.StepSendingRequests:    {models.StepTrackingPayments, models.StepConfirmingSplits, models.StepInitial},
		models.StepTrackingPayments:   {models.StepCompleted, models.StepTrackingPayments, models.StepInitial},
		models.StepCompleted:          {models.StepInitial},
	}

	for _, from := range models.AllSteps() {
		for _, to := range models.AllSteps() {
			want := false
			for _, s := range legal[from] {
				if s == to {
					want = true
				}
			}
			if got := IsValidTransition(from, to); got != want {
				t.Errorf("IsValidTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestProcessMessageRejectsIllegalTransitions(t *testing.T) {
	for _, from := range models.AllSteps() {
		for _, to := range models.AllSteps() {
			if from == to || IsValidTransition(from, to) {
				continue
			}
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				h := &stubHandler{result: moveTo(to, "handler reply")}
				m := NewStateMachine(allStubs(h))
				st := newState(from)

				resp := m.ProcessMessage(context.Background(), st, textMessage("anything"))
				if st.CurrentStep != from {
					t.Errorf("CurrentStep = %s, want %s", st.CurrentStep, from)
				}
				if resp.Content != invalidTransitionResponse {
					t.Errorf("response = %q, want generic error", resp.Content)
				}
			})
		}
	}
}

func TestProcessMessageAppliesTransitionAndUpdates(t *testing.T) {
	h := &stubHandler{result: moveTo(models.StepConfirmingBill, "summary",
		func(c *models.WorkflowContext) { c.AttemptCount = 1 },
		func(c *models.WorkflowContext) { c.AttemptCount = 2 },
	)}
	m := NewStateMachine(allStubs(h))
	st := newState(models.StepExtractingBill)
	st.RetryCount = 2
	st.LastError = "previous"

	resp := m.ProcessMessage(context.Background(), st, textMessage("Total 100"))

	if resp.Content != "summary" || resp.MessageType != models.MessageText {
		t.Errorf("response = %+v, want handler reply", resp)
	}
	if st.CurrentStep != models.StepConfirmingBill {
		t.Errorf("CurrentStep = %s, want %s", st.CurrentStep, models.StepConfirmingBill)
	}
	if st.Context.AttemptCount != 2 {
		t.Errorf("AttemptCount = %d, want 2 (later update wins)", st.Context.AttemptCount)
	}
	if st.Context.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", st.Context.MessageCount)
	}
	if st.RetryCount != 0 || st.LastError != "" {
		t.Errorf("retry state = (%d, %q), want cleared", st.RetryCount, st.LastError)
	}
}

func TestProcessMessageRetryAndReset(t *testing.T) {
	h := &stubHandler{err: errors.New("database is locked")}
	m := NewStateMachine(allStubs(h))
	st := newState(models.StepCalculatingSplits)
	st.Context.SplitsCalculated = true
	st.Context.MessageCount = 5

	for i := 1; i < DefaultMaxRetries; i++ {
		resp := m.ProcessMessage(context.Background(), st, textMessage("equal"))
		if resp.Content != transientErrorResponse {
			t.Fatalf("attempt %d response = %q, want transient error", i, resp.Content)
		}
		if st.RetryCount != i {
			t.Fatalf("attempt %d RetryCount = %d", i, st.RetryCount)
		}
		if st.CurrentStep != models.StepCalculatingSplits {
			t.Fatalf("attempt %d moved to %s", i, st.CurrentStep)
		}
	}

	resp := m.ProcessMessage(context.Background(), st, textMessage("equal"))
	if resp.Content != retriesExhaustedResponse {
		t.Errorf("response = %q, want starting fresh message", resp.Content)
	}
	if st.CurrentStep != models.StepInitial {
		t.Errorf("CurrentStep = %s, want initial", st.CurrentStep)
	}
	if !st.Context.ErrorReset || st.Context.SplitsCalculated {
		t.Errorf("context = %+v, want error-marked fresh context", st.Context)
	}
	if st.Context.MessageCount != 5 {
		t.Errorf("MessageCount = %d, want 5 kept across reset", st.Context.MessageCount)
	}
	if st.LastError != "database is locked" {
		t.Errorf("LastError = %q", st.LastError)
	}
}

func TestProcessMessageRecoversPanics(t *testing.T) {
	h := &stubHandler{panics: true}
	m := NewStateMachine(allStubs(h))
	st := newState(models.StepConfirmingSplits)

	resp := m.ProcessMessage(context.Background(), st, textMessage("yes"))
	if resp.Content != transientErrorResponse {
		t.Errorf("response = %q, want transient error", resp.Content)
	}
	if st.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", st.RetryCount)
	}
}

func TestProcessMessageUnknownStep(t *testing.T) {
	m := NewStateMachine(map[models.ConversationStep]StepHandler{})
	st := newState(models.StepTrackingPayments)
	st.Context.BillID = "bill-1"

	resp := m.ProcessMessage(context.Background(), st, textMessage("status"))
	if resp.Content != unknownStepResponse {
		t.Errorf("response = %q", resp.Content)
	}
	if st.CurrentStep != models.StepInitial || !st.Context.ErrorReset || st.Context.BillID != "" {
		t.Errorf("state = %s %+v, want reset to initial", st.CurrentStep, st.Context)
	}
}

func TestGlobalCommands(t *testing.T) {
	for _, step := range models.AllSteps() {
		t.Run(string(step), func(t *testing.T) {
			h := &stubHandler{result: reply("step reply")}
			m := NewStateMachine(allStubs(h))

			st := newState(step)
			resp := m.ProcessMessage(context.Background(), st, textMessage("  Help "))
			if resp.Content != "stub help" {
				t.Errorf("help response = %q", resp.Content)
			}
			if st.CurrentStep != step {
				t.Errorf("help moved to %s", st.CurrentStep)
			}

			st.Context.BillData = &models.BillData{Description: "x"}
			resp = m.ProcessMessage(context.Background(), st, textMessage("start over"))
			if resp.Content != resetResponse {
				t.Errorf("reset response = %q", resp.Content)
			}
			if st.CurrentStep != models.StepInitial || st.Context.BillData != nil {
				t.Errorf("reset left step at %s", st.CurrentStep)
			}
			if h.calls != 0 {
				t.Errorf("step handler called %d times for global commands", h.calls)
			}
		})
	}
}

func TestStepDescriptions(t *testing.T) {
	for _, s := range models.AllSteps() {
		if StepDescription(s) == "Unknown step" {
			t.Errorf("no description for %s", s)
		}
	}
	if got := StepDescription("bogus"); got != "Unknown step" {
		t.Errorf("StepDescription(bogus) = %q", got)
	}

	next := ValidNextSteps(models.StepCompleted)
	next[0] = models.StepTrackingPayments
	if !IsValidTransition(models.StepCompleted, models.StepInitial) {
		t.Error("ValidNextSteps returned the internal slice")
	}
}
