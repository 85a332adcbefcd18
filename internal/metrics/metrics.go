// Package metrics holds the Prometheus collectors for the service.
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "powersplit"

// Metrics groups the service collectors.
type Metrics struct {
	messages      *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	handlerErrors *prometheus.CounterVec
	resets        *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	completions   prometheus.Counter
	requests      *prometheus.CounterVec
	duration      prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound messages handled, by conversation step and outcome.",
		}, []string{"step", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Requested step transitions, by source, target and result.",
		}, []string{"from", "to", "result"}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Step handler failures, by step.",
		}, []string{"step"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_resets_total",
			Help:      "Conversation resets, by reason.",
		}, []string{"reason"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_confirmations_total",
			Help:      "Payment confirmation attempts, by result.",
		}, []string{"result"}),
		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bill_completions_total",
			Help:      "Bills whose participants have all confirmed payment.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_requests_total",
			Help:      "Payment requests sent to participants, by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_duration_seconds",
			Help:      "Time to handle one inbound message.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.messages,
		m.transitions,
		m.handlerErrors,
		m.resets,
		m.confirmations,
		m.completions,
		m.requests,
		m.duration,
	)
	return m
}

// Message records one handled message.
func (m *Metrics) Message(step, outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(step, outcome).Inc()
}

// Transition records a requested step change. result is "applied" or "rejected".
func (m *Metrics) Transition(from, to, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to, result).Inc()
}

// HandlerError records a failed step handler.
func (m *Metrics) HandlerError(step string) {
	if m == nil {
		return
	}
	m.handlerErrors.WithLabelValues(step).Inc()
}

// Reset records a conversation reset.
func (m *Metrics) Reset(reason string) {
	if m == nil {
		return
	}
	m.resets.WithLabelValues(reason).Inc()
}

// Confirmation records a payment confirmation attempt.
func (m *Metrics) Confirmation(result string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(result).Inc()
}

// Completion records a completed bill.
func (m *Metrics) Completion() {
	if m == nil {
		return
	}
	m.completions.Inc()
}

// PaymentRequest records a payment request delivery result.
func (m *Metrics) PaymentRequest(result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(result).Inc()
}

// ObserveDuration records the time since start.
func (m *Metrics) ObserveDuration(start time.Time) {
	if m == nil {
		return
	}
	m.duration.Observe(time.Since(start).Seconds())
}
