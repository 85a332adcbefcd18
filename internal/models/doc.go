// Package models defines the core domain models for the bill splitting conversation.
//
// # Conversation Models
//
// The dialogue with an organizer is driven by:
//   - Message / Response: one inbound chat message and the single reply to it
//   - ConversationState: where a (user, session) pair is in the dialogue
//   - WorkflowContext: typed data accumulated across conversation steps
//
// # Bill Models
//
//   - BillData: bill contents extracted from text, photos or voice notes
//   - Participant: a person who owes part of a bill
//   - Bill, BillParticipant, PaymentRequest: persisted records used for payment tracking
//
// # Persisted Vocabulary
//
// The string values of ConversationStep and PaymentStatus are stored as-is and shared
// with other systems. They must never be renamed.
//
// # Money
//
// All amounts use decimal.Decimal and are kept at two decimal places. Float arithmetic
// is never used for money.
package models
