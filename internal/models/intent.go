package models

// Intent names returned by intent recognition.
const (
	IntentConfirm        = "confirm"
	IntentModify         = "modify"
	IntentConfirmPayment = "confirm_payment"
	IntentProvideBill    = "provide_bill_info"
	IntentQueryStatus    = "query_status"
	IntentGeneral        = "general_question"
)

// IntentResult is the classification of a user message.
type IntentResult struct {
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities,omitempty"`
	NextAction string            `json:"next_action,omitempty"`
}
