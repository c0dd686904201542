package withdrawal

// RejectionCode is the closed set of reasons a withdrawal request can be
// refused before any side effect.
type RejectionCode string

const (
	RejectEmergencyStop       RejectionCode = "emergency_stop"
	RejectBelowMinimum        RejectionCode = "below_minimum"
	RejectAccountBanned       RejectionCode = "account_banned"
	RejectAccountBlocked      RejectionCode = "account_blocked"
	RejectRecoveryActive      RejectionCode = "recovery_active"
	RejectFraudRisk           RejectionCode = "fraud_risk"
	RejectInsufficientBalance RejectionCode = "insufficient_balance"
	RejectDailyLimit          RejectionCode = "daily_limit"
	RejectFeeExceedsAmount    RejectionCode = "fee_exceeds_amount"
	RejectSystemBusy          RejectionCode = "system_busy"
)

// Rejection is a typed refusal, safe to surface verbatim to the caller.
// Retryable marks outcomes the caller may simply try again shortly, as
// opposed to ones requiring a change on their side.
type Rejection struct {
	Code      RejectionCode `json:"code"`
	Message   string        `json:"message"`
	Retryable bool          `json:"retryable"`
}

func reject(code RejectionCode, message string) *Rejection {
	return &Rejection{Code: code, Message: message}
}
