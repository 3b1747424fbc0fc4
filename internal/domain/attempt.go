package domain

import (
	"time"
)

// AttemptState represents the lifecycle state of a payment attempt.
// Transitions are forward-only; a terminal attempt is never reused.
type AttemptState string

const (
	StateCreated          AttemptState = "created"
	StateTokenIssued      AttemptState = "token_issued"
	StateCallbackReceived AttemptState = "callback_received"
	StateVerifying        AttemptState = "verifying"
	StateVerified         AttemptState = "verified"
	StateSettled          AttemptState = "settled"
	StateReversing        AttemptState = "reversing"
	StateReversed         AttemptState = "reversed"
	StateFailed           AttemptState = "failed"
)

// allowedTransitions is the forward-only transition table for an attempt.
var allowedTransitions = map[AttemptState][]AttemptState{
	StateCreated:          {StateTokenIssued, StateFailed},
	StateTokenIssued:      {StateCallbackReceived, StateFailed},
	StateCallbackReceived: {StateVerifying, StateFailed},
	StateVerifying:        {StateVerified, StateReversing, StateFailed},
	StateVerified:         {StateSettled, StateFailed},
	StateReversing:        {StateReversed, StateFailed},
	StateSettled:          {},
	StateReversed:         {},
	StateFailed:           {},
}

// CanTransition reports whether moving from the attempt's current state to
// the target state is allowed.
func (a *PaymentAttempt) CanTransition(to AttemptState) bool {
	for _, next := range allowedTransitions[a.State] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition advances the attempt to the target state, or fails with
// ATTEMPT_INVALID_STATE if the transition table forbids it.
func (a *PaymentAttempt) Transition(to AttemptState) error {
	if !a.CanTransition(to) {
		return ErrAttemptInvalidState.
			WithDetail("from", string(a.State)).
			WithDetail("to", string(to)).
			WithDetail("reference_number", a.ReferenceNumber)
	}
	a.State = to
	a.UpdatedAt = time.Now()
	return nil
}

// IsTerminal reports whether the attempt has reached a final state.
// Terminal attempts must never be re-verified or re-settled.
func (a *PaymentAttempt) IsTerminal() bool {
	return a.State == StateSettled || a.State == StateReversed || a.State == StateFailed
}

// PaymentAttempt represents one payer-facing charge attempt.
//
// Amount is fixed at token-request time and immutable afterwards:
// verification compares against exactly this value, never a value taken from
// the callback payload.
type PaymentAttempt struct {
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	ID              string       `json:"id"`
	ReferenceNumber string       `json:"reference_number"`
	TerminalID      string       `json:"terminal_id"`
	Token           string       `json:"token,omitempty"`
	RefNum          string       `json:"ref_num,omitempty"`
	FailureCode     string       `json:"failure_code,omitempty"`
	State           AttemptState `json:"state"`
	Amount          int64        `json:"amount"`
}

// GatewayCallback is the externally supplied, untrusted redirect payload.
// ResNum is the merchant reference number echoed back by the gateway and is
// the only correlation key; RefNum and TerminalNumber are only meaningful
// when Status indicates success. Everything here is validated at the
// boundary before it reaches the state machine, and none of it is trusted
// for amounts.
type GatewayCallback struct {
	Status         string `json:"Status"`
	ResNum         string `json:"ResNum"`
	RefNum         string `json:"RefNum"`
	TerminalNumber string `json:"TerminalNumber"`
}

// Succeeded reports whether the callback carries the gateway's success status.
func (c *GatewayCallback) Succeeded() bool {
	return c.Status == CallbackStatusSuccess
}

// CallbackStatusSuccess is the gateway status code for a completed payment.
const CallbackStatusSuccess = "2"

// VerificationResult is the gateway's authoritative answer to a verify call.
type VerificationResult struct {
	ResultCode      int   `json:"result_code"`
	OriginalAmount  int64 `json:"original_amount"`
	EffectiveAmount int64 `json:"effective_amount"`
}

// Succeeded reports whether the gateway confirmed the transaction exists and
// succeeded. A succeeded verification can still disagree on amount.
func (v *VerificationResult) Succeeded() bool {
	return v.ResultCode == 0
}

// AmountMatches compares both verified amounts against the merchant-recorded
// amount. The callback payload is never consulted here.
func (v *VerificationResult) AmountMatches(amount int64) bool {
	return v.OriginalAmount == amount && v.EffectiveAmount == amount
}
