package systempay

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// State is the payment state of a transaction.
type State string

const (
	StateUnset   State = ""
	StatePending State = "pending"
	StateDone    State = "done"
	StateCancel  State = "cancel"
	StateError   State = "error"
)

// Terminal reports whether further callbacks may not change the state.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancel || s == StateError
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateUnset, StatePending, StateDone, StateCancel, StateError:
		return true
	}
	return false
}

// Transaction is the payment record of one order attempt.
type Transaction struct {
	ID        string
	Reference string
	// Acquirer names the merchant configuration that signed the request.
	Acquirer string
	// Environment is the context mode the request was signed in.
	Environment Environment
	Amount      decimal.Decimal
	Currency    string
	State       State

	// AcquirerReference is the gateway transaction uuid.
	AcquirerReference string
	Diagnostics       *Diagnostics
	StateMessage      string
	InvalidParameters []InvalidParameter
	ValidatedAt       *time.Time
}

// CanTransition reports whether a transaction in from may move to to.
func CanTransition(from, to State, allowOverwrite bool) bool {
	if !to.Valid() || to == StateUnset {
		return false
	}
	if from.Terminal() {
		return allowOverwrite
	}
	return from == StateUnset || from == StatePending
}

// Apply moves tx to the verdict state and records the diagnostics. It
// returns false and leaves tx untouched when the transition is not allowed.
func (tx *Transaction) Apply(v Verdict, now time.Time, allowOverwrite bool) bool {
	if !v.Accepted || !CanTransition(tx.State, v.State, allowOverwrite) {
		return false
	}

	tx.State = v.State
	tx.Diagnostics = v.Diagnostics
	tx.InvalidParameters = v.InvalidParameters
	if v.Diagnostics != nil && v.Diagnostics.TransUUID != "" {
		tx.AcquirerReference = v.Diagnostics.TransUUID
	}
	tx.StateMessage = stateMessage(tx.Reference, v)
	validated := now
	tx.ValidatedAt = &validated
	return true
}

func stateMessage(reference string, v Verdict) string {
	result := ""
	if v.Diagnostics != nil {
		result = v.Diagnostics.Result
	}
	switch v.State {
	case StateCancel:
		return fmt.Sprintf("Payment for transaction #%s is cancelled (%s).", reference, result)
	case StateError:
		return fmt.Sprintf("Payment for transaction #%s is refused (%s).", reference, result)
	}
	return ""
}
