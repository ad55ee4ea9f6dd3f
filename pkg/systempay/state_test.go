package systempay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateForStatus(t *testing.T) {
	tests := map[string]State{
		"AUTHORISED":                        StateDone,
		"CAPTURED":                          StateDone,
		"ACCEPTED":                          StateDone,
		"AUTHORISED_TO_VALIDATE":            StatePending,
		"WAITING_AUTHORISATION":             StatePending,
		"WAITING_AUTHORISATION_TO_VALIDATE": StatePending,
		"INITIAL":                           StatePending,
		"UNDER_VERIFICATION":                StatePending,
		"WAITING_FOR_PAYMENT":               StatePending,
		"PRE_AUTHORISED":                    StatePending,
		"ABANDONED":                         StateCancel,
		"REFUSED":                           StateError,
		"EXPIRED":                           StateError,
		"SOMETHING_NEW":                     StateError,
	}
	for status, want := range tests {
		assert.Equal(t, want, StateForStatus(status), status)
	}
}

func TestApplyFromUnset(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	for status, want := range map[string]State{
		"CAPTURED":  StateDone,
		"INITIAL":   StatePending,
		"ABANDONED": StateCancel,
		"REFUSED":   StateError,
	} {
		tx := testTransaction()
		v := Verdict{Accepted: true, State: StateForStatus(status), Diagnostics: &Diagnostics{TransStatus: status, Result: "05", TransUUID: "uuid-1"}}

		assert.True(t, tx.Apply(v, now, false), status)
		assert.Equal(t, want, tx.State)
		assert.Equal(t, "uuid-1", tx.AcquirerReference)
		if assert.NotNil(t, tx.ValidatedAt) {
			assert.Equal(t, now, *tx.ValidatedAt)
		}
	}
}

func TestApplyStateMessages(t *testing.T) {
	now := time.Now()

	tx := testTransaction()
	tx.Apply(Verdict{Accepted: true, State: StateCancel, Diagnostics: &Diagnostics{Result: "17"}}, now, false)
	assert.Equal(t, "Payment for transaction #SO042 is cancelled (17).", tx.StateMessage)

	tx = testTransaction()
	tx.Apply(Verdict{Accepted: true, State: StateError, Diagnostics: &Diagnostics{Result: "05"}}, now, false)
	assert.Equal(t, "Payment for transaction #SO042 is refused (05).", tx.StateMessage)

	tx = testTransaction()
	tx.Apply(Verdict{Accepted: true, State: StateDone, Diagnostics: &Diagnostics{Result: "00"}}, now, false)
	assert.Empty(t, tx.StateMessage)
}

func TestApplyTerminal(t *testing.T) {
	now := time.Now()

	tx := testTransaction()
	tx.State = StatePending
	assert.True(t, tx.Apply(Verdict{Accepted: true, State: StatePending}, now, false))
	assert.True(t, tx.Apply(Verdict{Accepted: true, State: StateDone}, now, false))

	validated := *tx.ValidatedAt
	later := now.Add(time.Minute)
	assert.False(t, tx.Apply(Verdict{Accepted: true, State: StateCancel}, later, false))
	assert.Equal(t, StateDone, tx.State)
	assert.Equal(t, validated, *tx.ValidatedAt)

	assert.True(t, tx.Apply(Verdict{Accepted: true, State: StateCancel}, later, true))
	assert.Equal(t, StateCancel, tx.State)
}

func TestApplyRejectedVerdict(t *testing.T) {
	tx := testTransaction()
	assert.False(t, tx.Apply(Verdict{State: StateDone}, time.Now(), true))
	assert.Equal(t, StateUnset, tx.State)
	assert.Nil(t, tx.ValidatedAt)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateUnset, StateError, false))
	assert.True(t, CanTransition(StatePending, StateCancel, false))
	assert.False(t, CanTransition(StateError, StateDone, false))
	assert.False(t, CanTransition(StatePending, StateUnset, true))
	assert.False(t, CanTransition(StateUnset, State("bogus"), true))
}
