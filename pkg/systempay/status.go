package systempay

// Gateway transaction statuses (vads_trans_status) grouped by outcome.
// Codes absent from the table are definitive refusals.
var StatusTable = map[string]State{
	// success
	"AUTHORISED": StateDone,
	"CAPTURED":   StateDone,
	"ACCEPTED":   StateDone,

	// pending
	"AUTHORISED_TO_VALIDATE":            StatePending,
	"WAITING_AUTHORISATION":             StatePending,
	"WAITING_AUTHORISATION_TO_VALIDATE": StatePending,
	"INITIAL":                           StatePending,
	"UNDER_VERIFICATION":                StatePending,
	"WAITING_FOR_PAYMENT":               StatePending,
	"PRE_AUTHORISED":                    StatePending,

	// cancel
	"ABANDONED": StateCancel,
}

// StateForStatus maps a gateway status to a payment state.
func StateForStatus(status string) State {
	if s, ok := StatusTable[status]; ok {
		return s
	}
	return StateError
}
