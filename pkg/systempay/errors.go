package systempay

import "errors"

// Protocol errors. Callers match them with errors.Is; the wrapped message
// carries the detail (offending currency, missing field, lookup outcome).
var (
	ErrUnsupportedCurrency  = errors.New("UNSUPPORTED_CURRENCY")
	ErrInvalidAmount        = errors.New("INVALID_AMOUNT")
	ErrMissingConfiguration = errors.New("MISSING_CONFIGURATION")
	ErrMalformedCallback    = errors.New("MALFORMED_CALLBACK")
	ErrOrderLookup          = errors.New("ORDER_LOOKUP_ERROR")
	ErrSignatureMismatch    = errors.New("SIGNATURE_MISMATCH")
	ErrInvalidParameters    = errors.New("INVALID_PARAMETERS")
)
