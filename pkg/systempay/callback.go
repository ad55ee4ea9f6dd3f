package systempay

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	fieldTransStatus = "vads_trans_status"
	fieldOrderID     = "vads_order_id"
)

// Callback is a parsed gateway response. Both the browser return and the
// server notification carry the same fields.
type Callback struct {
	Signature string
	Status    string
	Reference string
	Fields    map[string]string
}

// ParseCallback checks that payload carries a signature, a status and an
// order reference.
func ParseCallback(payload map[string]string) (*Callback, error) {
	cb := &Callback{
		Signature: payload[SignatureField],
		Status:    payload[fieldTransStatus],
		Reference: payload[fieldOrderID],
	}
	var missing []string
	if cb.Signature == "" {
		missing = append(missing, SignatureField)
	}
	if cb.Status == "" {
		missing = append(missing, fieldTransStatus)
	}
	if cb.Reference == "" {
		missing = append(missing, fieldOrderID)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedCallback, strings.Join(missing, ", "))
	}

	cb.Fields = make(map[string]string, len(payload))
	for k, v := range payload {
		cb.Fields[k] = v
	}
	return cb, nil
}

// Diagnostics are the gateway fields kept on the transaction after a
// validated callback.
type Diagnostics struct {
	TransStatus        string            `json:"trans_status"`
	TransUUID          string            `json:"trans_uuid,omitempty"`
	CardBrand          string            `json:"card_brand,omitempty"`
	CardNumber         string            `json:"card_number,omitempty"`
	Expiry             string            `json:"expiry,omitempty"`
	AuthResult         string            `json:"auth_result,omitempty"`
	Result             string            `json:"result,omitempty"`
	ThreeDS            bool              `json:"threeds"`
	ThreeDSCertificate string            `json:"threeds_certificate,omitempty"`
	Raw                map[string]string `json:"raw"`
}

// Diagnostics extracts the diagnostic fields from the callback.
func (cb *Callback) Diagnostics() *Diagnostics {
	f := cb.Fields
	d := &Diagnostics{
		TransStatus: cb.Status,
		TransUUID:   f["vads_trans_uuid"],
		CardBrand:   f["vads_card_brand"],
		CardNumber:  f["vads_card_number"],
		AuthResult:  f["vads_auth_result"],
		Result:      f["vads_result"],
		Raw:         cb.Fields,
	}
	if f["vads_threeds_status"] == "Y" {
		d.ThreeDS = true
		d.ThreeDSCertificate = f["vads_threeds_cavv"]
	}
	month, year := f["vads_expiry_month"], f["vads_expiry_year"]
	if month != "" && year != "" {
		if len(month) < 2 {
			month = strings.Repeat("0", 2-len(month)) + month
		}
		d.Expiry = month + "/" + year
	}
	return d
}

// InvalidParameter is a business invariant the callback does not satisfy.
type InvalidParameter struct {
	Field    string `json:"field"`
	Received string `json:"received"`
	Expected string `json:"expected"`
}

// Policy holds the caller decisions the validator does not make itself.
type Policy struct {
	// AllowInvalidParameters accepts callbacks whose amount or currency
	// differ from the transaction. The findings are still recorded.
	AllowInvalidParameters bool
	// AllowTerminalOverwrite lets a callback change a done, cancel or
	// error transaction.
	AllowTerminalOverwrite bool
}

// Verdict is the outcome of validating a callback against its transaction.
type Verdict struct {
	Accepted          bool
	State             State
	Diagnostics       *Diagnostics
	InvalidParameters []InvalidParameter
	Reason            string
	// Ignored is set when the transaction was already terminal and the
	// callback did not change it.
	Ignored bool
}

// Validate checks the signature and the business invariants of cb against
// tx. A signature mismatch is returned as an error with an empty verdict.
func Validate(cb *Callback, tx *Transaction, cfg MerchantConfig, policy Policy) (Verdict, error) {
	if !Verify(cb.Fields, cfg.Key(), cfg.Algorithm, cb.Signature) {
		return Verdict{}, fmt.Errorf("%w: reference %s", ErrSignatureMismatch, cb.Reference)
	}

	v := Verdict{
		State:             StateForStatus(cb.Status),
		Diagnostics:       cb.Diagnostics(),
		InvalidParameters: InvalidParameters(cb, tx),
	}
	if len(v.InvalidParameters) > 0 && !policy.AllowInvalidParameters {
		v.Reason = describeFindings(v.InvalidParameters)
		return v, fmt.Errorf("%w: reference %s: %s", ErrInvalidParameters, cb.Reference, v.Reason)
	}
	v.Accepted = true
	return v, nil
}

// InvalidParameters compares the amount and currency of the callback with
// the transaction.
func InvalidParameters(cb *Callback, tx *Transaction) []InvalidParameter {
	var out []InvalidParameter

	currency, err := ResolveCurrency(tx.Currency)
	if err != nil {
		return append(out, InvalidParameter{
			Field:    "currency",
			Received: cb.Fields["vads_currency"],
			Expected: tx.Currency,
		})
	}

	rawAmount := cb.Fields["vads_amount"]
	expected := tx.Amount.Round(currency.Exponent)
	minor, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil {
		out = append(out, InvalidParameter{
			Field:    "amount",
			Received: rawAmount,
			Expected: expected.StringFixed(currency.Exponent),
		})
	} else if received := FromMinorUnits(minor, currency.Exponent); !received.Equal(expected) {
		out = append(out, InvalidParameter{
			Field:    "amount",
			Received: received.StringFixed(currency.Exponent),
			Expected: expected.StringFixed(currency.Exponent),
		})
	}

	rawCurrency := cb.Fields["vads_currency"]
	got, err := strconv.Atoi(rawCurrency)
	want, _ := strconv.Atoi(currency.Numeric)
	if err != nil || got != want {
		out = append(out, InvalidParameter{
			Field:    "currency",
			Received: rawCurrency,
			Expected: currency.Numeric,
		})
	}
	return out
}

func describeFindings(findings []InvalidParameter) string {
	parts := make([]string, 0, len(findings))
	for _, f := range findings {
		parts = append(parts, fmt.Sprintf("%s received %q expected %q", f.Field, f.Received, f.Expected))
	}
	return strings.Join(parts, "; ")
}
