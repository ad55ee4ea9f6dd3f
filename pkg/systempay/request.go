package systempay

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Field length limits accepted by the payment page.
const (
	maxNameLen    = 62
	maxAddressLen = 254
	maxZipLen     = 62
	maxCityLen    = 62
	maxStateLen   = 62
	maxCountryLen = 62
	maxEmailLen   = 126
	maxPhoneLen   = 31
)

const (
	paymentConfigSingle = "SINGLE"
	threeDSDisabled     = "2"
	defaultVersion      = "V2"
)

// Field is one name/value pair of a signed form.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SignedParameterSet is a payment form ready to be posted to the gateway.
type SignedParameterSet struct {
	GatewayURL string
	Fields     map[string]string
	Signature  string
}

// Ordered returns the form fields sorted by name followed by the signature.
func (s *SignedParameterSet) Ordered() []Field {
	names := make([]string, 0, len(s.Fields))
	for k := range s.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]Field, 0, len(names)+1)
	for _, n := range names {
		out = append(out, Field{Name: n, Value: s.Fields[n]})
	}
	return append(out, Field{Name: SignatureField, Value: s.Signature})
}

// Values returns the fields including the signature as a flat map.
func (s *SignedParameterSet) Values() map[string]string {
	out := make(map[string]string, len(s.Fields)+1)
	for k, v := range s.Fields {
		out[k] = v
	}
	out[SignatureField] = s.Signature
	return out
}

// Builder assembles signed payment forms.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a Builder using the wall clock.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// NewBuilderWithClock returns a Builder reading time from now.
func NewBuilderWithClock(now func() time.Time) *Builder {
	return &Builder{now: now}
}

// TransactionID returns the number of tenths of a second elapsed since
// local midnight, left padded to six digits.
func TransactionID(t time.Time) string {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	tenths := t.Sub(midnight) / (100 * time.Millisecond)
	return fmt.Sprintf("%06d", int64(tenths))
}

// Build produces the signed form for a new payment attempt. Nothing is
// returned on error.
func (b *Builder) Build(order OrderContext, cfg MerchantConfig) (*SignedParameterSet, error) {
	now := b.now()

	currency, err := ResolveCurrency(order.Currency)
	if err != nil {
		return nil, err
	}
	amount, err := ToMinorUnits(order.Amount, currency.Exponent)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.SiteID) == "" {
		return nil, fmt.Errorf("%w: site id is empty", ErrMissingConfiguration)
	}
	key := cfg.Key()
	if key == "" {
		return nil, fmt.Errorf("%w: no key for %s mode", ErrMissingConfiguration, cfg.CtxMode())
	}
	paymentConfig, err := PaymentConfig(cfg.Mode, amount)
	if err != nil {
		return nil, err
	}

	version := cfg.Version
	if version == "" {
		version = defaultVersion
	}
	validationMode := cfg.ValidationMode
	if validationMode == ValidationModeDefault {
		validationMode = ""
	}

	fields := map[string]string{
		"vads_site_id":             cfg.SiteID,
		"vads_version":             version,
		"vads_contrib":             cfg.Contrib,
		"vads_amount":              strconv.FormatInt(amount, 10),
		"vads_currency":            currency.Numeric,
		"vads_trans_date":          now.UTC().Format("20060102150405"),
		"vads_trans_id":            TransactionID(now),
		"vads_order_id":            order.Reference,
		"vads_ctx_mode":            string(cfg.CtxMode()),
		"vads_page_action":         "PAYMENT",
		"vads_action_mode":         "INTERACTIVE",
		"vads_payment_config":      paymentConfig,
		"vads_url_return":          order.ReturnURL,
		"vads_language":            cfg.Language,
		"vads_available_languages": joinCodes(cfg.AvailableLanguages),
		"vads_capture_delay":       cfg.CaptureDelay,
		"vads_validation_mode":     validationMode,
		"vads_payment_cards":       joinCodes(cfg.PaymentCards),
		"vads_return_mode":         cfg.ReturnMode,
		"vads_threeds_mpi":         threeDSFlag(cfg.ThreeDSMinAmount, order.Amount),

		"vads_cust_id":         order.Customer.ID,
		"vads_cust_first_name": truncate(order.Customer.FirstName, maxNameLen),
		"vads_cust_last_name":  truncate(order.Customer.LastName, maxNameLen),
		"vads_cust_address":    truncate(order.Customer.Address, maxAddressLen),
		"vads_cust_zip":        truncate(order.Customer.Zip, maxZipLen),
		"vads_cust_city":       truncate(order.Customer.City, maxCityLen),
		"vads_cust_state":      truncate(order.Customer.State, maxStateLen),
		"vads_cust_country":    truncate(strings.ToUpper(order.Customer.Country), maxCountryLen),
		"vads_cust_email":      truncate(order.Customer.Email, maxEmailLen),
		"vads_cust_phone":      truncate(order.Customer.Phone, maxPhoneLen),
	}

	ship := Shipping{}
	if order.Shipping != nil {
		ship = *order.Shipping
	}
	fields["vads_ship_to_first_name"] = truncate(ship.FirstName, maxNameLen)
	fields["vads_ship_to_last_name"] = truncate(ship.LastName, maxNameLen)
	fields["vads_ship_to_street"] = truncate(ship.Street, maxAddressLen)
	fields["vads_ship_to_zip"] = truncate(ship.Zip, maxZipLen)
	fields["vads_ship_to_city"] = truncate(ship.City, maxCityLen)
	fields["vads_ship_to_state"] = truncate(ship.State, maxStateLen)
	fields["vads_ship_to_country"] = truncate(strings.ToUpper(ship.Country), maxCountryLen)
	fields["vads_ship_to_phone_num"] = truncate(ship.Phone, maxPhoneLen)

	if cfg.RedirectEnabled {
		fields["vads_redirect_success_timeout"] = cfg.RedirectSuccessTimeout
		fields["vads_redirect_success_message"] = cfg.RedirectSuccessMessage
		fields["vads_redirect_error_timeout"] = cfg.RedirectErrorTimeout
		fields["vads_redirect_error_message"] = cfg.RedirectErrorMessage
	}

	// Upstream forms sometimes send " " for blank values.
	for k, v := range fields {
		if v == " " {
			fields[k] = ""
		}
	}

	signature, err := Sign(fields, key, cfg.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfiguration, err)
	}

	return &SignedParameterSet{
		GatewayURL: cfg.GatewayURL,
		Fields:     fields,
		Signature:  signature,
	}, nil
}

// PaymentConfig renders vads_payment_config for an amount in minor units.
func PaymentConfig(mode PaymentMode, amount int64) (string, error) {
	switch m := mode.(type) {
	case nil, Single:
		return paymentConfigSingle, nil
	case Installments:
		if m.Count < 1 {
			return "", fmt.Errorf("%w: installment count must be positive", ErrMissingConfiguration)
		}
		first := FirstInstallment(m, amount)
		return fmt.Sprintf("MULTI:first=%d;count=%d;period=%d", first, m.Count, m.PeriodDays), nil
	}
	return "", fmt.Errorf("%w: unknown payment mode %T", ErrMissingConfiguration, mode)
}

// FirstInstallment returns the amount of the first payment in minor units,
// truncated toward zero.
func FirstInstallment(m Installments, amount int64) int64 {
	total := decimal.NewFromInt(amount)
	if m.FirstPercent != nil {
		return m.FirstPercent.Div(hundred).Mul(total).Truncate(0).IntPart()
	}
	if m.Count < 1 {
		return amount
	}
	return total.Div(decimal.NewFromInt(int64(m.Count))).Truncate(0).IntPart()
}

func threeDSFlag(threshold *decimal.Decimal, amount decimal.Decimal) string {
	if threshold != nil && amount.LessThan(*threshold) {
		return threeDSDisabled
	}
	return ""
}

// joinCodes renders a code list the way the gateway expects: "fr;en;".
func joinCodes(codes []string) string {
	var b strings.Builder
	for _, c := range codes {
		b.WriteString(c)
		b.WriteString(";")
	}
	return b.String()
}

// truncate keeps at most n characters of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
