package systempay

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FeatureFlags toggles optional parts of the integration.
type FeatureFlags struct {
	// Multi enables payment in installments.
	Multi bool
	// RestrictMulti warns that installments need a gateway option.
	RestrictMulti bool
	// Qualif locks the test key to the value provisioned for qualification.
	Qualif bool
	// SHA256 reports that HMAC-SHA-256 is available in the back office.
	SHA256 bool
}

// FieldSpec describes one merchant configuration field.
type FieldSpec struct {
	Name     string `json:"name"`
	ReadOnly bool   `json:"readOnly"`
	Notice   string `json:"notice,omitempty"`
}

// FieldSchema is the immutable set of configuration fields and payment
// modes enabled by a FeatureFlags value.
type FieldSchema struct {
	Installments bool        `json:"installments"`
	MultiWarning bool        `json:"multiWarning"`
	Algorithms   []Algorithm `json:"algorithms"`
	Fields       []FieldSpec `json:"fields"`
}

// BuildFieldSchema derives the configuration schema from feature flags.
// It is meant to be called once at startup.
func BuildFieldSchema(flags FeatureFlags) FieldSchema {
	algoNotice := ""
	if !flags.SHA256 {
		algoNotice = "HMAC-SHA-256 must not be selected until it is available in the back office"
	}

	fields := []FieldSpec{
		{Name: "site_id"},
		{Name: "key_test", ReadOnly: flags.Qualif},
		{Name: "key_prod"},
		{Name: "sign_algo", Notice: algoNotice},
		{Name: "gateway_url"},
		{Name: "language"},
		{Name: "available_languages"},
		{Name: "capture_delay"},
		{Name: "validation_mode"},
		{Name: "payment_cards"},
		{Name: "threeds_min_amount"},
		{Name: "redirect_enabled"},
		{Name: "redirect_success_timeout"},
		{Name: "redirect_success_message"},
		{Name: "redirect_error_timeout"},
		{Name: "redirect_error_message"},
		{Name: "return_mode"},
	}
	if flags.Multi {
		fields = append(fields,
			FieldSpec{Name: "multi_count"},
			FieldSpec{Name: "multi_period"},
			FieldSpec{Name: "multi_first"},
		)
	}

	return FieldSchema{
		Installments: flags.Multi,
		MultiWarning: flags.Multi && flags.RestrictMulti,
		Algorithms:   []Algorithm{AlgorithmSHA1, AlgorithmHMACSHA256},
		Fields:       fields,
	}
}

// Field looks up a configuration field by name.
func (s FieldSchema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Validate checks a merchant configuration against the schema and the
// static catalogs. All problems are reported at once.
func (s FieldSchema) Validate(cfg MerchantConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.SiteID) == "" {
		errs = append(errs, fmt.Errorf("%w: site id is empty", ErrMissingConfiguration))
	}
	if cfg.Key() == "" {
		errs = append(errs, fmt.Errorf("%w: no key for %s mode", ErrMissingConfiguration, cfg.CtxMode()))
	}
	if cfg.Environment != EnvironmentTest && cfg.Environment != EnvironmentProduction {
		errs = append(errs, fmt.Errorf("unknown context mode %q", cfg.Environment))
	}
	if !s.allowsAlgorithm(cfg.Algorithm) {
		errs = append(errs, fmt.Errorf("signature algorithm %q is not available", cfg.Algorithm))
	}
	if cfg.Language != "" {
		if _, ok := Languages[cfg.Language]; !ok {
			errs = append(errs, fmt.Errorf("unsupported language %q", cfg.Language))
		}
	}
	for _, l := range cfg.AvailableLanguages {
		if _, ok := Languages[l]; !ok {
			errs = append(errs, fmt.Errorf("unsupported available language %q", l))
		}
	}
	for _, c := range cfg.PaymentCards {
		if _, ok := Cards[c]; !ok {
			errs = append(errs, fmt.Errorf("unsupported card type %q", c))
		}
	}
	switch cfg.ValidationMode {
	case "", ValidationModeDefault, "0", "1":
	default:
		errs = append(errs, fmt.Errorf("invalid validation mode %q", cfg.ValidationMode))
	}
	switch cfg.ReturnMode {
	case "", "GET", "POST":
	default:
		errs = append(errs, fmt.Errorf("invalid return mode %q", cfg.ReturnMode))
	}
	if cfg.ThreeDSMinAmount != nil && cfg.ThreeDSMinAmount.IsNegative() {
		errs = append(errs, errors.New("3DS minimum amount must not be negative"))
	}
	if cfg.RedirectEnabled {
		for name, v := range map[string]string{
			"redirect success timeout": cfg.RedirectSuccessTimeout,
			"redirect error timeout":   cfg.RedirectErrorTimeout,
		} {
			if err := validateTimeout(v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
	}

	switch m := cfg.Mode.(type) {
	case nil, Single:
	case Installments:
		if !s.Installments {
			errs = append(errs, errors.New("payment in installments is not enabled"))
		}
		if m.Count < 1 {
			errs = append(errs, fmt.Errorf("installment count must be positive, got %d", m.Count))
		}
		if m.PeriodDays < 0 {
			errs = append(errs, fmt.Errorf("installment period must not be negative, got %d", m.PeriodDays))
		}
		if m.FirstPercent != nil && (m.FirstPercent.IsNegative() || m.FirstPercent.GreaterThan(hundred)) {
			errs = append(errs, fmt.Errorf("first installment percentage out of range: %s", m.FirstPercent))
		}
	}

	return errors.Join(errs...)
}

func (s FieldSchema) allowsAlgorithm(a Algorithm) bool {
	for _, x := range s.Algorithms {
		if x == a {
			return true
		}
	}
	return false
}

// validateTimeout accepts an empty value or a number of seconds in 0..300.
func validateTimeout(raw string) error {
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("not a number: %q", raw)
	}
	if n < 0 || n > 300 {
		return fmt.Errorf("must be between 0 and 300 seconds, got %d", n)
	}
	return nil
}
