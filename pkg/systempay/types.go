package systempay

import (
	"github.com/shopspring/decimal"
)

// Environment selects which key signs the request (vads_ctx_mode).
type Environment string

const (
	EnvironmentTest       Environment = "TEST"
	EnvironmentProduction Environment = "PRODUCTION"
)

// ValidationModeDefault defers the validation mode to the back office.
const ValidationModeDefault = "-1"

// MerchantConfig is the shop configuration used for one payment attempt.
type MerchantConfig struct {
	SiteID      string
	KeyTest     string
	KeyProd     string
	Environment Environment
	Algorithm   Algorithm
	GatewayURL  string
	Version     string
	// Contrib identifies the integration (vads_contrib).
	Contrib string

	Language           string
	AvailableLanguages []string
	PaymentCards       []string
	CaptureDelay       string
	ValidationMode     string
	ReturnMode         string
	// ThreeDSMinAmount disables 3-D Secure for orders strictly below it.
	ThreeDSMinAmount *decimal.Decimal

	RedirectEnabled        bool
	RedirectSuccessTimeout string
	RedirectSuccessMessage string
	RedirectErrorTimeout   string
	RedirectErrorMessage   string

	Mode PaymentMode
}

// Key returns the secret for the active environment.
func (c MerchantConfig) Key() string {
	if c.Environment == EnvironmentProduction {
		return c.KeyProd
	}
	return c.KeyTest
}

// CtxMode returns the vads_ctx_mode value, defaulting to TEST.
func (c MerchantConfig) CtxMode() Environment {
	if c.Environment == EnvironmentProduction {
		return EnvironmentProduction
	}
	return EnvironmentTest
}

// PaymentMode is either Single or Installments.
type PaymentMode interface {
	paymentMode()
}

// Single charges the full amount at once.
type Single struct{}

// Installments splits the amount into Count payments PeriodDays apart.
// FirstPercent, when set, is the share of the total charged first;
// otherwise every payment has the same amount.
type Installments struct {
	Count        int
	PeriodDays   int
	FirstPercent *decimal.Decimal
}

func (Single) paymentMode()       {}
func (Installments) paymentMode() {}

// Customer holds billing details.
type Customer struct {
	ID        string
	FirstName string
	LastName  string
	Address   string
	Zip       string
	City      string
	State     string
	Country   string
	Email     string
	Phone     string
}

// Shipping holds delivery details.
type Shipping struct {
	FirstName string
	LastName  string
	Street    string
	Zip       string
	City      string
	State     string
	Country   string
	Phone     string
}

// OrderContext is everything the builder needs to know about the order.
type OrderContext struct {
	Reference string
	Amount    decimal.Decimal
	Currency  string
	ReturnURL string
	Customer  Customer
	Shipping  *Shipping
}
