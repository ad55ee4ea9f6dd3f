package systempay

import (
	"fmt"
	"strings"
)

// Currency describes how the gateway encodes a currency.
type Currency struct {
	Alpha    string
	Numeric  string
	Exponent int32
}

// currencies lists every currency accepted by the payment page.
var currencies = []Currency{
	{"AUD", "036", 2},
	{"KHR", "116", 0},
	{"CAD", "124", 2},
	{"CNY", "156", 1},
	{"HRK", "191", 2},
	{"CZK", "203", 2},
	{"DKK", "208", 2},
	{"HKD", "344", 2},
	{"HUF", "348", 2},
	{"INR", "356", 2},
	{"IDR", "360", 2},
	{"JPY", "392", 0},
	{"KRW", "410", 0},
	{"MYR", "458", 2},
	{"MXN", "484", 2},
	{"NZD", "554", 2},
	{"NOK", "578", 2},
	{"PHP", "608", 2},
	{"RUB", "643", 2},
	{"SGD", "702", 2},
	{"ZAR", "710", 2},
	{"SEK", "752", 2},
	{"CHF", "756", 2},
	{"THB", "764", 2},
	{"GBP", "826", 2},
	{"USD", "840", 2},
	{"TWD", "901", 2},
	{"RON", "946", 2},
	{"TRY", "949", 2},
	{"XPF", "953", 0},
	{"BGN", "975", 2},
	{"EUR", "978", 2},
	{"PLN", "985", 2},
	{"BRL", "986", 2},
}

var currencyByAlpha = func() map[string]Currency {
	m := make(map[string]Currency, len(currencies))
	for _, c := range currencies {
		m[c.Alpha] = c
	}
	return m
}()

// ResolveCurrency maps an ISO 4217 alpha-3 code to the gateway numeric code
// and minor-unit exponent.
func ResolveCurrency(alpha string) (Currency, error) {
	c, ok := currencyByAlpha[strings.ToUpper(strings.TrimSpace(alpha))]
	if !ok {
		return Currency{}, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, alpha)
	}
	return c, nil
}

// Currencies returns a copy of the supported currency table.
func Currencies() []Currency {
	out := make([]Currency, len(currencies))
	copy(out, currencies)
	return out
}
