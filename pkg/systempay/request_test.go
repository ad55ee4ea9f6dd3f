package systempay

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 14, 8, 30, 15, 0, time.UTC)

func testMerchant() MerchantConfig {
	return MerchantConfig{
		SiteID:             "12345678",
		KeyTest:            testKey,
		KeyProd:            "8877665544332211",
		Environment:        EnvironmentTest,
		Algorithm:          AlgorithmHMACSHA256,
		GatewayURL:         "https://paiement.systempay.fr/vads-payment/",
		Contrib:            "gtd_systempay_1.0",
		Language:           "fr",
		AvailableLanguages: []string{"fr", "en"},
		PaymentCards:       []string{"VISA", "CB"},
		ValidationMode:     ValidationModeDefault,
		ReturnMode:         "POST",
	}
}

func testOrder() OrderContext {
	return OrderContext{
		Reference: "SO042",
		Amount:    decimal.RequireFromString("10.005"),
		Currency:  "EUR",
		ReturnURL: "https://pay.example/payment/systempay/return",
		Customer: Customer{
			ID:        "7",
			FirstName: "Ada",
			LastName:  "Lovelace",
			Address:   "12 rue de la Paix",
			Zip:       "75002",
			City:      "Paris",
			State:     " ",
			Country:   "fr",
			Email:     "ada@example.com",
			Phone:     "+33102030405",
		},
	}
}

func TestTransactionID(t *testing.T) {
	assert.Equal(t, "306150", TransactionID(fixedNow))
	assert.Equal(t, "000000", TransactionID(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "000005", TransactionID(time.Date(2026, 1, 1, 0, 0, 0, 500_000_000, time.UTC)))
	assert.Equal(t, "863999", TransactionID(time.Date(2026, 1, 1, 23, 59, 59, 999_000_000, time.UTC)))
}

func TestBuild(t *testing.T) {
	b := NewBuilderWithClock(func() time.Time { return fixedNow })
	cfg := testMerchant()

	set, err := b.Build(testOrder(), cfg)
	require.NoError(t, err)

	f := set.Fields
	assert.Equal(t, "1001", f["vads_amount"])
	assert.Equal(t, "978", f["vads_currency"])
	assert.Equal(t, "20261014083015", f["vads_trans_date"])
	assert.Equal(t, "306150", f["vads_trans_id"])
	assert.Equal(t, "SO042", f["vads_order_id"])
	assert.Equal(t, "TEST", f["vads_ctx_mode"])
	assert.Equal(t, "PAYMENT", f["vads_page_action"])
	assert.Equal(t, "INTERACTIVE", f["vads_action_mode"])
	assert.Equal(t, "SINGLE", f["vads_payment_config"])
	assert.Equal(t, "V2", f["vads_version"])
	assert.Equal(t, "fr;en;", f["vads_available_languages"])
	assert.Equal(t, "VISA;CB;", f["vads_payment_cards"])
	assert.Equal(t, "", f["vads_validation_mode"])
	assert.Equal(t, "FR", f["vads_cust_country"])
	assert.Equal(t, "", f["vads_cust_state"])
	assert.Equal(t, "", f["vads_threeds_mpi"])
	assert.Contains(t, f, "vads_ship_to_street")
	assert.NotContains(t, f, "vads_redirect_success_timeout")
	assert.Equal(t, cfg.GatewayURL, set.GatewayURL)

	for k := range f {
		assert.True(t, strings.HasPrefix(k, FieldPrefix), k)
	}
	assert.True(t, Verify(f, cfg.KeyTest, cfg.Algorithm, set.Signature))
}

func TestBuildOrderedFields(t *testing.T) {
	b := NewBuilderWithClock(func() time.Time { return fixedNow })
	set, err := b.Build(testOrder(), testMerchant())
	require.NoError(t, err)

	ordered := set.Ordered()
	require.Len(t, ordered, len(set.Fields)+1)
	for i := 1; i < len(ordered)-1; i++ {
		assert.Less(t, ordered[i-1].Name, ordered[i].Name)
	}
	last := ordered[len(ordered)-1]
	assert.Equal(t, SignatureField, last.Name)
	assert.Equal(t, set.Signature, last.Value)
	assert.Equal(t, set.Signature, set.Values()[SignatureField])
}

func TestBuildTruncatesCustomerFields(t *testing.T) {
	b := NewBuilderWithClock(func() time.Time { return fixedNow })
	order := testOrder()
	order.Customer.FirstName = strings.Repeat("a", 100)
	order.Customer.LastName = strings.Repeat("é", 70)
	order.Customer.Phone = strings.Repeat("1", 40)

	set, err := b.Build(order, testMerchant())
	require.NoError(t, err)

	assert.Len(t, set.Fields["vads_cust_first_name"], 62)
	assert.Equal(t, 62, utf8.RuneCountInString(set.Fields["vads_cust_last_name"]))
	assert.True(t, utf8.ValidString(set.Fields["vads_cust_last_name"]))
	assert.Len(t, set.Fields["vads_cust_phone"], 31)
}

func TestBuildProductionKey(t *testing.T) {
	b := NewBuilderWithClock(func() time.Time { return fixedNow })
	cfg := testMerchant()
	cfg.Environment = EnvironmentProduction

	set, err := b.Build(testOrder(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "PRODUCTION", set.Fields["vads_ctx_mode"])
	assert.True(t, Verify(set.Fields, cfg.KeyProd, cfg.Algorithm, set.Signature))
	assert.False(t, Verify(set.Fields, cfg.KeyTest, cfg.Algorithm, set.Signature))
}

func TestBuildThreeDSThreshold(t *testing.T) {
	b := NewBuilderWithClock(func() time.Time { return fixedNow })
	cfg := testMerchant()

	threshold := decimal.NewFromInt(50)
	cfg.ThreeDSMinAmount = &threshold
	set, err := b.Build(testOrder(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "2", set.Fields["vads_threeds_mpi"])

	threshold = decimal.RequireFromString("10.005")
	set, err = b.Build(testOrder(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "", set.Fields["vads_threeds_mpi"])
}

func TestBuildRedirectFields(t *testing.T) {
	b := NewBuilderWithClock(func() time.Time { return fixedNow })
	cfg := testMerchant()
	cfg.RedirectEnabled = true
	cfg.RedirectSuccessTimeout = "5"
	cfg.RedirectSuccessMessage = "Redirection to shop in a few seconds..."
	cfg.RedirectErrorTimeout = "5"
	cfg.RedirectErrorMessage = "Redirection to shop in a few seconds..."

	set, err := b.Build(testOrder(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "5", set.Fields["vads_redirect_success_timeout"])
	assert.Equal(t, cfg.RedirectErrorMessage, set.Fields["vads_redirect_error_message"])
}

func TestBuildErrors(t *testing.T) {
	b := NewBuilderWithClock(func() time.Time { return fixedNow })

	tests := []struct {
		name   string
		mutate func(*OrderContext, *MerchantConfig)
		want   error
	}{
		{"unsupported currency", func(o *OrderContext, _ *MerchantConfig) { o.Currency = "XXX" }, ErrUnsupportedCurrency},
		{"negative amount", func(o *OrderContext, _ *MerchantConfig) { o.Amount = decimal.NewFromInt(-1) }, ErrInvalidAmount},
		{"missing test key", func(_ *OrderContext, c *MerchantConfig) { c.KeyTest = "" }, ErrMissingConfiguration},
		{"missing site id", func(_ *OrderContext, c *MerchantConfig) { c.SiteID = "" }, ErrMissingConfiguration},
		{"unknown algorithm", func(_ *OrderContext, c *MerchantConfig) { c.Algorithm = "MD5" }, ErrMissingConfiguration},
		{"zero installments", func(_ *OrderContext, c *MerchantConfig) { c.Mode = Installments{Count: 0} }, ErrMissingConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, cfg := testOrder(), testMerchant()
			tt.mutate(&order, &cfg)
			set, err := b.Build(order, cfg)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, set)
		})
	}
}

func TestPaymentConfig(t *testing.T) {
	pct := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}

	tests := []struct {
		name string
		mode PaymentMode
		want string
	}{
		{"nil", nil, "SINGLE"},
		{"single", Single{}, "SINGLE"},
		{"equal split", Installments{Count: 4, PeriodDays: 30}, "MULTI:first=2500;count=4;period=30"},
		{"25 percent", Installments{Count: 4, PeriodDays: 30, FirstPercent: pct("25")}, "MULTI:first=2500;count=4;period=30"},
		{"10 percent", Installments{Count: 3, PeriodDays: 15, FirstPercent: pct("10")}, "MULTI:first=1000;count=3;period=15"},
		{"uneven split truncates", Installments{Count: 3, PeriodDays: 30}, "MULTI:first=3333;count=3;period=30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PaymentConfig(tt.mode, 10000)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstInstallment(t *testing.T) {
	p := decimal.RequireFromString("33.3")
	assert.Equal(t, int64(333), FirstInstallment(Installments{Count: 3, FirstPercent: &p}, 1001))
	assert.Equal(t, int64(2500), FirstInstallment(Installments{Count: 4}, 10000))

	quarter := decimal.RequireFromString("25")
	assert.Equal(t, int64(2500), FirstInstallment(Installments{Count: 4, FirstPercent: &quarter}, 10000))
	tenth := decimal.RequireFromString("10")
	assert.Equal(t, int64(1000), FirstInstallment(Installments{Count: 4, FirstPercent: &tenth}, 10000))

	// the share is truncated, not rounded: 125.5 gives 125
	odd := decimal.RequireFromString("12.55")
	assert.Equal(t, int64(125), FirstInstallment(Installments{Count: 3, FirstPercent: &odd}, 1000))
}

// echo turns a built form into the callback the gateway would send back
// for it, signed with a fresh signature.
func echo(t *testing.T, set *SignedParameterSet, cfg MerchantConfig, status string) map[string]string {
	t.Helper()
	fields := make(map[string]string, len(set.Fields)+1)
	for k, v := range set.Fields {
		fields[k] = v
	}
	fields["vads_trans_status"] = status
	return signed(t, cfg, fields)
}

func TestBuildThenValidate(t *testing.T) {
	for _, algo := range []Algorithm{AlgorithmSHA1, AlgorithmHMACSHA256} {
		t.Run(string(algo), func(t *testing.T) {
			cfg := testMerchant()
			cfg.Algorithm = algo
			set, err := NewBuilderWithClock(func() time.Time { return fixedNow }).Build(testOrder(), cfg)
			require.NoError(t, err)

			cb, err := ParseCallback(echo(t, set, cfg, "AUTHORISED"))
			require.NoError(t, err)
			v, err := Validate(cb, testTransaction(), cfg, Policy{})
			require.NoError(t, err)
			assert.True(t, v.Accepted)
			assert.Equal(t, StateDone, v.State)
			assert.Empty(t, v.InvalidParameters)
		})
	}
}

func TestBuildThenValidateTamperedField(t *testing.T) {
	for _, algo := range []Algorithm{AlgorithmSHA1, AlgorithmHMACSHA256} {
		cfg := testMerchant()
		cfg.Algorithm = algo
		set, err := NewBuilderWithClock(func() time.Time { return fixedNow }).Build(testOrder(), cfg)
		require.NoError(t, err)
		require.NotEmpty(t, set.Fields)

		payload := echo(t, set, cfg, "AUTHORISED")
		for name := range set.Fields {
			t.Run(string(algo)+"/"+name, func(t *testing.T) {
				tampered := make(map[string]string, len(payload))
				for k, v := range payload {
					tampered[k] = v
				}
				tampered[name] += "0"

				cb, err := ParseCallback(tampered)
				require.NoError(t, err)
				_, err = Validate(cb, testTransaction(), cfg, Policy{AllowInvalidParameters: true})
				assert.ErrorIs(t, err, ErrSignatureMismatch)
			})
		}
	}
}
