package models

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_systempay/pkg/systempay"
)

// Transaction is one payment attempt of an order on the Systempay page.
type Transaction struct {
	ID            int    `db:"id" json:"-"`
	TransactionID string `db:"transaction_id" json:"transactionId"`
	// Reference is the order reference sent as vads_order_id.
	Reference string `db:"reference" json:"reference"`
	ClientID  int    `db:"client_id" json:"-"`
	IsSandbox bool   `db:"is_sandbox" json:"isSandbox"`
	CtxMode   string `db:"ctx_mode" json:"ctxMode"`

	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Currency      string          `db:"currency" json:"currency"`
	AmountMinor   int64           `db:"amount_minor" json:"amountMinor"`
	PaymentConfig string          `db:"payment_config" json:"paymentConfig"`
	// GatewayTransID is vads_trans_id, unique per site and day.
	GatewayTransID string  `db:"gateway_trans_id" json:"gatewayTransId"`
	CustomerEmail  *string `db:"customer_email" json:"customerEmail,omitempty"`
	ReturnURL      *string `db:"return_url" json:"returnUrl,omitempty"`

	State             systempay.State    `db:"state" json:"state"`
	StateMessage      *string            `db:"state_message" json:"stateMessage,omitempty"`
	AcquirerReference *string            `db:"acquirer_reference" json:"acquirerReference,omitempty"`
	Diagnostics       NullableRawMessage `db:"diagnostics" json:"diagnostics,omitempty"`
	InvalidParameters NullableRawMessage `db:"invalid_parameters" json:"invalidParameters,omitempty"`
	ValidatedAt       *time.Time         `db:"validated_at" json:"validatedAt,omitempty"`

	CallbackSent   bool       `db:"callback_sent" json:"callbackSent"`
	CallbackSentAt *time.Time `db:"callback_sent_at" json:"callbackSentAt,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// Domain returns the state machine view of the transaction.
func (t *Transaction) Domain() (systempay.Transaction, error) {
	d := systempay.Transaction{
		ID:          strconv.Itoa(t.ID),
		Reference:   t.Reference,
		Acquirer:    "systempay",
		Environment: systempay.Environment(t.CtxMode),
		Amount:      t.Amount,
		Currency:    t.Currency,
		State:       t.State,
		ValidatedAt: t.ValidatedAt,
	}
	if t.StateMessage != nil {
		d.StateMessage = *t.StateMessage
	}
	if t.AcquirerReference != nil {
		d.AcquirerReference = *t.AcquirerReference
	}
	if len(t.Diagnostics) > 0 {
		d.Diagnostics = &systempay.Diagnostics{}
		if err := json.Unmarshal(t.Diagnostics, d.Diagnostics); err != nil {
			return d, err
		}
	}
	if len(t.InvalidParameters) > 0 {
		if err := json.Unmarshal(t.InvalidParameters, &d.InvalidParameters); err != nil {
			return d, err
		}
	}
	return d, nil
}

// ApplyDomain copies the outcome of a state transition back onto t.
func (t *Transaction) ApplyDomain(d *systempay.Transaction) error {
	t.State = d.State
	t.StateMessage = optional(d.StateMessage)
	t.AcquirerReference = optional(d.AcquirerReference)
	t.ValidatedAt = d.ValidatedAt

	t.Diagnostics = nil
	if d.Diagnostics != nil {
		raw, err := json.Marshal(d.Diagnostics)
		if err != nil {
			return err
		}
		t.Diagnostics = raw
	}
	t.InvalidParameters = nil
	if len(d.InvalidParameters) > 0 {
		raw, err := json.Marshal(d.InvalidParameters)
		if err != nil {
			return err
		}
		t.InvalidParameters = raw
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
