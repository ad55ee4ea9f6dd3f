package systempay

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Store loads and saves transactions. It is implemented by the
// persistence layer.
type Store interface {
	FindByReference(ctx context.Context, reference string) ([]Transaction, error)
	SaveTransition(ctx context.Context, tx *Transaction) error
}

// MerchantResolver returns the merchant configuration a transaction was
// signed with.
type MerchantResolver interface {
	MerchantConfig(ctx context.Context, tx *Transaction) (MerchantConfig, error)
}

// StaticMerchant serves the same configuration to every transaction, in
// the environment the transaction was signed in.
type StaticMerchant MerchantConfig

func (m StaticMerchant) MerchantConfig(_ context.Context, tx *Transaction) (MerchantConfig, error) {
	cfg := MerchantConfig(m)
	if tx != nil && tx.Environment != "" {
		cfg.Environment = tx.Environment
	}
	return cfg, nil
}

// Outcome is the result of processing one callback.
type Outcome struct {
	Callback    *Callback
	Transaction *Transaction
	Verdict     Verdict
	// Previous is the state before the callback was applied.
	Previous State
	Applied  bool
}

// Processor runs lookup, verification and state mutation for a callback
// as one unit under a per-reference lock.
type Processor struct {
	store    Store
	merchant MerchantResolver
	locker   Locker
	policy   Policy
	now      func() time.Time
}

func NewProcessor(store Store, merchant MerchantResolver, locker Locker, policy Policy) *Processor {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	return &Processor{
		store:    store,
		merchant: merchant,
		locker:   locker,
		policy:   policy,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for validation timestamps.
func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}

// Process validates payload and applies the resulting state. On error the
// returned outcome, when not nil, carries whatever was known before the
// failure (parsed callback, matched transaction, verdict) for logging.
func (p *Processor) Process(ctx context.Context, payload map[string]string) (*Outcome, error) {
	cb, err := ParseCallback(payload)
	if err != nil {
		log.Error().Err(err).Interface("payload", payload).Msg("Systempay callback rejected")
		return nil, err
	}
	out := &Outcome{Callback: cb}

	unlock, err := p.locker.Lock(ctx, cb.Reference)
	if err != nil {
		return out, fmt.Errorf("lock reference %s: %w", cb.Reference, err)
	}
	defer unlock()

	tx, err := p.lookup(ctx, cb.Reference)
	if err != nil {
		log.Error().Err(err).Interface("payload", payload).Msg("Systempay callback rejected")
		return out, err
	}
	out.Transaction = tx
	out.Previous = tx.State

	cfg, err := p.merchant.MerchantConfig(ctx, tx)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrMissingConfiguration, err)
	}

	verdict, err := Validate(cb, tx, cfg, p.policy)
	out.Verdict = verdict
	if err != nil {
		log.Error().Err(err).
			Str("reference", cb.Reference).
			Interface("payload", payload).
			Msg("Systempay callback rejected")
		return out, err
	}

	if !tx.Apply(verdict, p.now(), p.policy.AllowTerminalOverwrite) {
		out.Verdict.Ignored = true
		log.Warn().
			Str("reference", cb.Reference).
			Str("state", string(tx.State)).
			Str("status", cb.Status).
			Msg("Callback for terminal transaction ignored")
		return out, nil
	}

	if err := p.store.SaveTransition(ctx, tx); err != nil {
		return out, fmt.Errorf("save transaction %s: %w", tx.Reference, err)
	}
	out.Applied = true

	log.Info().
		Str("reference", tx.Reference).
		Str("from", string(out.Previous)).
		Str("to", string(tx.State)).
		Str("status", cb.Status).
		Int("invalid_parameters", len(tx.InvalidParameters)).
		Msg("Transaction state updated")
	return out, nil
}

func (p *Processor) lookup(ctx context.Context, reference string) (*Transaction, error) {
	txs, err := p.store.FindByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("%w: reference %s: %v", ErrOrderLookup, reference, err)
	}
	switch len(txs) {
	case 0:
		return nil, fmt.Errorf("%w: reference %s: no order found", ErrOrderLookup, reference)
	case 1:
		return &txs[0], nil
	}
	return nil, fmt.Errorf("%w: reference %s: multiple orders found", ErrOrderLookup, reference)
}
