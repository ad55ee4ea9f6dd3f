package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_systempay/internal/models"
	"github.com/GTDGit/gtd_systempay/internal/sse"
	"github.com/GTDGit/gtd_systempay/pkg/systempay"
)

// CallbackProcessor validates a gateway payload and applies the resulting
// state. *systempay.Processor implements it.
type CallbackProcessor interface {
	Process(ctx context.Context, payload map[string]string) (*systempay.Outcome, error)
}

// GatewayCallbackRepository stores received gateway payloads.
type GatewayCallbackRepository interface {
	CreateGatewayCallback(ctx context.Context, cb *models.GatewayCallback) error
}

// TransactionReader loads transactions by primary key.
type TransactionReader interface {
	GetByID(ctx context.Context, id int) (*models.Transaction, error)
}

// WebhookSender notifies the order system of a state change.
type WebhookSender interface {
	SendCallback(ctx context.Context, trx *models.Transaction, event string) error
}

// CallbackResult summarizes how a gateway callback was handled.
type CallbackResult struct {
	Transaction *models.Transaction
	State       systempay.State
	Applied     bool
	Ignored     bool
	// Accepted is true when the payment went through or may still do so.
	Accepted bool
}

// ReturnURLs are where customers land after the payment page.
type ReturnURLs struct {
	Success string
	Failure string
}

// GatewayService handles the browser return and the server notification.
// Both channels carry the same fields and go through the same validation.
type GatewayService struct {
	processor CallbackProcessor
	callbacks GatewayCallbackRepository
	trxRepo   TransactionReader
	forms     FormStore
	webhooks  WebhookSender
	notifier  sse.TransactionNotifier
	returns   ReturnURLs
	// async runs webhook deliveries off the request path.
	async func(func())
}

// NewGatewayService constructs a GatewayService.
func NewGatewayService(
	processor CallbackProcessor,
	callbacks GatewayCallbackRepository,
	trxRepo TransactionReader,
	forms FormStore,
	webhooks WebhookSender,
	notifier sse.TransactionNotifier,
	returns ReturnURLs,
) *GatewayService {
	if notifier == nil {
		notifier = &sse.NopNotifier{}
	}
	return &GatewayService{
		processor: processor,
		callbacks: callbacks,
		trxRepo:   trxRepo,
		forms:     forms,
		webhooks:  webhooks,
		notifier:  notifier,
		returns:   returns,
		async:     func(f func()) { go f() },
	}
}

// HandleCallback validates payload and records it whatever the outcome.
// Rejected payloads never change the transaction.
func (s *GatewayService) HandleCallback(ctx context.Context, channel string, payload map[string]string, remoteIP string) (*CallbackResult, error) {
	outcome, err := s.processor.Process(ctx, payload)

	record := newGatewayCallback(channel, payload, remoteIP)
	if outcome != nil && outcome.Transaction != nil {
		if id, convErr := strconv.Atoi(outcome.Transaction.ID); convErr == nil {
			record.TransactionID = &id
		}
	}

	result := &CallbackResult{}
	switch {
	case err != nil:
		record.Outcome = models.OutcomeRejected
		code, msg := CallbackErrorCode(err), err.Error()
		record.ErrorCode = &code
		record.ErrorMessage = &msg
	case !outcome.Applied:
		record.Outcome = models.OutcomeIgnored
		result.Ignored = true
	default:
		record.Outcome = models.OutcomeApplied
		result.Applied = true
	}
	if outcome != nil && outcome.Transaction != nil {
		result.State = outcome.Transaction.State
	}
	result.Accepted = err == nil && (result.State == systempay.StateDone || result.State == systempay.StatePending)

	if recErr := s.callbacks.CreateGatewayCallback(ctx, record); recErr != nil {
		log.Error().Err(recErr).Str("channel", channel).Msg("Failed to store gateway callback")
	}

	if record.TransactionID != nil {
		trx, getErr := s.trxRepo.GetByID(ctx, *record.TransactionID)
		if getErr != nil {
			log.Error().Err(getErr).Int("id", *record.TransactionID).Msg("Failed to reload transaction")
		}
		result.Transaction = trx
	}

	if err != nil {
		return result, err
	}
	if result.Applied && result.Transaction != nil {
		s.afterTransition(result.Transaction)
	}
	return result, nil
}

func (s *GatewayService) afterTransition(trx *models.Transaction) {
	s.notifier.NotifyTransactionStateChanged(trx)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.forms.Forget(ctx, trx.TransactionID); err != nil {
		log.Warn().Err(err).Str("transaction_id", trx.TransactionID).Msg("Failed to drop cached form")
	}

	event := WebhookEvent(trx.State)
	s.async(func() {
		if err := s.webhooks.SendCallback(context.Background(), trx, event); err != nil {
			log.Error().Err(err).Str("transaction_id", trx.TransactionID).Msg("Failed to send webhook")
		}
	})
}

func newGatewayCallback(channel string, payload map[string]string, remoteIP string) *models.GatewayCallback {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}
	cb := &models.GatewayCallback{
		Channel:  channel,
		Payload:  raw,
		RemoteIP: remoteIP,
	}
	if ref := payload["vads_order_id"]; ref != "" {
		cb.Reference = &ref
	}
	if status := payload["vads_trans_status"]; status != "" {
		cb.TransStatus = &status
	}
	return cb
}

// CallbackErrorCode maps a processing error to an API error code.
func CallbackErrorCode(err error) string {
	for _, target := range []error{
		systempay.ErrMalformedCallback,
		systempay.ErrOrderLookup,
		systempay.ErrSignatureMismatch,
		systempay.ErrInvalidParameters,
		systempay.ErrMissingConfiguration,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "INTERNAL_ERROR"
}

// ReturnURL picks where to send the customer after the payment page: the
// return URL given when the payment was opened, else the configured success
// or failure page. Redirect targets never come from the gateway payload,
// which is unsigned outside the vads_ fields.
func (s *GatewayService) ReturnURL(result *CallbackResult) string {
	base := ""
	if result != nil && result.Transaction != nil && result.Transaction.ReturnURL != nil {
		base = *result.Transaction.ReturnURL
	}
	if base == "" {
		base = s.returns.Failure
		if result != nil && result.Accepted {
			base = s.returns.Success
		}
	}

	u, err := url.Parse(base)
	if err != nil || result == nil || result.Transaction == nil {
		return base
	}
	q := u.Query()
	q.Set("transactionId", result.Transaction.TransactionID)
	q.Set("reference", result.Transaction.Reference)
	q.Set("state", string(result.Transaction.State))
	u.RawQuery = q.Encode()
	return u.String()
}

// WebhookEvent names the webhook sent for a state.
func WebhookEvent(state systempay.State) string {
	if state == systempay.StateUnset {
		return "payment.created"
	}
	return "payment." + string(state)
}
