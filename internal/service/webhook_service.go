package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_systempay/internal/models"
	"github.com/GTDGit/gtd_systempay/internal/utils"
)

// WebhookClientRepository loads the order system of a transaction.
type WebhookClientRepository interface {
	GetByID(ctx context.Context, id int) (*models.Client, error)
}

// CallbackLogRepository stores outgoing webhook attempts.
type CallbackLogRepository interface {
	CreateCallbackLog(ctx context.Context, log *models.CallbackLog) error
	UpdateCallbackLog(ctx context.Context, log *models.CallbackLog) error
	GetPendingCallbacks(ctx context.Context) ([]models.CallbackLog, error)
}

// CallbackMarker flags transactions whose webhook was delivered.
type CallbackMarker interface {
	MarkCallbackSent(ctx context.Context, id int) error
}

// retryIntervals is the delay before each retry of a failed webhook.
var retryIntervals = []time.Duration{
	30 * time.Second,
	1 * time.Minute,
	5 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
}

// WebhookService sends signed webhooks to order systems and retries failed
// deliveries.
type WebhookService struct {
	clientRepo   WebhookClientRepository
	callbackRepo CallbackLogRepository
	trxRepo      CallbackMarker
	httpClient   *http.Client
	now          func() time.Time
}

// NewWebhookService constructs a WebhookService with a default HTTP client.
func NewWebhookService(clientRepo WebhookClientRepository, callbackRepo CallbackLogRepository, trxRepo CallbackMarker) *WebhookService {
	return &WebhookService{
		clientRepo:   clientRepo,
		callbackRepo: callbackRepo,
		trxRepo:      trxRepo,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		now: time.Now,
	}
}

// SendCallback posts the transaction to the client's callback URL and logs
// the attempt. Failed deliveries are picked up by RetryPendingCallbacks.
func (s *WebhookService) SendCallback(ctx context.Context, trx *models.Transaction, event string) error {
	if trx == nil {
		return nil
	}
	client, err := s.clientRepo.GetByID(ctx, trx.ClientID)
	if err != nil {
		return err
	}
	if client == nil || client.CallbackURL == "" {
		return nil
	}

	payload, err := buildWebhookPayload(trx, event, s.now())
	if err != nil {
		return err
	}

	entry := &models.CallbackLog{
		TransactionID: trx.ID,
		ClientID:      client.ID,
		Event:         event,
		Payload:       json.RawMessage(payload),
		Attempt:       1,
	}
	s.deliver(ctx, client, entry)

	if err := s.callbackRepo.CreateCallbackLog(ctx, entry); err != nil {
		log.Error().Err(err).Str("transaction_id", trx.TransactionID).Msg("failed to create callback log")
	}
	if entry.IsDelivered {
		s.markSent(ctx, trx.ID)
	}
	return nil
}

// RetryPendingCallbacks retries undelivered webhooks that are due.
func (s *WebhookService) RetryPendingCallbacks(ctx context.Context) error {
	callbacks, err := s.callbackRepo.GetPendingCallbacks(ctx)
	if err != nil {
		return err
	}
	for i := range callbacks {
		cb := &callbacks[i]
		client, err := s.clientRepo.GetByID(ctx, cb.ClientID)
		if err != nil || client == nil || client.CallbackURL == "" {
			continue
		}

		cb.Attempt++
		s.deliver(ctx, client, cb)

		if err := s.callbackRepo.UpdateCallbackLog(ctx, cb); err != nil {
			log.Error().Err(err).Int("callback_id", cb.ID).Msg("failed to update callback log")
		}
		if cb.IsDelivered {
			s.markSent(ctx, cb.TransactionID)
		}
	}
	return nil
}

// deliver posts entry.Payload and records the response on entry.
func (s *WebhookService) deliver(ctx context.Context, client *models.Client, entry *models.CallbackLog) {
	entry.HTTPStatus = nil
	entry.ResponseBody = nil
	entry.IsDelivered = false

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.CallbackURL, bytes.NewReader(entry.Payload))
	if err == nil {
		signature := utils.GenerateSignature(entry.Payload, client.CallbackSecret)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Callback-Signature", utils.SignaturePrefix+signature)
		req.Header.Set("X-Callback-Event", entry.Event)
		req.Header.Set("X-Callback-Id", uuid.NewString())
		req.Header.Set("X-Callback-Timestamp", s.now().Format(time.RFC3339))

		var resp *http.Response
		resp, err = s.httpClient.Do(req)
		if resp != nil {
			sc := resp.StatusCode
			entry.HTTPStatus = &sc
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if len(body) > 0 {
				b := string(body)
				entry.ResponseBody = &b
			}
			entry.IsDelivered = err == nil && sc >= 200 && sc < 300
		}
	}
	if err != nil {
		log.Warn().Err(err).Str("client_id", client.ClientID).Str("event", entry.Event).Msg("webhook delivery failed")
	}

	entry.NextRetryAt = nil
	if !entry.IsDelivered {
		if next, ok := s.nextRetryTime(entry.Attempt); ok {
			entry.NextRetryAt = &next
		}
	}
}

func (s *WebhookService) markSent(ctx context.Context, trxID int) {
	if err := s.trxRepo.MarkCallbackSent(ctx, trxID); err != nil {
		log.Error().Err(err).Int("id", trxID).Msg("failed to mark callback sent")
	}
}

// nextRetryTime returns when to retry after the given attempt, or false
// once every retry has been spent.
// Retry intervals: 30s, 1m, 5m, 30m, 2h
func (s *WebhookService) nextRetryTime(attempt int) (time.Time, bool) {
	if attempt < 1 || attempt > len(retryIntervals) {
		return time.Time{}, false
	}
	return s.now().Add(retryIntervals[attempt-1]), true
}

// WebhookData is the transaction as seen by order systems.
type WebhookData struct {
	TransactionID     string           `json:"transactionId"`
	Reference         string           `json:"reference"`
	State             string           `json:"state"`
	StateMessage      *string          `json:"stateMessage,omitempty"`
	Amount            string           `json:"amount"`
	Currency          string           `json:"currency"`
	CtxMode           string           `json:"ctxMode"`
	AcquirerReference *string          `json:"acquirerReference,omitempty"`
	Diagnostics       *json.RawMessage `json:"diagnostics,omitempty"`
	InvalidParameters *json.RawMessage `json:"invalidParameters,omitempty"`
	ValidatedAt       *time.Time       `json:"validatedAt,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
}

// buildWebhookPayload constructs the JSON payload sent to clients.
func buildWebhookPayload(trx *models.Transaction, event string, now time.Time) ([]byte, error) {
	type payload struct {
		Event     string      `json:"event"`
		Data      WebhookData `json:"data"`
		Timestamp string      `json:"timestamp"`
	}
	data := WebhookData{
		TransactionID:     trx.TransactionID,
		Reference:         trx.Reference,
		State:             string(trx.State),
		StateMessage:      trx.StateMessage,
		Amount:            trx.Amount.String(),
		Currency:          trx.Currency,
		CtxMode:           trx.CtxMode,
		AcquirerReference: trx.AcquirerReference,
		ValidatedAt:       trx.ValidatedAt,
		CreatedAt:         trx.CreatedAt,
	}
	if len(trx.Diagnostics) > 0 {
		raw := json.RawMessage(trx.Diagnostics)
		data.Diagnostics = &raw
	}
	if len(trx.InvalidParameters) > 0 {
		raw := json.RawMessage(trx.InvalidParameters)
		data.InvalidParameters = &raw
	}
	return json.Marshal(payload{
		Event:     event,
		Data:      data,
		Timestamp: now.Format(time.RFC3339),
	})
}
