package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// WebhookRetrier resends webhooks whose retry time has come.
// *service.WebhookService implements it.
type WebhookRetrier interface {
	RetryPendingCallbacks(ctx context.Context) error
}

// CallbackWorker retries failed webhooks on a fixed interval.
type CallbackWorker struct {
	webhooks WebhookRetrier
	interval time.Duration
}

// NewCallbackWorker constructs a CallbackWorker.
func NewCallbackWorker(webhooks WebhookRetrier, interval time.Duration) *CallbackWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &CallbackWorker{
		webhooks: webhooks,
		interval: interval,
	}
}

// Start begins the retry loop and returns when ctx is cancelled.
func (w *CallbackWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting webhook retry worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Webhook retry worker stopped")
			return
		}
	}
}

func (w *CallbackWorker) run(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()
	if err := w.webhooks.RetryPendingCallbacks(runCtx); err != nil {
		log.Error().Err(err).Msg("Failed to process pending webhooks")
	}
}
