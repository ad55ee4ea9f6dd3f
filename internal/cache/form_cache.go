package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GTDGit/gtd_systempay/pkg/systempay"
)

// ErrFormNotFound is returned when no form is cached for a transaction.
var ErrFormNotFound = errors.New("FORM_NOT_FOUND")

// PaymentForm is a signed form kept until the gateway stops accepting it.
type PaymentForm struct {
	TransactionID string            `json:"transactionId"`
	Reference     string            `json:"reference"`
	GatewayURL    string            `json:"gatewayUrl"`
	Fields        []systempay.Field `json:"fields"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// FormCache stores signed payment forms in Redis.
type FormCache struct {
	redis *RedisClient
	now   func() time.Time
}

func NewFormCache(redis *RedisClient) *FormCache {
	return &FormCache{redis: redis, now: time.Now}
}

// ttl lasts until local midnight; vads_trans_id is only unique within a day.
func (c *FormCache) ttl() time.Duration {
	now := c.now()
	eod := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	return eod.Sub(now)
}

func (c *FormCache) key(transactionID string) string {
	return fmt.Sprintf("systempay:form:%s", transactionID)
}

// Store saves the form of a transaction.
func (c *FormCache) Store(ctx context.Context, form *PaymentForm) error {
	data, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("marshal payment form: %w", err)
	}
	return c.redis.Set(ctx, c.key(form.TransactionID), string(data), c.ttl())
}

// Get returns the cached form or ErrFormNotFound.
func (c *FormCache) Get(ctx context.Context, transactionID string) (*PaymentForm, error) {
	raw, err := c.redis.Get(ctx, c.key(transactionID))
	if errors.Is(err, redis.Nil) {
		return nil, ErrFormNotFound
	}
	if err != nil {
		return nil, err
	}
	var form PaymentForm
	if err := json.Unmarshal([]byte(raw), &form); err != nil {
		return nil, fmt.Errorf("unmarshal payment form: %w", err)
	}
	return &form, nil
}

// Forget drops the form once the transaction left the unset state.
func (c *FormCache) Forget(ctx context.Context, transactionID string) error {
	return c.redis.Delete(ctx, c.key(transactionID))
}
