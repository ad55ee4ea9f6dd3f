package sse

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// subscriberBuffer is how many payment events a slow back office tab may
// lag behind before events are dropped for it.
const subscriberBuffer = 64

// EventType names a payment event on the stream.
type EventType string

const (
	EventPaymentCreated      EventType = "payment.created"
	EventPaymentStateChanged EventType = "payment.state_changed"
)

// PaymentEvent is one change of a payment attempt as shown in the back
// office: a form was signed, or a gateway callback moved the state.
type PaymentEvent struct {
	Event         EventType `json:"event"`
	TransactionID string    `json:"transactionId"`
	Reference     string    `json:"reference"`
	ClientID      int       `json:"clientId"`
	CtxMode       string    `json:"ctxMode"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	State         string    `json:"state"`
	StateMessage  *string   `json:"stateMessage,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Subscriber is an open event stream of an admin session. Events carries
// encoded PaymentEvent values and is closed on Unsubscribe.
type Subscriber struct {
	ID     string
	Events chan []byte
}

// Hub fans payment events out to every subscribed admin session.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]*Subscriber)}
}

// Subscribe opens a stream under id, replacing any stream with the same id.
func (h *Hub) Subscribe(id string) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.subscribers[id]; ok {
		close(old.Events)
	}
	s := &Subscriber{ID: id, Events: make(chan []byte, subscriberBuffer)}
	h.subscribers[id] = s
	log.Info().Str("subscriber_id", id).Int("subscribers", len(h.subscribers)).Msg("Payment stream opened")
	return s
}

// Unsubscribe closes s. It is a no-op when s was already replaced by a
// newer stream with the same id.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.subscribers[s.ID]; !ok || cur != s {
		return
	}
	close(s.Events)
	delete(h.subscribers, s.ID)
	log.Info().Str("subscriber_id", s.ID).Int("subscribers", len(h.subscribers)).Msg("Payment stream closed")
}

// Publish sends event to all subscribers without blocking the payment
// flow; a subscriber whose buffer is full misses the event.
func (h *Hub) Publish(event *PaymentEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("transaction_id", event.TransactionID).Msg("Failed to encode payment event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.subscribers {
		select {
		case s.Events <- data:
		default:
			log.Warn().
				Str("subscriber_id", s.ID).
				Str("transaction_id", event.TransactionID).
				Msg("Payment stream lagging, event dropped")
		}
	}
}

// Subscribers returns the number of open streams.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
