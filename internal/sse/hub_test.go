package sse

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_systempay/internal/models"
	"github.com/GTDGit/gtd_systempay/pkg/systempay"
)

func TestHubPublish(t *testing.T) {
	hub := NewHub()
	n := NewHubNotifier(hub)

	// no subscribers: nothing to do
	n.NotifyTransactionCreated(&models.Transaction{TransactionID: "SP-20261014-000001"})

	s := hub.Subscribe("admin-1")
	assert.Equal(t, 1, hub.Subscribers())

	n.NotifyTransactionStateChanged(&models.Transaction{
		TransactionID: "SP-20261014-000001",
		Reference:     "SO042",
		Amount:        decimal.RequireFromString("10.01"),
		Currency:      "EUR",
		State:         systempay.StateDone,
	})

	var ev PaymentEvent
	require.NoError(t, json.Unmarshal(<-s.Events, &ev))
	assert.Equal(t, EventPaymentStateChanged, ev.Event)
	assert.Equal(t, "SO042", ev.Reference)
	assert.Equal(t, "10.01", ev.Amount)
	assert.Equal(t, "done", ev.State)

	hub.Unsubscribe(s)
	assert.Equal(t, 0, hub.Subscribers())
	_, open := <-s.Events
	assert.False(t, open)
}

func TestHubResubscribeSameID(t *testing.T) {
	hub := NewHub()
	first := hub.Subscribe("admin-1")
	second := hub.Subscribe("admin-1")

	_, open := <-first.Events
	assert.False(t, open)

	// the stale stream going away must not close the new one
	hub.Unsubscribe(first)
	assert.Equal(t, 1, hub.Subscribers())
	hub.Publish(&PaymentEvent{Event: EventPaymentCreated})
	assert.Len(t, second.Events, 1)
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	s := hub.Subscribe("slow")
	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Publish(&PaymentEvent{Event: EventPaymentCreated})
	}
	assert.Len(t, s.Events, subscriberBuffer)
}
