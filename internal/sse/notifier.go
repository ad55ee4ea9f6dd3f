package sse

import (
	"time"

	"github.com/GTDGit/gtd_systempay/internal/models"
)

// TransactionNotifier is how the payment services report payment events.
type TransactionNotifier interface {
	NotifyTransactionCreated(trx *models.Transaction)
	NotifyTransactionStateChanged(trx *models.Transaction)
}

// HubNotifier publishes payment events on a Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// NotifyTransactionCreated reports a newly signed payment form.
func (n *HubNotifier) NotifyTransactionCreated(trx *models.Transaction) {
	n.publish(EventPaymentCreated, trx)
}

// NotifyTransactionStateChanged reports a state applied from a gateway callback.
func (n *HubNotifier) NotifyTransactionStateChanged(trx *models.Transaction) {
	n.publish(EventPaymentStateChanged, trx)
}

func (n *HubNotifier) publish(eventType EventType, trx *models.Transaction) {
	if n.hub.Subscribers() == 0 {
		return
	}
	n.hub.Publish(&PaymentEvent{
		Event:         eventType,
		TransactionID: trx.TransactionID,
		Reference:     trx.Reference,
		ClientID:      trx.ClientID,
		CtxMode:       trx.CtxMode,
		Amount:        trx.Amount.String(),
		Currency:      trx.Currency,
		State:         string(trx.State),
		StateMessage:  trx.StateMessage,
		Timestamp:     time.Now(),
	})
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) NotifyTransactionCreated(*models.Transaction)      {}
func (NopNotifier) NotifyTransactionStateChanged(*models.Transaction) {}
