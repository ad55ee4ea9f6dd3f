package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/GTDGit/gtd_systempay/internal/models"
	"github.com/GTDGit/gtd_systempay/internal/repository"
	"github.com/GTDGit/gtd_systempay/internal/utils"
	"github.com/GTDGit/gtd_systempay/pkg/systempay"
)

// AdminTransactionRepository is the read side of transactions used by the
// back office.
type AdminTransactionRepository interface {
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error)
	List(ctx context.Context, filter *repository.TransactionFilter) (*repository.TransactionPage, error)
	CountByState(ctx context.Context, filter *repository.TransactionFilter) ([]repository.StateCount, error)
}

// CallbackHistoryRepository returns what happened to a transaction.
type CallbackHistoryRepository interface {
	GetGatewayCallbacks(ctx context.Context, transactionID int) ([]models.GatewayCallback, error)
	GetCallbackLogs(ctx context.Context, transactionID int) ([]models.CallbackLog, error)
}

// TransactionHistory is every gateway callback and webhook of a transaction.
type TransactionHistory struct {
	GatewayCallbacks []models.GatewayCallback `json:"gatewayCallbacks"`
	Webhooks         []models.CallbackLog     `json:"webhooks"`
}

// AdminTransactionService serves transactions to the back office.
type AdminTransactionService struct {
	trxRepo      AdminTransactionRepository
	callbackRepo CallbackHistoryRepository
	webhooks     WebhookSender
}

// NewAdminTransactionService constructs an AdminTransactionService.
func NewAdminTransactionService(trxRepo AdminTransactionRepository, callbackRepo CallbackHistoryRepository, webhooks WebhookSender) *AdminTransactionService {
	return &AdminTransactionService{
		trxRepo:      trxRepo,
		callbackRepo: callbackRepo,
		webhooks:     webhooks,
	}
}

// ErrInvalidState is returned for a state filter outside the state machine.
var ErrInvalidState = errors.New("INVALID_STATE")

// ListTransactions returns a page of transactions. The state filter accepts
// "unset" for transactions without a callback yet.
func (s *AdminTransactionService) ListTransactions(ctx context.Context, filter *repository.TransactionFilter) (*repository.TransactionPage, error) {
	if filter.State != nil && *filter.State == "unset" {
		unset := string(systempay.StateUnset)
		filter.State = &unset
	}
	if filter.State != nil && !systempay.State(*filter.State).Valid() {
		return nil, ErrInvalidState
	}
	return s.trxRepo.List(ctx, filter)
}

// GetStats counts transactions per state.
func (s *AdminTransactionService) GetStats(ctx context.Context, filter *repository.TransactionFilter) ([]repository.StateCount, error) {
	return s.trxRepo.CountByState(ctx, filter)
}

// GetTransaction returns a transaction by its public id.
func (s *AdminTransactionService) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	trx, err := s.trxRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrTransactionNotFound
		}
		return nil, err
	}
	return trx, nil
}

// GetHistory returns the callbacks received and webhooks sent for a transaction.
func (s *AdminTransactionService) GetHistory(ctx context.Context, transactionID string) (*TransactionHistory, error) {
	trx, err := s.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	callbacks, err := s.callbackRepo.GetGatewayCallbacks(ctx, trx.ID)
	if err != nil {
		return nil, err
	}
	logs, err := s.callbackRepo.GetCallbackLogs(ctx, trx.ID)
	if err != nil {
		return nil, err
	}
	return &TransactionHistory{GatewayCallbacks: callbacks, Webhooks: logs}, nil
}

// ResendWebhook sends the current state of a transaction to its client again.
func (s *AdminTransactionService) ResendWebhook(ctx context.Context, transactionID string) (*models.Transaction, error) {
	trx, err := s.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := s.webhooks.SendCallback(ctx, trx, WebhookEvent(trx.State)); err != nil {
		return nil, err
	}
	return trx, nil
}
