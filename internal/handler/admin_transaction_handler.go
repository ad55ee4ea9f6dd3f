package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_systempay/internal/models"
	"github.com/GTDGit/gtd_systempay/internal/repository"
	"github.com/GTDGit/gtd_systempay/internal/service"
	"github.com/GTDGit/gtd_systempay/internal/utils"
)

// AdminTransactionReader is the part of service.AdminTransactionService
// used by AdminTransactionHandler.
type AdminTransactionReader interface {
	ListTransactions(ctx context.Context, filter *repository.TransactionFilter) (*repository.TransactionPage, error)
	GetStats(ctx context.Context, filter *repository.TransactionFilter) ([]repository.StateCount, error)
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	GetHistory(ctx context.Context, transactionID string) (*service.TransactionHistory, error)
	ResendWebhook(ctx context.Context, transactionID string) (*models.Transaction, error)
}

// AdminTransactionHandler handles admin transaction HTTP endpoints.
type AdminTransactionHandler struct {
	adminTrxSvc AdminTransactionReader
}

// NewAdminTransactionHandler constructs an AdminTransactionHandler.
func NewAdminTransactionHandler(adminTrxSvc AdminTransactionReader) *AdminTransactionHandler {
	return &AdminTransactionHandler{adminTrxSvc: adminTrxSvc}
}

func optionalQuery(c *gin.Context, key string) *string {
	if v := c.Query(key); v != "" {
		return &v
	}
	return nil
}

// parseFilter reads the filters shared by the list and stats endpoints.
func parseFilter(c *gin.Context) *repository.TransactionFilter {
	f := &repository.TransactionFilter{
		State:         optionalQuery(c, "state"),
		Reference:     optionalQuery(c, "reference"),
		TransactionID: optionalQuery(c, "transactionId"),
		Currency:      optionalQuery(c, "currency"),
		StartDate:     optionalQuery(c, "startDate"),
		EndDate:       optionalQuery(c, "endDate"),
	}
	if clientID := c.Query("clientId"); clientID != "" {
		if id, err := strconv.Atoi(clientID); err == nil {
			f.ClientID = &id
		}
	}
	if isSandbox := c.Query("isSandbox"); isSandbox != "" {
		val := isSandbox == "true"
		f.IsSandbox = &val
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		f.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		f.Limit = limit
	}
	return f
}

// ListTransactions handles GET /v1/admin/transactions
func (h *AdminTransactionHandler) ListTransactions(c *gin.Context) {
	result, err := h.adminTrxSvc.ListTransactions(c.Request.Context(), parseFilter(c))
	if err != nil {
		if errors.Is(err, service.ErrInvalidState) {
			utils.Error(c, 400, "INVALID_STATE", "Unknown transaction state")
			return
		}
		log.Error().Err(err).Msg("Failed to list transactions")
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve transactions")
		return
	}

	trxs := result.Transactions
	if trxs == nil {
		trxs = []models.Transaction{}
	}
	utils.SuccessWithPagination(c, 200, "Transactions retrieved", trxs, result.Page, result.Limit, result.TotalItems)
}

// GetStats handles GET /v1/admin/transactions/stats
func (h *AdminTransactionHandler) GetStats(c *gin.Context) {
	counts, err := h.adminTrxSvc.GetStats(c.Request.Context(), parseFilter(c))
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute transaction stats")
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve statistics")
		return
	}

	byState := gin.H{}
	total, done := 0, 0
	for _, sc := range counts {
		name := sc.State
		if name == "" {
			name = "unset"
		}
		byState[name] = sc.Count
		total += sc.Count
		if sc.State == "done" {
			done += sc.Count
		}
	}
	successRate := float64(0)
	if total > 0 {
		successRate = float64(done) / float64(total) * 100
	}

	utils.Success(c, 200, "Statistics retrieved", gin.H{
		"totalTransactions": total,
		"successRate":       successRate,
		"byState":           byState,
	})
}

// GetTransaction handles GET /v1/admin/transactions/:id
func (h *AdminTransactionHandler) GetTransaction(c *gin.Context) {
	trx, err := h.adminTrxSvc.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err, "Failed to retrieve transaction")
		return
	}
	utils.Success(c, 200, "Transaction retrieved", trx)
}

// GetTransactionLogs handles GET /v1/admin/transactions/:id/logs
func (h *AdminTransactionHandler) GetTransactionLogs(c *gin.Context) {
	history, err := h.adminTrxSvc.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err, "Failed to retrieve transaction logs")
		return
	}
	utils.Success(c, 200, "Transaction logs retrieved", history)
}

// ResendWebhook handles POST /v1/admin/transactions/:id/resend-webhook
func (h *AdminTransactionHandler) ResendWebhook(c *gin.Context) {
	trx, err := h.adminTrxSvc.ResendWebhook(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err, "Failed to resend webhook")
		return
	}
	utils.Success(c, 200, "Webhook queued", trx)
}

func (h *AdminTransactionHandler) handleError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, utils.ErrTransactionNotFound) {
		utils.Error(c, 404, "TRANSACTION_NOT_FOUND", "Transaction not found")
		return
	}
	log.Error().Err(err).Msg(fallback)
	utils.Error(c, 500, "INTERNAL_ERROR", fallback)
}
