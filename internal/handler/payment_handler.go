package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_systempay/internal/cache"
	"github.com/GTDGit/gtd_systempay/internal/middleware"
	"github.com/GTDGit/gtd_systempay/internal/models"
	"github.com/GTDGit/gtd_systempay/internal/service"
	"github.com/GTDGit/gtd_systempay/internal/utils"
	"github.com/GTDGit/gtd_systempay/pkg/systempay"
)

// PaymentOpener is the part of service.PaymentService used by PaymentHandler.
type PaymentOpener interface {
	CreatePayment(ctx context.Context, req *service.CreatePaymentRequest, client *models.Client, isSandbox bool) (*service.PaymentResult, error)
	GetPayment(ctx context.Context, transactionID string, clientID int) (*models.Transaction, error)
	GetForm(ctx context.Context, transactionID string, clientID int) (*cache.PaymentForm, error)
}

// PaymentHandler handles payment endpoints of the order systems.
type PaymentHandler struct {
	paymentService PaymentOpener
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(paymentService PaymentOpener) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePayment handles POST /v1/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "MISSING_FIELD", "Invalid request body")
		return
	}

	client := middleware.GetClient(c)
	if client == nil {
		utils.Error(c, 401, "INVALID_TOKEN", "Unauthorized")
		return
	}

	result, err := h.paymentService.CreatePayment(c.Request.Context(), &req, client, middleware.IsSandbox(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.Success(c, 201, "Payment created", gin.H{
		"transaction": result.Transaction,
		"form":        formatForm(result.Form),
	})
}

// GetPayment handles GET /v1/payments/:transactionId
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	trx, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("transactionId"), c.GetInt("client_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Payment retrieved", trx)
}

// GetForm handles GET /v1/payments/:transactionId/form
func (h *PaymentHandler) GetForm(c *gin.Context) {
	form, err := h.paymentService.GetForm(c.Request.Context(), c.Param("transactionId"), c.GetInt("client_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	utils.Success(c, 200, "Payment form retrieved", formatForm(form))
}

func (h *PaymentHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, systempay.ErrUnsupportedCurrency):
		utils.Error(c, 400, "UNSUPPORTED_CURRENCY", err.Error())
	case errors.Is(err, systempay.ErrInvalidAmount):
		utils.Error(c, 400, "INVALID_AMOUNT", err.Error())
	case errors.Is(err, service.ErrInstallmentsDisabled):
		utils.Error(c, 400, "INSTALLMENTS_DISABLED", "Payment in installments is not enabled")
	case errors.Is(err, utils.ErrDuplicateReference):
		utils.Error(c, 409, "DUPLICATE_REFERENCE", "Reference already has a payment")
	case errors.Is(err, utils.ErrTransactionNotFound):
		utils.Error(c, 404, "TRANSACTION_NOT_FOUND", "Transaction not found")
	case errors.Is(err, utils.ErrPaymentClosed):
		utils.Error(c, 410, "PAYMENT_CLOSED", "Payment form is no longer available")
	case errors.Is(err, systempay.ErrMissingConfiguration):
		log.Error().Err(err).Msg("Merchant configuration incomplete")
		utils.Error(c, 500, "MISSING_CONFIGURATION", "Payment gateway is not configured")
	default:
		log.Error().Err(err).Msg("Payment request failed")
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
	}
}

// formatForm renders the form in posting order. The fields must be sent
// to gatewayUrl exactly as given.
func formatForm(form *cache.PaymentForm) gin.H {
	if form == nil {
		return nil
	}
	return gin.H{
		"transactionId": form.TransactionID,
		"reference":     form.Reference,
		"gatewayUrl":    form.GatewayURL,
		"method":        "POST",
		"fields":        form.Fields,
		"createdAt":     form.CreatedAt,
	}
}
