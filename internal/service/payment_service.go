package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_systempay/internal/cache"
	"github.com/GTDGit/gtd_systempay/internal/models"
	"github.com/GTDGit/gtd_systempay/internal/sse"
	"github.com/GTDGit/gtd_systempay/internal/utils"
	"github.com/GTDGit/gtd_systempay/pkg/systempay"
)

// ErrInstallmentsDisabled is returned when a payment asks for installments
// but the merchant schema does not offer them.
var ErrInstallmentsDisabled = errors.New("INSTALLMENTS_DISABLED")

// PaymentRepository is the transaction storage used by PaymentService.
type PaymentRepository interface {
	Create(ctx context.Context, trx *models.Transaction) error
	UpdateForm(ctx context.Context, trx *models.Transaction) error
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error)
	GetByReference(ctx context.Context, clientID int, reference string) (*models.Transaction, error)
	GenerateTransactionID(ctx context.Context) (string, error)
}

// FormStore keeps signed forms until they can no longer be posted.
type FormStore interface {
	Store(ctx context.Context, form *cache.PaymentForm) error
	Get(ctx context.Context, transactionID string) (*cache.PaymentForm, error)
	Forget(ctx context.Context, transactionID string) error
}

// CustomerRequest holds billing details of a payment request.
type CustomerRequest struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	Zip       string `json:"zip"`
	City      string `json:"city"`
	State     string `json:"state"`
	Country   string `json:"country"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone"`
}

// ShippingRequest holds delivery details of a payment request.
type ShippingRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Street    string `json:"street"`
	Zip       string `json:"zip"`
	City      string `json:"city"`
	State     string `json:"state"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

// InstallmentRequest asks for payment in installments.
type InstallmentRequest struct {
	Count        int              `json:"count" binding:"required,min=1"`
	PeriodDays   int              `json:"periodDays" binding:"min=0"`
	FirstPercent *decimal.Decimal `json:"firstPercent"`
}

// CreatePaymentRequest opens a payment on the Systempay page for an order.
type CreatePaymentRequest struct {
	Reference    string              `json:"reference" binding:"required,max=64"`
	Amount       decimal.Decimal     `json:"amount"`
	Currency     string              `json:"currency" binding:"required,len=3"`
	ReturnURL    string              `json:"returnUrl" binding:"omitempty,url"`
	Customer     CustomerRequest     `json:"customer"`
	Shipping     *ShippingRequest    `json:"shipping"`
	Installments *InstallmentRequest `json:"installments"`
}

// PaymentResult is a stored transaction and the form that starts it.
type PaymentResult struct {
	Transaction *models.Transaction
	Form        *cache.PaymentForm
}

// PaymentService opens payments: it signs the form, stores the attempt and
// caches the form for the order system.
type PaymentService struct {
	trxRepo   PaymentRepository
	forms     FormStore
	notifier  sse.TransactionNotifier
	builder   *systempay.Builder
	merchant  systempay.MerchantConfig
	schema    systempay.FieldSchema
	returnURL string
}

// NewPaymentService constructs a PaymentService. returnURL is the public
// address of the return endpoint sent as vads_url_return.
func NewPaymentService(
	trxRepo PaymentRepository,
	forms FormStore,
	notifier sse.TransactionNotifier,
	builder *systempay.Builder,
	merchant systempay.MerchantConfig,
	schema systempay.FieldSchema,
	returnURL string,
) *PaymentService {
	if notifier == nil {
		notifier = &sse.NopNotifier{}
	}
	return &PaymentService{
		trxRepo:   trxRepo,
		forms:     forms,
		notifier:  notifier,
		builder:   builder,
		merchant:  merchant,
		schema:    schema,
		returnURL: returnURL,
	}
}

// merchantFor returns the configuration a client signs with. Sandbox keys
// always sign in TEST mode.
func (s *PaymentService) merchantFor(isSandbox bool, req *CreatePaymentRequest) (systempay.MerchantConfig, error) {
	cfg := s.merchant
	if isSandbox {
		cfg.Environment = systempay.EnvironmentTest
	}
	if req.Installments != nil {
		if !s.schema.Installments {
			return cfg, ErrInstallmentsDisabled
		}
		cfg.Mode = systempay.Installments{
			Count:        req.Installments.Count,
			PeriodDays:   req.Installments.PeriodDays,
			FirstPercent: req.Installments.FirstPercent,
		}
	}
	return cfg, nil
}

func orderContext(req *CreatePaymentRequest, returnURL string) systempay.OrderContext {
	order := systempay.OrderContext{
		Reference: req.Reference,
		Amount:    req.Amount,
		Currency:  strings.ToUpper(req.Currency),
		ReturnURL: returnURL,
		Customer: systempay.Customer{
			ID:        req.Customer.ID,
			FirstName: req.Customer.FirstName,
			LastName:  req.Customer.LastName,
			Address:   req.Customer.Address,
			Zip:       req.Customer.Zip,
			City:      req.Customer.City,
			State:     req.Customer.State,
			Country:   req.Customer.Country,
			Email:     req.Customer.Email,
			Phone:     req.Customer.Phone,
		},
	}
	if sh := req.Shipping; sh != nil {
		order.Shipping = &systempay.Shipping{
			FirstName: sh.FirstName,
			LastName:  sh.LastName,
			Street:    sh.Street,
			Zip:       sh.Zip,
			City:      sh.City,
			State:     sh.State,
			Country:   sh.Country,
			Phone:     sh.Phone,
		}
	}
	return order
}

// CreatePayment signs a payment form for the order. Calling it again for a
// reference whose transaction is still unset signs a fresh form for the same
// transaction; any other reuse of a reference is ErrDuplicateReference.
func (s *PaymentService) CreatePayment(ctx context.Context, req *CreatePaymentRequest, client *models.Client, isSandbox bool) (*PaymentResult, error) {
	cfg, err := s.merchantFor(isSandbox, req)
	if err != nil {
		return nil, err
	}

	existing, err := s.trxRepo.GetByReference(ctx, client.ID, req.Reference)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if existing != nil && !sameAttempt(existing, req, cfg) {
		return nil, utils.ErrDuplicateReference
	}

	signed, err := s.builder.Build(orderContext(req, s.returnURL), cfg)
	if err != nil {
		return nil, err
	}
	amountMinor, err := strconv.ParseInt(signed.Fields["vads_amount"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", systempay.ErrInvalidAmount, err)
	}

	trx := existing
	if trx == nil {
		trx, err = s.createTransaction(ctx, req, client, isSandbox, cfg, signed, amountMinor)
		if err != nil {
			return nil, err
		}
		s.notifier.NotifyTransactionCreated(trx)
	} else {
		trx.PaymentConfig = signed.Fields["vads_payment_config"]
		trx.GatewayTransID = signed.Fields["vads_trans_id"]
		if err := s.trxRepo.UpdateForm(ctx, trx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, utils.ErrDuplicateReference
			}
			return nil, err
		}
	}

	form := &cache.PaymentForm{
		TransactionID: trx.TransactionID,
		Reference:     trx.Reference,
		GatewayURL:    signed.GatewayURL,
		Fields:        signed.Ordered(),
		CreatedAt:     time.Now(),
	}
	if err := s.forms.Store(ctx, form); err != nil {
		log.Error().Err(err).Str("transaction_id", trx.TransactionID).Msg("Failed to cache payment form")
	}

	log.Info().
		Str("transaction_id", trx.TransactionID).
		Str("reference", trx.Reference).
		Str("ctx_mode", trx.CtxMode).
		Str("amount", trx.Amount.String()).
		Str("currency", trx.Currency).
		Str("payment_config", trx.PaymentConfig).
		Msg("Payment form signed")

	return &PaymentResult{Transaction: trx, Form: form}, nil
}

func (s *PaymentService) createTransaction(
	ctx context.Context,
	req *CreatePaymentRequest,
	client *models.Client,
	isSandbox bool,
	cfg systempay.MerchantConfig,
	signed *systempay.SignedParameterSet,
	amountMinor int64,
) (*models.Transaction, error) {
	transactionID, err := s.trxRepo.GenerateTransactionID(ctx)
	if err != nil {
		return nil, err
	}

	trx := &models.Transaction{
		TransactionID:  transactionID,
		Reference:      req.Reference,
		ClientID:       client.ID,
		IsSandbox:      isSandbox,
		CtxMode:        string(cfg.CtxMode()),
		Amount:         req.Amount,
		Currency:       strings.ToUpper(req.Currency),
		AmountMinor:    amountMinor,
		PaymentConfig:  signed.Fields["vads_payment_config"],
		GatewayTransID: signed.Fields["vads_trans_id"],
		CustomerEmail:  optionalString(req.Customer.Email),
		ReturnURL:      optionalString(req.ReturnURL),
		State:          systempay.StateUnset,
	}
	if err := s.trxRepo.Create(ctx, trx); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, utils.ErrDuplicateReference
		}
		return nil, err
	}
	return trx, nil
}

// sameAttempt reports whether req asks again for the unpaid transaction trx.
func sameAttempt(trx *models.Transaction, req *CreatePaymentRequest, cfg systempay.MerchantConfig) bool {
	return trx.State == systempay.StateUnset &&
		trx.Amount.Equal(req.Amount) &&
		strings.EqualFold(trx.Currency, req.Currency) &&
		trx.CtxMode == string(cfg.CtxMode())
}

// GetPayment returns a transaction owned by the client.
func (s *PaymentService) GetPayment(ctx context.Context, transactionID string, clientID int) (*models.Transaction, error) {
	trx, err := s.trxRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrTransactionNotFound
		}
		return nil, err
	}
	if trx.ClientID != clientID {
		return nil, utils.ErrTransactionNotFound
	}
	return trx, nil
}

// GetForm returns the cached form of a transaction that has not received
// a callback yet.
func (s *PaymentService) GetForm(ctx context.Context, transactionID string, clientID int) (*cache.PaymentForm, error) {
	trx, err := s.GetPayment(ctx, transactionID, clientID)
	if err != nil {
		return nil, err
	}
	if trx.State != systempay.StateUnset {
		return nil, utils.ErrPaymentClosed
	}
	form, err := s.forms.Get(ctx, trx.TransactionID)
	if errors.Is(err, cache.ErrFormNotFound) {
		return nil, utils.ErrPaymentClosed
	}
	return form, err
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
