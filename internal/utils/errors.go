package utils

import "errors"

// Common application errors used across services.
var (
	ErrInvalidToken        = errors.New("INVALID_TOKEN")
	ErrInvalidClient       = errors.New("INVALID_CLIENT")
	ErrInvalidIP           = errors.New("INVALID_IP")
	ErrInvalidCredentials  = errors.New("INVALID_CREDENTIALS")
	ErrAccountInactive     = errors.New("ACCOUNT_INACTIVE")
	ErrDuplicateReference  = errors.New("DUPLICATE_REFERENCE")
	ErrTransactionNotFound = errors.New("TRANSACTION_NOT_FOUND")
	ErrClientNotFound      = errors.New("CLIENT_NOT_FOUND")
	ErrClientExists        = errors.New("CLIENT_ALREADY_EXISTS")
	ErrPaymentClosed       = errors.New("PAYMENT_CLOSED")
)
