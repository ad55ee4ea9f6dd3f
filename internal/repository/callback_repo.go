package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_systempay/internal/models"
)

// maxDeliveryAttempts bounds retries of client webhooks.
const maxDeliveryAttempts = 5

// CallbackRepository provides access to gateway callbacks and outgoing
// webhook logs.
type CallbackRepository struct {
	db *sqlx.DB
}

// NewCallbackRepository creates a new CallbackRepository.
func NewCallbackRepository(db *sqlx.DB) *CallbackRepository {
	return &CallbackRepository{db: db}
}

// CreateGatewayCallback stores a payload received from Systempay.
func (r *CallbackRepository) CreateGatewayCallback(ctx context.Context, cb *models.GatewayCallback) error {
	const q = `
        INSERT INTO gateway_callbacks (
            transaction_id, reference, channel, trans_status, payload, outcome,
            error_code, error_message, remote_ip, created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, NOW()
        ) RETURNING id, created_at`
	stmt, err := r.db.PreparexContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()
	return stmt.QueryRowxContext(ctx,
		cb.TransactionID,
		cb.Reference,
		cb.Channel,
		cb.TransStatus,
		[]byte(cb.Payload),
		cb.Outcome,
		cb.ErrorCode,
		cb.ErrorMessage,
		cb.RemoteIP,
	).Scan(&cb.ID, &cb.CreatedAt)
}

// GetGatewayCallbacks returns the gateway callbacks of a transaction, oldest first.
func (r *CallbackRepository) GetGatewayCallbacks(ctx context.Context, transactionID int) ([]models.GatewayCallback, error) {
	const q = `SELECT * FROM gateway_callbacks WHERE transaction_id = $1 ORDER BY created_at ASC`
	var list []models.GatewayCallback
	if err := r.db.SelectContext(ctx, &list, q, transactionID); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateCallbackLog inserts a new callback log (to client).
func (r *CallbackRepository) CreateCallbackLog(ctx context.Context, log *models.CallbackLog) error {
	const q = `
        INSERT INTO callback_logs (
            transaction_id, client_id, event, payload, attempt, http_status, response_body, is_delivered, created_at, next_retry_at
        ) VALUES (
            $1,$2,$3,$4,$5,$6,$7,$8,NOW(),$9
        ) RETURNING id, created_at`
	stmt, err := r.db.PreparexContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()
	return stmt.QueryRowxContext(ctx,
		log.TransactionID,
		log.ClientID,
		log.Event,
		[]byte(log.Payload),
		log.Attempt,
		log.HTTPStatus,
		log.ResponseBody,
		log.IsDelivered,
		log.NextRetryAt,
	).Scan(&log.ID, &log.CreatedAt)
}

// UpdateCallbackLog updates an existing callback log row.
func (r *CallbackRepository) UpdateCallbackLog(ctx context.Context, log *models.CallbackLog) error {
	const q = `
        UPDATE callback_logs SET
            attempt = $2,
            http_status = $3,
            response_body = $4,
            is_delivered = $5,
            next_retry_at = $6
        WHERE id = $1`
	stmt, err := r.db.PreparexContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.ExecContext(ctx,
		log.ID,
		log.Attempt,
		log.HTTPStatus,
		log.ResponseBody,
		log.IsDelivered,
		log.NextRetryAt,
	)
	return err
}

// GetPendingCallbacks returns pending callback logs ready to deliver.
// Uses SKIP LOCKED to avoid duplicate processing by concurrent workers.
func (r *CallbackRepository) GetPendingCallbacks(ctx context.Context) ([]models.CallbackLog, error) {
	const q = `
        SELECT * FROM callback_logs
        WHERE is_delivered = false
          AND next_retry_at <= NOW()
          AND attempt < $1
        ORDER BY next_retry_at ASC
        LIMIT 100
        FOR UPDATE SKIP LOCKED`
	stmt, err := r.db.PreparexContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	var logs []models.CallbackLog
	if err := stmt.SelectContext(ctx, &logs, maxDeliveryAttempts); err != nil {
		return nil, err
	}
	return logs, nil
}

// GetCallbackLogs returns webhook attempts of a transaction, oldest first.
func (r *CallbackRepository) GetCallbackLogs(ctx context.Context, transactionID int) ([]models.CallbackLog, error) {
	const q = `SELECT * FROM callback_logs WHERE transaction_id = $1 ORDER BY created_at ASC`
	var logs []models.CallbackLog
	if err := r.db.SelectContext(ctx, &logs, q, transactionID); err != nil {
		return nil, err
	}
	return logs, nil
}
