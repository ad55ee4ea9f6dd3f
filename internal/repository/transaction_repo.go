package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_systempay/internal/models"
)

// TransactionRepository handles data access for transactions.
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// nullableJSON converts empty NullableRawMessage to nil for proper NULL handling in PostgreSQL.
func nullableJSON(v models.NullableRawMessage) interface{} {
	if len(v) == 0 {
		return nil
	}
	return []byte(v)
}

// Create inserts a new transaction row in the unset state.
func (r *TransactionRepository) Create(ctx context.Context, trx *models.Transaction) error {
	const q = `
        INSERT INTO transactions (
            transaction_id, reference, client_id, is_sandbox, ctx_mode,
            amount, currency, amount_minor, payment_config, gateway_trans_id,
            customer_email, return_url, state
        ) VALUES (
            $1,$2,$3,$4,$5,
            $6,$7,$8,$9,$10,
            $11,$12,$13
        ) RETURNING id, created_at, updated_at`

	return r.db.QueryRowxContext(ctx, q,
		trx.TransactionID, trx.Reference, trx.ClientID, trx.IsSandbox, trx.CtxMode,
		trx.Amount, trx.Currency, trx.AmountMinor, trx.PaymentConfig, trx.GatewayTransID,
		trx.CustomerEmail, trx.ReturnURL, trx.State,
	).Scan(&trx.ID, &trx.CreatedAt, &trx.UpdatedAt)
}

// UpdateForm records the payment form of a new attempt on an unset transaction.
func (r *TransactionRepository) UpdateForm(ctx context.Context, trx *models.Transaction) error {
	const q = `
        UPDATE transactions SET
            payment_config = $2,
            gateway_trans_id = $3,
            updated_at = NOW()
        WHERE id = $1 AND state = ''`

	res, err := r.db.ExecContext(ctx, q, trx.ID, trx.PaymentConfig, trx.GatewayTransID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateState writes the outcome of a state transition.
func (r *TransactionRepository) UpdateState(ctx context.Context, trx *models.Transaction) error {
	const q = `
        UPDATE transactions SET
            state = $2,
            state_message = $3,
            acquirer_reference = $4,
            diagnostics = $5,
            invalid_parameters = $6,
            validated_at = $7,
            updated_at = NOW()
        WHERE id = $1`

	stmt, err := r.db.PreparexContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		trx.ID,
		trx.State,
		trx.StateMessage,
		trx.AcquirerReference,
		nullableJSON(trx.Diagnostics),
		nullableJSON(trx.InvalidParameters),
		trx.ValidatedAt,
	)
	return err
}

// MarkCallbackSent flags that the client received the latest webhook.
func (r *TransactionRepository) MarkCallbackSent(ctx context.Context, id int) error {
	const q = `UPDATE transactions SET callback_sent = true, callback_sent_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

func (r *TransactionRepository) getOne(ctx context.Context, where string, args ...any) (*models.Transaction, error) {
	stmt, err := r.db.PreparexContext(ctx, "SELECT * FROM transactions WHERE "+where+" LIMIT 1")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var t models.Transaction
	if err := stmt.GetContext(ctx, &t, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &t, nil
}

// GetByID returns a transaction by primary key.
func (r *TransactionRepository) GetByID(ctx context.Context, id int) (*models.Transaction, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByTransactionID returns transaction by transaction_id.
func (r *TransactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return r.getOne(ctx, "transaction_id = $1", transactionID)
}

// GetByReference returns the transaction a client opened for an order reference.
func (r *TransactionRepository) GetByReference(ctx context.Context, clientID int, reference string) (*models.Transaction, error) {
	return r.getOne(ctx, "client_id = $1 AND reference = $2", clientID, reference)
}

// ListByReference returns every transaction sent with vads_order_id = reference,
// across clients. More than one row means the reference is ambiguous.
func (r *TransactionRepository) ListByReference(ctx context.Context, reference string) ([]models.Transaction, error) {
	const q = `SELECT * FROM transactions WHERE reference = $1 ORDER BY id ASC LIMIT 2`
	stmt, err := r.db.PreparexContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var list []models.Transaction
	if err := stmt.SelectContext(ctx, &list, reference); err != nil {
		return nil, err
	}
	return list, nil
}

// GenerateTransactionID returns an ID like SP-YYYYMMDD-NNNNNN using the database date.
func (r *TransactionRepository) GenerateTransactionID(ctx context.Context) (string, error) {
	const seqQ = `
        SELECT TO_CHAR(NOW(), 'YYYYMMDD') AS ymd,
               COALESCE(MAX(CAST(SUBSTRING(transaction_id FROM 13) AS INT)), 0) + 1 AS next
        FROM transactions
        WHERE transaction_id LIKE 'SP-' || TO_CHAR(NOW(), 'YYYYMMDD') || '-%'`

	var row struct {
		YMD  string `db:"ymd"`
		Next int    `db:"next"`
	}
	if err := r.db.GetContext(ctx, &row, seqQ); err != nil {
		return "", err
	}
	return fmt.Sprintf("SP-%s-%06d", row.YMD, row.Next), nil
}

// TransactionFilter narrows the admin transaction list.
type TransactionFilter struct {
	ClientID      *int
	State         *string
	Reference     *string
	TransactionID *string
	Currency      *string
	StartDate     *string
	EndDate       *string
	IsSandbox     *bool
	Page          int
	Limit         int
}

// TransactionPage contains paginated transaction results.
type TransactionPage struct {
	Transactions []models.Transaction
	TotalItems   int
	Page         int
	Limit        int
}

// where renders the filter as a WHERE clause with positional arguments.
func (f *TransactionFilter) where() (string, []interface{}) {
	q := "WHERE 1=1"
	args := []interface{}{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		q += fmt.Sprintf(" AND "+cond, len(args))
	}

	if f.ClientID != nil {
		add("client_id = $%d", *f.ClientID)
	}
	if f.State != nil {
		add("state = $%d", *f.State)
	}
	if f.Reference != nil && *f.Reference != "" {
		add("reference ILIKE $%d", "%"+*f.Reference+"%")
	}
	if f.TransactionID != nil && *f.TransactionID != "" {
		add("transaction_id ILIKE $%d", "%"+*f.TransactionID+"%")
	}
	if f.Currency != nil && *f.Currency != "" {
		add("currency = $%d", *f.Currency)
	}
	if f.StartDate != nil && *f.StartDate != "" {
		add("created_at >= $%d::date", *f.StartDate)
	}
	if f.EndDate != nil && *f.EndDate != "" {
		add("created_at < ($%d::date + interval '1 day')", *f.EndDate)
	}
	if f.IsSandbox != nil {
		add("is_sandbox = $%d", *f.IsSandbox)
	}
	return q, args
}

// List returns transactions matching filter, newest first.
func (r *TransactionRepository) List(ctx context.Context, filter *TransactionFilter) (*TransactionPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	where, args := filter.where()

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM transactions "+where, args...); err != nil {
		return nil, err
	}

	offset := (filter.Page - 1) * filter.Limit
	q := fmt.Sprintf("SELECT * FROM transactions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, offset)

	var list []models.Transaction
	if err := r.db.SelectContext(ctx, &list, q, args...); err != nil {
		return nil, err
	}
	return &TransactionPage{
		Transactions: list,
		TotalItems:   total,
		Page:         filter.Page,
		Limit:        filter.Limit,
	}, nil
}

// StateCount is the number of transactions in one state.
type StateCount struct {
	State string `db:"state" json:"state"`
	Count int    `db:"count" json:"count"`
}

// CountByState groups transactions created in the given date range by state.
func (r *TransactionRepository) CountByState(ctx context.Context, filter *TransactionFilter) ([]StateCount, error) {
	where, args := filter.where()
	var out []StateCount
	err := r.db.SelectContext(ctx, &out,
		"SELECT state, COUNT(*) AS count FROM transactions "+where+" GROUP BY state ORDER BY state", args...)
	return out, err
}
