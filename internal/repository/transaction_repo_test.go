package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionFilterWhere(t *testing.T) {
	clientID := 7
	state := "done"
	ref := "SO04"
	empty := ""
	sandbox := false

	q, args := (&TransactionFilter{
		ClientID:  &clientID,
		State:     &state,
		Reference: &ref,
		Currency:  &empty,
		IsSandbox: &sandbox,
	}).where()

	assert.Equal(t, "WHERE 1=1 AND client_id = $1 AND state = $2 AND reference ILIKE $3 AND is_sandbox = $4", q)
	assert.Equal(t, []interface{}{7, "done", "%SO04%", false}, args)
}

func TestTransactionFilterWhereEmpty(t *testing.T) {
	q, args := (&TransactionFilter{}).where()
	assert.Equal(t, "WHERE 1=1", q)
	assert.Empty(t, args)
}

func TestTransactionFilterWhereDates(t *testing.T) {
	start, end := "2026-10-01", "2026-10-14"
	q, args := (&TransactionFilter{StartDate: &start, EndDate: &end}).where()
	assert.Equal(t, "WHERE 1=1 AND created_at >= $1::date AND created_at < ($2::date + interval '1 day')", q)
	assert.Equal(t, []interface{}{start, end}, args)
}
