package models

import (
	"encoding/json"
	"time"
)

// Callback channels.
const (
	ChannelReturn = "return"
	ChannelIPN    = "ipn"
)

// Callback outcomes stored on GatewayCallback.
const (
	OutcomeApplied  = "applied"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
)

// GatewayCallback stores every payload received from Systempay, valid or not.
type GatewayCallback struct {
	ID            int             `db:"id" json:"id"`
	TransactionID *int            `db:"transaction_id" json:"-"`
	Reference     *string         `db:"reference" json:"reference,omitempty"`
	Channel       string          `db:"channel" json:"channel"`
	TransStatus   *string         `db:"trans_status" json:"transStatus,omitempty"`
	Payload       json.RawMessage `db:"payload" json:"payload"`
	Outcome       string          `db:"outcome" json:"outcome"`
	ErrorCode     *string         `db:"error_code" json:"errorCode,omitempty"`
	ErrorMessage  *string         `db:"error_message" json:"errorMessage,omitempty"`
	RemoteIP      string          `db:"remote_ip" json:"remoteIp"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}

// CallbackLog stores outgoing webhook attempts to client systems.
type CallbackLog struct {
	ID            int             `db:"id" json:"id"`
	TransactionID int             `db:"transaction_id" json:"-"`
	ClientID      int             `db:"client_id" json:"clientId"`
	Event         string          `db:"event" json:"event"`
	Payload       json.RawMessage `db:"payload" json:"payload"`
	Attempt       int             `db:"attempt" json:"attempt"`
	HTTPStatus    *int            `db:"http_status" json:"httpStatus,omitempty"`
	ResponseBody  *string         `db:"response_body" json:"responseBody,omitempty"`
	IsDelivered   bool            `db:"is_delivered" json:"isDelivered"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	NextRetryAt   *time.Time      `db:"next_retry_at" json:"nextRetryAt,omitempty"`
}
