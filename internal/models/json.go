package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// NullableRawMessage is a JSON column that may be NULL.
type NullableRawMessage json.RawMessage

// Scan implements sql.Scanner.
func (m *NullableRawMessage) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
	case []byte:
		*m = append((*m)[:0], v...)
	case string:
		*m = NullableRawMessage(v)
	default:
		return fmt.Errorf("cannot scan %T into NullableRawMessage", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (m NullableRawMessage) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return []byte(m), nil
}

// MarshalJSON keeps the raw document, or null when empty.
func (m NullableRawMessage) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	return m, nil
}

// UnmarshalJSON stores a copy of data.
func (m *NullableRawMessage) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = nil
		return nil
	}
	*m = append((*m)[:0], data...)
	return nil
}
