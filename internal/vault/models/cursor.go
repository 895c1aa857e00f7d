package models

import (
	"encoding/base64"
	"encoding/json"
	"time"

	id "satsvault/pkg/domain"
	dErrors "satsvault/pkg/domain-errors"
)

// Cursor is the keyset pagination position for ListByState: the creation time
// and id of the last record already returned. It is opaque to callers.
type Cursor struct {
	CreatedAt time.Time   `json:"c"`
	ID        id.RecordID `json:"i"`
}

// Encode serializes the cursor into the opaque token handed to callers.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses an opaque cursor token. An empty token means "from the
// beginning" and returns a nil cursor.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "malformed cursor")
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "malformed cursor")
	}
	if c.CreatedAt.IsZero() || c.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "malformed cursor")
	}
	return &c, nil
}

// After reports whether a record sorts strictly after the cursor position in
// (CreatedAt, ID) order.
func (c *Cursor) After(rec *Record) bool {
	if c == nil {
		return true
	}
	if rec.CreatedAt.After(c.CreatedAt) {
		return true
	}
	if rec.CreatedAt.Equal(c.CreatedAt) {
		return rec.ID > c.ID
	}
	return false
}
