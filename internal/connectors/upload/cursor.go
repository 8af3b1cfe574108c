package upload

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// CursorVersion is the current cursor format version.
const CursorVersion = 1

// Cursor is a keyset position: the last id emitted.
type Cursor struct {
	Version int    `json:"v"`
	After   string `json:"a,omitempty"`
}

// Encode serialises the cursor to a base64 string for storage.
func (c *Cursor) Encode() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor deserializes a cursor from a base64 string.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return &Cursor{Version: CursorVersion}, nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: upload cursor: %w", domain.ErrCursorInvalid, err)
	}
	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("%w: upload cursor: %w", domain.ErrCursorInvalid, err)
	}
	if cursor.Version != CursorVersion {
		return nil, fmt.Errorf("%w: upload cursor version %d", domain.ErrCursorInvalid, cursor.Version)
	}
	return &cursor, nil
}
