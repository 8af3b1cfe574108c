package dropbox

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// CursorVersion is the current cursor format version.
const CursorVersion = 1

// Cursor tracks the position within one crawl stage.
type Cursor struct {
	// Version is the cursor format version for future compatibility.
	Version int `json:"v"`
	// Index selects the configured folder being listed.
	Index int `json:"i,omitempty"`
	// ListCursor is the list_folder cursor within the current listing.
	ListCursor string `json:"c,omitempty"`
}

// NewCursor creates a new empty cursor.
func NewCursor() *Cursor {
	return &Cursor{Version: CursorVersion}
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
		return NewCursor(), nil
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: dropbox cursor: %w", domain.ErrCursorInvalid, err)
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("%w: dropbox cursor: %w", domain.ErrCursorInvalid, err)
	}
	if cursor.Version < 1 || cursor.Version > CursorVersion || cursor.Index < 0 {
		return nil, fmt.Errorf("%w: dropbox cursor version %d", domain.ErrCursorInvalid, cursor.Version)
	}
	return &cursor, nil
}
