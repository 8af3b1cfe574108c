package drive

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// CursorVersion is the current cursor format version.
const CursorVersion = 2

// How the target in progress is walked.
const (
	// modeList is a full files.list walk, taken when no change token is saved.
	modeList = "list"
	// modeChanges follows changes.list from a saved token.
	modeChanges = "changes"
)

// Cursor tracks the position within one crawl stage.
type Cursor struct {
	// Version is the cursor format version for future compatibility.
	Version int `json:"v"`
	// Index selects the listing target: the user corpus, a shared drive or a configured folder.
	Index int `json:"i,omitempty"`
	// Mode is how the current target is walked. Empty before its first page.
	Mode string `json:"m,omitempty"`
	// PageToken is the files.list or changes.list page token within the current target.
	PageToken string `json:"t,omitempty"`
	// StartPageToken is taken from changes.getStartPageToken before a full
	// listing. The next pass reads changes from it.
	StartPageToken string `json:"s,omitempty"`
	// Tokens are the change tokens of targets finished this pass, keyed by target.
	Tokens map[string]string `json:"k,omitempty"`
}

// NewCursor creates a new empty cursor.
func NewCursor() *Cursor {
	return &Cursor{
		Version: CursorVersion,
	}
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
// An empty string is the start of a stage.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return NewCursor(), nil
	}

	var cursor Cursor
	if err := decodeJSON(s, &cursor); err != nil {
		return nil, fmt.Errorf("%w: drive cursor: %w", domain.ErrCursorInvalid, err)
	}

	// Version check for future migrations
	if cursor.Version < 1 || cursor.Version > CursorVersion || cursor.Index < 0 {
		return nil, fmt.Errorf("%w: drive cursor version %d", domain.ErrCursorInvalid, cursor.Version)
	}
	// Version 1 cursors were files.list walks without change tokens.
	if cursor.Version == 1 && cursor.PageToken != "" {
		cursor.Mode = modeList
	}
	if cursor.Mode != "" && cursor.Mode != modeList && cursor.Mode != modeChanges {
		return nil, fmt.Errorf("%w: drive cursor mode %q", domain.ErrCursorInvalid, cursor.Mode)
	}
	cursor.Version = CursorVersion

	return &cursor, nil
}

// withToken records the change token a finished target resumes from.
func (c *Cursor) withToken(target, token string) map[string]string {
	out := make(map[string]string, len(c.Tokens)+1)
	for k, v := range c.Tokens {
		out[k] = v
	}
	if token != "" {
		out[target] = token
	}
	return out
}

// syncStateVersion is the current sync state format version.
const syncStateVersion = 1

// SyncState is the change token per listing target, kept between passes.
type SyncState struct {
	Version int               `json:"v"`
	Tokens  map[string]string `json:"k,omitempty"`
}

// Encode serialises the state. An empty state encodes to "".
func (s *SyncState) Encode() string {
	if len(s.Tokens) == 0 {
		return ""
	}
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeSyncState deserializes a stage's sync token.
func DecodeSyncState(s string) (*SyncState, error) {
	state := &SyncState{Version: syncStateVersion}
	if s == "" {
		return state, nil
	}
	if err := decodeJSON(s, state); err != nil {
		return nil, fmt.Errorf("%w: drive sync token: %w", domain.ErrCursorInvalid, err)
	}
	if state.Version != syncStateVersion {
		return nil, fmt.Errorf("%w: drive sync token version %d", domain.ErrCursorInvalid, state.Version)
	}
	return state, nil
}

func decodeJSON(s string, v any) error {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
