package pagination

import (
	"encoding/base64"
	"encoding/json"

	"messengerdb/pkg/errs"
)

// Cursor is the decoded form of an opaque pagination token. It carries
// the ordering key of the last item a caller has seen and is applied as
// an exclusive bound, so pages stay stable while new rows arrive.
type Cursor struct {
	TS int64  `json:"ts"`
	ID string `json:"id"`
	// Conversation participates in the ordering key only for the
	// per-user message projection.
	Conversation string `json:"conv,omitempty"`
}

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode parses an opaque token. Empty tokens mean "first page" and
// return a nil cursor; malformed tokens are rejected rather than
// silently ignored so callers never skip or repeat pages unpredictably.
func Decode(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, errs.InvalidArgumentf("malformed cursor")
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, errs.InvalidArgumentf("malformed cursor")
	}
	if c.ID == "" {
		return nil, errs.InvalidArgumentf("malformed cursor")
	}
	return &c, nil
}

// ClampPageSize validates and bounds a page size. Zero or negative is
// rejected; values above max are clamped silently.
func ClampPageSize(n, max int) (int, error) {
	if n <= 0 {
		return 0, errs.InvalidArgumentf("page size must be positive, got %d", n)
	}
	if n > max {
		return max, nil
	}
	return n, nil
}
