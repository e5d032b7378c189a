package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Item is the common view the sync engine has over tasks and events.
type Item interface {
	ItemID() string
	ItemKind() Kind
	ItemTitle() string
	// ContentHash fingerprints the user-visible content of the item.
	ContentHash() string
}

// DateLayout is the calendar-date format used for due dates and hashes.
const DateLayout = "2006-01-02"

// hashOf returns the hex SHA-256 of the JSON encoding of v.
// v must be a struct of plain fields so the encoding is canonical.
func hashOf(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Only plain strings and numbers go in here.
		panic("types: canonical encoding failed: " + err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
