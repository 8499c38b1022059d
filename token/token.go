// Package token issues opaque identifiers for transfers and extraction jobs.
package token

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// TokenLength is the number of hex digits in a transfer token (48 bits).
	TokenLength = 12
	// JobIDLength is the number of hex digits in an extraction or organize job ID.
	JobIDLength = 6
)

// Issuer mints identifiers. Uniqueness is statistical only; the ledger
// enforces it for transfer tokens.
type Issuer interface {
	IssueToken() string
	IssueJobID() string
}

// UUIDIssuer slices random version 4 UUIDs.
type UUIDIssuer struct{}

// IssueToken returns 12 lowercase hex digits.
func (UUIDIssuer) IssueToken() string {
	return randomHex(TokenLength)
}

// IssueJobID returns 6 lowercase hex digits.
func (UUIDIssuer) IssueJobID() string {
	return randomHex(JobIDLength)
}

// The version nibble sits at hex index 12, so the first 12 digits are all random.
func randomHex(n int) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return raw[:n]
}

// ValidToken reports whether s has the shape of an issued transfer token.
func ValidToken(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
