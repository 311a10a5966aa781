// Package identity canonicalizes free-text agent and supervisor names into
// stable lookup keys. Every join between a login identity and a
// spreadsheet-derived identity depends on Normalize being applied
// identically on both sides.
package identity

import (
	"strings"

	"github.com/telfield/fieldcollect/internal/types"
)

// Normalize strips leading/trailing whitespace, collapses internal runs of
// whitespace to a single space and upper-cases the result. It is pure and
// total: the empty string maps to the empty string.
func Normalize(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), " "))
}

// Identity is an authenticated (role, normalized name) pair. It is derived
// at login time from a credential lookup and never persisted.
type Identity struct {
	Role types.Role `json:"role"`
	Name string     `json:"name"` // normalized
}
