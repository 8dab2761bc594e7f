package engine

import (
	"strings"

	"github.com/google/uuid"
)

// NameGenerator names tables created by Compute when the caller gives none.
// Implemented by UUIDv7Generator (production) and testutil's fixed
// generator (tests).
type NameGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable table names of the form
// "lazytbl_<uuidv7 with underscores>".
//
// UUIDv7 embeds a timestamp in the most significant bits, so names sort by
// creation time in catalog listings.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new table name.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return "lazytbl_" + strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "_")
}
