package testutil

// FixedNameGenerator returns the same table name every time.
//
// Computed tables get generated names; a fixed name makes the emitted DDL
// predictable in golden files.
//
// Thread-safety: FixedNameGenerator is stateless and safe for concurrent use.
type FixedNameGenerator struct {
	name string
}

// NewFixedNameGenerator creates a fixed name generator.
// If name is empty, Generate() returns "lazytbl_fixed".
func NewFixedNameGenerator(name string) *FixedNameGenerator {
	if name == "" {
		name = "lazytbl_fixed"
	}
	return &FixedNameGenerator{name: name}
}

// Generate returns the fixed name.
//
// Implements engine.NameGenerator.
func (g *FixedNameGenerator) Generate() string {
	return g.name
}
