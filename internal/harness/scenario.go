package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/plan"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the connection's default schema (default "public").
	Schema string `yaml:"schema,omitempty"`

	// Transforms lists built-in transform functions to install. See
	// Transforms for the available names.
	Transforms []string `yaml:"transforms,omitempty"`

	// CatalogFunctions are listed as transforms in the catalog without an
	// implementation, for plans that must fail before running.
	CatalogFunctions []string `yaml:"catalog_functions,omitempty"`

	// Tables are created and filled before the plan is built.
	Tables []Table `yaml:"tables,omitempty"`

	// Plan is the pipeline under test.
	Plan plan.Plan `yaml:"plan"`

	// RowLimit is passed to Collect (default -1, every row).
	RowLimit *int64 `yaml:"row_limit,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Table is a seeded sandbox table. Columns are untyped; values keep the
// type YAML gives them.
type Table struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Rows    [][]any  `yaml:"rows"`
}

// Expect is the expected outcome of a scenario.
type Expect struct {
	// SQL is the exact lowered statement, when given.
	SQL string `yaml:"sql,omitempty"`

	Columns []string `yaml:"columns,omitempty"`
	Rows    [][]any  `yaml:"rows,omitempty"`

	// Unordered compares rows as a multiset.
	Unordered bool `yaml:"unordered,omitempty"`

	// Error is the expected lazyerr code. Exclusive with rows.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Plan.From == nil && len(s.Plan.Query) == 0 {
		return fmt.Errorf("plan needs from or query")
	}

	for _, name := range s.Transforms {
		if _, ok := Transforms[name]; !ok {
			return fmt.Errorf("unknown transform %q", name)
		}
	}

	for i, tbl := range s.Tables {
		if _, _, err := dialect.ParseQualified(tbl.Name); err != nil {
			return fmt.Errorf("tables[%d]: %w", i, err)
		}
		if len(tbl.Columns) == 0 {
			return fmt.Errorf("tables[%d]: columns are required", i)
		}
		for j, row := range tbl.Rows {
			if len(row) != len(tbl.Columns) {
				return fmt.Errorf("tables[%d].rows[%d]: %d values for %d columns", i, j, len(row), len(tbl.Columns))
			}
		}
	}

	e := s.Expect
	if e.Error != "" && (len(e.Rows) > 0 || len(e.Columns) > 0) {
		return fmt.Errorf("expect: error excludes columns and rows")
	}
	if e.Error == "" && e.SQL == "" && e.Columns == nil && e.Rows == nil {
		return fmt.Errorf("expect: nothing to check")
	}
	return nil
}
