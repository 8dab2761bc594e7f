package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario and compares the lowered SQL against a
// golden file. The golden file is stored in
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Scenarios that fail before lowering have no SQL and skip the golden
// comparison. Returns an error if the scenario could not be set up; test
// failure (via goldie) occurs if the SQL doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if result.SQL != "" {
		AssertGolden(t, scenario.Name, result.SQL)
	}
	return result, nil
}

// AssertGolden compares sql against testdata/golden/{name}.golden.
func AssertGolden(t *testing.T, name, sql string) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(sql))
}
