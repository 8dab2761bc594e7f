package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lazytbl/internal/engine"
	"github.com/roach88/lazytbl/internal/store"
)

// sandboxEnv writes a sandbox database with a sales table and a profile
// file pointing at it. It returns the profile file path and a directory
// for plan files.
func sandboxEnv(t *testing.T) (cfgPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	dbPath := filepath.Join(dir, "sandbox.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	conn := engine.New(st.Transport(), "")
	ctx := context.Background()
	require.NoError(t, conn.Transport().Exec(ctx, `CREATE TABLE "sales" ("region" TEXT, "amount" INTEGER)`))
	require.NoError(t, conn.CopyRows(ctx, "sales", []string{"region", "amount"}, [][]any{
		{"north", 10}, {"north", 200}, {"south", 150},
	}))
	require.NoError(t, st.Close())

	cfgPath = filepath.Join(dir, "lazytbl.cue")
	cfg := fmt.Sprintf("profiles: local: {driver: \"sandbox\", dsn: %q}\n", dbPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath, dir
}

func writePlan(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

const totalsPlan = `
from: sales
steps:
  - group_by: [region]
  - summarise: ["total = sum(amount)"]
  - arrange: [region]
`

func TestRender(t *testing.T) {
	cfg, dir := sandboxEnv(t)
	planPath := writePlan(t, dir, "totals.yaml", totalsPlan)

	out, err := run(t, "--config", cfg, "render", planPath)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "region", SUM("amount") AS "total" FROM "sales" GROUP BY "region" ORDER BY "region"`+"\n", out)

	out, err = run(t, "--config", cfg, "--format", "json", "render", planPath)
	require.NoError(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestQuery(t *testing.T) {
	cfg, dir := sandboxEnv(t)
	planPath := writePlan(t, dir, "totals.yaml", totalsPlan)

	out, err := run(t, "--config", cfg, "query", planPath)
	require.NoError(t, err)
	assert.Contains(t, out, "north")
	assert.Contains(t, out, "210")
	assert.Contains(t, out, "(2 rows)")

	out, err = run(t, "--config", cfg, "--format", "json", "query", "--limit", "1", planPath)
	require.NoError(t, err)
	var resp struct {
		Data RowsData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"region", "total"}, resp.Data.Columns)
	assert.Equal(t, [][]any{{"north", float64(210)}}, resp.Data.Rows)
}

func TestQuery_BadPlan(t *testing.T) {
	cfg, dir := sandboxEnv(t)
	planPath := writePlan(t, dir, "bad.yaml", "from: sales\nsteps:\n  - pivot: [region]\n")

	out, err := run(t, "--config", cfg, "query", planPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [INVALID_PLAN]")
}

func TestComputeExistsDrop(t *testing.T) {
	cfg, dir := sandboxEnv(t)
	planPath := writePlan(t, dir, "totals.yaml", totalsPlan)

	out, err := run(t, "--config", cfg, "compute", "--name", "totals", planPath)
	require.NoError(t, err)
	assert.Equal(t, "totals\n", out)

	_, err = run(t, "--config", cfg, "compute", "--name", "totals", planPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, err = run(t, "--config", cfg, "exists", "totals")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	_, err = run(t, "--config", cfg, "drop", "totals")
	require.NoError(t, err)

	out, err = run(t, "--config", cfg, "exists", "totals")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "false\n", out)
}

func TestCompute_GeneratedName(t *testing.T) {
	cfg, dir := sandboxEnv(t)
	planPath := writePlan(t, dir, "totals.yaml", totalsPlan)

	out, err := run(t, "--config", cfg, "compute", planPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "lazytbl_"), out)
}

func TestDrop_Missing(t *testing.T) {
	cfg, _ := sandboxEnv(t)

	out, err := run(t, "--config", cfg, "drop", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [TABLE_NOT_FOUND]")

	out, err = run(t, "--config", cfg, "drop", "--if-exists", "nope")
	require.NoError(t, err)
	assert.Equal(t, "dropped nope\n", out)
}

func TestFunctions(t *testing.T) {
	cfg, _ := sandboxEnv(t)

	out, err := run(t, "--config", cfg, "--format", "json", "functions")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"category":"Transform","functions":[]}}`, out)
}

func TestUnknownProfile(t *testing.T) {
	cfg, _ := sandboxEnv(t)

	out, err := run(t, "--config", cfg, "--profile", "prod", "functions")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [CONFIG_ERROR]")
}
