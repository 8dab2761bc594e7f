package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lazytbl/internal/dialect"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
		profiles: prod: dsn: "vertica://dbadmin@db:5433/analytics"
	`), "lazytbl.cue")
	require.NoError(t, err)

	p, err := cfg.Profile("")
	require.NoError(t, err)
	assert.Equal(t, dialect.TransportJDBC, p.Transport)
	assert.Equal(t, "vertica", p.Driver)
	assert.Equal(t, "public", p.Schema)
	assert.Equal(t, int64(-1), p.RowLimit)
	assert.False(t, p.CacheFunctions)
	assert.Nil(t, p.VSQL)
}

func TestParseODBCProfile(t *testing.T) {
	cfg, err := Parse([]byte(`
		default_profile: "shell"
		profiles: {
			prod: dsn: "vertica://db/analytics"
			shell: {
				transport: "odbc"
				schema:    "analytics"
				row_limit: 1000
				vsql: {host: "db", user: "dbadmin", password_env: "VSQL_PASS"}
			}
		}
	`), "lazytbl.cue")
	require.NoError(t, err)

	p, err := cfg.Profile("")
	require.NoError(t, err)
	assert.Equal(t, dialect.TransportODBC, p.Transport)
	assert.Equal(t, int64(1000), p.RowLimit)
	require.NotNil(t, p.VSQL)
	assert.Equal(t, "vsql", p.VSQL.Path)
	assert.Equal(t, 5433, p.VSQL.Port)

	tc := p.TransportConfig(nil)
	assert.Equal(t, dialect.TransportODBC, tc.Kind)
	assert.Equal(t, "db", tc.VSQL.Host)
	assert.Equal(t, "VSQL_PASS", tc.VSQL.PasswordEnv)

	prod, err := cfg.Profile("prod")
	require.NoError(t, err)
	assert.Equal(t, "vertica://db/analytics", prod.TransportConfig(nil).DSN)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"unknown field", `profiles: p: {dsn: "x", pool_size: 4}`, "cue"},
		{"bad transport", `profiles: p: {transport: "http", dsn: "x"}`, "cue"},
		{"row limit below -1", `profiles: p: {dsn: "x", row_limit: -2}`, "cue"},
		{"syntax", `profiles: p: {`, "cue"},
		{"jdbc without dsn", `profiles: p: {}`, "profiles.p.dsn"},
		{"odbc without vsql", `profiles: p: transport: "odbc"`, "profiles.p.vsql"},
		{"unknown default", `default_profile: "q", profiles: p: dsn: "x"`, "default_profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.cue")
			require.Error(t, err)
			cerr, ok := AsError(err)
			require.True(t, ok, "got %T: %v", err, err)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestProfileSelection(t *testing.T) {
	cfg, err := Parse([]byte(`
		profiles: {
			a: dsn: "x"
			b: driver: "sandbox"
		}
	`), "lazytbl.cue")
	require.NoError(t, err)

	_, err = cfg.Profile("")
	assert.ErrorContains(t, err, "no profile selected")

	_, err = cfg.Profile("c")
	assert.ErrorContains(t, err, `unknown profile "c"`)

	b, err := cfg.Profile("b")
	require.NoError(t, err)
	assert.True(t, b.IsSandbox())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(`profiles: local: driver: "sandbox"`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	p, err := cfg.Profile("")
	require.NoError(t, err)
	assert.Equal(t, Sandbox(), p)

	_, err = Load(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}
