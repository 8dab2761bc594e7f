package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/transport"
)

//go:embed schema.cue
var schemaCUE string

// DefaultFile is the profile file looked up when none is given.
const DefaultFile = "lazytbl.cue"

// DriverSandbox selects the local SQLite stand-in server.
const DriverSandbox = "sandbox"

// Config is a decoded profile file.
type Config struct {
	DefaultProfile string             `json:"default_profile,omitempty"`
	Profiles       map[string]Profile `json:"profiles"`
}

// Profile describes one server connection.
type Profile struct {
	Transport      dialect.TransportKind `json:"transport"`
	Driver         string                `json:"driver"`
	DSN            string                `json:"dsn,omitempty"`
	VSQL           *VSQL                 `json:"vsql,omitempty"`
	Schema         string                `json:"schema"`
	RowLimit       int64                 `json:"row_limit"`
	CacheFunctions bool                  `json:"cache_functions"`
}

// VSQL configures the vsql client used by the odbc transport.
type VSQL struct {
	Path        string `json:"path"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	User        string `json:"user,omitempty"`
	Database    string `json:"database,omitempty"`
	PasswordEnv string `json:"password_env,omitempty"`
}

// Error is a configuration error with its source position when known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and validates a profile file.
func Load(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(src, path)
}

// Parse validates src against the schema and decodes it. filename is used
// in error positions only.
func Parse(src []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, formatCUEError(err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DefaultProfile != "" {
		if _, ok := c.Profiles[c.DefaultProfile]; !ok {
			return &Error{Field: "default_profile", Message: fmt.Sprintf("unknown profile %q", c.DefaultProfile)}
		}
	}
	for _, name := range c.names() {
		p := c.Profiles[name]
		if p.Transport == dialect.TransportJDBC && p.DSN == "" && p.Driver != DriverSandbox {
			return &Error{Field: "profiles." + name + ".dsn", Message: "jdbc transport needs a dsn"}
		}
		if p.Transport == dialect.TransportODBC && p.VSQL == nil {
			return &Error{Field: "profiles." + name + ".vsql", Message: "odbc transport needs vsql settings"}
		}
	}
	return nil
}

func (c *Config) names() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Profile selects a profile by name. An empty name picks default_profile,
// or the only profile when there is exactly one.
func (c *Config) Profile(name string) (Profile, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" {
		if len(c.Profiles) != 1 {
			return Profile{}, &Error{Field: "profile", Message: fmt.Sprintf("no profile selected (have %v)", c.names())}
		}
		name = c.names()[0]
	}
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, &Error{Field: "profile", Message: fmt.Sprintf("unknown profile %q (have %v)", name, c.names())}
	}
	return p, nil
}

// Sandbox is the profile used when no profile file exists: an in-memory
// sandbox server.
func Sandbox() Profile {
	return Profile{
		Transport: dialect.TransportJDBC,
		Driver:    DriverSandbox,
		Schema:    dialect.DefaultSchema,
		RowLimit:  -1,
	}
}

// TransportConfig converts p for transport.Open. Sandbox profiles are
// opened by the caller through the store package instead.
func (p Profile) TransportConfig(logger *slog.Logger) transport.Config {
	cfg := transport.Config{
		Kind:   p.Transport,
		Driver: p.Driver,
		DSN:    p.DSN,
		Logger: logger,
	}
	if p.VSQL != nil {
		cfg.VSQL = transport.VSQLConfig{
			Path:        p.VSQL.Path,
			Host:        p.VSQL.Host,
			Port:        p.VSQL.Port,
			User:        p.VSQL.User,
			Database:    p.VSQL.Database,
			PasswordEnv: p.VSQL.PasswordEnv,
		}
	}
	return cfg
}

// IsSandbox reports whether p selects the local sandbox server.
func (p Profile) IsSandbox() bool {
	return p.Driver == DriverSandbox
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &Error{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &Error{Field: "cue", Message: first.Error()}
}

// AsError unwraps err to a config Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
