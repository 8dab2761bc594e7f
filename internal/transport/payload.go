package transport

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/lazyerr"
)

// FieldSeparator separates columns in the unaligned text payload.
const FieldSeparator = "|"

// Runner sends one statement and returns the printed payload. Server
// errors are part of the payload, not the returned error; the error is
// reserved for failures to reach the server at all.
type Runner interface {
	Run(ctx context.Context, sql string) (string, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, sql string) (string, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, sql string) (string, error) {
	return f(ctx, sql)
}

// VSQLConfig configures the vsql command-line client.
type VSQLConfig struct {
	Path     string // defaults to "vsql" on PATH
	Host     string
	Port     int
	User     string
	Database string

	// PasswordEnv names the environment variable holding the password.
	// It is passed to vsql as VSQL_PASSWORD.
	PasswordEnv string
}

// VSQLRunner runs statements through vsql in unaligned, footer-less mode.
type VSQLRunner struct {
	cfg VSQLConfig
}

// NewVSQLRunner creates a runner for cfg.
func NewVSQLRunner(cfg VSQLConfig) *VSQLRunner {
	if cfg.Path == "" {
		cfg.Path = "vsql"
	}
	return &VSQLRunner{cfg: cfg}
}

// Args returns the vsql arguments for a statement.
func (r *VSQLRunner) Args(sql string) []string {
	var args []string
	if r.cfg.Host != "" {
		args = append(args, "-h", r.cfg.Host)
	}
	if r.cfg.Port != 0 {
		args = append(args, "-p", strconv.Itoa(r.cfg.Port))
	}
	if r.cfg.User != "" {
		args = append(args, "-U", r.cfg.User)
	}
	if r.cfg.Database != "" {
		args = append(args, "-d", r.cfg.Database)
	}
	return append(args, "-A", "-F", FieldSeparator, "-P", "footer=off", "-X", "-c", sql)
}

// Run executes vsql and returns its combined output. A non-zero exit with
// output is a server-side failure and is returned as payload.
func (r *VSQLRunner) Run(ctx context.Context, sql string) (string, error) {
	cmd := exec.CommandContext(ctx, r.cfg.Path, r.Args(sql)...)
	cmd.Env = os.Environ()
	if r.cfg.PasswordEnv != "" {
		cmd.Env = append(cmd.Env, "VSQL_PASSWORD="+os.Getenv(r.cfg.PasswordEnv))
	}
	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	if err != nil && !(errors.As(err, &exitErr) && len(out) > 0) {
		return "", err
	}
	return string(out), nil
}

// PayloadTransport executes statements through a Runner and parses the
// text payload.
type PayloadTransport struct {
	runner Runner
	opts   options
}

// OpenPayload validates the runner with a trivial statement.
func OpenPayload(ctx context.Context, runner Runner, opts ...Option) (*PayloadTransport, error) {
	t := NewPayload(runner, opts...)
	if _, err := t.QueryScalar(ctx, "SELECT 1"); err != nil {
		return nil, lazyerr.Wrap(lazyerr.CodeConnection, err, "validate payload connection")
	}
	return t, nil
}

// NewPayload wraps runner without validating it.
func NewPayload(runner Runner, opts ...Option) *PayloadTransport {
	return &PayloadTransport{runner: runner, opts: buildOptions(opts)}
}

// Kind returns TransportODBC.
func (t *PayloadTransport) Kind() dialect.TransportKind {
	return dialect.TransportODBC
}

func (t *PayloadTransport) run(ctx context.Context, sql string) (string, error) {
	if err := t.opts.runHook(ctx, sql); err != nil {
		return "", err
	}
	start := time.Now()
	out, err := t.runner.Run(ctx, sql)
	if err != nil {
		return "", lazyerr.Wrap(lazyerr.CodeConnection, err, "run statement")
	}
	if IsErrorPayload(out) {
		return "", lazyerr.NewQueryExecution(sql, strings.TrimSpace(out))
	}
	t.opts.logger.Debug("statement executed",
		"transport", string(dialect.TransportODBC),
		"bytes", len(out),
		"elapsed", time.Since(start),
		"sql", sql)
	return out, nil
}

// Execute runs a query and parses the header and rows of the payload.
func (t *PayloadTransport) Execute(ctx context.Context, sql string) (*Result, error) {
	out, err := t.run(ctx, sql)
	if err != nil {
		return nil, err
	}
	return ParsePayload(out), nil
}

// Exec runs a statement and discards the payload.
func (t *PayloadTransport) Exec(ctx context.Context, sql string) error {
	_, err := t.run(ctx, sql)
	return err
}

// QueryScalar returns the first cell of the payload.
func (t *PayloadTransport) QueryScalar(ctx context.Context, sql string) (any, error) {
	res, err := t.Execute(ctx, sql)
	if err != nil {
		return nil, err
	}
	return firstCell(res), nil
}

// Close is a no-op; each statement is its own client invocation.
func (t *PayloadTransport) Close() error {
	return nil
}

// IsErrorPayload reports whether the payload's first non-blank line carries
// the server's error marker: the internal-error state HY000 (optionally in
// brackets) or the word ERROR.
func IsErrorPayload(out string) bool {
	line := firstLine(out)
	for _, marker := range []string{"HY000", "[HY000]", "ERROR"} {
		if strings.HasPrefix(line, marker) {
			return true
		}
	}
	return false
}

// maxPayloadLine bounds a single payload line; wide rows and long error
// messages exceed bufio's default token size.
const maxPayloadLine = 16 * 1024 * 1024

func newLineScanner(out string) *bufio.Scanner {
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 64*1024), maxPayloadLine)
	return sc
}

func firstLine(out string) string {
	sc := newLineScanner(out)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line
		}
	}
	return ""
}

// ParsePayload parses unaligned output: a header line followed by one line
// per row, fields separated by FieldSeparator. Status lines such as
// "CREATE TABLE" that carry no separator and precede nothing are returned
// as an empty result.
func ParsePayload(out string) *Result {
	var lines []string
	sc := newLineScanner(out)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	res := &Result{Rows: [][]any{}}
	if len(lines) == 0 {
		return res
	}
	if len(lines) == 1 && isStatusLine(lines[0]) {
		return res
	}
	res.Columns = strings.Split(lines[0], FieldSeparator)
	for _, line := range lines[1:] {
		fields := strings.Split(line, FieldSeparator)
		row := make([]any, len(res.Columns))
		for i := range row {
			if i < len(fields) {
				row[i] = fields[i]
			}
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}

var statusWords = []string{"CREATE", "DROP", "INSERT", "ALTER", "COMMIT", "ROLLBACK", "SET"}

func isStatusLine(line string) bool {
	for _, w := range statusWords {
		if (line == w || strings.HasPrefix(line, w+" ")) && !strings.Contains(line, FieldSeparator) {
			return true
		}
	}
	return false
}
