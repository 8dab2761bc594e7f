package cli

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/lazytbl/internal/config"
	"github.com/roach88/lazytbl/internal/engine"
	"github.com/roach88/lazytbl/internal/plan"
	"github.com/roach88/lazytbl/internal/store"
)

// session is an open connection plus the profile it came from.
type session struct {
	conn    *engine.Conn
	profile config.Profile
	close   func() error
}

func (s *session) Close() error {
	return s.close()
}

// loadProfile resolves the profile selected by the global flags.
func (o *RootOptions) loadProfile() (config.Profile, error) {
	path := o.Config
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); errors.Is(err, fs.ErrNotExist) {
			if o.Profile != "" {
				return config.Profile{}, &config.Error{Field: "profile", Message: "no " + config.DefaultFile + " to select " + o.Profile + " from"}
			}
			return config.Sandbox(), nil
		}
		path = config.DefaultFile
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Profile{}, err
	}
	return cfg.Profile(o.Profile)
}

// open connects with the selected profile.
func (o *RootOptions) open(ctx context.Context) (*session, error) {
	p, err := o.loadProfile()
	if err != nil {
		return nil, err
	}
	logger := slog.Default()
	connOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithFunctionCache(p.CacheFunctions),
	}

	if p.IsSandbox() {
		st, err := store.Open(p.DSN, store.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		conn := engine.New(st.Transport(), p.Schema, connOpts...)
		return &session{conn: conn, profile: p, close: st.Close}, nil
	}

	conn, err := engine.Connect(ctx, p.TransportConfig(logger), p.Schema, connOpts...)
	if err != nil {
		return nil, err
	}
	return &session{conn: conn, profile: p, close: conn.Close}, nil
}

// withSession runs fn on an open session and reports failures through
// the formatter with a classified exit code.
func (o *RootOptions) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session, out *OutputFormatter) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := o.formatter(cmd)

	s, err := o.open(ctx)
	if err != nil {
		_ = out.Fail(err)
		return WrapExitError(ExitCommandError, "failed to connect", err)
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			slog.Error("error closing connection", "error", closeErr)
		}
	}()

	if err := fn(ctx, s, out); err != nil {
		_ = out.Fail(err)
		return WrapExitError(exitCodeFor(err), "command failed", err)
	}
	return nil
}

// buildPlan loads a plan file and builds it on the session's connection.
func buildPlan(ctx context.Context, s *session, path string) (*engine.Tbl, error) {
	p, err := plan.Load(path)
	if err != nil {
		return nil, err
	}
	return p.Build(ctx, s.conn)
}
