package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/transport"
)

// Handler answers one statement for a FakeTransport.
type Handler func(sql string) (*transport.Result, error)

// FakeTransport records every statement it receives and answers with a
// Handler. The zero Handler answers every statement with an empty result.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeTransport struct {
	mu         sync.Mutex
	kind       dialect.TransportKind
	handler    Handler
	statements []string
	closed     bool
}

// NewFakeTransport creates a fake of the given kind.
func NewFakeTransport(kind dialect.TransportKind, h Handler) *FakeTransport {
	return &FakeTransport{kind: kind, handler: h}
}

// Kind returns the configured kind.
func (f *FakeTransport) Kind() dialect.TransportKind {
	return f.kind
}

func (f *FakeTransport) answer(sql string) (*transport.Result, error) {
	f.mu.Lock()
	f.statements = append(f.statements, sql)
	h := f.handler
	f.mu.Unlock()
	if h == nil {
		return &transport.Result{Rows: [][]any{}}, nil
	}
	return h(sql)
}

// Execute records sql and returns the handler's answer.
func (f *FakeTransport) Execute(_ context.Context, sql string) (*transport.Result, error) {
	res, err := f.answer(sql)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &transport.Result{Rows: [][]any{}}
	}
	return res, nil
}

// Exec records sql and returns the handler's error.
func (f *FakeTransport) Exec(_ context.Context, sql string) error {
	_, err := f.answer(sql)
	return err
}

// QueryScalar records sql and returns the first cell of the answer.
func (f *FakeTransport) QueryScalar(ctx context.Context, sql string) (any, error) {
	res, err := f.Execute(ctx, sql)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return nil, nil
	}
	return res.Rows[0][0], nil
}

// Close marks the fake closed.
func (f *FakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeTransport) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Statements returns a copy of every statement received, in order.
func (f *FakeTransport) Statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.statements...)
}

// Sent reports whether any recorded statement starts with prefix.
func (f *FakeTransport) Sent(prefix string) bool {
	for _, s := range f.Statements() {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// Scalar is a Handler helper answering with a one-cell result.
func Scalar(v any) *transport.Result {
	return &transport.Result{Columns: []string{"value"}, Rows: [][]any{{v}}}
}

// Columns is a Handler helper answering with an empty result of the given
// columns, as a field probe returns.
func Columns(cols ...string) *transport.Result {
	return &transport.Result{Columns: cols, Rows: [][]any{}}
}
