package remotefn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/lazytbl/internal/ir"
	"github.com/roach88/lazytbl/internal/lazyerr"
	"github.com/roach88/lazytbl/internal/queryir"
)

// HeadSymbol returns the symbol a term is matched by: the function name or
// operator when the expression has arity > 1, else the expression itself
// (a column name or literal text).
func HeadSymbol(e ir.Expr) string {
	if ir.Arity(e) > 1 {
		switch ex := e.(type) {
		case ir.Call:
			return ex.Fn
		case ir.BinaryOp:
			return ex.Op
		case ir.UnaryOp:
			return ex.Op
		}
	}
	return ir.String(e)
}

// Matcher reports whether a head symbol invokes a registered function.
type Matcher func(head, registered string) bool

var folder = cases.Fold()

// MatchContains is the default matcher: the case-folded head contains the
// case-folded registered name. Names that are substrings of one another
// (NORM and NORMALIZE) both match.
func MatchContains(head, registered string) bool {
	if registered == "" {
		return false
	}
	return strings.Contains(folder.String(head), folder.String(registered))
}

// MatchExact matches whole names, ignoring case.
func MatchExact(head, registered string) bool {
	return registered != "" && folder.String(head) == folder.String(registered)
}

// Decision is the outcome of resolving one selection.
type Decision struct {
	// Function is the registered name that matched, empty when none did.
	Function string

	// Mask marks the matching term, one entry per term.
	Mask []bool
}

// Remote reports whether the selection invokes a transform.
func (d Decision) Remote() bool {
	return d.Function != ""
}

// Resolver decides whether a selection invokes a remote transform.
type Resolver struct {
	registry Registry
	match    Matcher
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMatcher replaces the default MatchContains matcher.
func WithMatcher(m Matcher) Option {
	return func(r *Resolver) {
		r.match = m
	}
}

// WithLogger sets the resolver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a Resolver over registry.
func NewResolver(registry Registry, opts ...Option) *Resolver {
	r := &Resolver{registry: registry, match: MatchContains, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve lists the registered transforms and applies the decision table:
// no match falls through to a standard selection, one match yields a
// remote invocation, and more than one fails with
// AMBIGUOUS_TRANSFORM_INVOCATION. Every (term, function) pair that matches
// counts, so two terms invoking the same function are ambiguous too.
func (r *Resolver) Resolve(ctx context.Context, terms []ir.Term) (Decision, error) {
	names, err := r.registry.ListFunctions(ctx, CategoryTransform)
	if err != nil {
		return Decision{}, fmt.Errorf("list transform functions: %w", err)
	}

	mask := make([]bool, len(terms))
	var matched []match
	for i, t := range terms {
		head := HeadSymbol(t.Expr)
		for _, name := range names {
			if r.match(head, name) {
				mask[i] = true
				matched = append(matched, match{head: head, function: name})
			}
		}
	}

	switch len(matched) {
	case 0:
		return Decision{Mask: mask}, nil
	case 1:
		r.logger.Debug("remote transform matched", "function", matched[0].function, "head", matched[0].head)
		return Decision{Function: matched[0].function, Mask: mask}, nil
	default:
		pairs := make([]string, len(matched))
		for i, m := range matched {
			pairs[i] = m.head + " -> " + m.function
		}
		err := lazyerr.New(lazyerr.CodeAmbiguousTransform,
			"only one remote transform invocation permitted per selection, matched %s", strings.Join(pairs, ", "))
		err.Details = map[string]string{"matches": strings.Join(pairs, ",")}
		return Decision{}, err
	}
}

type match struct {
	head     string
	function string
}

// Select builds the selection node for terms over n: a RemoteInvoke when a
// transform is invoked, a plain Select otherwise.
func (r *Resolver) Select(ctx context.Context, n *queryir.Node, terms ...ir.Term) (*queryir.Node, error) {
	d, err := r.Resolve(ctx, terms)
	if err != nil {
		return nil, err
	}
	if d.Remote() {
		return n.RemoteInvoke(d.Function, d.Mask, terms...)
	}
	return n.Select(terms...)
}
