// Package plan reads lazy-table pipelines from YAML.
//
// A plan names a source and a list of single-key steps applied in order:
//
//	from: sales
//	steps:
//	  - filter: ["amount > 100"]
//	  - group_by: [region]
//	  - summarise: ["total = sum(amount)", "n = n()"]
//	  - arrange: ["desc(total)"]
//	  - head: 5
//
// Moving aggregates set a ROWS frame before the mutate; YAML's -.inf and
// .inf stand for unbounded:
//
//	  - arrange: [day]
//	  - window_frame: [-6, 0]
//	  - mutate: ["week = sum(amount)"]
//
// A plan without from selects expressions with no source (query:
// ["version()"]). Joins nest a plan for their right side:
//
//	  - join:
//	      type: left
//	      on: ["customer_id = id"]
//	      right: {from: customers}
package plan

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/engine"
	"github.com/roach88/lazytbl/internal/ir"
	"github.com/roach88/lazytbl/internal/lazyerr"
	"github.com/roach88/lazytbl/internal/queryir"
)

// Plan is a source plus the steps applied to it.
type Plan struct {
	// From is the source table, optionally schema-qualified.
	From any `yaml:"from,omitempty"`

	// Query holds select-list terms for a sourceless query. Exclusive
	// with From.
	Query []string `yaml:"query,omitempty"`

	Steps []Step `yaml:"steps,omitempty"`
}

// Step operations.
const (
	OpFilter    = "filter"
	OpSelect    = "select"
	OpMutate    = "mutate"
	OpArrange   = "arrange"
	OpGroupBy   = "group_by"
	OpUngroup   = "ungroup"
	OpFrame     = "window_frame"
	OpSummarise = "summarise"
	OpDistinct  = "distinct"
	OpHead      = "head"
	OpTail      = "tail"
	OpJoin      = "join"
)

// Step is one pipeline operation. Its argument stays undecoded until the
// plan is built, since each operation takes a different shape.
type Step struct {
	Op   string
	Args yaml.Node
}

// UnmarshalYAML decodes a single-key mapping.
func (s *Step) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return fmt.Errorf("line %d: step must be a mapping with exactly one operation", n.Line)
	}
	s.Op = n.Content[0].Value
	s.Args = *n.Content[1]
	return nil
}

// Join is the argument of a join step.
type Join struct {
	// Type is inner (default), left, right or full.
	Type string `yaml:"type,omitempty"`

	// On lists key pairs as "left = right", or a bare name for a key with
	// the same name on both sides.
	On []string `yaml:"on"`

	Right *Plan `yaml:"right"`
}

// Load reads a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a plan, rejecting unknown fields.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, lazyerr.Wrap(lazyerr.CodeInvalidPlan, err, "failed to parse plan")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Plan) validate() error {
	switch {
	case p.From == nil && len(p.Query) == 0:
		return lazyerr.New(lazyerr.CodeInvalidPlan, "plan needs from or query")
	case p.From != nil && len(p.Query) > 0:
		return lazyerr.New(lazyerr.CodeInvalidPlan, "plan takes from or query, not both")
	}
	return nil
}

// Build applies the plan on conn. Select steps consult the server's
// transform registry; everything else is local.
func (p *Plan) Build(ctx context.Context, conn *engine.Conn) (*engine.Tbl, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	tbl, err := p.source(conn)
	if err != nil {
		return nil, err
	}
	for i, step := range p.Steps {
		tbl, err = apply(ctx, conn, tbl, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d] %s: %w", i, step.Op, err)
		}
	}
	return tbl, nil
}

func (p *Plan) source(conn *engine.Conn) (*engine.Tbl, error) {
	if p.From != nil {
		name, err := dialect.IdentFrom(p.From)
		if err != nil {
			return nil, err
		}
		return conn.Table(name)
	}
	terms, err := parseTerms(p.Query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return conn.Query(terms...)
}

func apply(ctx context.Context, conn *engine.Conn, tbl *engine.Tbl, step Step) (*engine.Tbl, error) {
	switch step.Op {
	case OpFilter, OpArrange:
		var srcs []string
		if err := decodeArgs(step, &srcs); err != nil {
			return nil, err
		}
		exprs, err := parseExprs(srcs)
		if err != nil {
			return nil, err
		}
		if step.Op == OpFilter {
			return tbl.Filter(exprs...)
		}
		return tbl.Arrange(exprs...)

	case OpSelect, OpMutate, OpSummarise:
		var srcs []string
		if err := decodeArgs(step, &srcs); err != nil {
			return nil, err
		}
		terms, err := parseTerms(srcs)
		if err != nil {
			return nil, err
		}
		switch step.Op {
		case OpSelect:
			return tbl.Select(ctx, terms...)
		case OpMutate:
			return tbl.Mutate(terms...)
		default:
			return tbl.Summarise(terms...)
		}

	case OpGroupBy:
		var raw []any
		if err := decodeArgs(step, &raw); err != nil {
			return nil, err
		}
		cols := make([]string, len(raw))
		for i, v := range raw {
			col, err := dialect.IdentFrom(v)
			if err != nil {
				return nil, err
			}
			cols[i] = col
		}
		return tbl.GroupBy(cols...)

	case OpFrame:
		var bounds []float64
		if err := decodeArgs(step, &bounds); err != nil {
			return nil, err
		}
		if len(bounds) != 2 {
			return nil, lazyerr.New(lazyerr.CodeInvalidPlan, "window_frame takes [from, to], got %d bounds", len(bounds))
		}
		return tbl.WindowFrame(bounds[0], bounds[1])

	case OpUngroup, OpDistinct:
		var on bool
		if err := decodeArgs(step, &on); err != nil {
			return nil, err
		}
		if !on {
			return tbl, nil
		}
		if step.Op == OpUngroup {
			return tbl.Ungroup(), nil
		}
		return tbl.Distinct(), nil

	case OpHead, OpTail:
		var n int64
		if err := decodeArgs(step, &n); err != nil {
			return nil, err
		}
		if step.Op == OpHead {
			return tbl.Head(n)
		}
		return tbl.Tail(n)

	case OpJoin:
		var j Join
		if err := decodeArgs(step, &j); err != nil {
			return nil, err
		}
		return buildJoin(ctx, conn, tbl, j)
	}
	return nil, lazyerr.New(lazyerr.CodeInvalidPlan, "unknown operation %q", step.Op)
}

func buildJoin(ctx context.Context, conn *engine.Conn, left *engine.Tbl, j Join) (*engine.Tbl, error) {
	if j.Right == nil {
		return nil, lazyerr.New(lazyerr.CodeInvalidPlan, "join needs a right plan")
	}
	right, err := j.Right.Build(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}
	typ := queryir.JoinType(strings.ToLower(j.Type))
	if typ == "" {
		typ = queryir.JoinInner
	}
	keys := make([]queryir.JoinKey, len(j.On))
	for i, on := range j.On {
		k, err := parseJoinKey(on)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	return left.Join(right, typ, keys...)
}

func parseJoinKey(s string) (queryir.JoinKey, error) {
	l, r, found := strings.Cut(s, "=")
	l = strings.TrimSpace(l)
	r = strings.TrimSpace(r)
	if !found {
		r = l
	}
	if err := dialect.ValidateIdent(l); err != nil {
		return queryir.JoinKey{}, err
	}
	if err := dialect.ValidateIdent(r); err != nil {
		return queryir.JoinKey{}, err
	}
	return queryir.JoinKey{Left: l, Right: r}, nil
}

func decodeArgs(step Step, v any) error {
	if err := step.Args.Decode(v); err != nil {
		return lazyerr.Wrap(lazyerr.CodeInvalidPlan, err, "line %d: bad arguments", step.Args.Line)
	}
	return nil
}

func parseExprs(srcs []string) ([]ir.Expr, error) {
	out := make([]ir.Expr, len(srcs))
	for i, src := range srcs {
		e, err := ir.ParseExpr(src)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func parseTerms(srcs []string) ([]ir.Term, error) {
	out := make([]ir.Term, len(srcs))
	for i, src := range srcs {
		t, err := ir.ParseTerm(src)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
