package queryir

import (
	"fmt"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/ir"
)

// MaxDepth bounds the length of a chain accepted by Validate.
const MaxDepth = 512

// Validate checks the structural invariants of the chain ending at n:
// exactly one root, bounded depth, and well-formed kind metadata.
//
// Constructors already enforce these for every node they create; Validate
// is the whole-chain check run before lowering.
func Validate(n *Node) error {
	if n == nil {
		return invalidPlan("nil plan")
	}
	depth := 0
	for cur := n; cur != nil; cur = cur.input {
		depth++
		if depth > MaxDepth {
			return invalidPlan("plan is deeper than %d operations", MaxDepth)
		}
		if err := validateNode(cur); err != nil {
			return fmt.Errorf("%s (step %d): %w", cur.kind, depth, err)
		}
		if cur.kind == KindJoin {
			if err := Validate(cur.join.right); err != nil {
				return fmt.Errorf("join right side: %w", err)
			}
		}
	}
	return nil
}

func validateNode(n *Node) error {
	root := n.kind == KindTable || n.kind == KindRawSystemQuery
	if root && n.input != nil {
		return invalidPlan("root operation has an input")
	}
	if !root && n.input == nil {
		return invalidPlan("operation has no input")
	}
	if n.memo == nil {
		return invalidPlan("node was not built by a constructor")
	}

	switch n.kind {
	case KindTable:
		if err := dialect.ValidateIdent(n.table); err != nil {
			return err
		}
	case KindHead, KindTail:
		if n.n < 0 {
			return invalidPlan("negative row count %d", n.n)
		}
	case KindJoin:
		if n.join == nil || n.join.right == nil || len(n.join.keys) == 0 {
			return invalidPlan("join is missing its right side or keys")
		}
	case KindRemoteInvoke:
		if n.remote == nil || len(n.remote.Mask) != len(n.terms) {
			return invalidPlan("remote invocation mask does not match its terms")
		}
		matched := 0
		for _, m := range n.remote.Mask {
			if m {
				matched++
			}
		}
		if matched != 1 {
			return invalidPlan("remote invocation must mark exactly one term, marks %d", matched)
		}
	case KindWindowFrame:
		if n.frame == nil {
			return invalidPlan("window frame is missing its bounds")
		}
		if _, err := n.frame.SQL(); err != nil {
			return err
		}
	case KindRawSystemQuery, KindSelect, KindFilter, KindMutate, KindSummarise:
		if len(n.terms) == 0 {
			return invalidPlan("operation has no terms")
		}
	}
	return nil
}

// LintResult lists plan shapes that lower correctly but cost extra round
// trips or silently drop information.
type LintResult struct {
	// Clean is true when no warnings were raised.
	Clean bool

	// Warnings describes each finding, outermost operation first.
	Warnings []string
}

// Lint inspects the chain ending at n. Lint is a pure function with no side
// effects and never fails; run Validate for hard errors.
func Lint(n *Node) LintResult {
	l := &linter{warnings: []string{}}
	for cur := n; cur != nil; cur = cur.input {
		l.lintNode(cur)
		if cur.kind == KindJoin && cur.join != nil && cur.join.right != nil {
			r := Lint(cur.join.right)
			for _, w := range r.Warnings {
				l.addWarning("join right side: %s", w)
			}
		}
	}
	return LintResult{Clean: len(l.warnings) == 0, Warnings: l.warnings}
}

// linter accumulates warnings during traversal.
type linter struct {
	warnings []string
}

func (l *linter) addWarning(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func (l *linter) lintNode(n *Node) {
	switch n.kind {
	case KindTail:
		if len(n.input.sortKeys) == 0 {
			l.addWarning("tail(%d) without arrange needs a row count round trip", n.n)
		}
	case KindSummarise:
		if len(n.input.sortKeys) > 0 {
			l.addWarning("summarise discards the ordering from an earlier arrange")
		}
	case KindMutate, KindFilter:
		for _, t := range n.terms {
			walkCalls(t.Expr, func(c ir.Call) {
				if dialect.IsWindow(c.Fn) && n.kind == KindFilter {
					l.addWarning("filter uses window function %s; it is evaluated without a window", c.Fn)
				}
			})
		}
	case KindJoin:
		if len(n.input.groupCols) > 0 {
			l.addWarning("join keeps the left grouping (%v)", n.input.groupCols)
		}
	}
}

func walkCalls(e ir.Expr, fn func(ir.Call)) {
	switch ex := e.(type) {
	case ir.Call:
		fn(ex)
		for _, a := range ex.Args {
			walkCalls(a, fn)
		}
	case ir.BinaryOp:
		walkCalls(ex.Left, fn)
		walkCalls(ex.Right, fn)
	case ir.UnaryOp:
		walkCalls(ex.Operand, fn)
	}
}
