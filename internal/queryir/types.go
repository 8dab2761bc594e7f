package queryir

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/lazytbl/internal/dialect"
	"github.com/roach88/lazytbl/internal/ir"
)

// Kind tags the operation a Node performs.
type Kind int

const (
	KindTable Kind = iota
	KindRawSystemQuery
	KindSelect
	KindFilter
	KindMutate
	KindJoin
	KindArrange
	KindGroupBy
	KindUngroup
	KindSummarise
	KindDistinct
	KindHead
	KindTail
	KindRemoteInvoke
	KindWindowFrame
)

var kindNames = map[Kind]string{
	KindTable:          "table",
	KindRawSystemQuery: "raw_system_query",
	KindSelect:         "select",
	KindFilter:         "filter",
	KindMutate:         "mutate",
	KindJoin:           "join",
	KindArrange:        "arrange",
	KindGroupBy:        "group_by",
	KindUngroup:        "ungroup",
	KindSummarise:      "summarise",
	KindDistinct:       "distinct",
	KindHead:           "head",
	KindTail:           "tail",
	KindRemoteInvoke:   "remote_invoke",
	KindWindowFrame:    "window_frame",
}

// String returns the snake_case operation name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// SortKey is one ORDER BY element.
type SortKey struct {
	Expr ir.Expr
	Desc bool
}

// JoinType selects the SQL join flavor.
type JoinType string

const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
	JoinRight JoinType = "right"
	JoinFull  JoinType = "full"
)

// JoinKey pairs a left column with the right column it must equal.
type JoinKey struct {
	Left  string
	Right string
}

// Remote is the metadata of a RemoteInvoke node.
type Remote struct {
	// Function is the registered transform name that matched.
	Function string

	// Mask marks the term position(s) that matched, one entry per term.
	Mask []bool

	// Partition is the grouping inherited from the input.
	Partition []string

	// Order is the ordering inherited from the input.
	Order []SortKey

	// Frame is the window frame inherited from the input, or nil. It
	// applies to windowed terms next to the transform, not the transform.
	Frame *dialect.Frame
}

// ColumnProbe discovers a node's output columns, typically by sending a
// zero-row query to the server.
type ColumnProbe interface {
	ProbeColumns(ctx context.Context, n *Node) ([]string, error)
}

// Node is one operation in the graph. The zero value is not usable; build
// nodes with Table, RawQuery and the methods on *Node.
type Node struct {
	kind  Kind
	input *Node
	terms []ir.Term

	schema string
	table  string
	n      int64
	sort   []SortKey
	join   *joinSpec
	remote *Remote

	groupCols []string
	sortKeys  []SortKey
	frame     *dialect.Frame

	memo *columnMemo
}

type joinSpec struct {
	right *Node
	typ   JoinType
	keys  []JoinKey
}

// columnMemo holds the lazily probed output columns. Failed probes are not
// memoized.
type columnMemo struct {
	mu   sync.Mutex
	cols []string
	done bool
}

// Kind returns the node's operation.
func (n *Node) Kind() Kind { return n.kind }

// Input returns the node's input, or nil for roots.
func (n *Node) Input() *Node { return n.input }

// Terms returns a copy of the node's expression terms.
func (n *Node) Terms() []ir.Term {
	return append([]ir.Term(nil), n.terms...)
}

// TableName returns the schema and table of a Table node.
func (n *Node) TableName() (schema, table string) {
	return n.schema, n.table
}

// N returns the row count of a Head or Tail node.
func (n *Node) N() int64 { return n.n }

// Order returns the sort keys an Arrange node introduces.
func (n *Node) Order() []SortKey {
	return append([]SortKey(nil), n.sort...)
}

// JoinSpec returns the right side, type and keys of a Join node.
func (n *Node) JoinSpec() (*Node, JoinType, []JoinKey) {
	if n.join == nil {
		return nil, "", nil
	}
	return n.join.right, n.join.typ, append([]JoinKey(nil), n.join.keys...)
}

// Remote returns a copy of a RemoteInvoke node's metadata, or nil.
func (n *Node) Remote() *Remote {
	if n.remote == nil {
		return nil
	}
	r := *n.remote
	r.Mask = append([]bool(nil), r.Mask...)
	r.Partition = append([]string(nil), r.Partition...)
	r.Order = append([]SortKey(nil), r.Order...)
	r.Frame = copyFrame(r.Frame)
	return &r
}

// GroupColumns returns the grouping inherited by this node.
func (n *Node) GroupColumns() []string {
	return append([]string(nil), n.groupCols...)
}

// SortKeys returns the ordering inherited by this node.
func (n *Node) SortKeys() []SortKey {
	return append([]SortKey(nil), n.sortKeys...)
}

// Frame returns the window frame inherited by this node, or nil when
// windowed aggregates use the whole partition.
func (n *Node) Frame() *dialect.Frame {
	return copyFrame(n.frame)
}

func copyFrame(f *dialect.Frame) *dialect.Frame {
	if f == nil {
		return nil
	}
	out := *f
	return &out
}

// Bounded reports whether the node already bounds its result cardinality,
// in which case no row-limit clause is added at materialization. GroupBy
// Ungroup and WindowFrame lower to their input's query, so they are bounded
// when it is.
func (n *Node) Bounded() bool {
	for n != nil && (n.kind == KindGroupBy || n.kind == KindUngroup || n.kind == KindWindowFrame) {
		n = n.input
	}
	return n != nil && (n.kind == KindHead || n.kind == KindTail)
}

// Columns returns the node's output column names. The first successful call
// consults probe; later calls return the memoized list without probing.
func (n *Node) Columns(ctx context.Context, probe ColumnProbe) ([]string, error) {
	n.memo.mu.Lock()
	defer n.memo.mu.Unlock()
	if n.memo.done {
		return append([]string(nil), n.memo.cols...), nil
	}
	cols, err := probe.ProbeColumns(ctx, n)
	if err != nil {
		return nil, err
	}
	n.memo.cols = append([]string(nil), cols...)
	n.memo.done = true
	return append([]string(nil), cols...), nil
}

// KnownColumns returns the memoized columns without probing.
func (n *Node) KnownColumns() ([]string, bool) {
	n.memo.mu.Lock()
	defer n.memo.mu.Unlock()
	if !n.memo.done {
		return nil, false
	}
	return append([]string(nil), n.memo.cols...), true
}

// Depth returns the number of nodes in the chain ending at n.
func (n *Node) Depth() int {
	d := 0
	for cur := n; cur != nil; cur = cur.input {
		d++
	}
	return d
}
