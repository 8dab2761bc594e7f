// Package queryir provides the Relational-Operation Graph behind a lazy
// table: an immutable chain of operation nodes describing a query plan.
//
// ARCHITECTURE:
//
// Every relational operation returns a new *Node wrapping its input:
//
//	Table("sales") → Filter(amount > 0) → GroupBy(region) → Mutate(r = row_number())
//
// Nodes never change after construction, so any prefix of a chain can be
// shared by many downstream queries. The single piece of state written
// later is the memoized output column list (Columns), filled on the first
// successful field probe and never re-probed.
//
// Building a graph performs no I/O. Lowering to SQL lives in package
// querysql; deciding whether a selection invokes a server-side transform
// lives in package remotefn, which produces RemoteInvoke nodes.
//
// GROUP AND SORT METADATA:
//
// GroupColumns and SortKeys are inherited down the chain so that a
// RemoteInvoke node can carry its input's partition and order context
// without the caller restating it:
//
//	GroupBy   replaces the grouping
//	Ungroup   clears it
//	Summarise peels off the last grouping column and clears ordering
//	Arrange   replaces the ordering
//	Select    keeps both, following plain column renames
//	Join      keeps the left grouping and clears ordering
package queryir
