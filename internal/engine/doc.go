// Package engine connects lazy tables to a server and materializes them.
//
// A Conn owns one transport and the dialect context it was opened with.
// Tables built from a Conn are immutable handles (Tbl) over the operation
// graph; nothing is sent to the server until a result is needed.
//
// Round trips happen at four points:
//
//   - Select asks the function registry whether the selection invokes a
//     remote transform (every call, unless the function cache is enabled)
//   - lowering probes the columns of intermediate nodes that need them and,
//     for tail without ordering, counts rows
//   - Collect, RowCount and the catalog helpers send their statement
//   - DDL (DropTable, Compute, CopyRows) checks preconditions first and
//     fails before sending anything destructive
//
// Execution is synchronous and serialized on the single connection.
package engine
