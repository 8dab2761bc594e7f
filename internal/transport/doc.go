// Package transport sends SQL to the server and normalizes its failures.
//
// Two variants share the Transport interface and are chosen when the
// connection is opened:
//
//   - SQLTransport speaks through database/sql (the vertica driver in
//     production, sqlite3 for the local sandbox). Driver errors are raised
//     natively and are normalized to QUERY_EXECUTION_ERROR.
//   - PayloadTransport hands statements to a text runner (the vsql client
//     by default) and reads the printed payload. The runner does not fail
//     on server errors, so the payload itself is checked for the server's
//     error marker. That heuristic lives only here.
//
// Both variants serialize statements: one connection, one statement at a
// time.
package transport
