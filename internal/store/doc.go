// Package store provides the local sandbox server: a SQLite database that
// accepts the SQL lazytbl generates and answers the catalog queries it
// sends.
//
// The server's catalog schema is emulated by attaching an in-memory
// database named v_catalog holding user_functions, tables and views.
// tables and views are rebuilt from SQLite's own schema before any
// statement that reads them; user_functions lists the functions registered
// with WithTransform, WithFunction or RegisterFunction.
//
// Transforms are emulated as scalar SQL functions. That is enough for
// unpartitioned invocations; SQLite rejects an OVER clause on a plain
// function, so partitioned invocations only lower, they do not run here.
//
// # Database Configuration
//
//   - One open connection: the main database, the attached schemas and
//     temporary tables all live on it
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Every non-default schema must be declared with WithSchema; it is attached
// as an in-memory database of that name.
package store
