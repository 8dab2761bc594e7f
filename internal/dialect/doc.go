// Package dialect is the Dialect Adapter for the columnar analytic database
// lazytbl targets.
//
// It owns every syntax rule that differs from generic SQL:
//
//   - identifiers are double-quoted, embedded quotes doubled
//   - "schema"."table" qualification, omitted for the configured default schema
//   - LIMIT appended as the final clause unless the plan is already bounded
//   - OVER (PARTITION BY ... ORDER BY ... ROWS ...) with absent clauses omitted
//   - the translation table from portable expression functions to SQL
//
// A Context is created once per connection and is read-only afterwards; it
// is passed explicitly to every lowering call.
package dialect
