// Package querysql lowers relational-operation graphs to SQL.
//
// Lowering is a single recursive descent over the chain. Compatible
// operations (filter after table, arrange after select, head after
// arrange, ...) are fused into one SELECT; anything else wraps the query so
// far as "(...) AS "qNN"". Physical tables are referenced by their quoted,
// schema-qualified name and never wrapped on their own.
//
// Lowering asks the server for two things only: the column names of an
// intermediate node (mutate, join and remote invocations need them) and the
// row count of a node (tail without ordering). Both go through Catalog.
//
// The package also renders the DDL and catalog statements the engine sends:
// CREATE TABLE AS, DROP, literal INSERT, function listing and existence
// checks.
package querysql
