// Package config loads connection profiles.
//
// Profiles are written in CUE and unified with an embedded #Config schema,
// which rejects unknown fields and fills defaults:
//
//	profiles: {
//		prod: {
//			dsn:    "vertica://dbadmin@db:5433/analytics"
//			schema: "analytics"
//		}
//		shell: {
//			transport: "odbc"
//			vsql: {host: "db", user: "dbadmin", password_env: "VSQL_PASS"}
//		}
//	}
//
// A Profile converts to a transport.Config for transport.Open.
package config
