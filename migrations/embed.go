// Package migrations bundles the SQL schema migrations into the binary.
package migrations

import "embed"

// FS holds the NNN_name.sql migration files
//
//go:embed *.sql
var FS embed.FS
