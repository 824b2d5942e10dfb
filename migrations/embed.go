// Package migrations ships the Postgres schema with the binary.
package migrations

import "embed"

// FS holds the ordered *.sql files. Every statement is idempotent.
//
//go:embed *.sql
var FS embed.FS
