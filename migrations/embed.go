// Package migrations embeds the SQLite schema migrations applied at startup.
package migrations

import "embed"

// FS holds the embedded SQL migration files.
//
//go:embed *.sql
var FS embed.FS
