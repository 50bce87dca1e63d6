// Package migrations embeds the SQLite schema.
package migrations

import "embed"

// FS contains the SQLite migrations in golang-migrate layout.
//
//go:embed *.sql
var FS embed.FS
