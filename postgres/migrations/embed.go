// Package migrations embeds the goose SQL migrations for the postgres backend.
package migrations

import "embed"

// FS holds the versioned SQL files.
//
//go:embed *.sql
var FS embed.FS
