// Package migrations embeds the goose SQL migrations for the sonar schema.
package migrations

import "embed"

// FS holds the versioned SQL migrations.
//
//go:embed *.sql
var FS embed.FS
