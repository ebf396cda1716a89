package migrations

import "embed"

// FS contains embedded SQLite migrations for accepted-flag storage.
//
//go:embed *.sql
var FS embed.FS
