// Package migrations embeds the SQL schema so the binary carries it.
package migrations

import "embed"

// Files holds the ordered *.sql migrations.
//
//go:embed *.sql
var Files embed.FS
