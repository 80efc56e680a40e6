// Package migrations embeds the goose migration scripts for both supported
// backends. The repomanager selects the subdirectory matching the dialect.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS
