// Package migrations embeds the SQL migration files applied by
// cmd/migrate and, when AUTO_CREATE_SCHEMA is set, by cmd/server.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
