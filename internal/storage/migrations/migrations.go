// Package migrations embeds the goose migrations of each bounded context.
package migrations

import "embed"

const (
	ContextUsers = "users"
	ContextAuth  = "auth"
)

//go:embed users/*.sql auth/*.sql
var FS embed.FS
