// Package migrations embeds the SQL schema so the binary and tests can apply
// it without depending on the working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
