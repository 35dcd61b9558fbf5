// Package migrations holds the versioned schema of the source registry.
package migrations

import "embed"

// FS holds the NNN_name.up.sql and NNN_name.down.sql pairs, applied in
// version order.
//
//go:embed *.sql
var FS embed.FS
