package migrations

import "embed"

// FS holds the versioned schema for every supported dialect, one directory per
// golang-migrate database driver.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

const (
	SQLiteDir   = "sqlite"
	PostgresDir = "postgres"
)
