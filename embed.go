package folio

import "embed"

// migrationFiles holds the versioned schema migrations applied at startup.
//
//go:embed migrations/*.sql
var migrationFiles embed.FS
