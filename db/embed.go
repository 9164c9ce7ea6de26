// Package db provides the embedded session store schema.
package db

import _ "embed"

// Schema contains the DDL statements for the session tables.
//
//go:embed migrations/001_schema.sql
var Schema string
