// Package migrations embeds the per-dialect schema migrations.
package migrations

import (
	"embed"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Source returns a golang-migrate source over the migrations of dialect,
// "postgres" or "sqlite".
func Source(dialect string) (source.Driver, error) {
	return iofs.New(files, dialect)
}
