package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationFiles embed.FS

// RunMigrations applies the embedded migrations for dialect via goose. If
// database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB, dialect string) error {
	if database == nil {
		return nil
	}
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return fmt.Errorf("unsupported migration dialect %q", dialect)
	}
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, path.Join("migrations", dialect))
}
