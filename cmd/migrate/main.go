package main

// Run database migrations:
//   go run ./cmd/migrate -dialect postgres
//   go run ./cmd/migrate -dialect sqlite

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"

	"interview-backend/internal/shared/config"
	"interview-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()

	defaultDialect := db.DialectPostgres
	if cfg.StateStore == "sqlite" {
		defaultDialect = db.DialectSQLite
	}
	dialect := flag.String("dialect", defaultDialect, "database dialect: postgres or sqlite")
	flag.Parse()

	ctx := context.Background()
	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())

	var (
		sqlDB *sql.DB
		err   error
	)
	switch *dialect {
	case db.DialectSQLite:
		sqlDB, err = db.OpenSQLite(ctx, cfg.SQLitePath, db.SQLiteOptions())
	default:
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB, *dialect); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}
	log.Printf("migrations applied (%s)", *dialect)
}
