package main

import (
	"os"

	"github.com/golang-migrate/migrate"
	_ "github.com/golang-migrate/migrate/database/postgres"
	_ "github.com/golang-migrate/migrate/source/file"
	"github.com/justicechain/justicechain/common"
)

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	common.PanicIfEmpty(databaseURL, "DATABASE_URL not provided")

	source := os.Getenv("MIGRATIONS_SOURCE")
	if source == "" {
		source = "file://./ops/migrations"
	}

	m, err := migrate.New(source, databaseURL)
	if err != nil {
		common.Log.Panicf("failed to initialize migrations; %s", err.Error())
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		common.Log.Panicf("failed to apply migrations; %s", err.Error())
	}

	common.Log.Debug("migrations applied")
}
