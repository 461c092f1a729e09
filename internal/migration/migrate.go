package migration

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// Embed SQL files from the local migrations folder
//
//go:embed migrations/*.sql
var embeddedMigrations embed.FS

func RunMigrations(dbURL string, logger zerolog.Logger) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to the database for migrations")
	}
	defer db.Close()

	goose.SetBaseFS(embeddedMigrations)

	if err := goose.Up(db, "migrations"); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	logger.Info().Msg("migrations completed successfully")
}

// gooseAdapter routes goose's log output through zerolog.
type gooseAdapter struct {
	logger zerolog.Logger
}

func NewGooseAdapter(logger zerolog.Logger) goose.Logger {
	return &gooseAdapter{logger: logger.With().Str("component", "goose").Logger()}
}

func (a *gooseAdapter) Fatalf(format string, v ...interface{}) {
	a.logger.Fatal().Msg(fmt.Sprintf(format, v...))
}

func (a *gooseAdapter) Printf(format string, v ...interface{}) {
	a.logger.Info().Msg(fmt.Sprintf(format, v...))
}
