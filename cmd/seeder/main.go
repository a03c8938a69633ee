// Seeds a dev database with sample users and ads. Re-running skips users
// that already exist; ads are appended.
package main

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/prolinq/messaging-backend/internal/config"
	"github.com/prolinq/messaging-backend/internal/db"
)

func main() {
	cfg := config.MustLoad()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	// The schema must exist before seed rows can land.
	if err := db.Migrate(conn); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	dir := "seed"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	for _, name := range []string{"users.sql", "ads.sql"} {
		path := filepath.Join(dir, name)
		stmt, err := os.ReadFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("failed to read seed file")
		}
		if _, err := conn.Exec(string(stmt)); err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("failed to apply seed file")
		}
		log.Info().Str("file", path).Msg("seed applied")
	}

	log.Info().Msg("seeding complete")
}
