package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the service logger. Production writes structured JSON for the
// log pipeline; everything else gets the human console writer.
func New(environment string) zerolog.Logger {
	if environment == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return zerolog.New(os.Stdout).With().
			Timestamp().
			Str("service", "access-control").
			Logger()
	}

	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().
		Timestamp().
		Str("env", environment).
		Logger()
}
