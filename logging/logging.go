package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(in string) zerolog.Level {
	switch strings.ToLower(in) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init installs the process logger. Component loggers created afterwards
// inherit its writer and level.
func Init(level string) {
	InitWriter(os.Stderr, level)
}

func InitWriter(w io.Writer, level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	l := ParseLevel(level)
	zerolog.SetGlobalLevel(l)
	log.Logger = zerolog.New(
		zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen},
	).With().Timestamp().Logger()

	log.Debug().Msgf("logging initialized at level %v", l)
}

// New returns a logger tagged with the component name.
func New(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
