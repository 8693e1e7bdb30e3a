package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Level falls back to debug outside
// production and info inside it when level is empty or unknown.
func New(environment, level string) zerolog.Logger {
	return NewWithWriter(os.Stdout, environment, level)
}

func NewWithWriter(out io.Writer, environment, level string) zerolog.Logger {
	production := environment == "production"

	var w io.Writer = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    production,
	}
	if production {
		w = out
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.DebugLevel
		if production {
			lvl = zerolog.InfoLevel
		}
	}

	return zerolog.New(w).Level(lvl).With().
		Timestamp().
		Str("service", "lgcms").
		Str("env", environment).
		Logger()
}
