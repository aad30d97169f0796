package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Production output is plain JSON; every other
// environment gets a coloured console writer at debug level.
func New(environment string) zerolog.Logger {
	return NewWithWriter(environment, os.Stderr)
}

func NewWithWriter(environment string, out io.Writer) zerolog.Logger {
	production := strings.EqualFold(environment, "production") || strings.EqualFold(environment, "PROD")

	var w io.Writer = out
	if !production {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	level := zerolog.DebugLevel
	if production {
		level = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("env", environment).
		Logger()
}
