package logger_test

import (
	"bytes"
	"testing"

	"github.com/MensaSverige/swagapp-sub001/internal/logger"
	"github.com/stretchr/testify/require"
)

func TestProductionLoggerWritesJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("production", &buf)

	log.Debug().Msg("hidden")
	log.Info().Str("cache", "events").Msg("refreshed")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `"cache":"events"`)
	require.Contains(t, out, `"env":"production"`)
}

func TestDevelopmentLoggerIncludesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("DEV", &buf)

	log.Debug().Msg("visible")
	require.Contains(t, buf.String(), "visible")
}
