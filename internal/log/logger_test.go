package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestConfigure_ComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test-svc", Version: "v0.0.1"})
	t.Cleanup(func() { Configure(Config{}) })

	require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	l := WithComponent("bot")
	l.Info().Str(FieldEvent, "test.event").Msg("hi")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "test-svc", entry["service"])
	require.Equal(t, "v0.0.1", entry["version"])
	require.Equal(t, "bot", entry[FieldComponent])
	require.Equal(t, "test.event", entry[FieldEvent])
}

func TestConfigure_InvalidLevelFallsBackToInfo(t *testing.T) {
	Configure(Config{Level: "loud", Output: &bytes.Buffer{}})
	t.Cleanup(func() { Configure(Config{}) })

	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
