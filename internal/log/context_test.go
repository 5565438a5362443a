package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWithContext_AddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := ContextWithJobID(context.Background(), "job-123")
	ctx = ContextWithChatID(ctx, 42)

	l := WithContext(ctx, logger)
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "job-123", entry[FieldJobID])
	require.EqualValues(t, 42, entry[FieldChatID])
}

func TestWithContext_NoFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	l := WithContext(context.Background(), logger)
	l.Info().Msg("plain")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.NotContains(t, entry, FieldJobID)
	require.NotContains(t, entry, FieldChatID)
}

func TestChatIDFromContext_Missing(t *testing.T) {
	_, ok := ChatIDFromContext(context.Background())
	require.False(t, ok)
	require.Empty(t, JobIDFromContext(nil))
}
