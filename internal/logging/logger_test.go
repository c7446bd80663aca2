package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWithWriterFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(NewWithWriter(&buf, "warn"), "session")

	logger.Info("dropped")
	logger.Warn("kept", "user_id", "u-1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "kept", rec["msg"])
	require.Equal(t, "session", rec["component"])
	require.Equal(t, "u-1", rec["user_id"])
}

func TestNewWithWriterDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "chatty")
	logger.Debug("dropped")
	require.Zero(t, buf.Len())
	logger.Info("kept")
	require.NotZero(t, buf.Len())
}
