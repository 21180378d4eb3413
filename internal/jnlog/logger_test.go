package jnlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerJSONOutputIncludesComponentAndFields(t *testing.T) {
	buf := &bytes.Buffer{}
	forceHuman := false
	log := New(Options{Level: "debug", Component: "ndjson", Writer: buf, Force: &forceHuman})

	log = log.With(map[string]any{"stage": "reader"})
	log.Info("reading line")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "reading line", entry["message"])
	require.Equal(t, "ndjson", entry["component"])
	require.Equal(t, "reader", entry["stage"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	forceHuman := false
	log := New(Options{Level: "warn", Writer: buf, Force: &forceHuman})

	log.Info("should not appear")
	require.Empty(t, strings.TrimSpace(buf.String()))

	log.Warn("should appear")
	require.NotEmpty(t, strings.TrimSpace(buf.String()))
}

func TestLoggerErrorIncludesErrorField(t *testing.T) {
	buf := &bytes.Buffer{}
	forceHuman := false
	log := New(Options{Level: "debug", Writer: buf, Force: &forceHuman})

	log.Error(errors.New("boom"), "failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "boom", entry["error"])
}
