package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerJSONInProduction(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "production", LogFormat: "pretty", LogLevel: "warn"}, &buf)

	logger.Info("dropped")
	logger.Warn("payment recorded twice")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "payment recorded twice", record["msg"])
	require.Equal(t, "neighbora-api", record["service"])
	require.Equal(t, "production", record["env"])
}

func TestLoggerTextByDefault(t *testing.T) {
	var buf bytes.Buffer
	newLogger(nil, &buf).Info("hello")
	require.Contains(t, buf.String(), "msg=hello")
	require.Contains(t, buf.String(), "service=neighbora-api")
}

func TestParseLevel(t *testing.T) {
	_, err := parseLevel("verbose")
	require.Error(t, err)

	level, err := parseLevel(" Debug ")
	require.NoError(t, err)
	require.Equal(t, "DEBUG", level.String())
}
