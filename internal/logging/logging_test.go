package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONComponentLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug", "json")
	Component(logger, "pipeline").WithField("source", "acme").Debug("import started")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "pipeline", line["component"])
	assert.Equal(t, "acme", line["source"])
	assert.Equal(t, "import started", line["msg"])
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	logger := New(&bytes.Buffer{}, "chatty", "text")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestNilLoggerDiscards(t *testing.T) {
	assert.NotPanics(t, func() { Component(nil, "x").Info("dropped") })
}
