package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestWriterLoggerEmitsKeyValues(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.DebugLevel)

	l.Info("拦截完成", "alias", "authRequest", "status", 200)

	line := buf.Bytes()
	assert.Equal(t, "拦截完成", gjson.GetBytes(line, "message").String())
	assert.Equal(t, "authRequest", gjson.GetBytes(line, "alias").String())
	assert.Equal(t, int64(200), gjson.GetBytes(line, "status").Int())
}

func TestErrAndWith(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.DebugLevel).With("scenario", "login")

	l.Err(errors.New("boom"), "场景失败", "odd")

	line := buf.Bytes()
	assert.Equal(t, "boom", gjson.GetBytes(line, "error").String())
	assert.Equal(t, "login", gjson.GetBytes(line, "scenario").String())
	assert.True(t, gjson.GetBytes(line, "!BADKEY").Exists())
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.WarnLevel)
	l.Debug("hidden")
	l.Info("hidden")
	require.Zero(t, buf.Len())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNopDiscards(t *testing.T) {
	l := NewNop()
	l.Info("x", "k", "v")
	l.With("a", 1).Err(errors.New("e"), "y")
}
