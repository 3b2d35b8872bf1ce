package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, "https://fufelka.ru", c.BaseURL)
	assert.Equal(t, 1280, c.Viewport.Width)
	assert.Equal(t, 720, c.Viewport.Height)
	assert.Equal(t, 10*time.Second, c.Timeouts.DefaultCommand)
	assert.Equal(t, 15*time.Second, c.Timeouts.Request)
	assert.True(t, c.Video)
	assert.True(t, c.ScreenshotOnFailure)
	assert.False(t, c.ChromeWebSecurity)
	assert.Equal(t, "sk", c.Secret.Key)
	assert.Equal(t, "Ochko228", c.Credentials.Username)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	c, err := Load("testdata/e2e.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://staging.fufelka.ru", c.BaseURL)
	assert.Equal(t, 390, c.Viewport.Width)
	assert.Equal(t, 4*time.Second, c.Timeouts.DefaultCommand)
	assert.Equal(t, 15*time.Second, c.Timeouts.Response)
	assert.False(t, c.Video)
	assert.Equal(t, "tester", c.Credentials.Username)
	assert.Equal(t, []string{"console"}, c.Log.Writer)
	assert.Equal(t, "YJyKb5bbs0XkjR5DmPrD", c.Secret.Value)
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Setenv("MINIAPPE2E_BASE_URL", "http://localhost:5173")
	t.Setenv("MINIAPPE2E_TIMEOUTS_REQUEST", "3s")

	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.Bool("video", true, "")
	fs.String("log-level", "info", "")
	require.NoError(t, fs.Parse([]string{"--video=false"}))

	c, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5173", c.BaseURL)
	assert.Equal(t, 3*time.Second, c.Timeouts.Request)
	assert.False(t, c.Video)
	assert.Equal(t, "info", c.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/nope.yaml", nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := NewConfig()
	c.BaseURL = "fufelka.ru"
	assert.Error(t, c.Validate())

	c = NewConfig()
	c.Viewport.Width = 0
	assert.Error(t, c.Validate())
}
