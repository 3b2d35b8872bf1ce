package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 MINIAPPE2E_BASE_URL
const EnvPrefix = "MINIAPPE2E"

// Load 按 默认值 < 配置文件 < 环境变量 < 命令行参数 的优先级加载配置。
// path 为空时不读取文件；flags 中已设置的参数覆盖同名键。
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, NewConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := NewConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// flagKeys 配置键到命令行参数名的映射
var flagKeys = map[string]string{
	"base_url":             "base-url",
	"browser.devtools_url": "devtools-url",
	"browser.headless":     "headless",
	"video":                "video",
	"artifacts_dir":        "artifacts",
	"log.level":            "log-level",
}

func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("version", def.Version)
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("viewport.width", def.Viewport.Width)
	v.SetDefault("viewport.height", def.Viewport.Height)
	v.SetDefault("timeouts.default_command", def.Timeouts.DefaultCommand)
	v.SetDefault("timeouts.request", def.Timeouts.Request)
	v.SetDefault("timeouts.response", def.Timeouts.Response)
	v.SetDefault("timeouts.poll_interval", def.Timeouts.PollInterval)
	v.SetDefault("video", def.Video)
	v.SetDefault("screenshot_on_failure", def.ScreenshotOnFailure)
	v.SetDefault("chrome_web_security", def.ChromeWebSecurity)
	v.SetDefault("browser.devtools_url", def.Browser.DevToolsURL)
	v.SetDefault("browser.bin", def.Browser.Bin)
	v.SetDefault("browser.headless", def.Browser.Headless)
	v.SetDefault("browser.body_limit", def.Browser.BodyLimit)
	v.SetDefault("fixtures_dir", def.FixturesDir)
	v.SetDefault("artifacts_dir", def.ArtifactsDir)
	v.SetDefault("credentials.username", def.Credentials.Username)
	v.SetDefault("credentials.password", def.Credentials.Password)
	v.SetDefault("secret.key", def.Secret.Key)
	v.SetDefault("secret.value", def.Secret.Value)
	v.SetDefault("sqlite.dsn", def.Sqlite.Dsn)
	v.SetDefault("sqlite.prefix", def.Sqlite.Prefix)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.writer", def.Log.Writer)
	v.SetDefault("log.file", def.Log.File)
}

// Validate 校验配置的基本约束
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url %q", c.BaseURL)
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return errors.New("viewport width and height must be positive")
	}
	if c.Timeouts.DefaultCommand <= 0 || c.Timeouts.Request <= 0 || c.Timeouts.Response <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.Credentials.Username == "" {
		return errors.New("credentials.username is required")
	}
	return nil
}
