package config

import (
	"time"

	"miniappe2e/pkg/model"
)

// Config 配置文件结构体
type Config struct {
	Version string `yaml:"version" mapstructure:"version"`

	// BaseURL 被测应用地址
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	Viewport struct {
		Width  int `yaml:"width" mapstructure:"width"`
		Height int `yaml:"height" mapstructure:"height"`
	} `yaml:"viewport" mapstructure:"viewport"`

	Timeouts struct {
		DefaultCommand time.Duration `yaml:"default_command" mapstructure:"default_command"`
		Request        time.Duration `yaml:"request" mapstructure:"request"`
		Response       time.Duration `yaml:"response" mapstructure:"response"`
		PollInterval   time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	} `yaml:"timeouts" mapstructure:"timeouts"`

	// Video 录制 screencast 帧
	Video bool `yaml:"video" mapstructure:"video"`
	// ScreenshotOnFailure 场景失败时截图
	ScreenshotOnFailure bool `yaml:"screenshot_on_failure" mapstructure:"screenshot_on_failure"`
	// ChromeWebSecurity 为 false 时以 --disable-web-security 启动浏览器
	ChromeWebSecurity bool `yaml:"chrome_web_security" mapstructure:"chrome_web_security"`

	Browser struct {
		DevToolsURL string `yaml:"devtools_url" mapstructure:"devtools_url"`
		Bin         string `yaml:"bin" mapstructure:"bin"`
		Headless    bool   `yaml:"headless" mapstructure:"headless"`
		BodyLimit   int    `yaml:"body_limit" mapstructure:"body_limit"`
	} `yaml:"browser" mapstructure:"browser"`

	FixturesDir  string `yaml:"fixtures_dir" mapstructure:"fixtures_dir"`
	ArtifactsDir string `yaml:"artifacts_dir" mapstructure:"artifacts_dir"`

	Credentials model.Credentials `yaml:"credentials" mapstructure:"credentials"`

	Secret struct {
		Key   string `yaml:"key" mapstructure:"key"`
		Value string `yaml:"value" mapstructure:"value"`
	} `yaml:"secret" mapstructure:"secret"`

	Sqlite struct {
		Dsn    string `yaml:"dsn" mapstructure:"dsn"`
		Prefix string `yaml:"prefix" mapstructure:"prefix"`
	} `yaml:"sqlite" mapstructure:"sqlite"`

	Log struct {
		Level  string   `yaml:"level" mapstructure:"level"`
		Writer []string `yaml:"writer" mapstructure:"writer"`
		File   string   `yaml:"file" mapstructure:"file"`
	} `yaml:"log" mapstructure:"log"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	c := &Config{
		Version:             "1.0.0",
		BaseURL:             "https://fufelka.ru",
		Video:               true,
		ScreenshotOnFailure: true,
		ChromeWebSecurity:   false,
		FixturesDir:         "testdata/fixtures",
		ArtifactsDir:        "artifacts",
		Credentials:         model.Credentials{Username: "Ochko228", Password: "Zxcvbn"},
	}
	c.Viewport.Width = 1280
	c.Viewport.Height = 720
	c.Timeouts.DefaultCommand = 10 * time.Second
	c.Timeouts.Request = 15 * time.Second
	c.Timeouts.Response = 15 * time.Second
	c.Timeouts.PollInterval = 100 * time.Millisecond
	c.Browser.Headless = true
	c.Browser.BodyLimit = 1 << 20
	c.Secret.Key = "sk"
	c.Secret.Value = "YJyKb5bbs0XkjR5DmPrD"
	c.Sqlite.Dsn = "miniappe2e.sqlite3"
	c.Sqlite.Prefix = "miniappe2e_"
	c.Log.Level = "info"
	c.Log.Writer = []string{"console", "file"}
	c.Log.File = "logs/miniappe2e.log"
	return c
}
