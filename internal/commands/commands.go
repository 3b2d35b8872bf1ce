// Package commands 提供场景使用的组合命令：登录、资料页导航、文件上传与终端日志，
// 以及这些命令依赖的带超时的元素查询、断言等原语。
//
// 每个等待都有明确上限，超时即失败，命令不做重试。
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"miniappe2e/internal/dom"
	"miniappe2e/internal/logger"
	"miniappe2e/internal/wait"
	"miniappe2e/pkg/model"

	"github.com/PuerkitoBio/goquery"
)

// Driver 命令库依赖的页面能力
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	Query(ctx context.Context, q dom.Query) ([]dom.Element, error)
	Click(ctx context.Context, el dom.Element) error
	Clear(ctx context.Context, el dom.Element) error
	Type(ctx context.Context, el dom.Element, text string, delay time.Duration) error
	SetFiles(ctx context.Context, el dom.Element, files ...string) error
	URL(ctx context.Context) (string, error)
	BodyHTML(ctx context.Context) (string, error)
	LocalStorage(ctx context.Context) (map[string]string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Cookies(ctx context.Context) ([]model.Cookie, error)
}

// Interceptor 网络拦截注册表
type Interceptor interface {
	Register(method, urlPattern, alias string) string
	Await(ctx context.Context, alias string, timeout time.Duration) (model.Exchange, error)
}

// Terminal 终端旁路输出
type Terminal interface {
	Log(msg string)
}

// Config 命令库配置
type Config struct {
	BaseURL        string
	Username       string // 登录后页面上显示的用户名
	FixturesDir    string
	ArtifactsDir   string
	DefaultTimeout time.Duration
	PollInterval   time.Duration
	TypeDelay      time.Duration // 0 取 DefaultTypeDelay，负数表示不等待
	PageLoad       time.Duration // 导航与刷新等待 load 的上限
	Login          LoginTimeouts
	Terminal       Terminal
	Logger         logger.Logger
}

// DefaultTypeDelay 逐字符输入的间隔
const DefaultTypeDelay = 50 * time.Millisecond

// Commands 绑定到单个浏览器上下文的命令集合
type Commands struct {
	drv  Driver
	net  Interceptor
	cfg  Config
	term Terminal
	log  logger.Logger

	mu      sync.Mutex
	journal []string
}

// New 创建命令集合
func New(drv Driver, net Interceptor, cfg Config) *Commands {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 10 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = wait.DefaultInterval
	}
	switch {
	case cfg.TypeDelay == 0:
		cfg.TypeDelay = DefaultTypeDelay
	case cfg.TypeDelay < 0:
		cfg.TypeDelay = 0
	}
	if cfg.PageLoad <= 0 {
		cfg.PageLoad = 15 * time.Second
	}
	cfg.Login = cfg.Login.withDefaults()
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &Commands{drv: drv, net: net, cfg: cfg, term: cfg.Terminal, log: cfg.Logger}
}

// DefaultTimeout 未指定超时的等待使用的上限
func (c *Commands) DefaultTimeout() time.Duration { return c.cfg.DefaultTimeout }

// PollInterval 等待的轮询间隔
func (c *Commands) PollInterval() time.Duration { return c.cfg.PollInterval }

// Intercepts 当前上下文的拦截注册表
func (c *Commands) Intercepts() Interceptor { return c.net }

// LogTerminal 同时写入命令日志与标准输出
func (c *Commands) LogTerminal(msg string) {
	c.mu.Lock()
	c.journal = append(c.journal, msg)
	c.mu.Unlock()
	if c.term != nil {
		c.term.Log(msg)
	}
	c.log.Info(msg)
}

// Journal 已记录的命令日志
func (c *Commands) Journal() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.journal))
	copy(out, c.journal)
	return out
}

func (c *Commands) url(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (c *Commands) timeout(d time.Duration) time.Duration {
	if d <= 0 {
		return c.cfg.DefaultTimeout
	}
	return d
}

// Visit 导航到路径（相对于 BaseURL）或绝对地址
func (c *Commands) Visit(ctx context.Context, path string) error {
	u := c.url(path)
	c.log.Debug("visit", "url", u)
	return c.load(ctx, "load "+u, func(ctx context.Context) error { return c.drv.Navigate(ctx, u) })
}

// Reload 整页刷新
func (c *Commands) Reload(ctx context.Context) error {
	return c.load(ctx, "reload", c.drv.Reload)
}

// load 在 PageLoad 上限内执行导航，超时转换为 TimeoutError
func (c *Commands) load(ctx context.Context, what string, fn func(context.Context) error) error {
	lctx, cancel := context.WithTimeout(ctx, c.cfg.PageLoad)
	defer cancel()
	err := fn(lctx)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return &wait.TimeoutError{What: what, Timeout: c.cfg.PageLoad, Last: err}
	}
	return err
}

// Find 等待查询返回至少一个元素
func (c *Commands) Find(ctx context.Context, q dom.Query, timeout time.Duration) ([]dom.Element, error) {
	var found []dom.Element
	err := wait.Poll(ctx, q.String(), c.cfg.PollInterval, c.timeout(timeout), func(ctx context.Context) (bool, error) {
		els, err := c.drv.Query(ctx, q)
		if err != nil {
			return false, err
		}
		found = els
		return len(els) > 0, nil
	})
	return found, err
}

// Get 等待查询返回元素并取第一个
func (c *Commands) Get(ctx context.Context, q dom.Query, timeout time.Duration) (dom.Element, error) {
	els, err := c.Find(ctx, q, timeout)
	if err != nil {
		return dom.Element{}, err
	}
	return els[0], nil
}

// Visible 等待查询的第一个元素可见
func (c *Commands) Visible(ctx context.Context, q dom.Query, timeout time.Duration) (dom.Element, error) {
	var el dom.Element
	err := wait.Poll(ctx, q.String()+" to be visible", c.cfg.PollInterval, c.timeout(timeout), func(ctx context.Context) (bool, error) {
		els, err := c.drv.Query(ctx, q)
		if err != nil {
			return false, err
		}
		if len(els) == 0 {
			return false, &AssertionError{Subject: q.String(), Expected: "to exist", Actual: "no elements"}
		}
		el = els[0]
		if !el.Visible {
			return false, &AssertionError{Subject: q.String(), Expected: "to be visible", Actual: "hidden"}
		}
		return true, nil
	})
	return el, err
}

// Enabled 等待查询的第一个元素可见且未禁用
func (c *Commands) Enabled(ctx context.Context, q dom.Query, timeout time.Duration) (dom.Element, error) {
	var el dom.Element
	err := wait.Poll(ctx, q.String()+" to be enabled", c.cfg.PollInterval, c.timeout(timeout), func(ctx context.Context) (bool, error) {
		els, err := c.drv.Query(ctx, q)
		if err != nil {
			return false, err
		}
		if len(els) == 0 {
			return false, nil
		}
		el = els[0]
		return el.Visible && !el.Disabled, nil
	})
	return el, err
}

// Contains 等待包含文本的元素可见
func (c *Commands) Contains(ctx context.Context, text string, timeout time.Duration) (dom.Element, error) {
	return c.Visible(ctx, dom.Contains(text), timeout)
}

// ContainsPattern 等待文本匹配正则的元素可见
func (c *Commands) ContainsPattern(ctx context.Context, pattern, flags string, timeout time.Duration) (dom.Element, error) {
	return c.Visible(ctx, dom.Matches(pattern, flags), timeout)
}

// Click 点击元素
func (c *Commands) Click(ctx context.Context, el dom.Element) error {
	c.log.Debug("click", "ref", el.Ref, "tag", el.Tag, "text", el.Text)
	return c.drv.Click(ctx, el)
}

// Clear 清空输入框
func (c *Commands) Clear(ctx context.Context, el dom.Element) error {
	return c.drv.Clear(ctx, el)
}

// Type 按配置的按键间隔输入文本
func (c *Commands) Type(ctx context.Context, el dom.Element, text string) error {
	return c.drv.Type(ctx, el, text, c.cfg.TypeDelay)
}

// URL 当前地址
func (c *Commands) URL(ctx context.Context) (string, error) {
	return c.drv.URL(ctx)
}

// ShouldURLContain 等待地址包含 fragment
func (c *Commands) ShouldURLContain(ctx context.Context, fragment string, timeout time.Duration) (string, error) {
	return c.shouldURL(ctx, fragment, true, timeout)
}

// ShouldURLNotContain 等待地址不再包含 fragment
func (c *Commands) ShouldURLNotContain(ctx context.Context, fragment string, timeout time.Duration) (string, error) {
	return c.shouldURL(ctx, fragment, false, timeout)
}

func (c *Commands) shouldURL(ctx context.Context, fragment string, include bool, timeout time.Duration) (string, error) {
	expected := "to include " + fragment
	if !include {
		expected = "not to include " + fragment
	}
	var current string
	err := wait.Poll(ctx, "url "+expected, c.cfg.PollInterval, c.timeout(timeout), func(ctx context.Context) (bool, error) {
		u, err := c.drv.URL(ctx)
		if err != nil {
			return false, err
		}
		current = u
		if strings.Contains(u, fragment) != include {
			return false, &AssertionError{Subject: "url", Expected: expected, Actual: u}
		}
		return true, nil
	})
	return current, err
}

// Document 当前 body 的 goquery 文档
func (c *Commands) Document(ctx context.Context) (*goquery.Document, error) {
	html, err := c.drv.BodyHTML(ctx)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// BodyText 当前 body 的文本
func (c *Commands) BodyText(ctx context.Context) (string, error) {
	doc, err := c.Document(ctx)
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}

// ShouldBodyContain 等待 body 文本包含 text
func (c *Commands) ShouldBodyContain(ctx context.Context, text string, timeout time.Duration) error {
	return wait.Poll(ctx, "body to contain "+text, c.cfg.PollInterval, c.timeout(timeout), func(ctx context.Context) (bool, error) {
		body, err := c.BodyText(ctx)
		if err != nil {
			return false, err
		}
		if !strings.Contains(body, text) {
			return false, &AssertionError{Subject: "body", Expected: "to contain " + text, Actual: truncate(body, 80)}
		}
		return true, nil
	})
}

// Satisfy 等待 body 满足谓词
func (c *Commands) Satisfy(ctx context.Context, what string, timeout time.Duration, pred func(doc *goquery.Document) bool) error {
	return wait.Poll(ctx, "body to satisfy "+what, c.cfg.PollInterval, c.timeout(timeout), func(ctx context.Context) (bool, error) {
		doc, err := c.Document(ctx)
		if err != nil {
			return false, err
		}
		if !pred(doc) {
			return false, &AssertionError{Subject: "body", Expected: "to satisfy " + what, Actual: "not satisfied"}
		}
		return true, nil
	})
}

// Screenshot 截取视口并保存为 <artifacts>/screenshots/<name>.png
func (c *Commands) Screenshot(ctx context.Context, name string) (string, error) {
	data, err := c.drv.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(c.cfg.ArtifactsDir, "screenshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	c.log.Info("截图已保存", "file", path)
	return path, nil
}

// Cookies 当前上下文的 Cookie
func (c *Commands) Cookies(ctx context.Context) ([]model.Cookie, error) {
	return c.drv.Cookies(ctx)
}

// LocalStorage 当前源的 localStorage
func (c *Commands) LocalStorage(ctx context.Context) (map[string]string, error) {
	return c.drv.LocalStorage(ctx)
}

// UploadFile 将夹具目录下的文件设置到文件输入框，不经过系统文件选择器
func (c *Commands) UploadFile(ctx context.Context, selector, fixture string) error {
	path := filepath.Join(c.cfg.FixturesDir, fixture)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("fixture %s: %w", fixture, err)
	}
	// 文件输入框通常是隐藏的，只要求存在
	el, err := c.Get(ctx, dom.CSS(selector), 0)
	if err != nil {
		return err
	}
	if err := c.drv.SetFiles(ctx, el, path); err != nil {
		return fmt.Errorf("upload %s: %w", fixture, err)
	}
	c.log.Info("文件已选择", "selector", selector, "file", path)
	return nil
}

// WaitForElement 等待选择器匹配的元素可见
func (c *Commands) WaitForElement(ctx context.Context, selector string, timeout time.Duration) (dom.Element, error) {
	return c.Visible(ctx, dom.CSS(selector), timeout)
}

// GetByDataTest 按 data-test 属性查找
func (c *Commands) GetByDataTest(ctx context.Context, value string) (dom.Element, error) {
	return c.Get(ctx, dom.CSS(fmt.Sprintf(`[data-test=%q]`, value)), 0)
}

// GetByTestID 按 data-testid 属性查找
func (c *Commands) GetByTestID(ctx context.Context, value string) (dom.Element, error) {
	return c.Get(ctx, dom.CSS(fmt.Sprintf(`[data-testid=%q]`, value)), 0)
}

// GetImageSrc 读取图片 src 属性
func (c *Commands) GetImageSrc(ctx context.Context, selector string) (model.AvatarRef, error) {
	el, err := c.Get(ctx, dom.CSS(selector), 0)
	if err != nil {
		return model.AvatarRef{}, err
	}
	src, ok := el.Attr("src")
	if !ok {
		return model.AvatarRef{}, &AssertionError{Subject: selector, Expected: "to have attr src", Actual: "missing"}
	}
	return model.AvatarRef{Src: src}, nil
}

// IsTimeout 是否为有界等待超时
func IsTimeout(err error) bool { return errors.Is(err, wait.ErrTimeout) }

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
