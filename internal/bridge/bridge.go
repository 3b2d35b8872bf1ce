// Package bridge 构造宿主平台（Telegram WebApp）的模拟对象与存储种子脚本。
//
// 每个浏览器上下文都由 New 构造一份全新的 HostBridge，通过初始化脚本在任何页面脚本
// 执行之前安装，使被测应用走"运行在宿主内"的分支。
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/sjson"
)

// ErrLateBootstrap 在首次导航之后才安装初始化脚本
var ErrLateBootstrap = errors.New("bootstrap must be installed before the first navigation")

// User 宿主用户身份
type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}

// Theme 宿主主题参数
type Theme struct {
	BgColor          string `json:"bg_color"`
	TextColor        string `json:"text_color"`
	HintColor        string `json:"hint_color"`
	LinkColor        string `json:"link_color"`
	ButtonColor      string `json:"button_color"`
	ButtonTextColor  string `json:"button_text_color"`
	SecondaryBgColor string `json:"secondary_bg_color"`
}

// HostBridge 单个浏览器上下文的宿主桥配置
type HostBridge struct {
	User            User
	AuthDate        time.Time
	Hash            string
	Version         string
	Platform        string
	ColorScheme     string
	Theme           Theme
	ViewportHeight  int
	HeaderColor     string
	BackgroundColor string

	// StorageKey/StorageValue 预置到 localStorage 的访问密钥
	StorageKey   string
	StorageValue string
}

// Option 修改默认宿主桥
type Option func(*HostBridge)

// WithUser 指定宿主用户
func WithUser(u User) Option { return func(b *HostBridge) { b.User = u } }

// WithSecret 指定 localStorage 预置的密钥
func WithSecret(key, value string) Option {
	return func(b *HostBridge) { b.StorageKey, b.StorageValue = key, value }
}

// WithViewportHeight 指定宿主视口高度
func WithViewportHeight(h int) Option { return func(b *HostBridge) { b.ViewportHeight = h } }

// New 构造一份新的宿主桥，默认值与被测应用的开发环境约定一致
func New(opts ...Option) *HostBridge {
	b := &HostBridge{
		User: User{
			ID:           123456789,
			FirstName:    "Test",
			LastName:     "User",
			Username:     "Ochko228",
			LanguageCode: "en",
		},
		AuthDate:    time.Now(),
		Hash:        "test_hash_for_e2e",
		Version:     "7.0",
		Platform:    "web",
		ColorScheme: "dark",
		Theme: Theme{
			BgColor:          "#1c1c1c",
			TextColor:        "#ffffff",
			HintColor:        "#999999",
			LinkColor:        "#2481cc",
			ButtonColor:      "#2481cc",
			ButtonTextColor:  "#ffffff",
			SecondaryBgColor: "#2c2c2c",
		},
		ViewportHeight:  720,
		HeaderColor:     "#1c1c1c",
		BackgroundColor: "#1c1c1c",
		StorageKey:      "sk",
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Data 返回 WebApp 对象的数据部分（不含方法）的 JSON
func (b *HostBridge) Data() (string, error) {
	doc := `{}`
	sets := []struct {
		path  string
		value any
	}{
		{"initData", ""},
		{"initDataUnsafe.user", b.User},
		{"initDataUnsafe.auth_date", b.AuthDate.Unix()},
		{"initDataUnsafe.hash", b.Hash},
		{"version", b.Version},
		{"platform", b.Platform},
		{"colorScheme", b.ColorScheme},
		{"themeParams", b.Theme},
		{"isExpanded", true},
		{"viewportHeight", b.ViewportHeight},
		{"viewportStableHeight", b.ViewportHeight},
		{"headerColor", b.HeaderColor},
		{"backgroundColor", b.BackgroundColor},
		{"isClosingConfirmationEnabled", false},
		{"MainButton.text", ""},
		{"MainButton.color", b.Theme.ButtonColor},
		{"MainButton.textColor", b.Theme.ButtonTextColor},
		{"MainButton.isVisible", false},
		{"MainButton.isActive", true},
		{"MainButton.isProgressVisible", false},
		{"BackButton.isVisible", false},
	}
	var err error
	for _, s := range sets {
		if doc, err = sjson.Set(doc, s.path, s.value); err != nil {
			return "", fmt.Errorf("set %s: %w", s.path, err)
		}
	}
	return doc, nil
}

// Script 返回初始化脚本：先写入 localStorage 密钥，再安装 window.Telegram.WebApp
func (b *HostBridge) Script() (string, error) {
	data, err := b.Data()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("(function(){\n")
	if b.StorageKey != "" {
		k, _ := json.Marshal(b.StorageKey)
		v, _ := json.Marshal(b.StorageValue)
		fmt.Fprintf(&sb, "try { window.localStorage.setItem(%s, %s); } catch (e) {}\n", k, v)
	}
	sb.WriteString("var app = ")
	sb.WriteString(data)
	sb.WriteString(";\n")
	sb.WriteString(methodsJS)
	sb.WriteString("window.Telegram = { WebApp: app };\n")
	sb.WriteString("})();\n")
	return sb.String(), nil
}

// methodsJS 宿主方法桩。UI 控件的方法只修改自身状态，CloudStorage 回调始终报告成功。
const methodsJS = `var noop = function(){};
app.ready = noop; app.expand = noop; app.close = noop;
app.sendData = function(d){ console.log('Telegram.WebApp.sendData:', d); };
app.openLink = function(u){ console.log('Telegram.WebApp.openLink:', u); };
app.openTelegramLink = function(u){ console.log('Telegram.WebApp.openTelegramLink:', u); };
app.showPopup = function(p, cb){ cb && cb('ok'); };
app.showAlert = function(m, cb){ cb && cb(); };
app.showConfirm = function(m, cb){ cb && cb(true); };
app.enableClosingConfirmation = noop; app.disableClosingConfirmation = noop;
app.setHeaderColor = noop; app.setBackgroundColor = noop;
app.onEvent = noop; app.offEvent = noop;
var mb = app.MainButton;
mb.setText = function(t){ this.text = t; };
mb.onClick = noop; mb.offClick = noop;
mb.show = function(){ this.isVisible = true; };
mb.hide = function(){ this.isVisible = false; };
mb.enable = function(){ this.isActive = true; };
mb.disable = function(){ this.isActive = false; };
mb.showProgress = function(){ this.isProgressVisible = true; };
mb.hideProgress = function(){ this.isProgressVisible = false; };
var bb = app.BackButton;
bb.onClick = noop; bb.offClick = noop;
bb.show = function(){ this.isVisible = true; };
bb.hide = function(){ this.isVisible = false; };
app.HapticFeedback = { impactOccurred: noop, notificationOccurred: noop, selectionChanged: noop };
app.CloudStorage = {
  setItem: function(k, v, cb){ cb && cb(null, true); },
  getItem: function(k, cb){ cb && cb(null, ''); },
  getItems: function(ks, cb){ cb && cb(null, {}); },
  removeItem: function(k, cb){ cb && cb(null, true); },
  removeItems: function(ks, cb){ cb && cb(null, true); },
  getKeys: function(cb){ cb && cb(null, []); }
};
`
