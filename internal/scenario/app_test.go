package scenario

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"miniappe2e/internal/cdp"
	"miniappe2e/internal/commands"
	"miniappe2e/internal/dom"
	"miniappe2e/internal/handler"
	"miniappe2e/internal/session"
	"miniappe2e/pkg/model"
)

const (
	appBase  = "https://app.test"
	username = "Ochko228"
)

// miniApp 以路由状态机模拟被测应用
type miniApp struct {
	mu   sync.Mutex
	sink handler.Sink

	route    string
	formOpen bool
	loggedIn bool
	cropOpen bool
	fileSet  bool

	avatar    string
	persisted string

	authStatus int
	putStatus  int
	persist    bool // 上传后刷新是否保持新头像
	swap       bool // 上传成功后是否替换头像地址
	hideName   bool // 登录后不渲染用户名

	scripts  []string
	uploaded []string
	closed   bool
	reqSeq   int
}

func newMiniApp() *miniApp {
	return &miniApp{
		route:      "/",
		avatar:     "/media/default.png",
		persisted:  "/media/default.png",
		authStatus: 200,
		putStatus:  200,
		persist:    true,
		swap:       true,
	}
}

func (a *miniApp) open(_ context.Context, opts cdp.PageOptions) (session.Page, error) {
	a.sink = opts.Sink
	return a, nil
}

// emit 模拟一次网络往返，交给上下文的注册表
func (a *miniApp) emit(method, path string, status int) {
	a.reqSeq++
	a.sink.Observe(model.Exchange{
		RequestID:  fmt.Sprint(a.reqSeq),
		Method:     method,
		URL:        appBase + path,
		StatusCode: status,
		Body:       []byte(`{"ok":true,"avatar":"` + a.avatar + `"}`),
		CapturedAt: time.Now(),
	})
}

func (a *miniApp) AddInitScript(_ context.Context, src string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scripts = append(a.scripts, src)
	return nil
}

func (a *miniApp) StartRecording(context.Context, string) error { return nil }

func (a *miniApp) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func (a *miniApp) Navigate(_ context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.route = u.Path
	a.formOpen = false
	return nil
}

func (a *miniApp) Reload(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.formOpen, a.cropOpen, a.fileSet = false, false, false
	if !a.loggedIn {
		a.route = "/sign-in"
	}
	a.avatar = a.persisted
	return nil
}

func (a *miniApp) el(ref string, visible bool) []dom.Element {
	e := dom.Element{Ref: ref, Visible: visible}
	if ref == "img" || ref == "avatar" {
		e.Tag = "img"
		e.Attrs = map[string]string{"src": a.avatar}
	}
	return []dom.Element{e}
}

func (a *miniApp) Query(_ context.Context, q dom.Query) ([]dom.Element, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	onSignIn := strings.HasPrefix(a.route, "/sign-in")
	onDash := a.loggedIn && strings.HasPrefix(a.route, "/dashboard")
	onSettings := onDash && strings.HasSuffix(a.route, "/settings")
	onEdit := onDash && strings.HasSuffix(a.route, "/edit-profile")

	switch q.String() {
	case commands.LoginAffordance.String():
		if onSignIn {
			return a.el("open", true), nil
		}
	case commands.AnyInput.String(), commands.UsernameField.String():
		if onSignIn && a.formOpen {
			return a.el("user", true), nil
		}
	case commands.PasswordField.String():
		if onSignIn && a.formOpen {
			return a.el("pass", true), nil
		}
	case commands.SubmitControl.String():
		if onSignIn && a.formOpen {
			return a.el("submit", true), nil
		}
	case dom.Contains(username).String():
		if onDash && !a.hideName {
			return a.el("name", true), nil
		}
	case commands.AvatarNearUsername(username).String():
		if onDash && !onSettings && !onEdit {
			return a.el("thumb", true), nil
		}
	case dom.Contains("Settings").String():
		if onSettings || onEdit {
			return a.el("settings", true), nil
		}
	case commands.AvatarImage.String():
		if onSettings || onEdit {
			return a.el("avatar", true), nil
		}
	case commands.EditButtonNearAvatar.String():
		if onSettings {
			return a.el("edit", true), nil
		}
	case dom.Contains("Edit profile").String():
		if onEdit {
			return a.el("edit-title", !a.cropOpen), nil
		}
	case dom.Contains("Edit photo").String():
		if onEdit {
			return a.el("edit-photo", !a.cropOpen), nil
		}
	case dom.Contains("Crop photo").String():
		if a.cropOpen {
			return a.el("crop", true), nil
		}
	case dom.CSS(FileInput).String():
		if a.cropOpen {
			return a.el("file", false), nil
		}
	case dom.Contains("Save").String():
		if a.cropOpen {
			els := a.el("save", true)
			els[0].Disabled = !a.fileSet
			return els, nil
		}
	case firstImage.String():
		if onDash {
			return a.el("img", true), nil
		}
	}
	return nil, nil
}

func (a *miniApp) Click(_ context.Context, el dom.Element) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch el.Ref {
	case "open":
		a.formOpen = true
	case "submit":
		a.emit("POST", "/api/auth/login", a.authStatus)
		if a.authStatus >= 200 && a.authStatus < 300 {
			a.loggedIn = true
			a.route = "/dashboard"
			a.emit("GET", "/api/user/me", 200)
		}
	case "thumb":
		a.route = "/dashboard/settings"
		a.emit("GET", "/api/user/profile", 200)
	case "edit":
		a.route = "/dashboard/settings/edit-profile"
	case "edit-photo":
		a.cropOpen = true
	case "save":
		if !a.fileSet {
			return nil
		}
		a.emit("PUT", "/api/user/avatar", a.putStatus)
		a.cropOpen = false
		if a.putStatus >= 200 && a.putStatus < 300 && a.swap {
			a.avatar = "/media/uploaded.jpg"
			if a.persist {
				a.persisted = a.avatar
			}
		}
	}
	return nil
}

func (a *miniApp) Clear(context.Context, dom.Element) error { return nil }

func (a *miniApp) Type(context.Context, dom.Element, string, time.Duration) error { return nil }

func (a *miniApp) SetFiles(_ context.Context, _ dom.Element, files ...string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fileSet = true
	a.uploaded = append(a.uploaded, files...)
	return nil
}

func (a *miniApp) URL(context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return appBase + a.route, nil
}

func (a *miniApp) BodyHTML(context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loggedIn && a.hideName {
		return `<body><div class="user-profile"><img src="` + a.avatar + `"></div><p>Welcome</p></body>`, nil
	}
	if a.loggedIn {
		return `<body><div class="user-profile"><img src="` + a.avatar + `"><span>` + username + `</span></div><p>Welcome</p></body>`, nil
	}
	return `<body><button>Login</button></body>`, nil
}

func (a *miniApp) LocalStorage(context.Context) (map[string]string, error) {
	return map[string]string{"sk": "YJyKb5bbs0XkjR5DmPrD", "token": strings.Repeat("x", 64)}, nil
}

func (a *miniApp) Screenshot(context.Context) ([]byte, error) { return []byte("\x89PNG"), nil }

func (a *miniApp) Cookies(context.Context) ([]model.Cookie, error) {
	return []model.Cookie{{Name: "session", Value: strings.Repeat("c", 40), Domain: "app.test", Path: "/"}}, nil
}
