package commands

import (
	"context"
	"strings"
	"sync"
	"time"

	"miniappe2e/internal/dom"
	"miniappe2e/pkg/model"
)

// fakeApp 以查询描述为键模拟页面，点击可触发状态迁移
type fakeApp struct {
	mu       sync.Mutex
	url      string
	elements map[string][]dom.Element
	onClick  map[string]func()
	typed    map[string]string
	cleared  map[string]int
	files    map[string][]string
	body     string
	storage  map[string]string
	cookies  []model.Cookie
	calls    []string
}

func newFakeApp() *fakeApp {
	return &fakeApp{
		url:      "about:blank",
		elements: make(map[string][]dom.Element),
		onClick:  make(map[string]func()),
		typed:    make(map[string]string),
		cleared:  make(map[string]int),
		files:    make(map[string][]string),
		storage:  make(map[string]string),
	}
}

func (a *fakeApp) show(q dom.Query, els ...dom.Element) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.elements[q.String()] = els
}

func (a *fakeApp) setURL(u string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.url = u
}

func (a *fakeApp) record(call string) {
	a.calls = append(a.calls, call)
}

func (a *fakeApp) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func (a *fakeApp) Navigate(_ context.Context, url string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("navigate:" + url)
	a.url = url
	return nil
}

func (a *fakeApp) Reload(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("reload")
	return nil
}

func (a *fakeApp) Query(_ context.Context, q dom.Query) ([]dom.Element, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.elements[q.String()], nil
}

func (a *fakeApp) Click(_ context.Context, el dom.Element) error {
	a.mu.Lock()
	a.record("click:" + el.Ref)
	fn := a.onClick[el.Ref]
	a.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (a *fakeApp) Clear(_ context.Context, el dom.Element) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("clear:" + el.Ref)
	a.cleared[el.Ref]++
	a.typed[el.Ref] = ""
	return nil
}

func (a *fakeApp) Type(_ context.Context, el dom.Element, text string, _ time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("type:" + el.Ref)
	a.typed[el.Ref] += text
	return nil
}

func (a *fakeApp) SetFiles(_ context.Context, el dom.Element, files ...string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("files:" + el.Ref)
	a.files[el.Ref] = files
	return nil
}

func (a *fakeApp) URL(context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.record("url")
	return a.url, nil
}

func (a *fakeApp) BodyHTML(context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.body, nil
}

func (a *fakeApp) LocalStorage(context.Context) (map[string]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]string, len(a.storage))
	for k, v := range a.storage {
		out[k] = v
	}
	return out, nil
}

func (a *fakeApp) Screenshot(context.Context) ([]byte, error) {
	return []byte("\x89PNG"), nil
}

func (a *fakeApp) Cookies(context.Context) ([]model.Cookie, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.Cookie(nil), a.cookies...), nil
}

type recordingTerminal struct {
	mu    sync.Mutex
	lines []string
}

func (t *recordingTerminal) Log(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, msg)
}

func (t *recordingTerminal) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
