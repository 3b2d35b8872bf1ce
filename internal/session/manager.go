// Package session 管理场景使用的隔离浏览器上下文。
// 每个上下文在首次导航前安装新的宿主桥，并拥有自己的拦截注册表。
package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"miniappe2e/internal/bridge"
	"miniappe2e/internal/cdp"
	"miniappe2e/internal/commands"
	"miniappe2e/internal/intercept"
	"miniappe2e/internal/logger"
	"miniappe2e/pkg/model"

	"github.com/google/uuid"
)

// Page 单个上下文中的页面
type Page interface {
	commands.Driver
	bridge.Installer
	StartRecording(ctx context.Context, dir string) error
	Close() error
}

// Opener 创建新的隔离上下文并返回其中尚未导航的页面
type Opener func(ctx context.Context, opts cdp.PageOptions) (Page, error)

// BrowserOpener 基于浏览器连接的 Opener
func BrowserOpener(b *cdp.Browser) Opener {
	return func(ctx context.Context, opts cdp.PageOptions) (Page, error) {
		p, err := b.NewPage(ctx, opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// Options 上下文创建参数
type Options struct {
	Width        int
	Height       int
	BodyLimit    int
	PollInterval time.Duration
	SecretKey    string
	SecretValue  string
	User         *bridge.User
	VideoDir     string // 非空时录制帧序列到 VideoDir/<上下文ID>
}

// Session 单个隔离上下文
type Session struct {
	ID        model.ContextID
	Page      Page
	Intercept *intercept.Registry
	Bridge    *bridge.HostBridge
	VideoDir  string
	CreatedAt time.Time

	mu         sync.Mutex
	exceptions []string
}

// Exceptions 页面未捕获异常
func (s *Session) Exceptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.exceptions...)
}

func (s *Session) addException(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exceptions = append(s.exceptions, text)
}

// Manager 上下文管理器
type Manager struct {
	mu       sync.RWMutex
	sessions map[model.ContextID]*Session
	open     Opener
	opts     Options
	log      logger.Logger
}

// NewManager 创建上下文管理器
func NewManager(open Opener, opts Options, l logger.Logger) *Manager {
	if l == nil {
		l = logger.NewNop()
	}
	return &Manager{
		sessions: make(map[model.ContextID]*Session),
		open:     open,
		opts:     opts,
		log:      l,
	}
}

// Create 创建新的隔离上下文并安装宿主桥
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id := model.ContextID(uuid.NewString())
	l := m.log.With("contextID", string(id))

	reg := intercept.New(intercept.WithPollInterval(m.opts.PollInterval), intercept.WithLogger(l))
	s := &Session{ID: id, Intercept: reg, CreatedAt: time.Now()}

	page, err := m.open(ctx, cdp.PageOptions{
		Width:       m.opts.Width,
		Height:      m.opts.Height,
		Sink:        reg,
		BodyLimit:   m.opts.BodyLimit,
		OnException: s.addException,
	})
	if err != nil {
		return nil, fmt.Errorf("open context: %w", err)
	}
	s.Page = page

	var bopts []bridge.Option
	if m.opts.Height > 0 {
		bopts = append(bopts, bridge.WithViewportHeight(m.opts.Height))
	}
	if m.opts.SecretKey != "" {
		bopts = append(bopts, bridge.WithSecret(m.opts.SecretKey, m.opts.SecretValue))
	}
	if m.opts.User != nil {
		bopts = append(bopts, bridge.WithUser(*m.opts.User))
	}
	s.Bridge = bridge.New(bopts...)
	if err := bridge.Install(ctx, page, s.Bridge); err != nil {
		_ = page.Close()
		return nil, err
	}

	if m.opts.VideoDir != "" {
		s.VideoDir = filepath.Join(m.opts.VideoDir, string(id))
		if err := page.StartRecording(ctx, s.VideoDir); err != nil {
			l.Warn("录制启动失败", "error", err)
			s.VideoDir = ""
		}
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	l.Info("创建浏览器上下文")
	return s, nil
}

// Get 获取上下文
func (m *Manager) Get(id model.ContextID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete 关闭并销毁上下文
func (m *Manager) Delete(id model.ContextID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	m.log.Info("销毁浏览器上下文", "contextID", string(id))
	return s.Page.Close()
}

// List 返回所有活动上下文
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	return list
}

// Close 销毁全部上下文
func (m *Manager) Close() {
	for _, s := range m.List() {
		if err := m.Delete(s.ID); err != nil {
			m.log.Warn("关闭上下文失败", "contextID", string(s.ID), "error", err)
		}
	}
}
