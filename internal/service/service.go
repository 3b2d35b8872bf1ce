package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"miniappe2e/internal/cdp"
	"miniappe2e/internal/commands"
	"miniappe2e/internal/config"
	"miniappe2e/internal/logger"
	"miniappe2e/internal/scenario"
	"miniappe2e/internal/session"
	"miniappe2e/internal/storage"
	"miniappe2e/internal/terminal"
	"miniappe2e/pkg/model"
)

// Service 套件服务：选择场景、准备浏览器、执行并记录结果
type Service struct {
	cfg  *config.Config
	log  logger.Logger
	term *terminal.Terminal

	mu    sync.Mutex
	store *storage.Store
}

// New 创建服务。term 为 nil 时输出到标准输出。
func New(cfg *config.Config, l logger.Logger, term *terminal.Terminal) *Service {
	if l == nil {
		l = logger.NewNop()
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if term == nil {
		term = terminal.New(l)
	}
	return &Service{cfg: cfg, log: l, term: term}
}

// ListScenarios 列出全部场景
func (s *Service) ListScenarios() []model.ScenarioInfo {
	all := scenario.All()
	out := make([]model.ScenarioInfo, 0, len(all))
	for _, sc := range all {
		out = append(out, model.ScenarioInfo{Name: sc.Name, Description: sc.Description})
	}
	return out
}

// Run 执行指定场景，names 为空时执行全部
func (s *Service) Run(ctx context.Context, names []string) (model.RunReport, error) {
	scs, err := scenario.Lookup(names...)
	if err != nil {
		return model.RunReport{}, err
	}

	var ledger scenario.Ledger
	if st, err := s.openStore(); err != nil {
		s.log.Warn("执行账本不可用，本次结果不落库", "error", err)
	} else {
		ledger = st
	}

	b, err := s.browser(ctx)
	if err != nil {
		return model.RunReport{}, err
	}
	defer func() {
		if err := b.Close(); err != nil {
			s.log.Warn("关闭浏览器失败", "error", err)
		}
	}()

	mgr := session.NewManager(session.BrowserOpener(b), s.sessionOptions(), s.log)
	defer mgr.Close()

	runner := scenario.NewRunner(mgr, s.runnerConfig(), s.term, ledger, s.log)
	return runner.Run(ctx, scs)
}

// History 最近的执行记录
func (s *Service) History(ctx context.Context, limit int) ([]model.RunSummary, error) {
	st, err := s.openStore()
	if err != nil {
		return nil, err
	}
	return st.History(ctx, limit)
}

// Close 释放账本连接
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

func (s *Service) openStore() (*storage.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		return s.store, nil
	}
	if s.cfg.Sqlite.Dsn == "" {
		return nil, errors.New("sqlite dsn is empty")
	}
	st, err := storage.Open(s.cfg.Sqlite.Dsn, s.cfg.Sqlite.Prefix, s.log)
	if err != nil {
		return nil, err
	}
	s.store = st
	return st, nil
}

// browser 配置了 devtools 地址时连接已有浏览器，否则本地启动
func (s *Service) browser(ctx context.Context) (*cdp.Browser, error) {
	if url := s.cfg.Browser.DevToolsURL; url != "" {
		b, err := cdp.Connect(ctx, url, s.log)
		if err != nil {
			return nil, fmt.Errorf("connect browser %s: %w", url, err)
		}
		return b, nil
	}
	return cdp.Launch(ctx, cdp.LaunchOptions{
		Bin:                s.cfg.Browser.Bin,
		Headless:           s.cfg.Browser.Headless,
		DisableWebSecurity: !s.cfg.ChromeWebSecurity,
		WindowWidth:        s.cfg.Viewport.Width,
		WindowHeight:       s.cfg.Viewport.Height,
	}, s.log)
}

func (s *Service) sessionOptions() session.Options {
	opts := session.Options{
		Width:        s.cfg.Viewport.Width,
		Height:       s.cfg.Viewport.Height,
		BodyLimit:    s.cfg.Browser.BodyLimit,
		PollInterval: s.cfg.Timeouts.PollInterval,
		SecretKey:    s.cfg.Secret.Key,
		SecretValue:  s.cfg.Secret.Value,
	}
	if s.cfg.Video {
		opts.VideoDir = filepath.Join(s.cfg.ArtifactsDir, "videos")
	}
	return opts
}

func (s *Service) runnerConfig() scenario.Config {
	login := commands.DefaultLoginTimeouts
	login.Auth = s.cfg.Timeouts.Response
	return scenario.Config{
		BaseURL:             s.cfg.BaseURL,
		Credentials:         s.cfg.Credentials,
		FixturesDir:         s.cfg.FixturesDir,
		ArtifactsDir:        s.cfg.ArtifactsDir,
		DefaultTimeout:      s.cfg.Timeouts.DefaultCommand,
		PollInterval:        s.cfg.Timeouts.PollInterval,
		PageLoad:            s.cfg.Timeouts.Request,
		Login:               login,
		ScreenshotOnFailure: s.cfg.ScreenshotOnFailure,
	}
}
