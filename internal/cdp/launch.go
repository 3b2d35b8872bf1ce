package cdp

import (
	"context"
	"fmt"

	"miniappe2e/internal/logger"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
)

// LaunchOptions 本地启动浏览器的参数
type LaunchOptions struct {
	Bin                string
	Headless           bool
	DisableWebSecurity bool
	WindowWidth        int
	WindowHeight       int
}

// Process 由本进程启动的浏览器
type Process struct {
	l *launcher.Launcher
}

// Kill 结束浏览器并清理临时用户目录
func (p *Process) Kill() {
	p.l.Kill()
	p.l.Cleanup()
}

// Launch 启动本地浏览器并连接
func Launch(ctx context.Context, opts LaunchOptions, l logger.Logger) (*Browser, error) {
	if l == nil {
		l = logger.NewNop()
	}
	ln := launcher.New().Context(ctx).Headless(opts.Headless)
	if opts.Bin != "" {
		ln = ln.Bin(opts.Bin)
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		ln = ln.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", opts.WindowWidth, opts.WindowHeight))
	}
	if opts.DisableWebSecurity {
		// 宿主桥需要跨上下文注入脚本
		ln = ln.Set(flags.Flag("disable-web-security")).
			Set(flags.Flag("disable-site-isolation-trials"))
	}

	wsURL, err := ln.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	l.Info("已启动本地浏览器", "pid", ln.PID(), "headless", opts.Headless, "webSecurity", !opts.DisableWebSecurity)

	b, err := Connect(ctx, wsURL, l)
	if err != nil {
		ln.Kill()
		return nil, err
	}
	b.proc = &Process{l: ln}
	return b, nil
}
