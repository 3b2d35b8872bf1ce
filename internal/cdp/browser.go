package cdp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"miniappe2e/internal/logger"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/target"
	"github.com/mafredri/cdp/rpcc"
	"github.com/mafredri/cdp/session"
)

// Browser 浏览器级连接，负责创建相互隔离的浏览器上下文
type Browser struct {
	conn     *rpcc.Conn
	client   *cdp.Client
	sessions *session.Manager
	proc     *Process
	log      logger.Logger

	mu    sync.Mutex
	pages map[*Page]struct{}
}

// Connect 连接到已运行的浏览器。devtoolsURL 可以是 http://host:port 或浏览器 ws 地址。
func Connect(ctx context.Context, devtoolsURL string, l logger.Logger) (*Browser, error) {
	if l == nil {
		l = logger.NewNop()
	}
	wsURL := devtoolsURL
	if !strings.HasPrefix(devtoolsURL, "ws://") && !strings.HasPrefix(devtoolsURL, "wss://") {
		v, err := devtool.New(devtoolsURL).Version(ctx)
		if err != nil {
			return nil, fmt.Errorf("query devtools version: %w", err)
		}
		wsURL = v.WebSocketDebuggerURL
		l.Info("已发现浏览器", "browser", v.Browser, "protocol", v.Protocol)
	}

	conn, err := rpcc.DialContext(ctx, wsURL, rpcc.WithWriteBufferSize(1<<20))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	client := cdp.NewClient(conn)
	sessions, err := session.NewManager(client)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create session manager: %w", err)
	}

	l.Info("浏览器连接成功", "url", wsURL)
	return &Browser{
		conn:     conn,
		client:   client,
		sessions: sessions,
		log:      l,
		pages:    make(map[*Page]struct{}),
	}, nil
}

// NewPage 创建新的隔离浏览器上下文及其中的空白页面。
// 返回的页面尚未导航，调用方可以在首次导航前安装初始化脚本。
func (b *Browser) NewPage(ctx context.Context, opts PageOptions) (*Page, error) {
	bc, err := b.client.Target.CreateBrowserContext(ctx, target.NewCreateBrowserContextArgs())
	if err != nil {
		return nil, fmt.Errorf("create browser context: %w", err)
	}
	dispose := func(ctx context.Context) error {
		return b.client.Target.DisposeBrowserContext(ctx, target.NewDisposeBrowserContextArgs(bc.BrowserContextID))
	}

	tgt, err := b.client.Target.CreateTarget(ctx,
		target.NewCreateTargetArgs("about:blank").SetBrowserContextID(bc.BrowserContextID))
	if err != nil {
		_ = dispose(ctx)
		return nil, fmt.Errorf("create target: %w", err)
	}

	conn, err := b.sessions.Dial(ctx, tgt.TargetID)
	if err != nil {
		_ = dispose(ctx)
		return nil, fmt.Errorf("attach target %s: %w", tgt.TargetID, err)
	}

	p, err := newPage(ctx, conn, opts, b.log.With("target", string(tgt.TargetID)))
	if err != nil {
		conn.Close()
		_ = dispose(ctx)
		return nil, err
	}
	p.dispose = dispose

	b.mu.Lock()
	b.pages[p] = struct{}{}
	b.mu.Unlock()
	p.onClose = func() {
		b.mu.Lock()
		delete(b.pages, p)
		b.mu.Unlock()
	}
	return p, nil
}

// Close 关闭所有页面与浏览器连接；若浏览器由本进程启动则一并结束进程
func (b *Browser) Close() error {
	b.mu.Lock()
	pages := make([]*Page, 0, len(b.pages))
	for p := range b.pages {
		pages = append(pages, p)
	}
	b.mu.Unlock()
	for _, p := range pages {
		if err := p.Close(); err != nil {
			b.log.Warn("关闭页面失败", "error", err)
		}
	}

	b.sessions.Close()
	err := b.conn.Close()
	if b.proc != nil {
		b.proc.Kill()
	}
	return err
}
