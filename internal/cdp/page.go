package cdp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"miniappe2e/internal/bridge"
	"miniappe2e/internal/handler"
	"miniappe2e/internal/logger"
	"miniappe2e/pkg/model"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/protocol/emulation"
	"github.com/mafredri/cdp/protocol/network"
	"github.com/mafredri/cdp/protocol/page"
	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/mafredri/cdp/rpcc"
	"github.com/tidwall/gjson"
)

// PageOptions 页面创建参数
type PageOptions struct {
	Width     int
	Height    int
	Sink      handler.Sink // 网络往返的消费者，通常为当前场景的拦截注册表
	BodyLimit int          // 需要拉取的响应体上限
	// OnException 页面未捕获异常回调，异常不会使场景失败
	OnException func(text string)
}

// Page 单个隔离浏览器上下文中的页面
type Page struct {
	conn    *rpcc.Conn
	client  *cdp.Client
	ctx     context.Context
	cancel  context.CancelFunc
	handler *handler.Handler
	log     logger.Logger

	navigated atomic.Bool
	closeOnce sync.Once
	dispose   func(context.Context) error
	onClose   func()
	wg        sync.WaitGroup

	onException func(string)
	rec         *recorder
}

func newPage(ctx context.Context, conn *rpcc.Conn, opts PageOptions, l logger.Logger) (*Page, error) {
	pctx, cancel := context.WithCancel(context.Background())
	p := &Page{
		conn:        conn,
		client:      cdp.NewClient(conn),
		ctx:         pctx,
		cancel:      cancel,
		log:         l,
		onException: opts.OnException,
	}
	p.handler = handler.New(handler.Config{
		Sink:      opts.Sink,
		FetchBody: p.responseBody,
		BodyLimit: opts.BodyLimit,
		Logger:    l,
	})

	if err := p.enable(ctx, opts); err != nil {
		cancel()
		return nil, err
	}
	return p, nil
}

// enable 启用所需的域并启动事件消费
func (p *Page) enable(ctx context.Context, opts PageOptions) error {
	// 事件流先于 Enable 建立，避免漏掉最早的事件
	streams, err := p.openNetworkStreams()
	if err != nil {
		return err
	}
	exc, err := p.client.Runtime.ExceptionThrown(p.ctx)
	if err != nil {
		streams.close()
		return fmt.Errorf("subscribe exceptions: %w", err)
	}

	if err := p.client.Page.Enable(ctx); err != nil {
		return fmt.Errorf("enable page: %w", err)
	}
	if err := p.client.Network.Enable(ctx, network.NewEnableArgs()); err != nil {
		return fmt.Errorf("enable network: %w", err)
	}
	if err := p.client.Runtime.Enable(ctx); err != nil {
		return fmt.Errorf("enable runtime: %w", err)
	}
	if err := p.client.DOM.Enable(ctx, nil); err != nil {
		return fmt.Errorf("enable dom: %w", err)
	}
	if opts.Width > 0 && opts.Height > 0 {
		args := emulation.NewSetDeviceMetricsOverrideArgs(opts.Width, opts.Height, 1, false)
		if err := p.client.Emulation.SetDeviceMetricsOverride(ctx, args); err != nil {
			return fmt.Errorf("set viewport: %w", err)
		}
	}

	p.wg.Add(2)
	go p.consumeNetwork(streams)
	go p.consumeExceptions(exc)
	return nil
}

// consumeExceptions 记录页面未捕获异常。策略上只记录不失败。
func (p *Page) consumeExceptions(exc runtime.ExceptionThrownClient) {
	defer p.wg.Done()
	defer exc.Close()
	for {
		ev, err := exc.Recv()
		if err != nil {
			return
		}
		text := ev.ExceptionDetails.Text
		if ev.ExceptionDetails.Exception != nil && ev.ExceptionDetails.Exception.Description != nil {
			text = *ev.ExceptionDetails.Exception.Description
		}
		p.log.Warn("页面未捕获异常（已忽略）", "exception", text)
		if p.onException != nil {
			p.onException(text)
		}
	}
}

// AddInitScript 注册在每个新文档任何脚本之前执行的脚本
func (p *Page) AddInitScript(ctx context.Context, source string) error {
	if p.navigated.Load() {
		return bridge.ErrLateBootstrap
	}
	_, err := p.client.Page.AddScriptToEvaluateOnNewDocument(ctx, page.NewAddScriptToEvaluateOnNewDocumentArgs(source))
	return err
}

// Navigate 导航并等待 load 事件
func (p *Page) Navigate(ctx context.Context, url string) error {
	load, err := p.client.Page.LoadEventFired(ctx)
	if err != nil {
		return err
	}
	defer load.Close()

	p.navigated.Store(true)
	reply, err := p.client.Page.Navigate(ctx, page.NewNavigateArgs(url))
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if reply.ErrorText != nil && *reply.ErrorText != "" {
		return fmt.Errorf("navigate %s: %s", url, *reply.ErrorText)
	}
	if _, err := load.Recv(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	p.log.Debug("页面加载完成", "url", url)
	return nil
}

// Reload 整页刷新并等待 load 事件
func (p *Page) Reload(ctx context.Context) error {
	load, err := p.client.Page.LoadEventFired(ctx)
	if err != nil {
		return err
	}
	defer load.Close()

	if err := p.client.Page.Reload(ctx, page.NewReloadArgs()); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	if _, err := load.Recv(); err != nil {
		return fmt.Errorf("wait reload: %w", err)
	}
	return nil
}

// EvalError 页面内表达式抛出异常
type EvalError struct {
	Text string
}

func (e *EvalError) Error() string { return "evaluate: " + e.Text }

// Evaluate 在页面内执行表达式，结果按值返回并以 gjson 解析
func (p *Page) Evaluate(ctx context.Context, expr string) (gjson.Result, error) {
	args := runtime.NewEvaluateArgs(expr).SetReturnByValue(true).SetAwaitPromise(true)
	reply, err := p.client.Runtime.Evaluate(ctx, args)
	if err != nil {
		return gjson.Result{}, err
	}
	if exc := reply.ExceptionDetails; exc != nil {
		text := exc.Text
		if exc.Exception != nil && exc.Exception.Description != nil {
			text = *exc.Exception.Description
		}
		return gjson.Result{}, &EvalError{Text: text}
	}
	return gjson.ParseBytes(reply.Result.Value), nil
}

// Screenshot 截取当前视口 PNG
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	reply, err := p.client.Page.CaptureScreenshot(ctx, page.NewCaptureScreenshotArgs())
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return reply.Data, nil
}

// Cookies 当前页面可见的 Cookie
func (p *Page) Cookies(ctx context.Context) ([]model.Cookie, error) {
	reply, err := p.client.Network.GetCookies(ctx, network.NewGetCookiesArgs())
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}
	out := make([]model.Cookie, 0, len(reply.Cookies))
	for _, c := range reply.Cookies {
		out = append(out, model.Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path})
	}
	return out, nil
}

// Close 停止事件消费，关闭连接并销毁浏览器上下文
func (p *Page) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.rec != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_ = p.StopRecording(ctx)
			cancel()
		}
		p.cancel()
		err = p.conn.Close()
		p.wg.Wait()
		if n := p.handler.Pending(); n > 0 {
			p.log.Debug("关闭时仍有未完成的请求", "pending", n)
		}
		if p.dispose != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if derr := p.dispose(ctx); derr != nil && !errors.Is(derr, context.Canceled) {
				err = errors.Join(err, derr)
			}
			cancel()
		}
		if p.onClose != nil {
			p.onClose()
		}
	})
	return err
}
