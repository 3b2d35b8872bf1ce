package handler

import (
	"context"
	"sync"
	"time"

	"miniappe2e/internal/logger"
	"miniappe2e/pkg/model"
	"miniappe2e/pkg/traffic"
)

// Sink 往返的消费者，通常为拦截注册表
type Sink interface {
	// Wants 是否有规则关心该请求，决定是否拉取响应体
	Wants(method, url string) bool
	// Observe 接收已完成的往返
	Observe(ex model.Exchange) []string
}

// BodyFetcher 按请求ID拉取响应体
type BodyFetcher func(ctx context.Context, requestID string) ([]byte, error)

// Handler 网络事件关联器：把请求、响应、加载完成/失败事件合并为完整往返
type Handler struct {
	mu        sync.Mutex
	pending   map[string]*pendingExchange
	sink      Sink
	fetchBody BodyFetcher
	bodyLimit int
	log       logger.Logger
}

// Config 配置选项
type Config struct {
	Sink      Sink
	FetchBody BodyFetcher
	BodyLimit int // 超过该字节数的响应体被丢弃，0 表示不限
	Logger    logger.Logger
}

type pendingExchange struct {
	req *traffic.Request
	res *traffic.Response
}

// New 创建事件关联器
func New(cfg Config) *Handler {
	l := cfg.Logger
	if l == nil {
		l = logger.NewNop()
	}
	return &Handler{
		pending:   make(map[string]*pendingExchange),
		sink:      cfg.Sink,
		fetchBody: cfg.FetchBody,
		bodyLimit: cfg.BodyLimit,
		log:       l,
	}
}

// HandleRequest 记录即将发出的请求。redirect 非空表示同一请求ID的上一跳以重定向结束。
func (h *Handler) HandleRequest(req *traffic.Request, redirect *traffic.Response) {
	var done *pendingExchange
	h.mu.Lock()
	if redirect != nil {
		if prev, ok := h.pending[req.ID]; ok {
			prev.res = redirect
			done = prev
		}
	}
	h.pending[req.ID] = &pendingExchange{req: req}
	h.mu.Unlock()

	if done != nil {
		h.complete(done, "")
	}
}

// HandleResponse 记录响应元数据
func (h *Handler) HandleResponse(requestID string, res *traffic.Response) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.pending[requestID]; ok {
		p.res = res
	}
}

// HandleFinished 请求加载完成，按需拉取响应体后投递
func (h *Handler) HandleFinished(ctx context.Context, requestID string) {
	p := h.take(requestID)
	if p == nil {
		return
	}
	if p.res != nil && p.res.Textual() && h.fetchBody != nil && h.sink != nil && h.sink.Wants(p.req.Method, p.req.URL) {
		body, err := h.fetchBody(ctx, requestID)
		if err != nil {
			h.log.Debug("获取响应体失败", "requestID", requestID, "error", err)
		} else if h.bodyLimit <= 0 || len(body) <= h.bodyLimit {
			p.res.Body = body
		}
	}
	h.complete(p, "")
}

// HandleFailed 请求在网络层失败
func (h *Handler) HandleFailed(requestID, errorText string) {
	p := h.take(requestID)
	if p == nil {
		return
	}
	if errorText == "" {
		errorText = "request failed"
	}
	h.complete(p, errorText)
}

// Pending 当前未完成的请求数
func (h *Handler) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

func (h *Handler) take(requestID string) *pendingExchange {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pending[requestID]
	if !ok {
		return nil
	}
	delete(h.pending, requestID)
	return p
}

func (h *Handler) complete(p *pendingExchange, errorText string) {
	ex := model.Exchange{
		RequestID:  p.req.ID,
		Method:     p.req.Method,
		URL:        p.req.URL,
		Error:      errorText,
		CapturedAt: time.Now(),
	}
	if p.res != nil && errorText == "" {
		ex.StatusCode = p.res.StatusCode
		ex.Headers = p.res.Headers.Clone()
		ex.Body = p.res.Body
	}

	var aliases []string
	if h.sink != nil {
		aliases = h.sink.Observe(ex)
	}
	if len(aliases) > 0 {
		h.log.Info("网络往返命中规则", "aliases", aliases, "method", ex.Method, "url", ex.URL, "status", ex.StatusCode)
	}
}
