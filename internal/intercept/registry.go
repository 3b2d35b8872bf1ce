// Package intercept 维护按符号名注册的网络观察规则，并允许场景有界等待被标记的往返完成。
//
// 规则只观察不修改流量。每个符号名有一个单槽缓冲：命中的往返覆盖旧值，
// Await 成功后消费该槽，下一次 Await 需要新的往返。
package intercept

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"miniappe2e/internal/logger"
	"miniappe2e/internal/rules"
	"miniappe2e/internal/wait"
	"miniappe2e/pkg/model"
)

var (
	// ErrNotRegistered 等待未注册的符号名
	ErrNotRegistered = errors.New("intercept alias not registered")
	// ErrUnexpectedStatus 往返状态码不在 [200,300)
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// Registry 网络拦截注册表，生命周期等于单个场景
type Registry struct {
	mu       sync.Mutex
	engine   *rules.Engine
	slots    map[string]*model.Exchange
	history  []model.Exchange
	interval time.Duration
	log      logger.Logger
}

// Option 注册表选项
type Option func(*Registry)

// WithPollInterval 设置 Await 轮询间隔
func WithPollInterval(d time.Duration) Option {
	return func(r *Registry) { r.interval = d }
}

// WithLogger 设置日志器
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// New 创建空注册表
func New(opts ...Option) *Registry {
	r := &Registry{
		engine:   rules.New(),
		slots:    make(map[string]*model.Exchange),
		interval: wait.DefaultInterval,
		log:      logger.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register 安装规则并返回符号名。同名规则被替换，其缓冲槽清空。
func (r *Registry) Register(method, urlPattern, alias string) string {
	alias = strings.TrimPrefix(alias, "@")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engine.Put(rules.Rule{Alias: alias, Method: strings.ToUpper(method), URLPattern: urlPattern})
	delete(r.slots, alias)
	r.log.Debug("注册拦截规则", "alias", alias, "method", method, "pattern", urlPattern)
	return alias
}

// Wants 是否存在命中该请求的规则
func (r *Registry) Wants(method, url string) bool {
	return len(r.engine.Eval(rules.Ctx{URL: url, Method: method})) > 0
}

// Observe 接收一次已完成的往返，写入所有命中规则的缓冲槽。
// 匹配与写槽在同一把锁内完成，与 Register 的替换互斥。
func (r *Registry) Observe(ex model.Exchange) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	hits := r.engine.Eval(rules.Ctx{URL: ex.URL, Method: ex.Method})
	if len(hits) == 0 {
		return nil
	}
	if ex.CapturedAt.IsZero() {
		ex.CapturedAt = time.Now()
	}

	aliases := make([]string, 0, len(hits))
	for _, h := range hits {
		cp := ex
		cp.Alias = h.Alias
		r.slots[h.Alias] = &cp
		r.history = append(r.history, cp)
		aliases = append(aliases, h.Alias)
	}
	r.log.Debug("捕获网络往返", "aliases", aliases, "method", ex.Method, "url", ex.URL, "status", ex.StatusCode)
	return aliases
}

// Await 阻塞直到 alias 自注册以来捕获到往返，或超时
func (r *Registry) Await(ctx context.Context, alias string, timeout time.Duration) (model.Exchange, error) {
	alias = strings.TrimPrefix(alias, "@")
	if _, ok := r.engine.Get(alias); !ok {
		return model.Exchange{}, fmt.Errorf("await @%s: %w", alias, ErrNotRegistered)
	}

	var got model.Exchange
	err := wait.Poll(ctx, "@"+alias, r.interval, timeout, func(context.Context) (bool, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		ex := r.slots[alias]
		if ex == nil {
			return false, nil
		}
		got = *ex
		delete(r.slots, alias)
		return true, nil
	})
	if err != nil {
		return model.Exchange{}, err
	}
	r.log.Debug("等待拦截完成", "alias", alias, "status", got.StatusCode)
	return got, nil
}

// History 返回本场景内捕获的全部往返，按捕获顺序
func (r *Registry) History() []model.Exchange {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Exchange, len(r.history))
	copy(out, r.history)
	return out
}

// StatusError 往返状态码不在 [200,300)
type StatusError struct {
	Exchange model.Exchange
}

func (e *StatusError) Error() string {
	if e.Exchange.Error != "" {
		return fmt.Sprintf("@%s %s %s failed: %s", e.Exchange.Alias, e.Exchange.Method, e.Exchange.URL, e.Exchange.Error)
	}
	return fmt.Sprintf("@%s %s %s: expected status in [200,300), got %d",
		e.Exchange.Alias, e.Exchange.Method, e.Exchange.URL, e.Exchange.StatusCode)
}

// Is 使 errors.Is(err, ErrUnexpectedStatus) 成立
func (e *StatusError) Is(target error) bool { return target == ErrUnexpectedStatus }

// ExpectSuccess 断言往返状态码为 2xx
func ExpectSuccess(ex model.Exchange) error {
	if ex.Succeeded() {
		return nil
	}
	return &StatusError{Exchange: ex}
}
