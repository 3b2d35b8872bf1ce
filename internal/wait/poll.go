// Package wait 提供带上限的轮询等待原语，所有 DOM 与网络等待都经由此处
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout 有界等待超时
var ErrTimeout = errors.New("timed out")

// DefaultInterval 默认轮询间隔
const DefaultInterval = 100 * time.Millisecond

// TimeoutError 描述超时的等待目标
type TimeoutError struct {
	What    string
	Timeout time.Duration
	Last    error // 最后一次检查返回的错误
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.What)
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

// Is 使 errors.Is(err, ErrTimeout) 成立
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return e.Last }

// Condition 单次检查。返回 done=true 结束等待；返回 Fatal 包装的错误立即失败
type Condition func(ctx context.Context) (done bool, err error)

type fatalError struct{ err error }

func (f fatalError) Error() string { return f.err.Error() }
func (f fatalError) Unwrap() error { return f.err }

// Fatal 标记错误为不可重试，轮询立刻返回该错误
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fatalError{err: err}
}

// Poll 以 interval 间隔检查 cond，直到满足、致命错误或超过 timeout。
// 首次检查立即执行。非致命错误只作为超时时的诊断信息保留。
func Poll(ctx context.Context, what string, interval, timeout time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	deadline := time.Now().Add(timeout)
	pctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last error
	for {
		done, err := cond(pctx)
		if err != nil {
			var f fatalError
			if errors.As(err, &f) {
				return f.err
			}
			last = err
		} else if done {
			return nil
		}

		select {
		case <-pctx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return &TimeoutError{What: what, Timeout: timeout, Last: last}
		case <-ticker.C:
		}
	}
}
