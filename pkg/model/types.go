package model

import (
	"time"
)

// ContextID 浏览器上下文ID，每个场景独占一个
type ContextID string

// RunID 单次场景运行标识
type RunID string

// Credentials 登录凭据，运行期间不可变
type Credentials struct {
	Username string `json:"username" mapstructure:"username" yaml:"username"`
	Password string `json:"password" mapstructure:"password" yaml:"password"`
}

// Exchange 被观察到的一次完整网络往返，捕获后只读
type Exchange struct {
	RequestID  string            `json:"requestId"`
	Alias      string            `json:"alias"`
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       []byte            `json:"body,omitempty"`
	Error      string            `json:"error,omitempty"` // 网络层失败原因，非空时 StatusCode 为 0
	CapturedAt time.Time         `json:"capturedAt"`
}

// Succeeded 状态码是否在 [200,300)
func (e Exchange) Succeeded() bool {
	return e.StatusCode >= 200 && e.StatusCode < 300
}

// AvatarRef 头像引用，用于上传前后与刷新后的对比
type AvatarRef struct {
	Src string `json:"src"`
}

// Cookie 浏览器 Cookie 的诊断视图
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

// Status 场景结果状态
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// ScenarioResult 单个场景的执行结果
type ScenarioResult struct {
	Name       string        `json:"name"`
	RunID      RunID         `json:"runId"`
	Status     Status        `json:"status"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	Screenshot string        `json:"screenshot,omitempty"`
	VideoDir   string        `json:"videoDir,omitempty"`
	Exchanges  []Exchange    `json:"exchanges,omitempty"`
	Journal    []string      `json:"journal,omitempty"` // 本次运行的命令日志
}

// RunReport 一次套件执行的汇总
type RunReport struct {
	ID         string           `json:"id"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
	Scenarios  []ScenarioResult `json:"scenarios"`
}

// Passed 是否所有场景均通过
func (r RunReport) Passed() bool {
	for _, s := range r.Scenarios {
		if s.Status != StatusPassed {
			return false
		}
	}
	return true
}

// RunSummary 历史记录列表项
type RunSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Total      int       `json:"total"`
	Failed     int       `json:"failed"`
}

// ScenarioInfo 场景列表项
type ScenarioInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
