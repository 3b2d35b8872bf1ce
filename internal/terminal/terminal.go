// Package terminal 实现测试过程的终端旁路输出：逐行消息与表格化转储。
package terminal

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"miniappe2e/internal/logger"

	"github.com/fatih/color"
)

// Terminal 终端输出通道，消息同时写入标准输出与日志
type Terminal struct {
	mu    sync.Mutex
	out   io.Writer
	log   logger.Logger
	color bool
}

// Option 终端选项
type Option func(*Terminal)

// WithWriter 替换输出目标，默认 os.Stdout
func WithWriter(w io.Writer) Option { return func(t *Terminal) { t.out = w } }

// WithColor 是否对状态行着色
func WithColor(enabled bool) Option { return func(t *Terminal) { t.color = enabled } }

// New 创建终端通道
func New(l logger.Logger, opts ...Option) *Terminal {
	if l == nil {
		l = logger.NewNop()
	}
	t := &Terminal{out: os.Stdout, log: l, color: !color.NoColor}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Log 输出一行消息
func (t *Terminal) Log(msg string) {
	t.mu.Lock()
	fmt.Fprintln(t.out, msg)
	t.mu.Unlock()
	t.log.Debug("terminal", "message", msg)
}

// Table 以制表对齐的方式输出表格
func (t *Terminal) Table(headers []string, rows [][]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := tabwriter.NewWriter(t.out, 0, 4, 2, ' ', 0)
	if len(headers) > 0 {
		fmt.Fprintln(w, strings.Join(headers, "\t"))
	}
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

// KV 按键排序输出键值集合
func (t *Terminal) KV(m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, m[k]})
	}
	t.Table([]string{"KEY", "VALUE"}, rows)
}

// Status 输出场景结论行
func (t *Terminal) Status(name string, passed bool, d time.Duration, detail string) {
	label := t.colorize("PASS", color.FgGreen, color.Bold)
	if !passed {
		label = t.colorize("FAIL", color.FgRed, color.Bold)
	}
	line := fmt.Sprintf("%s  %s (%s)", label, name, d.Round(time.Millisecond))
	if detail != "" {
		line += "\n      " + t.colorize(detail, color.FgYellow)
	}
	t.Log(line)
}

func (t *Terminal) colorize(text string, attrs ...color.Attribute) string {
	if !t.color {
		return text
	}
	return color.New(attrs...).Sprint(text)
}
