package rules

import (
	"regexp"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Rule 拦截规则：方法 + URL glob，绑定到符号名
type Rule struct {
	Alias      string
	Method     string // 空或 "*" 表示任意方法
	URLPattern string
}

// Ctx 匹配上下文
type Ctx struct {
	URL    string
	Method string
}

// Engine 规则引擎，按符号名保存规则，同名规则后注册者覆盖前者
type Engine struct {
	mu    sync.RWMutex
	rules map[string]Rule
	order []string
}

// New 创建规则引擎
func New() *Engine {
	return &Engine{rules: make(map[string]Rule)}
}

// Put 注册或替换规则
func (e *Engine) Put(r Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rules[r.Alias]; !ok {
		e.order = append(e.order, r.Alias)
	}
	e.rules[r.Alias] = r
}

// Get 按符号名获取规则
func (e *Engine) Get(alias string) (Rule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.rules[alias]
	return r, ok
}

// Eval 返回所有命中的规则，按首次注册顺序
func (e *Engine) Eval(ctx Ctx) []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []Rule
	for _, alias := range e.order {
		r := e.rules[alias]
		if Match(r, ctx) {
			out = append(out, r)
		}
	}
	return out
}

// Match 判断单条规则是否命中
func Match(r Rule, ctx Ctx) bool {
	if r.Method != "" && r.Method != "*" && !strings.EqualFold(r.Method, ctx.Method) {
		return false
	}
	return Glob(r.URLPattern, ctx.URL)
}

var globCache, _ = lru.New[string, *regexp.Regexp](256)

// Glob 以 minimatch 风格匹配 URL：** 可跨越 '/'，* 与 ? 不跨越。
// 不含协议的模式允许匹配任意前缀，因此 "**/api/**" 可匹配完整 URL，
// "/api/**" 匹配任意源下的该路径。
func Glob(pattern, s string) bool {
	if pattern == "" || pattern == "*" || pattern == "**" {
		return true
	}
	re, ok := globCache.Get(pattern)
	if !ok {
		re = regexp.MustCompile(compileGlob(pattern))
		globCache.Add(pattern, re)
	}
	if re.MatchString(s) {
		return true
	}
	// 忽略查询串再试一次
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return re.MatchString(s[:i])
	}
	return false
}

func compileGlob(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	switch {
	case strings.Contains(pattern, "://"), strings.HasPrefix(pattern, "**"):
	case strings.HasPrefix(pattern, "/"):
		// 以 '/' 开头的模式从路径开始匹配
		b.WriteString("(?:[A-Za-z][A-Za-z0-9+.-]*://[^/]+)?")
	default:
		b.WriteString("(?:.*/)?")
	}
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				i++
				// "**/" 也匹配零个目录
				if i+1 < len(pattern) && pattern[i+1] == '/' {
					i++
					b.WriteString("(?:.*/)?")
				} else {
					b.WriteString(".*")
				}
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return b.String()
}
