// Package dom 定义与浏览器无关的元素查询描述，以及在页面内求值的查询脚本。
package dom

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Query 元素查询。解析顺序：
//  1. 锚点：Selectors 按优先级依次尝试，取第一个有结果的选择器；或 Text/Pattern 文本匹配
//  2. Parents：-1 取全部祖先，n>0 上溯 n 层
//  3. Find：在上一步结果内查找后代
//  4. Visible：只保留可见元素
type Query struct {
	Selectors []string `json:"selectors,omitempty"`
	Text      string   `json:"text,omitempty"`
	Pattern   string   `json:"pattern,omitempty"` // JavaScript 正则源
	Flags     string   `json:"flags,omitempty"`
	Parents   int      `json:"parents,omitempty"`
	Find      string   `json:"find,omitempty"`
	Visible   bool     `json:"visible,omitempty"`
}

// CSS 按优先级排列的选择器查询
func CSS(selectors ...string) Query { return Query{Selectors: selectors} }

// Contains 包含指定文本的最深层元素
func Contains(text string) Query { return Query{Text: text} }

// Matches 文本整体匹配正则的最深层元素
func Matches(pattern, flags string) Query { return Query{Pattern: pattern, Flags: flags} }

// Ancestors 取全部祖先
func (q Query) Ancestors() Query { q.Parents = -1; return q }

// Up 上溯 n 层父元素
func (q Query) Up(n int) Query { q.Parents = n; return q }

// Within 在当前结果内查找后代
func (q Query) Within(selector string) Query { q.Find = selector; return q }

// OnlyVisible 只保留可见元素
func (q Query) OnlyVisible() Query { q.Visible = true; return q }

// String 便于日志与超时信息阅读
func (q Query) String() string {
	var parts []string
	switch {
	case len(q.Selectors) > 0:
		parts = append(parts, "get("+strings.Join(q.Selectors, " | ")+")")
	case q.Pattern != "":
		parts = append(parts, fmt.Sprintf("contains(/%s/%s)", q.Pattern, q.Flags))
	default:
		parts = append(parts, fmt.Sprintf("contains(%q)", q.Text))
	}
	switch {
	case q.Parents < 0:
		parts = append(parts, "parents()")
	case q.Parents > 0:
		parts = append(parts, fmt.Sprintf("parent()x%d", q.Parents))
	}
	if q.Find != "" {
		parts = append(parts, "find("+q.Find+")")
	}
	if q.Visible {
		parts = append(parts, "filter(:visible)")
	}
	return strings.Join(parts, ".")
}

// Element 查询结果快照
type Element struct {
	Ref      string            `json:"ref"` // 页面内标记，后续操作通过 RefSelector 定位
	Tag      string            `json:"tag"`
	Text     string            `json:"text"`
	Visible  bool              `json:"visible"`
	Disabled bool              `json:"disabled"`
	Attrs    map[string]string `json:"attrs,omitempty"`
}

// RefAttr 页面内元素标记属性
const RefAttr = "data-e2e-ref"

// RefSelector 返回定位该元素的 CSS 选择器
func (e Element) RefSelector() string {
	return fmt.Sprintf("[%s=%q]", RefAttr, e.Ref)
}

// Attr 读取属性
func (e Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// Expression 生成在页面内执行查询的表达式，结果为 Element 数组
func (q Query) Expression() (string, error) {
	arg, err := json.Marshal(q)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s)(%s)", queryJS, arg), nil
}

// RefExpression 生成对单个已标记元素执行 body 的表达式，body 中以 el 引用元素。
// 元素不存在时表达式抛出异常。
func RefExpression(ref, body string) string {
	sel, _ := json.Marshal(Element{Ref: ref}.RefSelector())
	return fmt.Sprintf(`(function(){ var el = document.querySelector(%s); if (!el) { throw new Error('detached element %s'); } %s })()`, sel, ref, body)
}
