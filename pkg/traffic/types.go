package traffic

import (
	"strings"
	"time"
)

// Header 键统一为小写的头部集合
type Header map[string]string

// Get 获取指定 Header 的值（大小写不敏感）
func (h Header) Get(key string) string {
	if h == nil {
		return ""
	}
	return h[strings.ToLower(key)]
}

// Set 设置指定 Header 的值（自动转换为小写）
func (h Header) Set(key, value string) {
	h[strings.ToLower(key)] = value
}

// Clone 复制为普通 map，空集合返回 nil
func (h Header) Clone() map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Request 由 requestWillBeSent 事件转换而来的请求
type Request struct {
	ID           string // 浏览器分配的请求ID，重定向链共用
	URL          string
	Method       string
	Headers      Header
	Body         []byte // 仅在事件携带 postData 时非空
	ResourceType string // Document, XHR, Fetch, Image ...
	SentAt       time.Time
}

// Response 响应元数据，响应体在加载完成后按需填充
type Response struct {
	StatusCode int
	StatusText string
	MimeType   string
	Headers    Header
	Body       []byte
}

// Textual 响应体是否为文本类内容，图片等二进制资源不拉取响应体
func (r *Response) Textual() bool {
	mt := strings.ToLower(r.MimeType)
	if mt == "" {
		return true
	}
	for _, s := range []string{"json", "text/", "javascript", "xml", "x-www-form-urlencoded"} {
		if strings.Contains(mt, s) {
			return true
		}
	}
	return false
}

// NewRequest 创建初始化请求对象
func NewRequest() *Request {
	return &Request{Headers: make(Header)}
}

// NewResponse 创建初始化响应对象
func NewResponse() *Response {
	return &Response{Headers: make(Header)}
}
