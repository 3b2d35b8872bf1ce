package cdp

import (
	"time"

	"miniappe2e/pkg/traffic"

	"github.com/mafredri/cdp/protocol/network"
	"github.com/tidwall/gjson"
)

// ToNeutralRequest 将 requestWillBeSent 事件转换为中立 Request 模型
func ToNeutralRequest(ev *network.RequestWillBeSentReply) *traffic.Request {
	req := traffic.NewRequest()
	req.ID = string(ev.RequestID)
	req.URL = ev.Request.URL
	req.Method = ev.Request.Method
	req.ResourceType = string(ev.Type)
	req.SentAt = time.Now()
	ToHeader(ev.Request.Headers, req.Headers)

	if ev.Request.PostData != nil {
		req.Body = []byte(*ev.Request.PostData)
	}

	return req
}

// ToNeutralResponse 将 CDP 响应元数据转换为中立 Response 模型
func ToNeutralResponse(r network.Response) *traffic.Response {
	res := traffic.NewResponse()
	res.StatusCode = r.Status
	res.StatusText = r.StatusText
	res.MimeType = r.MimeType
	ToHeader(r.Headers, res.Headers)
	return res
}

// ToHeader 将 CDP Headers（JSON 对象）写入中立 Header
func ToHeader(raw network.Headers, dst traffic.Header) {
	if len(raw) == 0 {
		return
	}
	gjson.ParseBytes(raw).ForEach(func(k, v gjson.Result) bool {
		dst.Set(k.String(), v.String())
		return true
	})
}
