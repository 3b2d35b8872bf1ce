package cdp

import (
	"testing"

	"github.com/mafredri/cdp/protocol/network"
	"github.com/stretchr/testify/assert"
)

func TestToNeutralRequest(t *testing.T) {
	body := `{"username":"Ochko228"}`
	ev := &network.RequestWillBeSentReply{
		RequestID: "42.1",
		Request: network.Request{
			URL:      "https://fufelka.ru/api/auth/login?Next=%2Fdashboard",
			Method:   "POST",
			Headers:  network.Headers(`{"Content-Type":"application/json","Cookie":"sid=abc; Theme=dark"}`),
			PostData: &body,
		},
		Type: network.ResourceType("Fetch"),
	}

	req := ToNeutralRequest(ev)
	assert.Equal(t, "42.1", req.ID)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "application/json", req.Headers.Get("content-type"))
	assert.Equal(t, "sid=abc; Theme=dark", req.Headers.Get("cookie"))
	assert.Equal(t, "Fetch", req.ResourceType)
	assert.Equal(t, body, string(req.Body))
	assert.False(t, req.SentAt.IsZero())
}

func TestToNeutralResponse(t *testing.T) {
	res := ToNeutralResponse(network.Response{
		URL:        "https://fufelka.ru/api/auth/login",
		Status:     204,
		StatusText: "No Content",
		MimeType:   "application/json",
		Headers:    network.Headers(`{"X-Request-Id":"r1"}`),
	})
	assert.Equal(t, 204, res.StatusCode)
	assert.Equal(t, "No Content", res.StatusText)
	assert.Equal(t, "r1", res.Headers.Get("x-request-id"))
	assert.True(t, res.Textual())
}

func TestTextual(t *testing.T) {
	for mt, want := range map[string]bool{
		"application/json":         true,
		"text/html; charset=utf-8": true,
		"":                         true,
		"image/jpeg":               false,
		"font/woff2":               false,
	} {
		res := ToNeutralResponse(network.Response{Status: 200, MimeType: mt})
		assert.Equal(t, want, res.Textual(), mt)
	}
}

func TestToHeaderEmpty(t *testing.T) {
	res := ToNeutralResponse(network.Response{Status: 200})
	assert.Empty(t, res.Headers)
}
