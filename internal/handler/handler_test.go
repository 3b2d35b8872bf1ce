package handler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miniappe2e/pkg/model"
	"miniappe2e/pkg/traffic"
)

type fakeSink struct {
	mu   sync.Mutex
	got  []model.Exchange
	want string
}

func (s *fakeSink) Wants(method, url string) bool {
	return strings.Contains(url, s.want)
}

func (s *fakeSink) Observe(ex model.Exchange) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, ex)
	if strings.Contains(ex.URL, s.want) {
		return []string{"apiRequest"}
	}
	return nil
}

func request(id, method, url string) *traffic.Request {
	r := traffic.NewRequest()
	r.ID, r.Method, r.URL = id, method, url
	return r
}

func response(code int) *traffic.Response {
	r := traffic.NewResponse()
	r.StatusCode = code
	return r
}

func TestRequestResponseFinishedProducesExchange(t *testing.T) {
	sink := &fakeSink{want: "/api/"}
	fetched := 0
	h := New(Config{
		Sink: sink,
		FetchBody: func(ctx context.Context, id string) ([]byte, error) {
			fetched++
			return []byte(`{"ok":true}`), nil
		},
	})

	h.HandleRequest(request("1", "POST", "https://x/api/login"), nil)
	h.HandleResponse("1", response(200))
	assert.Equal(t, 1, h.Pending())
	h.HandleFinished(context.Background(), "1")

	require.Len(t, sink.got, 1)
	ex := sink.got[0]
	assert.Equal(t, "POST", ex.Method)
	assert.Equal(t, 200, ex.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(ex.Body))
	assert.Equal(t, 1, fetched)
	assert.Equal(t, 0, h.Pending())
}

func TestBodyNotFetchedWhenUnwanted(t *testing.T) {
	sink := &fakeSink{want: "/api/"}
	h := New(Config{
		Sink: sink,
		FetchBody: func(ctx context.Context, id string) ([]byte, error) {
			t.Fatal("unexpected body fetch")
			return nil, nil
		},
	})
	h.HandleRequest(request("2", "GET", "https://x/static/app.js"), nil)
	h.HandleResponse("2", response(200))
	h.HandleFinished(context.Background(), "2")
	require.Len(t, sink.got, 1)
	assert.Nil(t, sink.got[0].Body)
}

func TestBinaryBodyNotFetched(t *testing.T) {
	sink := &fakeSink{want: "/api/"}
	h := New(Config{
		Sink: sink,
		FetchBody: func(ctx context.Context, id string) ([]byte, error) {
			t.Fatal("unexpected body fetch")
			return nil, nil
		},
	})
	res := response(200)
	res.MimeType = "image/jpeg"
	res.Headers.Set("Content-Type", "image/jpeg")
	h.HandleRequest(request("5", "GET", "https://x/api/avatar/1.jpg"), nil)
	h.HandleResponse("5", res)
	h.HandleFinished(context.Background(), "5")
	require.Len(t, sink.got, 1)
	assert.Nil(t, sink.got[0].Body)
	assert.Equal(t, map[string]string{"content-type": "image/jpeg"}, sink.got[0].Headers)
}

func TestBodyLimitAndFetchError(t *testing.T) {
	sink := &fakeSink{want: "/api/"}
	h := New(Config{
		Sink:      sink,
		BodyLimit: 4,
		FetchBody: func(ctx context.Context, id string) ([]byte, error) {
			if id == "err" {
				return nil, errors.New("No resource with given identifier found")
			}
			return []byte("too large"), nil
		},
	})
	h.HandleRequest(request("big", "GET", "https://x/api/a"), nil)
	h.HandleResponse("big", response(200))
	h.HandleFinished(context.Background(), "big")

	h.HandleRequest(request("err", "GET", "https://x/api/b"), nil)
	h.HandleResponse("err", response(200))
	h.HandleFinished(context.Background(), "err")

	require.Len(t, sink.got, 2)
	assert.Nil(t, sink.got[0].Body)
	assert.Equal(t, 200, sink.got[1].StatusCode)
}

func TestFailedRequestCarriesError(t *testing.T) {
	sink := &fakeSink{want: "/api/"}
	h := New(Config{Sink: sink})
	h.HandleRequest(request("3", "PUT", "https://x/api/avatar"), nil)
	h.HandleFailed("3", "net::ERR_CONNECTION_RESET")

	require.Len(t, sink.got, 1)
	assert.Equal(t, 0, sink.got[0].StatusCode)
	assert.Equal(t, "net::ERR_CONNECTION_RESET", sink.got[0].Error)
	assert.False(t, sink.got[0].Succeeded())
}

func TestRedirectCompletesPreviousHop(t *testing.T) {
	sink := &fakeSink{want: "/api/"}
	h := New(Config{Sink: sink})
	h.HandleRequest(request("4", "GET", "https://x/api/old"), nil)
	h.HandleRequest(request("4", "GET", "https://x/api/new"), response(302))
	h.HandleResponse("4", response(200))
	h.HandleFinished(context.Background(), "4")

	require.Len(t, sink.got, 2)
	assert.Equal(t, "https://x/api/old", sink.got[0].URL)
	assert.Equal(t, 302, sink.got[0].StatusCode)
	assert.Equal(t, "https://x/api/new", sink.got[1].URL)
	assert.Equal(t, 200, sink.got[1].StatusCode)
}

func TestUnknownRequestIgnored(t *testing.T) {
	sink := &fakeSink{}
	h := New(Config{Sink: sink})
	h.HandleResponse("nope", response(200))
	h.HandleFinished(context.Background(), "nope")
	h.HandleFailed("nope", "x")
	assert.Empty(t, sink.got)
}
