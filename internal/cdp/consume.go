package cdp

import (
	"context"
	"encoding/base64"
	"fmt"

	cdpadapter "miniappe2e/internal/adapter/cdp"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/protocol/network"
)

type networkStreams struct {
	sent     network.RequestWillBeSentClient
	received network.ResponseReceivedClient
	finished network.LoadingFinishedClient
	failed   network.LoadingFailedClient
}

func (s *networkStreams) close() {
	for _, c := range []interface{ Close() error }{s.sent, s.received, s.finished, s.failed} {
		if c != nil {
			_ = c.Close()
		}
	}
}

// openNetworkStreams 订阅网络事件并同步，保证按浏览器发出的顺序消费
func (p *Page) openNetworkStreams() (*networkStreams, error) {
	s := &networkStreams{}
	var err error
	if s.sent, err = p.client.Network.RequestWillBeSent(p.ctx); err != nil {
		return nil, fmt.Errorf("subscribe requestWillBeSent: %w", err)
	}
	if s.received, err = p.client.Network.ResponseReceived(p.ctx); err != nil {
		s.close()
		return nil, fmt.Errorf("subscribe responseReceived: %w", err)
	}
	if s.finished, err = p.client.Network.LoadingFinished(p.ctx); err != nil {
		s.close()
		return nil, fmt.Errorf("subscribe loadingFinished: %w", err)
	}
	if s.failed, err = p.client.Network.LoadingFailed(p.ctx); err != nil {
		s.close()
		return nil, fmt.Errorf("subscribe loadingFailed: %w", err)
	}
	if err := cdp.Sync(s.sent, s.received, s.finished, s.failed); err != nil {
		s.close()
		return nil, fmt.Errorf("sync network streams: %w", err)
	}
	return s, nil
}

// consumeNetwork 将网络事件送入关联器，直到页面关闭
func (p *Page) consumeNetwork(s *networkStreams) {
	defer p.wg.Done()
	defer s.close()

	for {
		select {
		case <-p.ctx.Done():
			return

		case <-s.sent.Ready():
			ev, err := s.sent.Recv()
			if err != nil {
				p.streamEnded("requestWillBeSent", err)
				return
			}
			var redirect = ev.RedirectResponse
			req := cdpadapter.ToNeutralRequest(ev)
			if redirect != nil {
				p.handler.HandleRequest(req, cdpadapter.ToNeutralResponse(*redirect))
			} else {
				p.handler.HandleRequest(req, nil)
			}

		case <-s.received.Ready():
			ev, err := s.received.Recv()
			if err != nil {
				p.streamEnded("responseReceived", err)
				return
			}
			p.handler.HandleResponse(string(ev.RequestID), cdpadapter.ToNeutralResponse(ev.Response))

		case <-s.finished.Ready():
			ev, err := s.finished.Recv()
			if err != nil {
				p.streamEnded("loadingFinished", err)
				return
			}
			p.handler.HandleFinished(p.ctx, string(ev.RequestID))

		case <-s.failed.Ready():
			ev, err := s.failed.Recv()
			if err != nil {
				p.streamEnded("loadingFailed", err)
				return
			}
			p.handler.HandleFailed(string(ev.RequestID), ev.ErrorText)
		}
	}
}

func (p *Page) streamEnded(name string, err error) {
	if p.ctx.Err() != nil {
		return
	}
	p.log.Debug("网络事件流结束", "stream", name, "error", err)
}

// responseBody 拉取响应体，base64 编码的二进制内容会被解码
func (p *Page) responseBody(ctx context.Context, requestID string) ([]byte, error) {
	reply, err := p.client.Network.GetResponseBody(ctx, network.NewGetResponseBodyArgs(network.RequestID(requestID)))
	if err != nil {
		return nil, err
	}
	if reply.Base64Encoded {
		return base64.StdEncoding.DecodeString(reply.Body)
	}
	return []byte(reply.Body), nil
}
