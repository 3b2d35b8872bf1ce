package cdp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mafredri/cdp/protocol/page"
)

type recorder struct {
	dir    string
	frames page.ScreencastFrameClient
	done   chan struct{}
	mu     sync.Mutex
	count  int
}

// StartRecording 以 JPEG 帧序列录制页面到 dir
func (p *Page) StartRecording(ctx context.Context, dir string) error {
	if p.rec != nil {
		return fmt.Errorf("recording already started")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	frames, err := p.client.Page.ScreencastFrame(p.ctx)
	if err != nil {
		return fmt.Errorf("subscribe screencast: %w", err)
	}
	args := page.NewStartScreencastArgs().SetFormat("jpeg").SetQuality(70).SetEveryNthFrame(1)
	if err := p.client.Page.StartScreencast(ctx, args); err != nil {
		frames.Close()
		return fmt.Errorf("start screencast: %w", err)
	}

	rec := &recorder{dir: dir, frames: frames, done: make(chan struct{})}
	p.rec = rec
	go p.consumeFrames(rec)
	p.log.Debug("开始录制", "dir", dir)
	return nil
}

func (p *Page) consumeFrames(rec *recorder) {
	defer close(rec.done)
	for {
		ev, err := rec.frames.Recv()
		if err != nil {
			return
		}
		rec.mu.Lock()
		rec.count++
		name := filepath.Join(rec.dir, fmt.Sprintf("frame-%05d.jpg", rec.count))
		rec.mu.Unlock()
		if err := os.WriteFile(name, ev.Data, 0o644); err != nil {
			p.log.Warn("写入视频帧失败", "file", name, "error", err)
		}
		// 未确认的帧会阻塞后续帧
		if err := p.client.Page.ScreencastFrameAck(p.ctx, page.NewScreencastFrameAckArgs(ev.SessionID)); err != nil {
			return
		}
	}
}

// StopRecording 停止录制
func (p *Page) StopRecording(ctx context.Context) error {
	rec := p.rec
	if rec == nil {
		return nil
	}
	p.rec = nil
	err := p.client.Page.StopScreencast(ctx)
	rec.frames.Close()
	<-rec.done
	rec.mu.Lock()
	n := rec.count
	rec.mu.Unlock()
	p.log.Debug("录制结束", "dir", rec.dir, "frames", n)
	return err
}
