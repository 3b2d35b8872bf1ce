package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"miniappe2e/internal/dom"

	cdpdom "github.com/mafredri/cdp/protocol/dom"
	"github.com/mafredri/cdp/protocol/input"
	"github.com/tidwall/gjson"
)

// Query 在页面内执行元素查询
func (p *Page) Query(ctx context.Context, q dom.Query) ([]dom.Element, error) {
	expr, err := q.Expression()
	if err != nil {
		return nil, err
	}
	res, err := p.Evaluate(ctx, expr)
	if err != nil {
		return nil, err
	}
	var out []dom.Element
	if !res.IsArray() {
		return out, nil
	}
	if err := json.Unmarshal([]byte(res.Raw), &out); err != nil {
		return nil, fmt.Errorf("decode query result: %w", err)
	}
	return out, nil
}

func (p *Page) onElement(ctx context.Context, el dom.Element, body string) error {
	_, err := p.Evaluate(ctx, dom.RefExpression(el.Ref, body))
	return err
}

// Click 点击元素
func (p *Page) Click(ctx context.Context, el dom.Element) error {
	return p.onElement(ctx, el, dom.ClickJS)
}

// Clear 清空输入框
func (p *Page) Clear(ctx context.Context, el dom.Element) error {
	return p.onElement(ctx, el, dom.ClearJS)
}

// Type 聚焦元素后逐字符输入，字符间隔 delay
func (p *Page) Type(ctx context.Context, el dom.Element, text string, delay time.Duration) error {
	if err := p.onElement(ctx, el, dom.FocusJS); err != nil {
		return err
	}
	for _, r := range text {
		if err := p.InsertText(ctx, string(r)); err != nil {
			return err
		}
		if delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil
}

// InsertText 向当前焦点元素插入文本
func (p *Page) InsertText(ctx context.Context, text string) error {
	return p.client.Input.InsertText(ctx, input.NewInsertTextArgs(text))
}

// SetFiles 为文件输入框设置文件，路径会被转换为绝对路径
func (p *Page) SetFiles(ctx context.Context, el dom.Element, files ...string) error {
	abs := make([]string, 0, len(files))
	for _, f := range files {
		a, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		abs = append(abs, a)
	}

	doc, err := p.client.DOM.GetDocument(ctx, cdpdom.NewGetDocumentArgs().SetDepth(0))
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	node, err := p.client.DOM.QuerySelector(ctx, cdpdom.NewQuerySelectorArgs(doc.Root.NodeID, el.RefSelector()))
	if err != nil {
		return fmt.Errorf("locate file input: %w", err)
	}
	if node.NodeID == 0 {
		return fmt.Errorf("file input %s detached", el.Ref)
	}
	args := cdpdom.NewSetFileInputFilesArgs(abs).SetNodeID(node.NodeID)
	if err := p.client.DOM.SetFileInputFiles(ctx, args); err != nil {
		return fmt.Errorf("set file input: %w", err)
	}
	return nil
}

// URL 当前页面地址
func (p *Page) URL(ctx context.Context) (string, error) {
	res, err := p.Evaluate(ctx, dom.LocationJS)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// BodyHTML 当前 body 的 HTML
func (p *Page) BodyHTML(ctx context.Context) (string, error) {
	res, err := p.Evaluate(ctx, dom.BodyHTMLJS)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// LocalStorage 当前源的 localStorage 快照
func (p *Page) LocalStorage(ctx context.Context) (map[string]string, error) {
	res, err := p.Evaluate(ctx, dom.LocalStorageJS)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	res.ForEach(func(k, v gjson.Result) bool {
		out[k.String()] = v.String()
		return true
	})
	return out, nil
}
