package bridge

import (
	"context"
	"fmt"
)

// Installer 能够注册"新文档前执行"脚本的页面
type Installer interface {
	AddInitScript(ctx context.Context, source string) error
}

// Install 把宿主桥安装到页面。必须在首次导航前调用，否则返回 ErrLateBootstrap。
func Install(ctx context.Context, page Installer, b *HostBridge) error {
	src, err := b.Script()
	if err != nil {
		return fmt.Errorf("render host bridge: %w", err)
	}
	if err := page.AddInitScript(ctx, src); err != nil {
		return fmt.Errorf("install host bridge: %w", err)
	}
	return nil
}
