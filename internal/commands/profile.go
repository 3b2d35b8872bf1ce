package commands

import (
	"context"
	"fmt"
	"time"

	"miniappe2e/internal/dom"
)

// AvatarImage 资料页头像
var AvatarImage = dom.CSS(`img[alt="avatar"]`)

// AvatarNearUsername 用户名文本祖先链内第一个可见图片。
// 依赖头像与用户名在 DOM 中相邻，页面结构调整后需要改为专用测试属性。
func AvatarNearUsername(username string) dom.Query {
	return dom.Contains(username).Ancestors().Within("img").OnlyVisible()
}

// EditButtonNearAvatar 头像祖父节点下的编辑按钮，同样依赖布局结构。
var EditButtonNearAvatar = AvatarImage.Up(2).Within(`[aria-label="mini-btn"]`)

// NavigateToProfileSettings 点击用户名附近的头像进入设置页
func (c *Commands) NavigateToProfileSettings(ctx context.Context) error {
	if _, err := c.Contains(ctx, c.cfg.Username, 10*time.Second); err != nil {
		return fmt.Errorf("profile settings: %w", err)
	}
	avatar, err := c.Get(ctx, AvatarNearUsername(c.cfg.Username), 0)
	if err != nil {
		return fmt.Errorf("profile settings: %w", err)
	}
	if err := c.Click(ctx, avatar); err != nil {
		return fmt.Errorf("profile settings: click avatar: %w", err)
	}
	if _, err := c.Contains(ctx, "Settings", 15*time.Second); err != nil {
		return fmt.Errorf("profile settings: %w", err)
	}
	if _, err := c.ShouldURLContain(ctx, "settings", 0); err != nil {
		return fmt.Errorf("profile settings: %w", err)
	}
	return nil
}

// OpenProfileEdit 在设置页点击头像旁的编辑按钮并等待编辑页
func (c *Commands) OpenProfileEdit(ctx context.Context) error {
	btn, err := c.Get(ctx, EditButtonNearAvatar, 0)
	if err != nil {
		return fmt.Errorf("profile edit: %w", err)
	}
	if err := c.Click(ctx, btn); err != nil {
		return fmt.Errorf("profile edit: click edit: %w", err)
	}
	if _, err := c.ShouldURLContain(ctx, "edit-profile", 10*time.Second); err != nil {
		return fmt.Errorf("profile edit: %w", err)
	}
	if _, err := c.Contains(ctx, "Edit profile", 10*time.Second); err != nil {
		return fmt.Errorf("profile edit: %w", err)
	}
	return nil
}

// NavigateToProfileEdit 进入设置页后打开资料编辑页
func (c *Commands) NavigateToProfileEdit(ctx context.Context) error {
	if err := c.NavigateToProfileSettings(ctx); err != nil {
		return err
	}
	return c.OpenProfileEdit(ctx)
}
