// Package scenario 定义端到端场景并按顺序执行它们。
//
// 每个场景运行在新的隔离浏览器上下文中，所有页面交互都经过命令库。
package scenario

import (
	"context"
	"fmt"
	"time"

	"miniappe2e/internal/commands"
	"miniappe2e/internal/logger"
	"miniappe2e/internal/session"
	"miniappe2e/pkg/model"
)

// Env 场景执行环境
type Env struct {
	Cmd     *commands.Commands
	Session *session.Session
	Creds   model.Credentials
	RunID   model.RunID
	Console Console
	Log     logger.Logger
	// Shots 场景内保存的诊断截图
	Shots []string
}

func (e *Env) say(format string, args ...any) {
	e.Cmd.LogTerminal(fmt.Sprintf(format, args...))
}

func (e *Env) screenshot(ctx context.Context, name string) error {
	e.say("   Taking screenshot: %s", name)
	path, err := e.Cmd.Screenshot(ctx, name)
	if err != nil {
		return fmt.Errorf("screenshot %s: %w", name, err)
	}
	e.Shots = append(e.Shots, path)
	return nil
}

// Scenario 一个线性场景
type Scenario struct {
	Name        string
	Prefix      string // 运行标识前缀
	Description string
	Run         func(ctx context.Context, env *Env) error
}

// 各步骤使用的等待上限
var (
	usernameTimeout = 10 * time.Second
	reloadTimeout   = 15 * time.Second
	uploadTimeout   = 30 * time.Second
	modalTimeout    = 10 * time.Second
)

// All 全部场景，按执行顺序
func All() []Scenario {
	return []Scenario{
		{Name: "login", Prefix: "login", Description: "Login via UI", Run: runLogin},
		{Name: "session-persistence", Prefix: "session", Description: "Session survives a full reload", Run: runSessionPersistence},
		{Name: "profile-navigation", Prefix: "profile", Description: "Navigate to profile settings and edit page", Run: runProfileNavigation},
		{Name: "avatar-upload", Prefix: "avatar", Description: "Upload avatar and verify persistence", Run: runAvatarUpload},
		{Name: "full-user-journey", Prefix: "journey", Description: "All four scenarios in one browser context", Run: runFullJourney},
	}
}

// Lookup 按名称选取场景，names 为空时返回全部
func Lookup(names ...string) ([]Scenario, error) {
	all := All()
	if len(names) == 0 {
		return all, nil
	}
	index := make(map[string]Scenario, len(all))
	for _, s := range all {
		index[s.Name] = s
	}
	out := make([]Scenario, 0, len(names))
	for _, n := range names {
		s, ok := index[n]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

func runLogin(ctx context.Context, env *Env) error {
	env.say("STARTING TEST 1: LOGIN VIA UI")
	env.say("Test Run ID: %s", env.RunID)
	return loginStep(ctx, env)
}

func runSessionPersistence(ctx context.Context, env *Env) error {
	env.say("STARTING TEST 2: SESSION PERSISTENCE")
	env.say("Test Run ID: %s", env.RunID)
	env.say("STEP 1: Logging in to the application")
	if _, err := env.Cmd.Login(ctx, env.Creds); err != nil {
		return err
	}
	if err := onDashboard(ctx, env); err != nil {
		return err
	}
	return sessionStep(ctx, env)
}

func runProfileNavigation(ctx context.Context, env *Env) error {
	env.say("STARTING TEST 3: PROFILE NAVIGATION")
	env.say("Test Run ID: %s", env.RunID)
	env.say("STEP 1: Logging in to the application")
	if _, err := env.Cmd.Login(ctx, env.Creds); err != nil {
		return err
	}
	if err := onDashboard(ctx, env); err != nil {
		return err
	}
	if _, err := profileSettingsStep(ctx, env); err != nil {
		return err
	}
	return profileEditStep(ctx, env)
}

func runAvatarUpload(ctx context.Context, env *Env) error {
	env.say("STARTING TEST 4: AVATAR UPLOAD")
	env.say("Test Run ID: %s", env.RunID)
	env.say("STEP 1: Logging in to the application")
	if _, err := env.Cmd.Login(ctx, env.Creds); err != nil {
		return err
	}
	if err := onDashboard(ctx, env); err != nil {
		return err
	}
	env.say("STEP 2: Navigating to Edit Profile page")
	if err := env.Cmd.NavigateToProfileEdit(ctx); err != nil {
		return err
	}
	_, err := avatarStep(ctx, env)
	return err
}

func runFullJourney(ctx context.Context, env *Env) error {
	env.say("STARTING TEST 1: LOGIN VIA UI")
	env.say("Test Run ID: %s", commands.RunID("login"))
	if err := loginStep(ctx, env); err != nil {
		return err
	}
	if err := env.screenshot(ctx, "01-successful-login-verification"); err != nil {
		return err
	}

	env.say("STARTING TEST 2: SESSION PERSISTENCE")
	env.say("Test Run ID: %s", commands.RunID("session"))
	if err := onDashboard(ctx, env); err != nil {
		return err
	}
	if err := sessionStep(ctx, env); err != nil {
		return err
	}
	if err := env.screenshot(ctx, "02-session-persistence-verification"); err != nil {
		return err
	}

	env.say("STARTING TEST 3: PROFILE NAVIGATION")
	env.say("Test Run ID: %s", commands.RunID("profile"))
	if err := onDashboard(ctx, env); err != nil {
		return err
	}
	if _, err := profileSettingsStep(ctx, env); err != nil {
		return err
	}
	if err := env.screenshot(ctx, "03-profile-data-loaded-verification"); err != nil {
		return err
	}
	if err := profileEditStep(ctx, env); err != nil {
		return err
	}

	env.say("STARTING TEST 4: AVATAR UPLOAD")
	env.say("Test Run ID: %s", commands.RunID("avatar"))
	if err := onDashboard(ctx, env); err != nil {
		return err
	}
	// 仍停留在上一段打开的资料编辑页
	env.say("STEP 2: Navigating to Edit Profile page")
	u, err := env.Cmd.ShouldURLContain(ctx, "edit-profile", 0)
	if err != nil {
		return err
	}
	env.say("   Current URL: %s", u)
	if _, err := avatarStep(ctx, env); err != nil {
		return err
	}
	if err := env.screenshot(ctx, "04-avatar-persisted-after-reload"); err != nil {
		return err
	}

	env.say("ALL 4 SCENARIOS COMPLETED SUCCESSFULLY")
	return nil
}
