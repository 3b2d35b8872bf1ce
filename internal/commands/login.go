package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"miniappe2e/internal/dom"
	"miniappe2e/internal/intercept"
	"miniappe2e/pkg/model"
)

// 登录流程使用的拦截名
const (
	AliasAuthRequest = "authRequest"
	AliasAPIRequest  = "apiRequest"
)

// APIPattern 应用接口地址
const APIPattern = "**/api/**"

// SignInPath 登录页路由
const SignInPath = "/sign-in"

// 登录表单的元素查询，选择器按优先级排列
var (
	LoginAffordance = dom.Contains("Login")
	AnyInput        = dom.CSS("input")
	UsernameField   = dom.CSS(
		`input[name="username"]`,
		`input[name="login"]`,
		`input[type="text"]`,
		`input[placeholder*="user" i]`,
		`input[placeholder*="login" i]`,
		`input[placeholder*="name" i]`,
		`input[data-test="username"]`,
		`input[data-testid="username"]`,
		`#username`,
		`#login`,
	)
	PasswordField = dom.CSS(
		`input[name="password"]`,
		`input[type="password"]`,
		`input[data-test="password"]`,
		`input[data-testid="password"]`,
		`#password`,
	)
	SubmitControl = dom.Matches(`^(Log in|Login|Sign in|Submit|Enter)$`, "i")
)

// LoginTimeouts 登录各步骤的等待上限
type LoginTimeouts struct {
	Affordance time.Duration // 登录入口可见
	Form       time.Duration // 表单输入框可见
	Submit     time.Duration // 提交按钮可见
	Auth       time.Duration // 认证往返完成
}

// DefaultLoginTimeouts 登录默认超时
var DefaultLoginTimeouts = LoginTimeouts{
	Affordance: 15 * time.Second,
	Form:       10 * time.Second,
	Submit:     5 * time.Second,
	Auth:       15 * time.Second,
}

func (t LoginTimeouts) withDefaults() LoginTimeouts {
	if t.Affordance <= 0 {
		t.Affordance = DefaultLoginTimeouts.Affordance
	}
	if t.Form <= 0 {
		t.Form = DefaultLoginTimeouts.Form
	}
	if t.Submit <= 0 {
		t.Submit = DefaultLoginTimeouts.Submit
	}
	if t.Auth <= 0 {
		t.Auth = DefaultLoginTimeouts.Auth
	}
	return t
}

// Login 通过界面登录，返回认证往返。
// 认证往返状态码不在 [200,300) 时立即失败，不再检查后续页面状态。
func (c *Commands) Login(ctx context.Context, creds model.Credentials) (model.Exchange, error) {
	t := c.cfg.Login

	c.net.Register("POST", APIPattern, AliasAuthRequest)
	c.net.Register("GET", APIPattern, AliasAPIRequest)

	if err := c.Visit(ctx, SignInPath); err != nil {
		return model.Exchange{}, fmt.Errorf("login: %w", err)
	}
	entry, err := c.Visible(ctx, LoginAffordance, t.Affordance)
	if err != nil {
		return model.Exchange{}, fmt.Errorf("login: %w", err)
	}
	if err := c.Click(ctx, entry); err != nil {
		return model.Exchange{}, fmt.Errorf("login: open form: %w", err)
	}
	if _, err := c.Visible(ctx, AnyInput, t.Form); err != nil {
		return model.Exchange{}, fmt.Errorf("login: %w", err)
	}

	if err := c.fill(ctx, UsernameField, creds.Username); err != nil {
		return model.Exchange{}, fmt.Errorf("login: username: %w", err)
	}
	if err := c.fill(ctx, PasswordField, creds.Password); err != nil {
		return model.Exchange{}, fmt.Errorf("login: password: %w", err)
	}

	submit, err := c.Visible(ctx, SubmitControl, t.Submit)
	if err != nil {
		return model.Exchange{}, fmt.Errorf("login: %w", err)
	}
	if err := c.Click(ctx, submit); err != nil {
		return model.Exchange{}, fmt.Errorf("login: submit: %w", err)
	}

	ex, err := c.net.Await(ctx, AliasAuthRequest, t.Auth)
	if err != nil {
		return model.Exchange{}, fmt.Errorf("login: %w", err)
	}
	if err := ExpectSuccess(AliasAuthRequest, ex); err != nil {
		return ex, fmt.Errorf("login: %w", err)
	}

	if _, err := c.ShouldURLNotContain(ctx, SignInPath, 0); err != nil {
		return ex, fmt.Errorf("login: %w", err)
	}
	return ex, nil
}

func (c *Commands) fill(ctx context.Context, q dom.Query, value string) error {
	el, err := c.Visible(ctx, q, 0)
	if err != nil {
		return err
	}
	if err := c.Clear(ctx, el); err != nil {
		return err
	}
	return c.Type(ctx, el, value)
}

// ExpectSuccess 断言往返状态码在 [200,300)
func ExpectSuccess(alias string, ex model.Exchange) error {
	if err := intercept.ExpectSuccess(ex); err != nil {
		actual := strconv.Itoa(ex.StatusCode)
		if ex.Error != "" {
			actual = ex.Error
		}
		return &AssertionError{Subject: "@" + alias + " status", Expected: "in [200,300)", Actual: actual, Err: err}
	}
	return nil
}
