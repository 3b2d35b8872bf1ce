package scenario

import (
	"context"
	"strings"

	"miniappe2e/internal/commands"
	"miniappe2e/internal/dom"
	"miniappe2e/internal/wait"
	"miniappe2e/pkg/model"

	"github.com/tidwall/gjson"
)

// 头像上传流程
const (
	AliasProfileData = "profileData"
	AliasUploadPost  = "uploadPostRequest"
	AliasUploadPut   = "uploadPutRequest"

	FileInput     = `input[type="file"]`
	AvatarFixture = "avatar.jpg"
)

// firstImage 页面上第一张图片，上传前后用它对比头像
var firstImage = dom.CSS("img")

// loginStep 登录并验证界面处于已登录状态
func loginStep(ctx context.Context, env *Env) error {
	env.say("STEP 1: Setting up request intercepts and signing in")
	env.say("   Username: %s", env.Creds.Username)
	env.say("   Password: ******")

	ex, err := env.Cmd.Login(ctx, env.Creds)
	logExchange(env, ex)
	if err != nil {
		return err
	}

	env.say("STEP 2: Verifying successful login in UI")
	if err := env.Cmd.Satisfy(ctx, "logged-in indicators", 0, loggedIn(env.Creds.Username, loginWords, loginSelectors)); err != nil {
		return err
	}
	env.say("   Logged-in state indicators found in UI")
	u, err := env.Cmd.ShouldURLContain(ctx, "/dashboard", 0)
	if err != nil {
		return err
	}
	env.say("   Redirected to dashboard: %s", u)
	if _, err := env.Cmd.Contains(ctx, env.Creds.Username, usernameTimeout); err != nil {
		return err
	}
	env.say("   Username %q visible on page", env.Creds.Username)
	return nil
}

// onDashboard 仍在 dashboard 且用户名可见
func onDashboard(ctx context.Context, env *Env) error {
	if _, err := env.Cmd.ShouldURLContain(ctx, "/dashboard", 0); err != nil {
		return err
	}
	if _, err := env.Cmd.Contains(ctx, env.Creds.Username, usernameTimeout); err != nil {
		return err
	}
	env.say("   Username %q visible on page", env.Creds.Username)
	return nil
}

// sessionStep 整页刷新后会话仍然有效，并转储 Cookie 与存储
func sessionStep(ctx context.Context, env *Env) error {
	env.say("STEP 2: Reloading the page")
	if err := env.Cmd.Reload(ctx); err != nil {
		return err
	}

	env.say("STEP 3: Verifying session persistence")
	if _, err := env.Cmd.Contains(ctx, env.Creds.Username, reloadTimeout); err != nil {
		return err
	}
	if _, err := env.Cmd.ShouldURLNotContain(ctx, "/sign-in", 0); err != nil {
		return err
	}
	u, err := env.Cmd.ShouldURLContain(ctx, "/dashboard", 0)
	if err != nil {
		return err
	}
	env.say("   Still on dashboard: %s", u)
	if err := env.Cmd.Satisfy(ctx, "logged-in indicators", reloadTimeout, loggedIn(env.Creds.Username, sessionWords, sessionSelectors)); err != nil {
		return err
	}

	env.say("STEP 4: Checking session tokens and storage")
	if err := dumpState(ctx, env); err != nil {
		return err
	}
	if _, err := env.Cmd.Contains(ctx, env.Creds.Username, usernameTimeout); err != nil {
		return err
	}
	env.say("   Username %q still visible on page", env.Creds.Username)
	return nil
}

// dumpState 记录 Cookie 与 localStorage，仅作诊断
func dumpState(ctx context.Context, env *Env) error {
	cookies, err := env.Cmd.Cookies(ctx)
	if err != nil {
		return err
	}
	env.say("   COOKIES (%d found):", len(cookies))
	if len(cookies) == 0 {
		env.say("      (no cookies set)")
	}
	for _, c := range cookies {
		env.say("      • %s: %s...", c.Name, clip(c.Value, 20))
	}

	store, err := env.Cmd.LocalStorage(ctx)
	if err != nil {
		return err
	}
	env.say("   LOCAL STORAGE (%d keys):", len(store))
	shown := make(map[string]string, len(store))
	for k, v := range store {
		if len(v) > 30 {
			v = clip(v, 30) + "..."
		}
		shown[k] = v
	}
	if env.Console != nil {
		env.Console.KV(shown)
	}
	if store["sk"] != "" {
		env.say("   Secret key (sk) present in localStorage")
	}
	return nil
}

// profileSettingsStep 进入设置页并确认资料与头像已加载
func profileSettingsStep(ctx context.Context, env *Env) (model.AvatarRef, error) {
	env.say("STEP 2: Setting up profile data intercept")
	env.Cmd.Intercepts().Register("GET", commands.APIPattern, AliasProfileData)

	env.say("STEP 3: Opening Settings page")
	if err := env.Cmd.NavigateToProfileSettings(ctx); err != nil {
		return model.AvatarRef{}, err
	}
	u, _ := env.Cmd.URL(ctx)
	env.say("   Navigated to settings page: %s", u)

	env.say("STEP 4: Verifying profile data is loaded")
	if err := env.Cmd.ShouldBodyContain(ctx, env.Creds.Username, 0); err != nil {
		return model.AvatarRef{}, err
	}
	avatar, err := env.Cmd.Visible(ctx, commands.AvatarImage, 0)
	if err != nil {
		return model.AvatarRef{}, err
	}
	src, _ := avatar.Attr("src")
	if src == "" {
		return model.AvatarRef{}, &commands.AssertionError{Subject: "avatar src", Expected: "not to be empty", Actual: `""`}
	}
	env.say("   Current avatar src: %s", src)
	return model.AvatarRef{Src: src}, nil
}

// profileEditStep 从设置页打开资料编辑页
func profileEditStep(ctx context.Context, env *Env) error {
	env.say("STEP 5: Opening Edit Profile page")
	if err := env.Cmd.OpenProfileEdit(ctx); err != nil {
		return err
	}
	u, _ := env.Cmd.URL(ctx)
	env.say("   Navigated to edit-profile page: %s", u)
	if err := env.Cmd.ShouldBodyContain(ctx, env.Creds.Username, 0); err != nil {
		return err
	}
	if _, err := env.Cmd.Contains(ctx, "Edit photo", modalTimeout); err != nil {
		return err
	}
	env.say("   \"Edit photo\" button visible")
	return nil
}

// avatarStep 上传头像，确认引用变化并在刷新后保持。返回上传后的头像引用。
func avatarStep(ctx context.Context, env *Env) (model.AvatarRef, error) {
	cmd := env.Cmd

	env.say("STEP 3: Storing original avatar for comparison")
	baseline, err := avatarRef(ctx, cmd)
	if err != nil {
		return model.AvatarRef{}, err
	}
	env.say("   Original avatar src: %s", baseline.Src)

	env.say("STEP 4: Setting up upload request intercepts")
	cmd.Intercepts().Register("POST", commands.APIPattern, AliasUploadPost)
	cmd.Intercepts().Register("PUT", commands.APIPattern, AliasUploadPut)

	env.say("STEP 5: Opening photo upload modal")
	edit, err := cmd.Contains(ctx, "Edit photo", modalTimeout)
	if err != nil {
		return model.AvatarRef{}, err
	}
	if err := cmd.Click(ctx, edit); err != nil {
		return model.AvatarRef{}, err
	}
	if _, err := cmd.Contains(ctx, "Crop photo", modalTimeout); err != nil {
		return model.AvatarRef{}, err
	}

	env.say("STEP 6: Uploading avatar image")
	if err := cmd.UploadFile(ctx, FileInput, AvatarFixture); err != nil {
		return model.AvatarRef{}, err
	}
	env.say("   File selected: %s", AvatarFixture)
	save, err := cmd.Enabled(ctx, dom.Contains("Save"), modalTimeout)
	if err != nil {
		return model.AvatarRef{}, err
	}

	env.say("STEP 7: Saving the avatar")
	if err := cmd.Click(ctx, save); err != nil {
		return model.AvatarRef{}, err
	}
	ex, err := cmd.Intercepts().Await(ctx, AliasUploadPut, uploadTimeout)
	if err != nil {
		return model.AvatarRef{}, err
	}
	logExchange(env, ex)
	if err := commands.ExpectSuccess(AliasUploadPut, ex); err != nil {
		return model.AvatarRef{}, err
	}
	env.say("   Upload successful (2xx response)")

	env.say("STEP 8: Verifying return to profile page")
	if _, err := cmd.Contains(ctx, "Edit profile", modalTimeout); err != nil {
		return model.AvatarRef{}, err
	}
	uploaded, err := waitAvatar(ctx, cmd, "to change after upload", func(ref model.AvatarRef) bool {
		return ref.Src != "" && ref.Src != baseline.Src
	})
	if err != nil {
		return model.AvatarRef{}, err
	}
	env.say("   New avatar src: %s", uploaded.Src)

	env.say("STEP 9: Verifying avatar persistence after reload")
	if err := cmd.Reload(ctx); err != nil {
		return model.AvatarRef{}, err
	}
	if _, err := cmd.Contains(ctx, env.Creds.Username, reloadTimeout); err != nil {
		return model.AvatarRef{}, err
	}
	u, err := cmd.ShouldURLContain(ctx, "dashboard", 0)
	if err != nil {
		return model.AvatarRef{}, err
	}
	env.say("   User still logged in after reload: %s", u)
	if _, err := waitAvatar(ctx, cmd, "to persist after reload", func(ref model.AvatarRef) bool {
		return ref.Src == uploaded.Src
	}); err != nil {
		return model.AvatarRef{}, err
	}
	env.say("   Avatar persisted after reload")

	body, err := cmd.BodyText(ctx)
	if err != nil {
		return model.AvatarRef{}, err
	}
	if strings.Contains(body, "Choose Avatar") || strings.Contains(body, "Remove") || strings.Contains(body, "Reset") {
		env.say("   Avatar reset option found")
	} else {
		env.say("   Avatar reset option not found, skipping optional reset step")
	}
	return uploaded, nil
}

func avatarRef(ctx context.Context, cmd *commands.Commands) (model.AvatarRef, error) {
	el, err := cmd.Get(ctx, firstImage, 0)
	if err != nil {
		return model.AvatarRef{}, err
	}
	src, _ := el.Attr("src")
	return model.AvatarRef{Src: src}, nil
}

// waitAvatar 等待第一张图片的引用满足 ok
func waitAvatar(ctx context.Context, cmd *commands.Commands, expected string, ok func(model.AvatarRef) bool) (model.AvatarRef, error) {
	var ref model.AvatarRef
	err := wait.Poll(ctx, "avatar "+expected, cmd.PollInterval(), cmd.DefaultTimeout(), func(ctx context.Context) (bool, error) {
		r, err := avatarRef(ctx, cmd)
		if err != nil {
			return false, err
		}
		ref = r
		if !ok(r) {
			return false, &commands.AssertionError{Subject: "avatar src", Expected: expected, Actual: r.Src}
		}
		return true, nil
	})
	return ref, err
}

// logExchange 记录往返概要；JSON 响应体只列出顶层字段
func logExchange(env *Env, ex model.Exchange) {
	if ex.RequestID == "" && ex.URL == "" {
		return
	}
	env.say("   Request intercepted: %s %s", ex.Method, ex.URL)
	if ex.Error != "" {
		env.say("   Network error: %s", ex.Error)
		return
	}
	env.say("   Response Status: %d", ex.StatusCode)
	if len(ex.Body) > 0 && gjson.ValidBytes(ex.Body) {
		res := gjson.ParseBytes(ex.Body)
		if res.IsObject() {
			var keys []string
			res.ForEach(func(k, _ gjson.Result) bool {
				keys = append(keys, k.String())
				return true
			})
			env.say("   Response fields: %s", strings.Join(keys, ", "))
		}
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
