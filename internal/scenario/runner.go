package scenario

import (
	"context"
	"fmt"
	"time"

	"miniappe2e/internal/commands"
	"miniappe2e/internal/ctxkeys"
	"miniappe2e/internal/logger"
	"miniappe2e/internal/session"
	"miniappe2e/pkg/model"

	"github.com/google/uuid"
)

// Console 终端输出
type Console interface {
	Log(msg string)
	KV(m map[string]string)
	Status(name string, passed bool, d time.Duration, detail string)
}

// Sessions 隔离上下文的创建与销毁
type Sessions interface {
	Create(ctx context.Context) (*session.Session, error)
	Delete(id model.ContextID) error
}

// Ledger 执行结果持久化
type Ledger interface {
	SaveRun(ctx context.Context, report model.RunReport) error
}

// Config 运行参数
type Config struct {
	BaseURL             string
	Credentials         model.Credentials
	FixturesDir         string
	ArtifactsDir        string
	DefaultTimeout      time.Duration
	PollInterval        time.Duration
	TypeDelay           time.Duration
	PageLoad            time.Duration
	Login               commands.LoginTimeouts
	ScreenshotOnFailure bool
}

// Runner 顺序执行场景
type Runner struct {
	sessions Sessions
	cfg      Config
	console  Console
	ledger   Ledger
	log      logger.Logger
}

// NewRunner 创建场景执行器。ledger 为 nil 时不持久化。
func NewRunner(sessions Sessions, cfg Config, console Console, ledger Ledger, l logger.Logger) *Runner {
	if l == nil {
		l = logger.NewNop()
	}
	return &Runner{sessions: sessions, cfg: cfg, console: console, ledger: ledger, log: l}
}

// Run 依次执行场景，任一场景失败不影响后续场景
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) (model.RunReport, error) {
	report := model.RunReport{ID: uuid.NewString(), StartedAt: time.Now()}

	for _, sc := range scenarios {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := r.runOne(ctx, sc)
		report.Scenarios = append(report.Scenarios, res)
		if r.console != nil {
			r.console.Status(sc.Name, res.Status == model.StatusPassed, res.Duration, res.Error)
		}
	}
	report.FinishedAt = time.Now()

	if r.ledger != nil {
		if err := r.ledger.SaveRun(ctx, report); err != nil {
			r.log.Err(err, "写入执行账本失败", "runId", report.ID)
		}
	}
	return report, nil
}

func (r *Runner) runOne(ctx context.Context, sc Scenario) model.ScenarioResult {
	runID := model.RunID(commands.RunID(sc.Prefix))
	ctx = context.WithValue(ctx, ctxkeys.TraceIDKey{}, string(runID))
	ctx = context.WithValue(ctx, ctxkeys.ScenarioKey{}, sc.Name)
	l := r.log.With("scenario", sc.Name, "runId", string(runID))

	res := model.ScenarioResult{Name: sc.Name, RunID: runID}
	start := time.Now()

	sess, err := r.sessions.Create(ctx)
	if err != nil {
		res.Status = model.StatusFailed
		res.Error = fmt.Sprintf("create browser context: %v", err)
		res.Duration = time.Since(start)
		l.Err(err, "场景初始化失败")
		return res
	}
	defer func() {
		if err := r.sessions.Delete(sess.ID); err != nil {
			l.Warn("销毁浏览器上下文失败", "error", err)
		}
	}()

	cmd := commands.New(sess.Page, sess.Intercept, commands.Config{
		BaseURL:        r.cfg.BaseURL,
		Username:       r.cfg.Credentials.Username,
		FixturesDir:    r.cfg.FixturesDir,
		ArtifactsDir:   r.cfg.ArtifactsDir,
		DefaultTimeout: r.cfg.DefaultTimeout,
		PollInterval:   r.cfg.PollInterval,
		TypeDelay:      r.cfg.TypeDelay,
		PageLoad:       r.cfg.PageLoad,
		Login:          r.cfg.Login,
		Terminal:       r.console,
		Logger:         l,
	})
	env := &Env{
		Cmd:     cmd,
		Session: sess,
		Creds:   r.cfg.Credentials,
		RunID:   runID,
		Console: r.console,
		Log:     l,
	}

	l.Info("场景开始")
	err = sc.Run(ctx, env)
	res.Duration = time.Since(start)
	res.VideoDir = sess.VideoDir
	res.Exchanges = sess.Intercept.History()
	for _, exc := range sess.Exceptions() {
		cmd.LogTerminal("   (ignored) uncaught exception: " + exc)
	}

	if err == nil {
		res.Status = model.StatusPassed
		if n := len(env.Shots); n > 0 {
			res.Screenshot = env.Shots[n-1]
		}
		l.Info("场景通过", "duration", res.Duration.String())
		res.Journal = cmd.Journal()
		return res
	}

	res.Status = model.StatusFailed
	res.Error = err.Error()
	cmd.LogTerminal("FAILED: " + err.Error())
	l.Err(err, "场景失败", "duration", res.Duration.String(), "timeout", commands.IsTimeout(err))
	if r.cfg.ScreenshotOnFailure {
		// 失败截图不受场景上下文取消影响
		shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		path, serr := cmd.Screenshot(shotCtx, sc.Name+" (failed)")
		cancel()
		if serr != nil {
			l.Warn("失败截图保存失败", "error", serr)
		} else {
			res.Screenshot = path
		}
	}
	res.Journal = cmd.Journal()
	return res
}
