package service

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"miniappe2e/internal/config"
	"miniappe2e/internal/storage"
	"miniappe2e/internal/terminal"
	"miniappe2e/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *config.Config) {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Sqlite.Dsn = filepath.Join(t.TempDir(), "ledger.sqlite3")
	var out bytes.Buffer
	s := New(cfg, nil, terminal.New(nil, terminal.WithWriter(&out), terminal.WithColor(false)))
	t.Cleanup(func() { _ = s.Close() })
	return s, cfg
}

func TestListScenarios(t *testing.T) {
	s, _ := newService(t)
	list := s.ListScenarios()
	require.Len(t, list, 5)
	assert.Equal(t, "login", list[0].Name)
	assert.Equal(t, "full-user-journey", list[4].Name)
	for _, sc := range list {
		assert.NotEmpty(t, sc.Description, sc.Name)
	}
}

func TestRunRejectsUnknownScenario(t *testing.T) {
	s, cfg := newService(t)
	// 未知场景在启动浏览器之前失败
	cfg.Browser.DevToolsURL = "http://127.0.0.1:1"

	_, err := s.Run(context.Background(), []string{"login", "checkout"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown scenario "checkout"`)
}

func TestHistoryReadsLedger(t *testing.T) {
	s, cfg := newService(t)
	ctx := context.Background()

	st, err := storage.Open(cfg.Sqlite.Dsn, cfg.Sqlite.Prefix, nil)
	require.NoError(t, err)
	started := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.SaveRun(ctx, model.RunReport{
		ID:         "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Scenarios: []model.ScenarioResult{
			{Name: "login", Status: model.StatusPassed},
			{Name: "avatar-upload", Status: model.StatusFailed, Error: "boom"},
		},
	}))
	require.NoError(t, st.Close())

	runs, err := s.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, 2, runs[0].Total)
	assert.Equal(t, 1, runs[0].Failed)
}

func TestHistoryWithoutDsn(t *testing.T) {
	s, cfg := newService(t)
	cfg.Sqlite.Dsn = ""
	_, err := s.History(context.Background(), 10)
	assert.Error(t, err)
}

func TestRunnerConfigFromConfig(t *testing.T) {
	s, cfg := newService(t)
	cfg.Timeouts.Response = 7 * time.Second
	cfg.Timeouts.Request = 9 * time.Second

	rc := s.runnerConfig()
	assert.Equal(t, 7*time.Second, rc.Login.Auth)
	assert.Equal(t, 15*time.Second, rc.Login.Affordance)
	assert.Equal(t, 9*time.Second, rc.PageLoad)
	assert.Equal(t, cfg.Credentials, rc.Credentials)
	assert.True(t, rc.ScreenshotOnFailure)

	opts := s.sessionOptions()
	assert.Equal(t, filepath.Join(cfg.ArtifactsDir, "videos"), opts.VideoDir)
	assert.Equal(t, "sk", opts.SecretKey)

	cfg.Video = false
	assert.Empty(t, s.sessionOptions().VideoDir)
}
