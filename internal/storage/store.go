// Package storage 把执行结果持久化到 sqlite 账本。
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"miniappe2e/internal/logger"
	"miniappe2e/pkg/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Store 运行账本
type Store struct {
	db  *gorm.DB
	log logger.Logger
}

// Open 打开 sqlite 账本并迁移表结构。dsn 为 ":memory:" 时使用内存库。
func Open(dsn, prefix string, l logger.Logger) (*Store, error) {
	if l == nil {
		l = logger.NewNop()
	}
	if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         NewGormLogger(l),
		NamingStrategy: schema.NamingStrategy{TablePrefix: prefix},
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", dsn, err)
	}
	if dsn == ":memory:" {
		// 内存库每个连接独立
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	if err := db.AutoMigrate(&RunRecord{}, &ScenarioRecord{}, &CommandRecord{}, &ExchangeRecord{}); err != nil {
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &Store{db: db, log: l}, nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRun 保存一次执行及其全部场景、命令日志与网络往返
func (s *Store) SaveRun(ctx context.Context, report model.RunReport) error {
	run := RunRecord{
		ID:         report.ID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Total:      len(report.Scenarios),
	}
	for _, sc := range report.Scenarios {
		if sc.Status != model.StatusPassed {
			run.Failed++
		}
		rec := ScenarioRecord{
			RunID:      report.ID,
			Name:       sc.Name,
			Label:      string(sc.RunID),
			Status:     string(sc.Status),
			Error:      sc.Error,
			DurationMs: sc.Duration.Milliseconds(),
			Screenshot: sc.Screenshot,
			VideoDir:   sc.VideoDir,
		}
		for i, line := range sc.Journal {
			rec.Commands = append(rec.Commands, CommandRecord{Seq: i, Message: line})
		}
		for _, ex := range sc.Exchanges {
			headers, _ := json.Marshal(ex.Headers)
			rec.Exchanges = append(rec.Exchanges, ExchangeRecord{
				Alias:      ex.Alias,
				Method:     ex.Method,
				URL:        ex.URL,
				StatusCode: ex.StatusCode,
				Error:      ex.Error,
				Headers:    string(headers),
				CapturedAt: ex.CapturedAt,
			})
		}
		run.Scenarios = append(run.Scenarios, rec)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&run).Error
	})
	if err != nil {
		return fmt.Errorf("save run %s: %w", report.ID, err)
	}
	s.log.Debug("执行结果已写入账本", "runId", report.ID, "scenarios", run.Total)
	return nil
}

// History 最近的执行记录，新的在前
func (s *Store) History(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []RunRecord
	err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	out := make([]model.RunSummary, 0, len(runs))
	for _, r := range runs {
		out = append(out, model.RunSummary{
			ID:         r.ID,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
			Total:      r.Total,
			Failed:     r.Failed,
		})
	}
	return out, nil
}

// Scenarios 某次执行的场景记录，包含命令日志与网络往返
func (s *Store) Scenarios(ctx context.Context, runID string) ([]ScenarioRecord, error) {
	var recs []ScenarioRecord
	err := s.db.WithContext(ctx).
		Preload("Commands", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Preload("Exchanges").
		Where("run_id = ?", runID).
		Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	return recs, nil
}
