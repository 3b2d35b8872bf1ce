package api

import (
	"context"

	"miniappe2e/internal/config"
	"miniappe2e/internal/logger"
	"miniappe2e/internal/service"
	"miniappe2e/internal/terminal"
	"miniappe2e/pkg/model"
)

// Service 服务接口
type Service interface {
	// ListScenarios 列出可执行的场景
	ListScenarios() []model.ScenarioInfo

	// Run 执行场景，names 为空时执行全部
	Run(ctx context.Context, names []string) (model.RunReport, error)

	// History 最近的执行记录
	History(ctx context.Context, limit int) ([]model.RunSummary, error)

	// Close 释放资源
	Close() error
}

// NewService 创建并返回服务接口实现
func NewService(cfg *config.Config, l logger.Logger, term *terminal.Terminal) Service {
	return service.New(cfg, l, term)
}
