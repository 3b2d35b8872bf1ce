package storage

import "time"

// RunRecord 一次套件执行
type RunRecord struct {
	ID         string `gorm:"primaryKey;size:64"`
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Failed     int

	Scenarios []ScenarioRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// ScenarioRecord 单个场景的结果
type ScenarioRecord struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"index;size:64"`
	Name       string `gorm:"size:64"`
	Label      string `gorm:"size:96"` // 场景运行标识，如 login-<id>
	Status     string `gorm:"size:16"`
	Error      string
	DurationMs int64
	Screenshot string
	VideoDir   string
	CreatedAt  time.Time

	Commands  []CommandRecord  `gorm:"foreignKey:ScenarioID;constraint:OnDelete:CASCADE"`
	Exchanges []ExchangeRecord `gorm:"foreignKey:ScenarioID;constraint:OnDelete:CASCADE"`
}

// CommandRecord 命令日志行
type CommandRecord struct {
	ID         uint `gorm:"primaryKey"`
	ScenarioID uint `gorm:"index"`
	Seq        int
	Message    string
}

// ExchangeRecord 场景内捕获的网络往返
type ExchangeRecord struct {
	ID         uint   `gorm:"primaryKey"`
	ScenarioID uint   `gorm:"index"`
	Alias      string `gorm:"size:64"`
	Method     string `gorm:"size:16"`
	URL        string
	StatusCode int
	Error      string
	Headers    string // JSON
	CapturedAt time.Time
}
