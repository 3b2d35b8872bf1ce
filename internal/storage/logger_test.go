package storage

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"miniappe2e/internal/ctxkeys"
	logger2 "miniappe2e/internal/logger"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestGormLoggerTrace(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(logger2.NewWriter(&buf, zerolog.DebugLevel))
	ctx := context.WithValue(context.Background(), ctxkeys.TraceIDKey{}, "login-1-abc123")
	ctx = context.WithValue(ctx, ctxkeys.ScenarioKey{}, "login")
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), sql, nil)
	assert.Empty(t, buf.String())

	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "账本慢查询")
	assert.Contains(t, buf.String(), `"runId":"login-1-abc123"`)
	assert.Contains(t, buf.String(), `"scenario":"login"`)

	buf.Reset()
	l.Trace(ctx, time.Now(), sql, errors.New("disk I/O error"))
	assert.Contains(t, buf.String(), "账本SQL执行错误")

	buf.Reset()
	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	assert.NotContains(t, buf.String(), "账本SQL执行错误")

	buf.Reset()
	l.LogMode(logger.Silent).Trace(ctx, time.Now().Add(-time.Second), sql, errors.New("x"))
	assert.Empty(t, buf.String())
}
