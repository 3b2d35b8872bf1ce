package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 键值对风格的结构化日志接口
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	// Err 记录带错误对象的错误日志
	Err(err error, msg string, kv ...any)
	// With 返回携带固定字段的子日志器
	With(kv ...any) Logger
}

// Options 日志构造参数
type Options struct {
	Level   string
	Writers []string // console, file
	File    string
	Console io.Writer
}

type zlog struct {
	z zerolog.Logger
}

// New 基于 zerolog 创建日志器，file 输出通过 lumberjack 滚动
func New(opts Options) Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		lvl = zerolog.InfoLevel
	}

	var writers []io.Writer
	for _, w := range opts.Writers {
		switch w {
		case "console":
			out := opts.Console
			if out == nil {
				out = os.Stderr
			}
			writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly})
		case "file":
			name := opts.File
			if name == "" {
				name = filepath.Join("logs", "miniappe2e.log")
			}
			writers = append(writers, &lumberjack.Logger{
				Filename:   name,
				MaxSize:    20,
				MaxBackups: 5,
				MaxAge:     14,
			})
		}
	}
	if len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}

	z := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(lvl).With().Timestamp().Logger()
	return &zlog{z: z}
}

// NewNop 创建丢弃所有输出的日志器
func NewNop() Logger {
	return &zlog{z: zerolog.Nop()}
}

// NewWriter 创建输出到指定 writer 的 JSON 日志器，主要用于测试
func NewWriter(w io.Writer, level zerolog.Level) Logger {
	return &zlog{z: zerolog.New(w).Level(level)}
}

func (l *zlog) Debug(msg string, kv ...any) { l.emit(l.z.Debug(), msg, kv) }
func (l *zlog) Info(msg string, kv ...any)  { l.emit(l.z.Info(), msg, kv) }
func (l *zlog) Warn(msg string, kv ...any)  { l.emit(l.z.Warn(), msg, kv) }
func (l *zlog) Error(msg string, kv ...any) { l.emit(l.z.Error(), msg, kv) }

func (l *zlog) Err(err error, msg string, kv ...any) {
	l.emit(l.z.Error().Err(err), msg, kv)
}

func (l *zlog) With(kv ...any) Logger {
	ctx := l.z.With()
	for i := 0; i+1 < len(kv); i += 2 {
		ctx = ctx.Interface(key(kv[i]), kv[i+1])
	}
	return &zlog{z: ctx.Logger()}
}

func (l *zlog) emit(e *zerolog.Event, msg string, kv []any) {
	if e == nil {
		return
	}
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			e = e.Interface("!BADKEY", kv[i])
			break
		}
		switch v := kv[i+1].(type) {
		case error:
			e = e.AnErr(key(kv[i]), v)
		case time.Duration:
			e = e.Dur(key(kv[i]), v)
		default:
			e = e.Interface(key(kv[i]), v)
		}
	}
	e.Msg(msg)
}

func key(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return "!BADKEY"
}
