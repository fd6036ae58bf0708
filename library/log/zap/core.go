package zap

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yola1107/czech/library/log/zap/conf"
)

// 同一秒内同样的日志超过 first 条后, 每 thereafter 条记一条
const (
	sampleFirst      = 2000
	sampleThereafter = 10
)

// buildCores 控制台始终输出; prod 模式额外写滚动文件, 可选单独的 error 文件
func buildCores(c *conf.Logger, level zap.AtomicLevel) (zapcore.Core, []io.Closer) {
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(true)), zapcore.Lock(os.Stderr), level),
	}
	var closers []io.Closer
	if c.Mode == conf.ModeProd && c.Directory != "" {
		app := c.AppName
		if app == "" {
			app = "app"
		}
		r := c.Rotate
		if r == nil {
			r = conf.DefaultConfig().Log.Logger.Rotate
		}
		add := func(name string, enab zapcore.LevelEnabler) {
			w := &lumberjack.Logger{
				Filename:   filepath.Join(c.Directory, name),
				MaxSize:    int(r.MaxSizeMB),
				MaxBackups: int(r.MaxBackups),
				MaxAge:     int(r.MaxAgeDays),
				Compress:   r.Compress,
				LocalTime:  r.LocalTime,
			}
			closers = append(closers, w)
			enc := zapcore.NewConsoleEncoder(encoderConfig(false))
			if c.FormatJson {
				enc = zapcore.NewJSONEncoder(encoderConfig(false))
			}
			cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(w), enab))
		}
		add(app+".log", level)
		if c.ErrorFile {
			add(app+"_error.log", zap.ErrorLevel)
		}
	}
	return zapcore.NewSamplerWithOptions(zapcore.NewTee(cores...), time.Second, sampleFirst, sampleThereafter), closers
}

func encoderConfig(console bool) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.ConsoleSeparator = " "
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("[2006/01/02 15:04:05.000]")
	cfg.EncodeCaller = func(c zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + c.TrimmedPath() + "]")
	}
	if console {
		cfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + levelColor(l) + levelTag(l) + "\x1b[0m]")
		}
	} else {
		cfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + levelTag(l) + "]")
		}
	}
	return cfg
}

// levelTag 定宽5个字符, 方便对齐
func levelTag(l zapcore.Level) string {
	switch l {
	case zapcore.DebugLevel:
		return "DEBUG"
	case zapcore.InfoLevel:
		return "INFO·"
	case zapcore.WarnLevel:
		return "WARN·"
	case zapcore.ErrorLevel:
		return "ERROR"
	case zapcore.FatalLevel:
		return "FATAL"
	default:
		return "PANIC"
	}
}

func levelColor(l zapcore.Level) string {
	switch l {
	case zapcore.DebugLevel:
		return "\x1b[36m"
	case zapcore.InfoLevel:
		return "\x1b[32m"
	case zapcore.WarnLevel:
		return "\x1b[33m"
	case zapcore.ErrorLevel:
		return "\x1b[31m"
	default:
		return "\x1b[35m"
	}
}
