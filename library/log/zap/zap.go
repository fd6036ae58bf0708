package zap

import (
	"fmt"
	"io"
	"maps"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/go-kratos/kratos/v2/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yola1107/czech/library/log/zap/conf"
)

var _ log.Logger = (*Logger)(nil)

const sensitiveMask = "***"

// Logger kratos log.Logger 的 zap 实现.
// 调用位置由 Logger 自己从调用栈中找, 跳过 kratos log 和本包的帧.
type Logger struct {
	z       *zap.Logger
	level   zap.AtomicLevel
	closers []io.Closer
	masked  atomic.Pointer[map[string]struct{}]
}

func NewLogger(c *conf.Bootstrap) *Logger {
	if c == nil || c.Log == nil || c.Log.Logger == nil {
		c = conf.DefaultConfig()
	}
	lc := c.Log.Logger

	level, err := zap.ParseAtomicLevel(lc.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	tee, closers := buildCores(lc, level)
	l := &Logger{
		z:       zap.New(tee, zap.AddStacktrace(zap.DPanicLevel)),
		level:   level,
		closers: closers,
	}
	l.SetSensitive(lc.Sensitive)
	if err != nil {
		l.z.Warn("bad log level, using info", zap.String("level", lc.Level))
	}
	l.z.Debug("logger ready",
		zap.String("mode", string(lc.Mode)), zap.String("app", lc.AppName),
		zap.Stringer("level", level), zap.String("dir", lc.Directory))
	return l
}

func (l *Logger) Log(level log.Level, keyvals ...any) error {
	lvl := toZapLevel(level)
	if !l.level.Enabled(lvl) {
		return nil
	}
	if len(keyvals) == 0 || len(keyvals)%2 != 0 {
		keyvals = append([]any{log.DefaultMessageKey, "odd keyvals"}, "raw", fmt.Sprint(keyvals...))
	}

	var msg string
	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if key == log.DefaultMessageKey {
			msg = fmt.Sprint(keyvals[i+1])
			continue
		}
		fields = append(fields, zap.Any(key, keyvals[i+1]))
	}

	ce := l.z.Check(lvl, msg)
	if ce == nil {
		return nil
	}
	ce.Caller = findCaller()
	ce.Write(l.mask(fields)...)
	return nil
}

// Close 刷盘并关闭滚动文件
func (l *Logger) Close() error {
	_ = l.z.Sync()
	for _, c := range l.closers {
		_ = c.Close()
	}
	return nil
}

func (l *Logger) GetLevel() string { return l.level.String() }

func (l *Logger) SetLevel(level string) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		l.z.Warn("ignore bad log level", zap.String("level", level))
		return
	}
	l.level.SetLevel(lvl)
	l.z.Info("log level changed", zap.Stringer("level", lvl))
}

// GetSensitive 按字母序返回
func (l *Logger) GetSensitive() []string {
	return slices.Sorted(maps.Keys(*l.masked.Load()))
}

func (l *Logger) SetSensitive(keys []string) {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[strings.ToLower(k)] = struct{}{}
	}
	l.masked.Store(&set)
}

// mask 敏感字段只打印 ***
func (l *Logger) mask(fields []zap.Field) []zap.Field {
	set := *l.masked.Load()
	if len(set) == 0 {
		return fields
	}
	for i, f := range fields {
		if _, ok := set[strings.ToLower(f.Key)]; ok {
			fields[i] = zap.String(f.Key, sensitiveMask)
		}
	}
	return fields
}

func toZapLevel(level log.Level) zapcore.Level {
	switch level {
	case log.LevelDebug:
		return zapcore.DebugLevel
	case log.LevelWarn:
		return zapcore.WarnLevel
	case log.LevelError:
		return zapcore.ErrorLevel
	case log.LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

const (
	kratosLogPkg = "github.com/go-kratos/kratos/v2/log."
	selfPkg      = "github.com/yola1107/czech/library/log/zap.(*Logger)."
)

// findCaller 第一个不属于日志库的调用帧
func findCaller() zapcore.EntryCaller {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if !strings.HasPrefix(f.Function, kratosLogPkg) && !strings.HasPrefix(f.Function, selfPkg) {
			return zapcore.EntryCaller{Defined: true, PC: f.PC, File: f.File, Line: f.Line, Function: f.Function}
		}
		if !more {
			return zapcore.EntryCaller{}
		}
	}
}
