package file

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotate 单个日志文件的滚动策略
type Rotate struct {
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

var defaultRotate = Rotate{MaxSizeMB: 10, MaxAgeDays: 7, MaxBackups: 3}

// Log 写到独立文件的流水日志, 例如一个房间一个文件.
// 只有时间和正文, 没有级别和调用位置; 文件在第一次写入时创建.
type Log struct {
	sugar *zap.SugaredLogger
	out   *lumberjack.Logger
}

// NewFileLog r 为 nil 时使用默认滚动策略
func NewFileLog(filename string, r *Rotate) *Log {
	if r == nil {
		r = &defaultRotate
	}
	out := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    r.MaxSizeMB,
		MaxAge:     r.MaxAgeDays,
		MaxBackups: r.MaxBackups,
		LocalTime:  true,
		Compress:   true,
	}
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "t",
		MessageKey:       "m",
		EncodeTime:       zapcore.TimeEncoderOfLayout("[2006/01/02 15:04:05.000]"),
		ConsoleSeparator: " ",
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(out), zapcore.InfoLevel)
	return &Log{sugar: zap.New(core).Sugar(), out: out}
}

func (l *Log) Printf(format string, args ...any) { l.sugar.Infof(format, args...) }

// Close 刷盘并关闭文件, 之后的写入会重新打开文件
func (l *Log) Close() error {
	_ = l.sugar.Sync()
	return l.out.Close()
}
