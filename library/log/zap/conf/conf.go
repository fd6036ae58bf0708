package conf

import (
	"fmt"
	"strings"
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

// Bootstrap 日志配置根节点, 对应配置文件中的 log 段
type Bootstrap struct {
	Log *Log `json:"log"`
}

type Log struct {
	Logger *Logger `json:"logger"`
}

type Logger struct {
	Mode       Mode     `json:"mode"`
	AppName    string   `json:"app_name"`
	Level      string   `json:"level"`
	Directory  string   `json:"directory"`
	FormatJson bool     `json:"format_json"`
	ErrorFile  bool     `json:"error_file"`
	Sensitive  []string `json:"sensitive"`
	Rotate     *Rotate  `json:"rotate"`
}

type Rotate struct {
	MaxSizeMB  int32 `json:"max_size_mb"`
	MaxBackups int32 `json:"max_backups"`
	MaxAgeDays int32 `json:"max_age_days"`
	Compress   bool  `json:"compress"`
	LocalTime  bool  `json:"local_time"`
}

func (b *Bootstrap) Validate() error {
	if b == nil || b.Log == nil || b.Log.Logger == nil {
		return fmt.Errorf("log.logger is required")
	}
	return b.Log.Logger.Validate()
}

func (l *Logger) Validate() error {
	switch l.Mode {
	case ModeDev, ModeProd:
	default:
		return fmt.Errorf("log.logger.mode %q: want dev or prod", l.Mode)
	}
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("log.logger.level %q is invalid", l.Level)
	}
	if l.Mode == ModeProd && l.Rotate == nil {
		return fmt.Errorf("log.logger.rotate is required in prod mode")
	}
	return nil
}

func DefaultConfig(opts ...Option) *Bootstrap {
	c := &Log{
		Logger: &Logger{
			Mode:      ModeDev,
			AppName:   "app",
			Level:     "debug",
			Directory: "./logs",
			Sensitive: []string{},
			Rotate: &Rotate{
				MaxSizeMB:  100,
				MaxBackups: 7,
				MaxAgeDays: 7,
				Compress:   true,
				LocalTime:  true,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return &Bootstrap{Log: c}
}

type Option func(*Log)

func WithAppName(appName string) Option {
	return func(c *Log) { c.Logger.AppName = appName }
}

func WithProduction() Option {
	return func(c *Log) {
		c.Logger.Mode = ModeProd
		c.Logger.Level = "info"
	}
}

func WithLevel(level string) Option {
	return func(c *Log) { c.Logger.Level = level }
}

func WithDirectory(dir string) Option {
	return func(c *Log) { c.Logger.Directory = dir }
}

func WithFormatJson(enabled bool) Option {
	return func(c *Log) { c.Logger.FormatJson = enabled }
}

func WithSensitive(keys []string) Option {
	return func(c *Log) { c.Logger.Sensitive = keys }
}
