package zap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yola1107/czech/library/log/zap/conf"
)

func TestLogger_Level(t *testing.T) {
	l := NewLogger(conf.DefaultConfig(conf.WithLevel("info")))
	defer l.Close()

	assert.Equal(t, "info", l.GetLevel())
	l.SetLevel("warn")
	assert.Equal(t, "warn", l.GetLevel())
	l.SetLevel("bogus")
	assert.Equal(t, "warn", l.GetLevel())
}

func TestLogger_BadLevelFallsBackToInfo(t *testing.T) {
	l := NewLogger(conf.DefaultConfig(conf.WithLevel("loud")))
	defer l.Close()
	assert.Equal(t, "info", l.GetLevel())
}

func TestLogger_Sensitive(t *testing.T) {
	l := NewLogger(conf.DefaultConfig(conf.WithSensitive([]string{"Token", "password"})))
	defer l.Close()

	fields := l.mask([]zap.Field{zap.String("token", "abc"), zap.String("room", "r1")})
	require.Len(t, fields, 2)
	assert.Equal(t, sensitiveMask, fields[0].String)
	assert.Equal(t, "r1", fields[1].String)
	assert.Equal(t, []string{"password", "token"}, l.GetSensitive())

	l.SetSensitive(nil)
	assert.Empty(t, l.GetSensitive())
	assert.Equal(t, "abc", l.mask([]zap.Field{zap.String("token", "abc")})[0].String)
}

func TestLogger_OddKeyvals(t *testing.T) {
	l := NewLogger(nil)
	defer l.Close()
	require.NoError(t, l.Log(log.LevelInfo, "only-key"))
	require.NoError(t, l.Log(log.LevelInfo))
	require.NoError(t, l.Log(log.LevelInfo, log.DefaultMessageKey, "hello", "room", "r1"))
}

func TestLogger_ProdFiles(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(conf.DefaultConfig(
		conf.WithProduction(),
		conf.WithAppName("czech"),
		conf.WithDirectory(dir),
		conf.WithFormatJson(true),
	))
	log.NewHelper(l).Infof("room %s opened", "ABC123")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(dir, "czech.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "room ABC123 opened")
	assert.Contains(t, string(data), "zap_test.go")
}

func TestToZapLevel(t *testing.T) {
	tests := []struct {
		in   log.Level
		want zapcore.Level
	}{
		{log.LevelDebug, zapcore.DebugLevel},
		{log.LevelInfo, zapcore.InfoLevel},
		{log.LevelWarn, zapcore.WarnLevel},
		{log.LevelError, zapcore.ErrorLevel},
		{log.LevelFatal, zapcore.FatalLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toZapLevel(tt.in), tt.in.String())
	}
}

func TestConfig_Validate(t *testing.T) {
	c := conf.DefaultConfig()
	require.NoError(t, c.Validate())

	c.Log.Logger.Level = "loud"
	require.Error(t, c.Validate())

	c = conf.DefaultConfig()
	c.Log.Logger.Mode = "staging"
	require.Error(t, c.Validate())
}
