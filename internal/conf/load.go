package conf

import (
	"fmt"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	zconf "github.com/yola1107/czech/library/log/zap/conf"
)

const EnvPrefix = "CZECH_"

// LoadConfig 加载配置: 默认值 <- 配置文件 <- 环境变量
func LoadConfig(flagconf string) (config.Config, *Bootstrap, *zconf.Bootstrap, error) {
	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)
	if err := c.Load(); err != nil {
		return nil, nil, nil, err
	}

	bc := Default()
	lc := zconf.DefaultConfig(zconf.WithAppName(Name))
	if err := c.Scan(bc); err != nil {
		return nil, nil, nil, fmt.Errorf("scan bootstrap: %w", err)
	}
	if err := c.Scan(lc); err != nil {
		return nil, nil, nil, fmt.Errorf("scan logger: %w", err)
	}
	if err := ApplyEnv(bc); err != nil {
		return nil, nil, nil, err
	}
	if err := bc.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("bootstrap config invalid: %w", err)
	}
	if err := lc.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("logger config invalid: %w", err)
	}
	return c, bc, lc, nil
}

// ApplyEnv 用 CZECH_* 环境变量覆盖非空项
func ApplyEnv(bc *Bootstrap) error {
	var overlay Bootstrap
	if err := env.ParseWithOptions(&overlay, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if err := mergo.Merge(bc, overlay, mergo.WithOverride); err != nil {
		return fmt.Errorf("merge env: %w", err)
	}
	return nil
}
