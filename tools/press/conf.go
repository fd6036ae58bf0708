package press

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	zconf "github.com/yola1107/czech/library/log/zap/conf"
)

type (
	Bootstrap struct {
		Log   *zconf.Log `json:"log"`
		Press Press      `json:"press"`
	}
	Press struct {
		Url      string `json:"url"`
		Open     bool   `json:"open"`
		Num      int32  `json:"num"`      // 总人数
		Batch    int32  `json:"batch"`    // 每批上线人数
		Interval int32  `json:"interval"` // 批次间隔 ms
		Think    int32  `json:"think"`    // 出牌前思考 ms
		DeckSize int    `json:"deck_size"`
		Prefix   string `json:"prefix"` // 昵称前缀
	}
)

func (p Press) String() string {
	return fmt.Sprintf("url=%s open=%v num=%d batch=%d interval=%dms think=%dms deck=%d",
		p.Url, p.Open, p.Num, p.Batch, p.Interval, p.Think, p.DeckSize)
}

// LoadConfig 加载配置
func LoadConfig(flagconf string) (config.Config, *Bootstrap, error) {
	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)
	if err := c.Load(); err != nil {
		return nil, nil, err
	}

	bc := &Bootstrap{
		Log: zconf.DefaultConfig(zconf.WithAppName("czech-client")).Log,
		Press: Press{
			Url:      "ws://127.0.0.1:8765/ws",
			Num:      4,
			Batch:    4,
			Interval: 1000,
			Think:    300,
			DeckSize: 52,
			Prefix:   "press",
		},
	}
	if err := c.Scan(bc); err != nil {
		return nil, nil, fmt.Errorf("bootstrap config invalid: %w", err)
	}
	if err := WatchConfig(c, bc); err != nil {
		return nil, nil, err
	}
	return c, bc, nil
}

func WatchConfig(c config.Config, bc *Bootstrap) error {
	if err := c.Watch("press", func(key string, value config.Value) {
		next := bc.Press
		if err := value.Scan(&next); err != nil {
			log.Infof("watch error: %v", err)
			return
		}
		log.Infof("[Config Watch] %s changed to %v", key, next)
		bc.Press = next
	}); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
