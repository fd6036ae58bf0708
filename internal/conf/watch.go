package conf

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/yola1107/czech/library/ext"
	"github.com/yola1107/czech/library/log/zap"
	zconf "github.com/yola1107/czech/library/log/zap/conf"
)

// WatchConfig 监听 room 与 log.logger 的变更
func WatchConfig(c config.Config, rooms *RoomHolder, lc *zconf.Bootstrap, logger *zap.Logger) error {
	if err := c.Watch("room", roomObserver(rooms)); err != nil {
		return fmt.Errorf("watch %q failed: %w", "room", err)
	}
	if err := c.Watch("log.logger", loggerObserver(lc, logger)); err != nil {
		return fmt.Errorf("watch %q failed: %w", "log.logger", err)
	}
	return nil
}

func roomObserver(rooms *RoomHolder) config.Observer {
	return func(key string, val config.Value) {
		cur := rooms.Load()
		next := &Room{}
		// 以当前配置为底, 只覆盖文件中出现的项
		if err := ext.DeepCopy(next, cur); err != nil {
			log.Errorf("[config] copy failed: key=%q, err=%v", key, err)
			return
		}
		if err := val.Scan(next); err != nil {
			log.Errorf("[config] scan failed: key=%q, err=%v", key, err)
			return
		}
		if err := next.Validate(); err != nil {
			log.Errorf("[config] validation failed: key=%q, err=%v", key, err)
			return
		}
		changes, diff, err := ext.DiffLog(cur, next)
		if err != nil {
			log.Errorf("[config] diff failed: key=%q, err=%v", key, err)
			return
		}
		if len(changes) == 0 {
			return
		}
		log.Warnf("[config] [%q] updated:\n%s", key, diff)
		rooms.Store(next)
	}
}

func loggerObserver(lc *zconf.Bootstrap, logger *zap.Logger) config.Observer {
	return func(key string, val config.Value) {
		next := &zconf.Logger{}
		if err := ext.DeepCopy(next, lc.Log.Logger); err != nil {
			log.Errorf("[config] copy failed: key=%q, err=%v", key, err)
			return
		}
		if err := val.Scan(next); err != nil {
			log.Errorf("[config] scan failed: key=%q, err=%v", key, err)
			return
		}
		if err := next.Validate(); err != nil {
			log.Errorf("[config] validation failed: key=%q, err=%v", key, err)
			return
		}
		if next.Level != logger.GetLevel() {
			log.Warnf("[config] [%q] level %s -> %s", key, logger.GetLevel(), next.Level)
			logger.SetLevel(next.Level)
		}
		if changes, err := ext.Diff(logger.GetSensitive(), next.Sensitive); err == nil && len(changes) > 0 {
			logger.SetSensitive(next.Sensitive)
		}
	}
}
