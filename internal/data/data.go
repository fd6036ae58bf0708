package data

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/yola1107/czech/internal/biz/room"
	"github.com/yola1107/czech/internal/conf"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewStore,
	NewMetrics,
	NewWriter,
	wire.Bind(new(room.Persister), new(*Writer)),
)

// NewStore 按 data.driver 打开房间存储
func NewStore(c *conf.Data) (room.Store, func(), error) {
	var (
		store room.Store
		err   error
	)
	switch c.Driver {
	case conf.DriverSqlite:
		store, err = OpenSqlite(c.Sqlite.Path)
	case conf.DriverRedis:
		store, err = OpenRedis(c.Redis)
	case conf.DriverMemory:
		store = NewMemoryStore()
	default:
		err = fmt.Errorf("unknown data driver %q", c.Driver)
	}
	if err != nil {
		return nil, nil, err
	}
	log.Infof("[data] room store opened. driver=%s", c.Driver)

	cleanup := func() {
		log.Info("closing the data resources")
		if err := store.Close(); err != nil {
			log.Errorf("[data] close store: %v", err)
		}
	}
	return store, cleanup, nil
}
