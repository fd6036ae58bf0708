package biz

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/yola1107/czech/internal/biz/room"
	"github.com/yola1107/czech/internal/conf"
	"github.com/yola1107/czech/library/work"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(NewWork, room.NewRegistry)

// NewWork 房间共用的协程池与时间轮
func NewWork(c *conf.Server) (work.Work, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	w := work.New(ctx, c.PoolSize, c.Tick.Std())
	if err := w.Start(); err != nil {
		cancel()
		return nil, nil, err
	}
	cleanup := func() {
		log.Info("closing the work loop")
		cancel()
		w.Stop()
	}
	return w, cleanup, nil
}
