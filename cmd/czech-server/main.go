package main

import (
	"flag"
	xhttp "net/http"
	_ "net/http/pprof"
	"os"
	"runtime"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/yola1107/czech/internal/biz/room"
	"github.com/yola1107/czech/internal/conf"
	"github.com/yola1107/czech/library/log/zap"
	"github.com/yola1107/czech/transport/websocket"
)

var (
	Name       = conf.Name
	Version    = conf.Version
	flagconf   string // -conf path
	clearRooms bool   // -clearrooms
	pprofAddr  string
	id, _      = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs", "config path, e.g. -conf config.yaml")
	flag.BoolVar(&clearRooms, "clearrooms", false, "discard all stored rooms on startup")
	flag.StringVar(&pprofAddr, "pprof", "", "pprof listen address, e.g. :6060")
}

func newApp(logger log.Logger, ws *websocket.Server, reg *room.Registry) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			reg,
			ws,
		),
	)
}

func main() {
	flag.Parse()

	if pprofAddr != "" {
		go func() {
			runtime.SetBlockProfileRate(1)
			log.Error(xhttp.ListenAndServe(pprofAddr, nil))
		}()
	}

	c, bc, lc, err := conf.LoadConfig(flagconf)
	if err != nil {
		panic(err)
	}
	defer c.Close()
	if clearRooms {
		bc.Data.ClearRooms = true
	}

	logger := zap.NewLogger(lc)
	log.SetLogger(logger)
	defer logger.Close()

	rooms := conf.NewRoomHolder(&bc.Room)
	if err := conf.WatchConfig(c, rooms, lc, logger); err != nil {
		panic(err)
	}

	app, cleanup, err := wireApp(&bc.Server, &bc.Data, rooms, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
