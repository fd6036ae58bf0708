package main

import (
	"flag"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/yola1107/czech/library/log/zap"
	zconf "github.com/yola1107/czech/library/log/zap/conf"
	"github.com/yola1107/czech/tools/press"
)

const (
	Name = "czech-client"
)

var (
	flagconf string
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/press", "config path, e.g. -conf press.yaml")
}

func main() {
	flag.Parse()

	c, bc, err := press.LoadConfig(flagconf)
	if err != nil {
		panic(err)
	}
	defer c.Close()

	logger := zap.NewLogger(&zconf.Bootstrap{Log: bc.Log})
	log.SetLogger(logger)
	defer logger.Close()

	runner := press.NewRunner(bc)
	if err := runner.Start(); err != nil {
		panic(err)
	}
	defer runner.Stop()

	app := kratos.New(
		kratos.Name(Name),
		kratos.Logger(logger),
	)
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
