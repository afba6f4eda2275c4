package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest"
	"gomod.pri/codec/config"
	"gomod.pri/codec/server"
	"gomod.pri/codec/xtrace"
	"gomod.pri/codec/xutils/logutil"
)

var configFile = flag.String("f", "etc/codec.yaml", "the config file")

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	srv := rest.MustNewServer(c.RestConf)
	defer srv.Stop()

	// error logs go to the alert robot as well
	hook, err := logutil.Setup(os.Stdout, c.Alert)
	logx.Must(err)
	if hook != nil {
		defer hook.Close()
	}

	if !xtrace.InjectDetector(xtrace.DetectorConfig{
		AttrMaxBytes: c.Detector.AttrMaxBytes,
		SpanMaxBytes: c.Detector.SpanMaxBytes,
	}) {
		logx.Info("tracing disabled, span detector not installed")
	}

	svc, err := server.NewServiceContext(context.Background(), c)
	logx.Must(err)
	defer svc.Stop()
	svc.Start()
	server.RegisterHandlers(srv, svc)

	fmt.Printf("Starting server at %s:%d...\n", c.Host, c.Port)
	srv.Start()
}
