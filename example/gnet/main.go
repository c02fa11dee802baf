package main

import (
	"github.com/panjf2000/gnet/v2"

	"github.com/laminarlog/laminar"
	"github.com/laminarlog/laminar/compat"
	"github.com/laminarlog/laminar/formatter"
)

// Example gnet event handler
type echoServer struct {
	gnet.BuiltinEventEngine
}

func (es *echoServer) OnTraffic(c gnet.Conn) gnet.Action {
	buf, _ := c.Next(-1)
	c.Write(buf)
	return gnet.None
}

func main() {
	logger, err := laminar.NewBuilder().
		Name("echo").
		Async(true).
		Layer("default", laminar.LevelDebug, laminar.SinkConfig{
			Formatter: formatter.NewJSON(),
			Writer: laminar.NewFileWriter(laminar.FileWriterConfig{
				Path: "/var/log/gnet/echo.log",
			}),
		}).
		Build()
	if err != nil {
		panic(err)
	}
	defer logger.Close()

	gnetAdapter := compat.NewGnetAdapter(logger)

	// Configure gnet server with the logger
	err = gnet.Run(
		&echoServer{},
		"tcp://127.0.0.1:9000",
		gnet.WithMulticore(true),
		gnet.WithLogger(gnetAdapter),
		gnet.WithReusePort(true),
	)
	if err != nil {
		panic(err)
	}
}
