package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/laminarlog/laminar"
	"github.com/laminarlog/laminar/compat"
	"github.com/laminarlog/laminar/formatter"
)

func main() {
	logger, err := laminar.NewBuilder().
		Name("httpd").
		Async(true).
		Layer("default", laminar.LevelInfo, laminar.SinkConfig{
			Formatter: formatter.NewText(),
			Writer: laminar.NewFileWriter(laminar.FileWriterConfig{
				Path:       "/var/log/fasthttp/server.log",
				MaxSizeMB:  100,
				MaxBackups: 5,
			}),
		}).
		Build()
	if err != nil {
		panic(err)
	}
	defer logger.Close()

	// Create fasthttp adapter with custom level detection
	fasthttpAdapter := compat.NewFastHTTPAdapter(
		logger,
		compat.WithDefaultLevel(laminar.LevelInfo),
		compat.WithLevelDetector(customLevelDetector),
	)

	// Configure fasthttp server
	server := &fasthttp.Server{
		Handler: requestHandler,
		Logger:  fasthttpAdapter,

		Name:              "MyServer",
		Concurrency:       fasthttp.DefaultConcurrency,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		TCPKeepalive:      true,
		ReduceMemoryUsage: true,
	}

	fmt.Println("Starting server on :8080")
	if err := server.ListenAndServe(":8080"); err != nil {
		panic(err)
	}
}

func requestHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain")
	fmt.Fprintf(ctx, "Hello, world! Path: %s\n", ctx.Path())
}

func customLevelDetector(msg string) (laminar.Level, bool) {
	// Can inspect specific fasthttp message patterns
	if strings.Contains(msg, "connection cannot be served") {
		return laminar.LevelWarn, true
	}
	if strings.Contains(msg, "error when serving connection") {
		return laminar.LevelError, true
	}

	// Use default detection
	return compat.DetectLogLevel(msg)
}
