package main

import (
	"fmt"
	"os"

	"github.com/laminarlog/laminar"
	"github.com/laminarlog/laminar/formatter"
	"github.com/laminarlog/laminar/redact"
)

// Demonstrates layered fan-out: application records go to console and
// file, audit records to a separate JSON file, all behind one
// composite facade.
func main() {
	console, err := laminar.NewBuilder().
		Name("console").
		Layer("default", laminar.LevelInfo, laminar.SinkConfig{
			MaxBufferSize: 1,
			Formatter:     formatter.NewText().ShowLogger(false),
			Writer:        laminar.NewConsoleWriter("stdout"),
		}).
		Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	files, err := laminar.NewBuilder().
		Name("files").
		Async(true).
		Redactor(redact.New().Policy(redact.PolicyTxt).MaskSecrets()).
		Layer("default", laminar.LevelDebug, laminar.SinkConfig{
			Formatter: formatter.NewText(),
			Writer: laminar.NewFileWriter(laminar.FileWriterConfig{
				Path:      "app.log",
				MaxSizeMB: 10,
			}),
		}).
		Layer("audit", laminar.LevelInfo, laminar.SinkConfig{
			Formatter: formatter.NewJSON(),
			Writer: laminar.NewFileWriter(laminar.FileWriterConfig{
				Path:     "audit.log",
				Compress: true,
			}),
		}).
		Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := laminar.NewCompositeLogger(console, files)
	defer logger.Close()

	logger.Info("service starting", laminar.F("port", 8080))
	logger.Log(laminar.LevelInfo, "audit", "user login", laminar.F("user", "alice"))
	logger.Warn("token=abcdef0123456789abcdef0123456789 leaked into a message")
	logger.LogBatch(laminar.LevelDebug, "", []string{
		"cache warmed",
		"routes registered",
		"listener bound",
	})
}
