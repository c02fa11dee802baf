package main

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/laminarlog/laminar"
	"github.com/laminarlog/laminar/formatter"
)

const (
	totalBursts    = 100
	logsPerBurst   = 500
	maxMessageSize = 2000
	numWorkers     = 200
)

const configFile = "stress_config.toml"

// Example TOML tuning for the stress run
var tomlContent = `
# Example stress_config.toml
[laminar]
  name = "stress"
  default_layer = "default"
  async = true
  primary_queue_size = 8192
  overflow_queue_size = 32768
  workers = 1
  shutdown_grace_ms = 10000
  flush_interval_ms = 50
  max_log_rate = 0
  internal_errors_to_stderr = true
`

var levels = []laminar.Level{
	laminar.LevelDebug,
	laminar.LevelInfo,
	laminar.LevelWarn,
	laminar.LevelError,
}

var logger *laminar.Logger

func generateRandomMessage(size int) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "
	var sb strings.Builder
	sb.Grow(size)
	for i := 0; i < size; i++ {
		sb.WriteByte(chars[rand.Intn(len(chars))])
	}
	return sb.String()
}

// logBurst simulates a burst of logging activity
func logBurst(burstID int) {
	for i := 0; i < logsPerBurst; i++ {
		level := levels[rand.Intn(len(levels))]
		msgSize := rand.Intn(maxMessageSize) + 10
		logger.Log(level, "", generateRandomMessage(msgSize),
			laminar.F("wkr", burstID%numWorkers),
			laminar.F("bst", burstID),
			laminar.F("seq", i),
			laminar.F("rnd", rand.Int63()),
		)
	}
}

// worker goroutine function
func worker(burstChan chan int, wg *sync.WaitGroup, completedBursts *atomic.Int64) {
	defer wg.Done()
	for burstID := range burstChan {
		logBurst(burstID)
		completed := completedBursts.Add(1)
		if completed%10 == 0 || completed == totalBursts {
			fmt.Printf("\rProgress: %d/%d bursts completed", completed, totalBursts)
		}
	}
}

func main() {
	fmt.Println("--- Delivery Engine Stress Test ---")

	// --- Setup Config ---
	err := os.WriteFile(configFile, []byte(tomlContent), 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write dummy config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created dummy config file: %s\n", configFile)
	logsDir := "./logs"
	_ = os.RemoveAll(logsDir)

	cfg, err := laminar.NewConfigFromFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	spool, err := laminar.NewDirSpool(logsDir + "/spool")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create spool: %v\n", err)
		os.Exit(1)
	}
	cfg.Layers = map[string]laminar.LayerSpec{
		"default": {
			Threshold: laminar.LevelDebug,
			Destinations: []laminar.SinkConfig{{
				Threshold: laminar.LevelDebug,
				Formatter: formatter.NewText(),
				Writer: laminar.NewFileWriter(laminar.FileWriterConfig{
					Path:       logsDir + "/stress.log",
					MaxSizeMB:  1,
					MaxBackups: 20,
				}),
				Backup: spool,
			}},
		},
	}

	// --- Initialize Logger ---
	logger, err = laminar.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Logger initialized. Logs will be written to: %s\n", logsDir)

	fmt.Printf("Starting stress test: %d workers, %d bursts, %d logs/burst.\n",
		numWorkers, totalBursts, logsPerBurst)
	fmt.Println("Watch the dropped counter and file rotation.")
	fmt.Println("Press Ctrl+C to stop early.")

	// --- Setup Workers and Signal Handling ---
	burstChan := make(chan int, numWorkers)
	var wg sync.WaitGroup
	completedBursts := atomic.Int64{}
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	stopChan := make(chan struct{})

	go func() {
		<-sigChan
		fmt.Println("\n[Signal Received] Stopping burst generation...")
		close(stopChan)
	}()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go worker(burstChan, &wg, &completedBursts)
	}

	// --- Run Test ---
	startTime := time.Now()
	for i := 1; i <= totalBursts; i++ {
		select {
		case burstChan <- i:
		case <-stopChan:
			fmt.Println("[Signal Received] Halting burst submission.")
			goto endLoop
		}
	}
endLoop:
	close(burstChan)

	fmt.Println("\nWaiting for workers to finish...")
	wg.Wait()
	duration := time.Since(startTime)
	finalCompleted := completedBursts.Load()

	fmt.Printf("\n--- Test Finished ---")
	fmt.Printf("\nCompleted %d/%d bursts in %v\n", finalCompleted, totalBursts, duration.Round(time.Millisecond))
	if finalCompleted > 0 && duration.Seconds() > 0 {
		logsPerSec := float64(finalCompleted*logsPerBurst) / duration.Seconds()
		fmt.Printf("Approximate Logs/sec: %.2f\n", logsPerSec)
	}

	// --- Shutdown ---
	fmt.Println("Draining and closing logger...")
	if err := logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Close reported: %v\n", err)
	}

	st := logger.Stats()
	fmt.Printf("Processed: %d  Dropped: %d  Rejected: %d  RateLimited: %d\n",
		st.Processed, st.Dropped, st.Rejected, st.RateLimited)
	fmt.Printf("SinkWriteErrors: %d  SinkFormatErrors: %d  WorkerPanics: %d\n",
		st.SinkWriteErrors, st.SinkFormatErrors, st.WorkerPanics)
}
