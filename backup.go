package laminar

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Backup persists batches the engine could not deliver (sink write
// failure, forced shutdown drop) so they can be replayed later. It sits
// entirely off the happy path: the engine only calls Backup after a
// write has already failed, and never calls Restore itself.
type Backup interface {
	Backup(batch []string) error
	Restore() ([][]string, error)
}

// DirSpool is a directory-backed Backup: each batch becomes one spool
// file, Restore drains and removes all spool files in creation order.
type DirSpool struct {
	mu  sync.Mutex
	dir string
	seq uint64
}

// NewDirSpool creates the spool directory if needed.
func NewDirSpool(dir string) (*DirSpool, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmtErrorf("failed to create spool directory '%s': %w", dir, err)
	}
	return &DirSpool{dir: dir}, nil
}

// Backup writes the batch to a new spool file.
func (d *DirSpool) Backup(batch []string) error {
	if len(batch) == 0 {
		return nil
	}
	d.mu.Lock()
	d.seq++
	name := fmt.Sprintf("spool-%d-%06d.log", time.Now().UnixNano(), d.seq)
	d.mu.Unlock()

	path := filepath.Join(d.dir, name)
	if err := os.WriteFile(path, joinBatch(batch), 0644); err != nil {
		return fmtErrorf("failed to spool batch to '%s': %w", path, err)
	}
	return nil
}

// Restore reads every spool file in name order (creation order, names
// are timestamped), removes it, and returns the recovered batches.
func (d *DirSpool) Restore() ([][]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmtErrorf("failed to read spool directory '%s': %w", d.dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "spool-") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var batches [][]string
	for _, name := range names {
		path := filepath.Join(d.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return batches, fmtErrorf("failed to read spool file '%s': %w", path, err)
		}
		lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
		batches = append(batches, lines)
		if err := os.Remove(path); err != nil {
			return batches, fmtErrorf("failed to remove spool file '%s': %w", path, err)
		}
	}
	return batches, nil
}
