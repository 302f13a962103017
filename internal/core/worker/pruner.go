package worker

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Pruner deletes old console transcripts based on retention policy. Capture
// runs on every failed reconnect probe, so a few bad sessions can leave
// hundreds of transcripts behind.
type Pruner struct {
	dir       string
	retention time.Duration
	log       *slog.Logger
}

// NewPruner creates a new Pruner for the given transcript directory.
func NewPruner(dir string, retention time.Duration, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	return &Pruner{dir: dir, retention: retention, log: log}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check at 10% of the retention period, clamped to [1m, 1h]
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.Prune()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune()
		}
	}
}

// Prune removes transcripts older than the retention period.
func (p *Pruner) Prune() {
	threshold := time.Now().Add(-p.retention)

	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			p.log.Warn("Failed to read transcript dir", "dir", p.dir, "error", err)
		}
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(threshold) {
			continue
		}
		if err := os.Remove(filepath.Join(p.dir, entry.Name())); err != nil {
			p.log.Warn("Failed to remove transcript", "file", entry.Name(), "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		p.log.Info("Pruned old transcripts", "dir", p.dir, "removed", removed)
	}
}
