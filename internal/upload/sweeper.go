package upload

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultScratchTTL    = time.Hour
	DefaultSweepInterval = 10 * time.Minute
)

// Sweeper removes scratch files that outlived their request, which only
// happens when the process died between saving and releasing a file.
type Sweeper struct {
	dir    string
	ttl    time.Duration
	logger *slog.Logger
}

func NewSweeper(dir string, ttl time.Duration, logger *slog.Logger) *Sweeper {
	if ttl <= 0 {
		ttl = DefaultScratchTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{dir: dir, ttl: ttl, logger: logger}
}

// Start runs one sweep immediately and then every interval until ctx is done.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go s.loop(ctx, interval)
}

func (s *Sweeper) loop(ctx context.Context, interval time.Duration) {
	s.sweepAndLog(time.Now())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweepAndLog(now)
		}
	}
}

func (s *Sweeper) sweepAndLog(now time.Time) {
	removed, err := s.Sweep(now)
	if err != nil {
		s.logger.Error("sweep scratch dir failed", "dir", s.dir, "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("swept stale scratch files", "dir", s.dir, "removed", removed)
	}
}

// Sweep deletes scratch files last modified before now minus the TTL and
// reports how many were removed. Files not named by the uploader are left
// alone.
func (s *Sweeper) Sweep(now time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := now.Add(-s.ttl)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !isScratchName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove stale scratch file failed", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
