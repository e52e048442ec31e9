package replica

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SpoolWatcher feeds wire-JSON files dropped into a directory through an
// ingestor. Files the ingestor has passed a verdict on are removed, accepted
// or not; files that hit a storage failure stay in the spool for the next
// sweep. The verdicts themselves land in the logs and counters.
type SpoolWatcher struct {
	dir      string
	ingestor *Ingestor
	interval time.Duration
	log      *slog.Logger
}

// NewSpoolWatcher watches dir every interval.
func NewSpoolWatcher(dir string, ingestor *Ingestor, interval time.Duration, logger *slog.Logger) *SpoolWatcher {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SpoolWatcher{dir: dir, ingestor: ingestor, interval: interval, log: logger}
}

// Run processes the spool until the context is cancelled.
func (w *SpoolWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.Sweep(time.Now())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep processes every document file currently in the spool and reports
// how many were accepted.
func (w *SpoolWatcher) Sweep(now time.Time) int {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn("spool read failed", "error", err.Error())
		return 0
	}
	accepted := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			w.log.Warn("spool file read failed", "file", entry.Name(), "error", err.Error())
			continue
		}
		_, err = w.ingestor.IngestRaw(raw, now)
		if err == nil {
			accepted++
		} else if errors.Is(err, ErrStoreFailed) {
			// a valid document must not be lost to a transient disk error
			w.log.Warn("spool file kept for retry", "file", entry.Name(), "error", err.Error())
			continue
		}
		if err := os.Remove(path); err != nil {
			w.log.Warn("spool file remove failed", "file", entry.Name(), "error", err.Error())
		}
	}
	return accepted
}
