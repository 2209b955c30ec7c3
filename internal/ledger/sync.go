package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/wenfp108/vibe-scout/internal/anomaly"
	"github.com/wenfp108/vibe-scout/internal/clock"
	"github.com/wenfp108/vibe-scout/internal/forum"
	"github.com/wenfp108/vibe-scout/internal/metrics"
)

// SyncConflictError is the terminal outcome of conflict-retry exhaustion:
// concurrent writers kept moving the revision under us. The run's snapshot
// is preserved in the local durable copy, and the next run retries from a
// fresh pull.
type SyncConflictError struct {
	Path     string
	Attempts int
}

func (e *SyncConflictError) Error() string {
	return fmt.Sprintf("ledger sync conflict on %s after %d attempts", e.Path, e.Attempts)
}

// Config controls the syncer.
type Config struct {
	// Root is the remote path prefix for day objects.
	Root string `mapstructure:"root"`
	// MaxConflictRetries bounds pull-merge-push cycles re-run after a
	// revision mismatch.
	MaxConflictRetries int `mapstructure:"max_conflict_retries"`
	// LocalDir receives a durable copy after each successful push. A
	// recovery aid, never the source of truth. Empty disables it.
	LocalDir string `mapstructure:"local_dir"`
	// UTCOffsetHours fixes the day boundary. Applied consistently; the
	// default 0 keeps day keys in UTC.
	UTCOffsetHours int `mapstructure:"utc_offset_hours"`
}

func (c Config) retries() int {
	if c.MaxConflictRetries <= 0 {
		return 3
	}
	return c.MaxConflictRetries
}

// Syncer runs the pull-merge-push protocol against the object store. The
// sequence is not atomic; the revision precondition is the sole
// concurrency control, optimistic by design.
type Syncer struct {
	store  ObjectStore
	clock  clock.Clock
	logger *zap.Logger
	cfg    Config
}

// NewSyncer wires a Syncer.
func NewSyncer(store ObjectStore, clk clock.Clock, cfg Config, logger *zap.Logger) *Syncer {
	return &Syncer{store: store, clock: clk, logger: logger, cfg: cfg}
}

// DayPath returns the remote object path for the day containing t.
func (s *Syncer) DayPath(t time.Time) string {
	zone := time.FixedZone("ledger", s.cfg.UTCOffsetHours*3600)
	key := forum.DayKey(t.In(zone))
	if s.cfg.Root == "" {
		return key + ".json"
	}
	return s.cfg.Root + "/" + key + ".json"
}

// Sync pulls today's ledger, annotates the snapshot's champions against
// the pulled history, appends the snapshot and pushes under the captured
// revision. On a revision mismatch the whole cycle is re-run against a
// fresh pull, bounded by the configured retry count.
func (s *Syncer) Sync(ctx context.Context, snapshot forum.TimeSnapshot) (forum.DailyLedger, string, error) {
	path := s.DayPath(s.clock.Now())
	attempts := s.cfg.retries()

	for attempt := 1; attempt <= attempts; attempt++ {
		merged, rev, err := s.pullAndMerge(ctx, path, snapshot)
		if err != nil {
			return nil, path, err
		}
		encoded, err := forum.EncodeLedger(merged)
		if err != nil {
			return nil, path, err
		}

		if _, err := s.store.Put(ctx, path, encoded, rev); err != nil {
			if errors.Is(err, ErrRevisionMismatch) {
				retrying := attempt < attempts
				metrics.ObserveSyncConflict(retrying)
				s.logger.Warn("ledger push lost the revision race",
					zap.String("path", path),
					zap.Int("attempt", attempt),
					zap.Bool("retrying", retrying),
				)
				continue
			}
			return nil, path, fmt.Errorf("push ledger %s: %w", path, err)
		}

		s.writeLocalCopy(path, encoded)
		metrics.ObserveSnapshotPublished()
		s.logger.Info("snapshot synced",
			zap.String("path", path),
			zap.Int("snapshots", len(merged)),
			zap.Int("attempt", attempt),
		)
		return merged, path, nil
	}

	return nil, path, &SyncConflictError{Path: path, Attempts: attempts}
}

// pullAndMerge decodes today's history (absent means empty), runs the
// anomaly detector for each sector against that history, and appends the
// snapshot.
func (s *Syncer) pullAndMerge(ctx context.Context, path string, snapshot forum.TimeSnapshot) (forum.DailyLedger, string, error) {
	history := forum.DailyLedger{}
	data, rev, err := s.store.Get(ctx, path)
	switch {
	case err == nil:
		history, err = forum.DecodeLedger(data)
		if err != nil {
			// Never clobber a remote object we cannot read back.
			return nil, "", fmt.Errorf("pull ledger %s: %w", path, err)
		}
	case errors.Is(err, ErrNotFound):
		rev = ""
	default:
		return nil, "", fmt.Errorf("pull ledger %s: %w", path, err)
	}

	annotated := snapshot
	annotated.Sectors = make([]forum.SectorReport, len(snapshot.Sectors))
	copy(annotated.Sectors, snapshot.Sectors)
	for i := range annotated.Sectors {
		annotated.Sectors[i].Champions = anomaly.Detect(annotated.Sectors[i].Champions, history)
	}

	return history.Append(annotated), rev, nil
}

func (s *Syncer) writeLocalCopy(path string, data []byte) {
	if s.cfg.LocalDir == "" {
		return
	}
	target := filepath.Join(s.cfg.LocalDir, filepath.Base(path))
	if err := os.MkdirAll(s.cfg.LocalDir, 0o750); err != nil {
		s.logger.Warn("local ledger copy dir unavailable", zap.Error(err))
		return
	}
	if err := os.WriteFile(target, data, 0o600); err != nil {
		s.logger.Warn("local ledger copy failed", zap.String("target", target), zap.Error(err))
	}
}
