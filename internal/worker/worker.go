// Package worker executes one full scan run: missions in, snapshot out.
package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wenfp108/vibe-scout/internal/clock"
	"github.com/wenfp108/vibe-scout/internal/forum"
	"github.com/wenfp108/vibe-scout/internal/missions"
	"github.com/wenfp108/vibe-scout/internal/publisher"
	"github.com/wenfp108/vibe-scout/internal/rank"
)

// AcquirePipeline yields scored posts for one forum, or nothing.
type AcquirePipeline interface {
	Acquire(ctx context.Context, forumName string, postLimit, commentLimit int, mode forum.FetchMode) []forum.Post
}

// Syncer persists a snapshot into the day ledger.
type Syncer interface {
	Sync(ctx context.Context, snapshot forum.TimeSnapshot) (forum.DailyLedger, string, error)
}

// MissionSource supplies the forums to monitor.
type MissionSource interface {
	Fetch(ctx context.Context) ([]missions.Mission, error)
}

// Config controls per-run fetch volumes.
type Config struct {
	PostLimit    int             `mapstructure:"post_limit"`
	CommentLimit int             `mapstructure:"comment_limit"`
	Mode         forum.FetchMode `mapstructure:"mode"`
}

func (c Config) normalize() Config {
	if c.PostLimit <= 0 {
		c.PostLimit = 10
	}
	if c.CommentLimit <= 0 {
		c.CommentLimit = 3
	}
	if c.Mode == "" {
		c.Mode = forum.ModeHot
	}
	return c
}

// Announcement is the payload published after a successful sync.
type Announcement struct {
	RunID     string `json:"run_id"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
	Sectors   int    `json:"sectors"`
}

// Worker runs the scan sequentially: forums one at a time, and within a
// forum posts one at a time. Serializing keeps request ordering
// deterministic for rate-limit backoff and avoids piling onto mirrors.
type Worker struct {
	missions  MissionSource
	pipeline  AcquirePipeline
	ranker    *rank.Ranker
	syncer    Syncer
	publisher publisher.Publisher
	clock     clock.Clock
	logger    *zap.Logger
	cfg       Config
}

// New constructs a Worker.
func New(
	missionSource MissionSource,
	pipe AcquirePipeline,
	ranker *rank.Ranker,
	syncer Syncer,
	pub publisher.Publisher,
	clk clock.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		missions:  missionSource,
		pipeline:  pipe,
		ranker:    ranker,
		syncer:    syncer,
		publisher: pub,
		clock:     clk,
		logger:    logger,
		cfg:       cfg.normalize(),
	}
}

// Run executes one scan. A forum yielding nothing is skipped; a sync
// failure after forums succeeded is surfaced, never swallowed, since the
// computed results would otherwise be lost.
func (w *Worker) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := w.logger.With(zap.String("run_id", runID))

	accepted, err := w.missions.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch missions: %w", err)
	}
	if len(accepted) == 0 {
		logger.Info("no missions found, nothing to do")
		return nil
	}
	logger.Info("missions accepted", zap.Int("count", len(accepted)))

	var sectors []forum.SectorReport
	for _, m := range accepted {
		posts := w.pipeline.Acquire(ctx, m.Forum, w.cfg.PostLimit, w.cfg.CommentLimit, w.cfg.Mode)
		if len(posts) == 0 {
			logger.Warn("forum yielded no posts this run", zap.String("forum", m.Forum))
			continue
		}

		ranked := w.ranker.Rank(posts)
		sector := forum.SectorReport{
			Subreddit:    m.Forum,
			AvgSentiment: rank.AvgSentiment(ranked),
			Champions:    w.ranker.Champions(ranked),
		}
		sectors = append(sectors, sector)

		logger.Info("sector built",
			zap.String("forum", m.Forum),
			zap.Int("posts", len(ranked)),
			zap.Float64("avg_sentiment", sector.AvgSentiment),
			zap.Strings("keyword_hits", keywordHits(m.Keywords, sector.Champions)),
		)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if len(sectors) == 0 {
		logger.Warn("no data fetched this run, skipping sync")
		return nil
	}

	snapshot := forum.TimeSnapshot{Timestamp: w.clock.Now(), Sectors: sectors}
	_, path, err := w.syncer.Sync(ctx, snapshot)
	if err != nil {
		logger.Error("ledger sync failed, run results were not persisted",
			zap.Int("sectors", len(sectors)),
			zap.Error(err),
		)
		return fmt.Errorf("sync snapshot: %w", err)
	}

	w.announce(ctx, logger, Announcement{
		RunID:     runID,
		Path:      path,
		Timestamp: snapshot.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		Sectors:   len(sectors),
	})
	return nil
}

// announce is advisory: a failed announcement does not fail the run.
func (w *Worker) announce(ctx context.Context, logger *zap.Logger, a Announcement) {
	if w.publisher == nil {
		return
	}
	id, err := w.publisher.Publish(ctx, a)
	if err != nil {
		logger.Warn("snapshot announcement failed", zap.Error(err))
		return
	}
	logger.Info("snapshot announced", zap.String("message_id", id), zap.String("path", a.Path))
}

// keywordHits reports which highlight keywords appear in champion titles.
func keywordHits(keywords []string, champions []forum.ChampionPost) []string {
	var hits []string
	for _, k := range keywords {
		needle := strings.ToLower(k)
		for _, c := range champions {
			if strings.Contains(strings.ToLower(c.Title), needle) {
				hits = append(hits, k)
				break
			}
		}
	}
	return hits
}
