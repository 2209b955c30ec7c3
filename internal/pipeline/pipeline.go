// Package pipeline normalizes one forum's listing into scored posts.
package pipeline

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/wenfp108/vibe-scout/internal/fetch"
	"github.com/wenfp108/vibe-scout/internal/forum"
	"github.com/wenfp108/vibe-scout/internal/metrics"
)

// ListingFetcher is the structured fetch path.
type ListingFetcher interface {
	FetchListing(ctx context.Context, forumName string, limit int, mode forum.FetchMode) ([]forum.Post, error)
	FetchComments(ctx context.Context, forumName, postID string, limit int) []forum.Comment
}

// FeedSource is the degraded fallback path.
type FeedSource interface {
	FetchViaFeed(ctx context.Context, forumName string) ([]forum.Post, error)
}

// Scorer maps a unit of text to a polarity in [-1, 1].
type Scorer interface {
	Score(text string) float64
}

// Pipeline acquires, enriches and scores posts for a single forum,
// sequentially: posts are fetched and comment-enriched one at a time to
// keep request ordering deterministic for rate-limit backoff.
type Pipeline struct {
	fetcher ListingFetcher
	feed    FeedSource
	scorer  Scorer
	logger  *zap.Logger
}

// New wires the pipeline.
func New(fetcher ListingFetcher, feed FeedSource, scorer Scorer, logger *zap.Logger) *Pipeline {
	return &Pipeline{fetcher: fetcher, feed: feed, scorer: scorer, logger: logger}
}

// Acquire returns the forum's scored posts. An empty result means "skip
// this forum this run" and is never an error: the structured path falling
// over degrades to the feed, and the feed failing too yields nothing.
func (p *Pipeline) Acquire(ctx context.Context, forumName string, postLimit, commentLimit int, mode forum.FetchMode) []forum.Post {
	posts, err := p.fetcher.FetchListing(ctx, forumName, postLimit, mode)
	switch {
	case err == nil:
		for i := range posts {
			posts[i].Comments = p.fetcher.FetchComments(ctx, forumName, posts[i].ID, commentLimit)
			posts[i].Selftext = scoringText(posts[i])
		}
	case errors.Is(err, fetch.ErrNoData):
		metrics.ObserveFeedFallback()
		p.logger.Warn("structured fetch exhausted pool, degrading to feed",
			zap.String("forum", forumName),
		)
		posts, err = p.feed.FetchViaFeed(ctx, forumName)
		if err != nil {
			p.logger.Warn("feed fallback failed too, skipping forum",
				zap.String("forum", forumName),
				zap.Error(err),
			)
			metrics.ObserveForumSkipped()
			return nil
		}
	default:
		p.logger.Warn("listing fetch failed, skipping forum",
			zap.String("forum", forumName),
			zap.Error(err),
		)
		metrics.ObserveForumSkipped()
		return nil
	}

	if len(posts) == 0 {
		metrics.ObserveForumSkipped()
		return nil
	}

	for i := range posts {
		posts[i].VibeVal = p.scorer.Score(posts[i].Selftext)
	}
	return posts
}

// scoringText concatenates the title, the post body and the top comment
// bodies. The title alone is intentionally not enough: forum sentiment is
// driven as much by reaction as by the headline.
func scoringText(p forum.Post) string {
	parts := make([]string, 0, 2+len(p.Comments))
	parts = append(parts, p.Title)
	if body := strings.TrimSpace(p.Selftext); body != "" && body != p.Title {
		parts = append(parts, body)
	}
	for _, c := range p.Comments {
		if body := strings.TrimSpace(c.Body); body != "" {
			parts = append(parts, body)
		}
	}
	return strings.Join(parts, " ")
}
