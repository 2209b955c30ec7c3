// Package fetch issues listing and comment requests against the endpoint
// pool with ordered first-success fallback.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wenfp108/vibe-scout/internal/endpoints"
	"github.com/wenfp108/vibe-scout/internal/forum"
	"github.com/wenfp108/vibe-scout/internal/metrics"
)

// ErrNoData reports that the whole pool was exhausted without a usable
// payload. Callers treat it as "this forum yielded nothing this run".
var ErrNoData = errors.New("no data available from any endpoint")

// Attempt-level classifications. They never leave the package; the
// orchestration loop turns them into advance/backoff decisions.
var (
	errRateLimited      = errors.New("endpoint rate limited")
	errUnreachable      = errors.New("endpoint unreachable")
	errMalformedPayload = errors.New("malformed payload")
)

// Pool supplies the ordered endpoint sequence for a run.
type Pool interface {
	Current() []endpoints.Endpoint
}

// Config controls per-endpoint timeouts and backoff behavior.
type Config struct {
	// MirrorTimeoutSeconds bounds a single mirror request.
	MirrorTimeoutSeconds int `mapstructure:"mirror_timeout_seconds"`
	// PrimaryTimeoutSeconds bounds a single primary request. Longer than
	// the mirror timeout: the primary is slower but authoritative.
	PrimaryTimeoutSeconds int `mapstructure:"primary_timeout_seconds"`
	// RateLimitBackoffSeconds is the fixed pause after a 429 before the
	// next endpoint is tried.
	RateLimitBackoffSeconds int `mapstructure:"rate_limit_backoff_seconds"`
	// PrimaryIntervalSeconds is the fixed delay between requests to the
	// primary, which gets paced instead of cache-busted.
	PrimaryIntervalSeconds int    `mapstructure:"primary_interval_seconds"`
	UserAgent              string `mapstructure:"user_agent"`
}

func (c Config) mirrorTimeout() time.Duration {
	if c.MirrorTimeoutSeconds <= 0 {
		return 8 * time.Second
	}
	return time.Duration(c.MirrorTimeoutSeconds) * time.Second
}

func (c Config) primaryTimeout() time.Duration {
	if c.PrimaryTimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.PrimaryTimeoutSeconds) * time.Second
}

func (c Config) rateLimitBackoff() time.Duration {
	if c.RateLimitBackoffSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.RateLimitBackoffSeconds) * time.Second
}

// Fetcher walks the pool in order and returns the first structurally valid
// payload. No endpoint is retried within a single call; latency is bounded
// by endpoints-tried times the per-endpoint timeout.
type Fetcher struct {
	pool    Pool
	client  *http.Client
	limiter *rate.Limiter
	pause   func(ctx context.Context, d time.Duration)
	logger  *zap.Logger
	cfg     Config
	nowNano func() int64
}

// New constructs a Fetcher over the given pool.
func New(pool Pool, cfg Config, logger *zap.Logger) *Fetcher {
	interval := time.Duration(cfg.PrimaryIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Fetcher{
		pool:    pool,
		client:  &http.Client{},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		pause:   sleepPause,
		logger:  logger,
		cfg:     cfg,
		nowNano: func() int64 { return time.Now().UnixNano() },
	}
}

func sleepPause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// FetchListing returns the forum's listing entries, without comments, from
// the first endpoint that produces a valid payload.
func (f *Fetcher) FetchListing(ctx context.Context, forumName string, limit int, mode forum.FetchMode) ([]forum.Post, error) {
	for _, ep := range f.pool.Current() {
		posts, err := f.tryListing(ctx, ep, forumName, limit, mode)
		if err == nil {
			return posts, nil
		}
		f.advance(ctx, ep, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, ErrNoData
}

// FetchComments returns up to limit comments for a post. Best-effort:
// failures degrade to an empty slice, never an error, since comment
// enrichment is optional context for scoring.
func (f *Fetcher) FetchComments(ctx context.Context, forumName, postID string, limit int) []forum.Comment {
	for _, ep := range f.pool.Current() {
		comments, err := f.tryComments(ctx, ep, forumName, postID, limit)
		if err == nil {
			return comments
		}
		f.advance(ctx, ep, err)
		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

// advance applies the continue-to-next-candidate policy: 429 gets a fixed
// backoff first, everything else just moves on.
func (f *Fetcher) advance(ctx context.Context, ep endpoints.Endpoint, err error) {
	if errors.Is(err, errRateLimited) {
		metrics.ObserveRateLimitBackoff(string(ep.Class))
		f.logger.Debug("endpoint rate limited, backing off",
			zap.String("endpoint", ep.BaseURL),
			zap.Duration("backoff", f.cfg.rateLimitBackoff()),
		)
		f.pause(ctx, f.cfg.rateLimitBackoff())
		return
	}
	f.logger.Debug("endpoint failed, trying next",
		zap.String("endpoint", ep.BaseURL),
		zap.Error(err),
	)
}

func (f *Fetcher) tryListing(ctx context.Context, ep endpoints.Endpoint, forumName string, limit int, mode forum.FetchMode) ([]forum.Post, error) {
	target := fmt.Sprintf("%s/r/%s/%s.json", ep.BaseURL, url.PathEscape(forumName), string(mode))
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("raw_json", "1")
	if mode == forum.ModeTop {
		params.Set("t", "day")
	}

	body, err := f.get(ctx, ep, target, params)
	if err != nil {
		return nil, err
	}
	posts, err := decodeListing(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	return posts, nil
}

func (f *Fetcher) tryComments(ctx context.Context, ep endpoints.Endpoint, forumName, postID string, limit int) ([]forum.Comment, error) {
	target := fmt.Sprintf("%s/r/%s/comments/%s.json", ep.BaseURL, url.PathEscape(forumName), url.PathEscape(postID))
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("raw_json", "1")

	body, err := f.get(ctx, ep, target, params)
	if err != nil {
		return nil, err
	}
	comments, err := decodeComments(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	if len(comments) > limit {
		comments = comments[:limit]
	}
	return comments, nil
}

// get performs one bounded request against one endpoint and classifies
// the outcome.
func (f *Fetcher) get(ctx context.Context, ep endpoints.Endpoint, target string, params url.Values) ([]byte, error) {
	timeout := f.cfg.mirrorTimeout()
	if ep.Class == endpoints.ClassPrimary {
		timeout = f.cfg.primaryTimeout()
		// The primary gets a fixed inter-request delay instead of a
		// cache-busting parameter; its rate limits are stricter.
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", errUnreachable, err)
		}
	} else {
		params.Set("cb", strconv.FormatInt(f.nowNano(), 10))
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUnreachable, err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.ObserveFetch(string(ep.Class), "unreachable", time.Since(start))
		return nil, fmt.Errorf("%w: %v", errUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			metrics.ObserveFetch(string(ep.Class), "unreachable", time.Since(start))
			return nil, fmt.Errorf("%w: %v", errUnreachable, err)
		}
		metrics.ObserveFetch(string(ep.Class), "ok", time.Since(start))
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.ObserveFetch(string(ep.Class), "rate_limited", time.Since(start))
		return nil, errRateLimited
	default:
		metrics.ObserveFetch(string(ep.Class), "unreachable", time.Since(start))
		return nil, fmt.Errorf("%w: status %d", errUnreachable, resp.StatusCode)
	}
}
