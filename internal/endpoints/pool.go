// Package endpoints maintains the per-run pool of content mirrors.
package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Class describes how an endpoint can be reached and how much to trust it.
type Class string

// Endpoint reachability classes.
const (
	ClassPrimary Class = "primary"
	ClassMirror  Class = "mirror"
)

// Endpoint is a candidate base URL. Immutable once handed out.
type Endpoint struct {
	BaseURL string
	Class   Class
}

// Config controls pool refresh behavior.
type Config struct {
	// DirectoryURL is the well-known index of candidate mirrors.
	DirectoryURL string `mapstructure:"directory_url"`
	// StaticMirrors is the fallback list used when the directory is
	// unreachable, malformed or empty.
	StaticMirrors []string `mapstructure:"static_mirrors"`
	// PrimaryURL is the authoritative source. It is always present and
	// always last: it is rate-limit-sensitive and a source of last resort.
	PrimaryURL string `mapstructure:"primary_url"`
	// AllowOnion admits hidden-service entries. Off unless an anonymizing
	// transport is configured.
	AllowOnion     bool `mapstructure:"allow_onion"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
}

// directoryEntry is one record of the remote mirror index.
type directoryEntry struct {
	URL     string `json:"url"`
	Status  string `json:"status"`
	Network string `json:"network"`
}

// Pool supplies an ordered sequence of endpoints for a run. The pool is
// refreshed explicitly between runs and read as an immutable snapshot
// within one; mirrors are shuffled per refresh to distribute load.
type Pool struct {
	cfg     Config
	client  *http.Client
	logger  *zap.Logger
	shuffle func(n int, swap func(i, j int))

	mu      sync.Mutex
	current []Endpoint
}

// New constructs a pool seeded with the static fallback ordering.
func New(cfg Config, logger *zap.Logger) *Pool {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	p := &Pool{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		shuffle: rand.Shuffle,
	}
	p.current = p.staticList()
	return p
}

// Refresh rebuilds the pool from the remote directory, falling back to the
// static list on any failure, and returns the new ordering.
func (p *Pool) Refresh(ctx context.Context) []Endpoint {
	mirrors, err := p.fetchDirectory(ctx)
	var next []Endpoint
	switch {
	case err != nil:
		p.logger.Warn("mirror directory unavailable, using static list", zap.Error(err))
		next = p.staticList()
	case len(mirrors) == 0:
		p.logger.Warn("mirror directory empty, using static list")
		next = p.staticList()
	default:
		next = p.assemble(mirrors)
	}

	p.mu.Lock()
	p.current = next
	p.mu.Unlock()
	return p.snapshot()
}

// Current returns the pool ordering as an immutable snapshot.
func (p *Pool) Current() []Endpoint {
	return p.snapshot()
}

func (p *Pool) snapshot() []Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Endpoint, len(p.current))
	copy(out, p.current)
	return out
}

func (p *Pool) fetchDirectory(ctx context.Context) ([]string, error) {
	if p.cfg.DirectoryURL == "" {
		return nil, fmt.Errorf("no directory url configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.DirectoryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build directory request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request directory: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned %s", resp.Status)
	}

	var entries []directoryEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode directory: %w", err)
	}

	var mirrors []string
	for _, e := range entries {
		if !strings.EqualFold(e.Status, "online") {
			continue
		}
		if !p.cfg.AllowOnion && isOnion(e) {
			continue
		}
		if strings.TrimSpace(e.URL) == "" {
			continue
		}
		mirrors = append(mirrors, strings.TrimRight(e.URL, "/"))
	}
	return mirrors, nil
}

// assemble shuffles the mirrors and pins the primary last.
func (p *Pool) assemble(mirrors []string) []Endpoint {
	out := make([]Endpoint, 0, len(mirrors)+1)
	for _, m := range mirrors {
		out = append(out, Endpoint{BaseURL: m, Class: ClassMirror})
	}
	p.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return append(out, Endpoint{BaseURL: strings.TrimRight(p.cfg.PrimaryURL, "/"), Class: ClassPrimary})
}

// staticList guarantees the primary is reachable even with zero mirrors.
func (p *Pool) staticList() []Endpoint {
	return p.assemble(append([]string(nil), p.cfg.StaticMirrors...))
}

func isOnion(e directoryEntry) bool {
	if strings.EqualFold(e.Network, "onion") || strings.EqualFold(e.Network, "tor") {
		return true
	}
	return strings.Contains(e.URL, ".onion")
}
