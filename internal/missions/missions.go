// Package missions discovers which forums to monitor from tagged issues
// in the command repository.
package missions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const issueTag = "[reddit]"

// Mission names one forum to monitor plus its highlight keywords.
// Keywords are free-form and used only for post-hoc highlighting, never
// for filtering fetch results.
type Mission struct {
	Forum    string
	Keywords []string
}

// Config locates the issue tracker serving as the mission source.
type Config struct {
	// Repo is "owner/name" of the command repository.
	Repo   string `mapstructure:"repo"`
	Token  string `mapstructure:"token"`
	APIURL string `mapstructure:"api_url"`
}

// Source reads open missions from the tracker.
type Source struct {
	cfg    Config
	client *http.Client
}

// NewSource validates the tracker coordinates.
func NewSource(cfg Config) (*Source, error) {
	if !strings.Contains(cfg.Repo, "/") {
		return nil, fmt.Errorf("missions repo must be owner/name, got %q", cfg.Repo)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.github.com"
	}
	return &Source{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type issue struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Fetch returns the currently open missions in tracker order. An issue
// becomes a mission when its title carries the forum tag; the body is a
// comma-separated keyword list.
func (s *Source) Fetch(ctx context.Context) ([]Mission, error) {
	url := fmt.Sprintf("%s/repos/%s/issues?state=open", s.cfg.APIURL, s.cfg.Repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build issues request: %w", err)
	}
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch issues: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("issues api returned %s", resp.Status)
	}

	var issues []issue
	if err := json.NewDecoder(resp.Body).Decode(&issues); err != nil {
		return nil, fmt.Errorf("decode issues: %w", err)
	}

	var missions []Mission
	for _, is := range issues {
		title := strings.ToLower(is.Title)
		if !strings.Contains(title, issueTag) {
			continue
		}
		forum := strings.TrimSpace(strings.ReplaceAll(title, issueTag, ""))
		if forum == "" {
			continue
		}
		missions = append(missions, Mission{
			Forum:    forum,
			Keywords: splitKeywords(is.Body),
		})
	}
	return missions, nil
}

func splitKeywords(body string) []string {
	var keywords []string
	for _, k := range strings.Split(body, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}
