package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GitHubConfig locates the ledger inside a repository served by the
// GitHub contents API.
type GitHubConfig struct {
	// Repo is "owner/name".
	Repo   string `mapstructure:"repo"`
	Branch string `mapstructure:"branch"`
	Token  string `mapstructure:"token"`
	APIURL string `mapstructure:"api_url"`
}

// GitHubStore implements ObjectStore on the GitHub contents API. The
// revision token is the blob SHA the API hands back on reads; presenting
// a stale SHA on write is rejected, which carries the precondition-on-write
// contract.
type GitHubStore struct {
	cfg    GitHubConfig
	client *http.Client
}

// NewGitHubStore validates the target repository coordinates.
func NewGitHubStore(cfg GitHubConfig) (*GitHubStore, error) {
	if !strings.Contains(cfg.Repo, "/") {
		return nil, fmt.Errorf("github repo must be owner/name, got %q", cfg.Repo)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.github.com"
	}
	return &GitHubStore{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type contentsResponse struct {
	SHA     string `json:"sha"`
	Content string `json:"content"`
}

type putResponse struct {
	Content *contentsResponse `json:"content"`
}

// Get implements ObjectStore.
func (s *GitHubStore) Get(ctx context.Context, path string) ([]byte, string, error) {
	url := fmt.Sprintf("%s/repos/%s/contents/%s?ref=%s", s.cfg.APIURL, s.cfg.Repo, path, s.cfg.Branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build contents request: %w", err)
	}
	s.decorate(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("get contents: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, path)
	default:
		return nil, "", fmt.Errorf("contents api returned %s for %s", resp.Status, path)
	}

	var body contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", fmt.Errorf("decode contents response: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(body.Content, "\n", ""))
	if err != nil {
		return nil, "", fmt.Errorf("decode contents blob: %w", err)
	}
	return data, body.SHA, nil
}

// Put implements ObjectStore. An empty rev creates the file; the API
// rejects creation of an existing path and updates with a stale SHA,
// both of which surface as ErrRevisionMismatch.
func (s *GitHubStore) Put(ctx context.Context, path string, data []byte, rev string) (string, error) {
	payload := map[string]string{
		"message": fmt.Sprintf("scout: append snapshot to %s", path),
		"content": base64.StdEncoding.EncodeToString(data),
		"branch":  s.cfg.Branch,
	}
	if rev != "" {
		payload["sha"] = rev
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode put payload: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/contents/%s", s.cfg.APIURL, s.cfg.Repo, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("build put request: %w", err)
	}
	s.decorate(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("put contents: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return "", fmt.Errorf("%w: %s", ErrRevisionMismatch, path)
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("contents api returned %s for %s: %s", resp.Status, path, detail)
	}

	var body putResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Content == nil {
		return "", fmt.Errorf("decode put response for %s: %v", path, err)
	}
	return body.Content.SHA, nil
}

func (s *GitHubStore) decorate(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
}
