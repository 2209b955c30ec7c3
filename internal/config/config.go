// Package config loads and validates scout configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/wenfp108/vibe-scout/internal/endpoints"
	"github.com/wenfp108/vibe-scout/internal/fetch"
	"github.com/wenfp108/vibe-scout/internal/forum"
	"github.com/wenfp108/vibe-scout/internal/ledger"
	"github.com/wenfp108/vibe-scout/internal/missions"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Endpoints endpoints.Config `mapstructure:"endpoints"`
	Fetch     fetch.Config     `mapstructure:"fetch"`
	Ledger    LedgerConfig     `mapstructure:"ledger"`
	Missions  missions.Config  `mapstructure:"missions"`
	Publisher PublisherConfig  `mapstructure:"publisher"`
	Scan      ScanConfig       `mapstructure:"scan"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Server    ServerConfig     `mapstructure:"server"`
}

// LedgerConfig selects and parameterizes the remote ledger store.
type LedgerConfig struct {
	// Provider is "github", "gcs" or "memory".
	Provider  string              `mapstructure:"provider"`
	GitHub    ledger.GitHubConfig `mapstructure:"github"`
	GCSBucket string              `mapstructure:"gcs_bucket"`
	Sync      ledger.Config       `mapstructure:"sync"`
}

// PublisherConfig selects the snapshot announcement channel.
type PublisherConfig struct {
	// Provider is "memory" or "pubsub".
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ScanConfig governs per-run fetch volume and ranking.
type ScanConfig struct {
	PostLimit    int     `mapstructure:"post_limit"`
	CommentLimit int     `mapstructure:"comment_limit"`
	Mode         string  `mapstructure:"mode"`
	Epsilon      float64 `mapstructure:"epsilon"`
	Champions    int     `mapstructure:"champions"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ServerConfig controls the metrics/health HTTP listener.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VIBESCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoints.primary_url", "https://www.reddit.com")
	v.SetDefault("endpoints.timeout_seconds", 10)
	v.SetDefault("endpoints.allow_onion", false)
	v.SetDefault("fetch.mirror_timeout_seconds", 8)
	v.SetDefault("fetch.primary_timeout_seconds", 15)
	v.SetDefault("fetch.rate_limit_backoff_seconds", 5)
	v.SetDefault("fetch.primary_interval_seconds", 7)
	v.SetDefault("fetch.user_agent", "vibe-scout/0.1")
	v.SetDefault("ledger.provider", "github")
	v.SetDefault("ledger.github.branch", "main")
	v.SetDefault("ledger.sync.root", "scans")
	v.SetDefault("ledger.sync.max_conflict_retries", 3)
	v.SetDefault("ledger.sync.local_dir", "data")
	v.SetDefault("ledger.sync.utc_offset_hours", 0)
	v.SetDefault("publisher.provider", "memory")
	v.SetDefault("scan.post_limit", 10)
	v.SetDefault("scan.comment_limit", 3)
	v.SetDefault("scan.mode", string(forum.ModeHot))
	v.SetDefault("scan.epsilon", 0.1)
	v.SetDefault("scan.champions", 5)
	v.SetDefault("logging.development", true)
	v.SetDefault("server.port", 9102)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Endpoints.PrimaryURL == "" {
		return fmt.Errorf("endpoints.primary_url must be set")
	}
	switch c.Ledger.Provider {
	case "github":
		if !strings.Contains(c.Ledger.GitHub.Repo, "/") {
			return fmt.Errorf("ledger.github.repo must be owner/name, got %q", c.Ledger.GitHub.Repo)
		}
	case "gcs":
		if c.Ledger.GCSBucket == "" {
			return fmt.Errorf("ledger.gcs_bucket must be set for the gcs provider")
		}
	case "memory":
	default:
		return fmt.Errorf("ledger.provider must be github, gcs or memory, got %q", c.Ledger.Provider)
	}
	switch c.Publisher.Provider {
	case "pubsub":
		if c.Publisher.ProjectID == "" || c.Publisher.TopicName == "" {
			return fmt.Errorf("publisher.project_id and publisher.topic_name must be set for pubsub")
		}
	case "memory":
	default:
		return fmt.Errorf("publisher.provider must be memory or pubsub, got %q", c.Publisher.Provider)
	}
	switch forum.FetchMode(c.Scan.Mode) {
	case forum.ModeHot, forum.ModeTop, forum.ModeRecent:
	default:
		return fmt.Errorf("scan.mode must be hot, top or new, got %q", c.Scan.Mode)
	}
	if c.Scan.PostLimit <= 0 {
		return fmt.Errorf("scan.post_limit must be > 0")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}
