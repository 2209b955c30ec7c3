// Package forum defines the core data model shared across subsystems.
package forum

import (
	"time"
)

// FetchMode selects which upstream listing ordering a run samples.
type FetchMode string

// Listing orderings understood by the upstream API.
const (
	ModeHot    FetchMode = "hot"
	ModeTop    FetchMode = "top"
	ModeRecent FetchMode = "new"
)

// Comment is a single upstream comment, carried verbatim.
type Comment struct {
	Body       string  `json:"body"`
	Author     string  `json:"author"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
	IsTopLevel bool    `json:"is_top_level"`
	ParentID   string  `json:"parent_id"`
	Depth      int     `json:"depth"`
	Gilded     int     `json:"gilded"`
}

// Post is a normalized listing entry. The acquisition pipeline creates it,
// the scorer and ranker enrich it in place, and it is never mutated after
// it has been projected into a ledger snapshot.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Score       int       `json:"score"`
	UpvoteRatio float64   `json:"upvote_ratio"`
	NumComments int       `json:"num_comments"`
	CreatedUTC  float64   `json:"created_utc"`
	Selftext    string    `json:"selftext"`
	Comments    []Comment `json:"comments"`
	VibeVal     float64   `json:"vibe_val"`
	RankScore   float64   `json:"rank_score"`
}

// AnomalyType classifies a detected sentiment anomaly.
type AnomalyType string

// Anomaly classifications.
const (
	AnomalyReversal   AnomalyType = "REVERSAL"
	AnomalySharpDrift AnomalyType = "SHARP_DRIFT"
)

// Anomaly records a sentiment reversal or drift against the day's history.
type Anomaly struct {
	Type  AnomalyType `json:"type"`
	Prev  float64     `json:"prev"`
	Delta float64     `json:"delta"`
}

// ChampionPost is the ledger projection of a top-ranked post.
type ChampionPost struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Score   int      `json:"score"`
	Vibe    float64  `json:"vibe"`
	Summary string   `json:"summary"`
	Anomaly *Anomaly `json:"anomaly,omitempty"`
}

// SectorReport holds one forum's results for one run. Champions are sorted
// descending by rank score and length-bounded by the configured top-N.
type SectorReport struct {
	Subreddit    string         `json:"subreddit"`
	AvgSentiment float64        `json:"avg_sentiment"`
	Champions    []ChampionPost `json:"champions"`
}

// TimeSnapshot is the append unit of the ledger: one run's full output.
type TimeSnapshot struct {
	Timestamp time.Time      `json:"timestamp"`
	Sectors   []SectorReport `json:"sectors"`
}

// DailyLedger is the ordered history of snapshots for one calendar day,
// persisted as a single remote object. Snapshots are kept in non-decreasing
// timestamp order.
type DailyLedger []TimeSnapshot

// Append adds a snapshot to the ledger. Appending is the only mutation the
// ledger supports within a day.
func (l DailyLedger) Append(s TimeSnapshot) DailyLedger {
	return append(l, s)
}

// DayKey renders the calendar-day object key for t, e.g. "2026-02-04".
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
