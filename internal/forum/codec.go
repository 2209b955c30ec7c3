package forum

import (
	"encoding/json"
	"fmt"
	"time"
)

// The remote root has historically received two incompatible field-naming
// schemes for the same logical data ("time"/"data"/"sub"/"sentiment"/"pop"
// alongside the current names). Writes are always canonical; the read path
// below accepts both so legacy day objects stay decodable.

// EncodeLedger renders the canonical JSON array form of the ledger.
func EncodeLedger(l DailyLedger) ([]byte, error) {
	if l == nil {
		l = DailyLedger{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return data, nil
}

// DecodeLedger parses a day object, accepting legacy field names.
func DecodeLedger(data []byte) (DailyLedger, error) {
	var l DailyLedger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return l, nil
}

type snapshotWire struct {
	Timestamp *string        `json:"timestamp"`
	Time      *string        `json:"time"`
	Sectors   []SectorReport `json:"sectors"`
	Data      []SectorReport `json:"data"`
}

// UnmarshalJSON accepts both the canonical and the legacy snapshot shape.
func (s *TimeSnapshot) UnmarshalJSON(data []byte) error {
	var w snapshotWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	raw := ""
	if w.Timestamp != nil {
		raw = *w.Timestamp
	} else if w.Time != nil {
		raw = *w.Time
	}
	ts, err := parseTimestamp(raw)
	if err != nil {
		return err
	}
	s.Timestamp = ts
	if w.Sectors != nil {
		s.Sectors = w.Sectors
	} else {
		s.Sectors = w.Data
	}
	return nil
}

// MarshalJSON always writes the canonical shape with an RFC 3339 timestamp.
func (s TimeSnapshot) MarshalJSON() ([]byte, error) {
	sectors := s.Sectors
	if sectors == nil {
		sectors = []SectorReport{}
	}
	return json.Marshal(struct {
		Timestamp string         `json:"timestamp"`
		Sectors   []SectorReport `json:"sectors"`
	}{
		Timestamp: s.Timestamp.Format(time.RFC3339),
		Sectors:   sectors,
	})
}

type sectorWire struct {
	Subreddit    *string        `json:"subreddit"`
	Sub          *string        `json:"sub"`
	AvgSentiment *float64       `json:"avg_sentiment"`
	Sentiment    *float64       `json:"sentiment"`
	Champions    []ChampionPost `json:"champions"`
}

// UnmarshalJSON accepts both sector shapes ("subreddit"/"sub", etc.).
func (r *SectorReport) UnmarshalJSON(data []byte) error {
	var w sectorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Subreddit != nil {
		r.Subreddit = *w.Subreddit
	} else if w.Sub != nil {
		r.Subreddit = *w.Sub
	}
	if w.AvgSentiment != nil {
		r.AvgSentiment = *w.AvgSentiment
	} else if w.Sentiment != nil {
		r.AvgSentiment = *w.Sentiment
	}
	r.Champions = w.Champions
	return nil
}

type championWire struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Score   *int     `json:"score"`
	Pop     *int     `json:"pop"`
	Vibe    float64  `json:"vibe"`
	Summary string   `json:"summary"`
	Anomaly *Anomaly `json:"anomaly"`
}

// UnmarshalJSON accepts both champion shapes ("score"/"pop").
func (c *ChampionPost) UnmarshalJSON(data []byte) error {
	var w championWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.Title = w.Title
	c.URL = w.URL
	if w.Score != nil {
		c.Score = *w.Score
	} else if w.Pop != nil {
		c.Score = *w.Pop
	}
	c.Vibe = w.Vibe
	c.Summary = w.Summary
	c.Anomaly = w.Anomaly
	return nil
}

// parseTimestamp tolerates RFC 3339 and the zone-less variant legacy
// writers produced.
func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	ts, err := time.Parse("2006-01-02T15:04:05", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse snapshot timestamp %q: %w", raw, err)
	}
	return ts.UTC(), nil
}
