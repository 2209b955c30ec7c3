// Package anomaly flags sentiment reversals and drift against the day's
// history.
package anomaly

import (
	"math"

	"github.com/wenfp108/vibe-scout/internal/forum"
)

// DriftThreshold is the absolute vibe delta above which a matched title is
// flagged as sharp drift.
const DriftThreshold = 0.4

// Detect compares current champions against every prior snapshot of the
// day and populates anomalies where a title reappears. The baseline for a
// title is its most recently recorded vibe: later snapshots overwrite
// earlier ones. Matching is exact-title, same-day only; a title that never
// reappears produces no anomaly regardless of its own volatility.
func Detect(champions []forum.ChampionPost, history forum.DailyLedger) []forum.ChampionPost {
	baseline := baselineVibes(history)

	out := make([]forum.ChampionPost, len(champions))
	copy(out, champions)
	for i := range out {
		prev, seen := baseline[out[i].Title]
		if !seen {
			continue
		}
		out[i].Anomaly = classify(prev, out[i].Vibe)
	}
	return out
}

// baselineVibes maps every historical champion title to its latest vibe.
func baselineVibes(history forum.DailyLedger) map[string]float64 {
	baseline := make(map[string]float64)
	for _, snapshot := range history {
		for _, sector := range snapshot.Sectors {
			for _, champion := range sector.Champions {
				baseline[champion.Title] = champion.Vibe
			}
		}
	}
	return baseline
}

func classify(prev, current float64) *forum.Anomaly {
	delta := math.Abs(current - prev)
	switch {
	case (prev > 0 && current < 0) || (prev < 0 && current > 0):
		return &forum.Anomaly{Type: forum.AnomalyReversal, Prev: prev, Delta: delta}
	case delta > DriftThreshold:
		return &forum.Anomaly{Type: forum.AnomalySharpDrift, Prev: prev, Delta: delta}
	default:
		return nil
	}
}
