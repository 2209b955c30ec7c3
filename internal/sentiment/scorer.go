// Package sentiment maps text to a polarity scalar.
package sentiment

import (
	"strings"

	"github.com/jonreiter/govader"
)

// Scorer produces a polarity in [-1, 1] for a unit of text. Pure and
// deterministic for a fixed lexicon; safe for reuse across runs.
type Scorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewScorer builds a VADER-backed scorer.
func NewScorer() *Scorer {
	return &Scorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score returns the compound polarity of text. Any failure to score
// degrades to a neutral 0.0 rather than propagating.
func (s *Scorer) Score(text string) (polarity float64) {
	defer func() {
		if recover() != nil {
			polarity = 0.0
		}
	}()
	if strings.TrimSpace(text) == "" {
		return 0.0
	}
	return clamp(s.analyzer.PolarityScores(text).Compound)
}

func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
