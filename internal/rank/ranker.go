// Package rank orders posts by combined popularity and sentiment intensity
// and selects champions.
package rank

import (
	"math"
	"sort"

	"github.com/wenfp108/vibe-scout/internal/forum"
)

// DefaultEpsilon keeps exactly-neutral posts rankable: a highly popular
// post with zero affect should still contend.
const DefaultEpsilon = 0.1

// DefaultChampionCount bounds the champions selected per sector.
const DefaultChampionCount = 5

// SummaryRunes bounds the champion summary projection.
const SummaryRunes = 100

// Ranker computes rank scores and champion projections.
type Ranker struct {
	epsilon   float64
	champions int
}

// New builds a Ranker. Non-positive arguments fall back to the defaults.
func New(epsilon float64, champions int) *Ranker {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	if champions <= 0 {
		champions = DefaultChampionCount
	}
	return &Ranker{epsilon: epsilon, champions: champions}
}

// Rank fills in rank scores and returns the posts ordered descending.
// Ties preserve original fetch order.
func (r *Ranker) Rank(posts []forum.Post) []forum.Post {
	ranked := make([]forum.Post, len(posts))
	copy(ranked, posts)
	for i := range ranked {
		ranked[i].RankScore = float64(ranked[i].Score) * (math.Abs(ranked[i].VibeVal) + r.epsilon)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RankScore > ranked[j].RankScore
	})
	return ranked
}

// Champions projects the top-N ranked posts into their ledger form.
func (r *Ranker) Champions(ranked []forum.Post) []forum.ChampionPost {
	n := r.champions
	if n > len(ranked) {
		n = len(ranked)
	}
	champions := make([]forum.ChampionPost, 0, n)
	for _, p := range ranked[:n] {
		champions = append(champions, forum.ChampionPost{
			Title:   p.Title,
			URL:     p.URL,
			Score:   p.Score,
			Vibe:    p.VibeVal,
			Summary: summarize(p.Selftext),
		})
	}
	return champions
}

// AvgSentiment is the arithmetic mean of vibe over all fetched posts, not
// just champions.
func AvgSentiment(posts []forum.Post) float64 {
	if len(posts) == 0 {
		return 0
	}
	var sum float64
	for _, p := range posts {
		sum += p.VibeVal
	}
	return sum / float64(len(posts))
}

func summarize(text string) string {
	runes := []rune(text)
	if len(runes) <= SummaryRunes {
		return text
	}
	return string(runes[:SummaryRunes])
}
