package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wenfp108/vibe-scout/internal/forum"
)

func historyWith(title string, vibes ...float64) forum.DailyLedger {
	ledger := forum.DailyLedger{}
	for i, v := range vibes {
		ledger = append(ledger, forum.TimeSnapshot{
			Timestamp: time.Date(2026, 2, 4, 8+i, 0, 0, 0, time.UTC),
			Sectors: []forum.SectorReport{{
				Subreddit: "test",
				Champions: []forum.ChampionPost{{Title: title, Vibe: v}},
			}},
		})
	}
	return ledger
}

func TestDetectReversal(t *testing.T) {
	t.Parallel()

	got := Detect(
		[]forum.ChampionPost{{Title: "flip", Vibe: 0.3}},
		historyWith("flip", -0.5),
	)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Anomaly)
	require.Equal(t, forum.AnomalyReversal, got[0].Anomaly.Type)
	require.InDelta(t, -0.5, got[0].Anomaly.Prev, 1e-9)
	require.InDelta(t, 0.8, got[0].Anomaly.Delta, 1e-9)
}

func TestDetectSharpDrift(t *testing.T) {
	t.Parallel()

	got := Detect(
		[]forum.ChampionPost{{Title: "drift", Vibe: 0.7}},
		historyWith("drift", 0.2),
	)
	require.NotNil(t, got[0].Anomaly)
	require.Equal(t, forum.AnomalySharpDrift, got[0].Anomaly.Type)
	require.InDelta(t, 0.5, got[0].Anomaly.Delta, 1e-9)
}

func TestDetectNoAnomalyUnderThreshold(t *testing.T) {
	t.Parallel()

	got := Detect(
		[]forum.ChampionPost{{Title: "calm", Vibe: 0.45}},
		historyWith("calm", 0.2),
	)
	require.Nil(t, got[0].Anomaly)
}

func TestDetectBaselineIsMostRecentObservation(t *testing.T) {
	t.Parallel()

	// Earlier snapshot would be a reversal; the later one overwrites it.
	got := Detect(
		[]forum.ChampionPost{{Title: "evolving", Vibe: 0.3}},
		historyWith("evolving", -0.9, 0.25),
	)
	require.Nil(t, got[0].Anomaly)
}

func TestDetectUnmatchedTitleProducesNoAnomaly(t *testing.T) {
	t.Parallel()

	got := Detect(
		[]forum.ChampionPost{{Title: "brand new", Vibe: -0.95}},
		historyWith("something else", 0.9),
	)
	require.Nil(t, got[0].Anomaly)
}

func TestDetectZeroBoundarySignsAreNotOpposite(t *testing.T) {
	t.Parallel()

	// A neutral previous vibe cannot form a reversal: signs must be
	// strictly opposite.
	got := Detect(
		[]forum.ChampionPost{{Title: "zeroed", Vibe: 0.3}},
		historyWith("zeroed", 0.0),
	)
	require.Nil(t, got[0].Anomaly)
}

func TestDetectDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := []forum.ChampionPost{{Title: "flip", Vibe: 0.3}}
	_ = Detect(in, historyWith("flip", -0.5))
	require.Nil(t, in[0].Anomaly)
}
