package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wenfp108/vibe-scout/internal/fetch"
	"github.com/wenfp108/vibe-scout/internal/forum"
)

type fakeFetcher struct {
	posts      []forum.Post
	listingErr error
	comments   map[string][]forum.Comment
	calls      []string
}

func (f *fakeFetcher) FetchListing(_ context.Context, _ string, _ int, _ forum.FetchMode) ([]forum.Post, error) {
	if f.listingErr != nil {
		return nil, f.listingErr
	}
	out := make([]forum.Post, len(f.posts))
	copy(out, f.posts)
	return out, nil
}

func (f *fakeFetcher) FetchComments(_ context.Context, _ string, postID string, _ int) []forum.Comment {
	f.calls = append(f.calls, postID)
	return f.comments[postID]
}

type fakeFeed struct {
	posts []forum.Post
	err   error
	hits  int
}

func (f *fakeFeed) FetchViaFeed(context.Context, string) ([]forum.Post, error) {
	f.hits++
	return f.posts, f.err
}

type fixedScorer struct {
	byText map[string]float64
}

func (s fixedScorer) Score(text string) float64 { return s.byText[text] }

func TestAcquireEnrichesAndScores(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		posts: []forum.Post{
			{ID: "p1", Title: "Good title", Selftext: "solid body"},
		},
		comments: map[string][]forum.Comment{
			"p1": {{Body: "nice"}, {Body: "love it"}},
		},
	}
	scorer := fixedScorer{byText: map[string]float64{
		"Good title solid body nice love it": 0.8,
	}}
	feed := &fakeFeed{}

	got := New(fetcher, feed, scorer, zap.NewNop()).
		Acquire(context.Background(), "test", 10, 3, forum.ModeHot)

	require.Len(t, got, 1)
	require.Equal(t, "Good title solid body nice love it", got[0].Selftext)
	require.InDelta(t, 0.8, got[0].VibeVal, 1e-9)
	require.Equal(t, []string{"p1"}, fetcher.calls)
	require.Zero(t, feed.hits)
}

func TestAcquireDelegatesToFeedOnPoolExhaustion(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{listingErr: fetch.ErrNoData}
	feed := &fakeFeed{posts: []forum.Post{
		{ID: "f1", Title: "Degraded", Selftext: "Degraded", UpvoteRatio: 1.0},
	}}
	scorer := fixedScorer{byText: map[string]float64{"Degraded": -0.2}}

	got := New(fetcher, feed, scorer, zap.NewNop()).
		Acquire(context.Background(), "test", 10, 3, forum.ModeHot)

	require.Equal(t, 1, feed.hits)
	require.Len(t, got, 1)
	require.InDelta(t, -0.2, got[0].VibeVal, 1e-9)
	// Degraded posts are not comment-enriched.
	require.Empty(t, fetcher.calls)
}

func TestAcquireReturnsEmptyWhenBothPathsFail(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{listingErr: fetch.ErrNoData}
	feed := &fakeFeed{err: errors.New("feed down")}

	got := New(fetcher, feed, fixedScorer{}, zap.NewNop()).
		Acquire(context.Background(), "test", 10, 3, forum.ModeHot)
	require.Empty(t, got)
}

func TestAcquireReturnsEmptyOnEmptyListing(t *testing.T) {
	t.Parallel()

	got := New(&fakeFetcher{}, &fakeFeed{}, fixedScorer{}, zap.NewNop()).
		Acquire(context.Background(), "test", 10, 3, forum.ModeHot)
	require.Empty(t, got)
}

func TestScoringTextSkipsBlankAndDuplicateBodies(t *testing.T) {
	t.Parallel()

	p := forum.Post{
		Title:    "Same",
		Selftext: "Same",
		Comments: []forum.Comment{{Body: "  "}, {Body: "real"}},
	}
	require.Equal(t, "Same real", scoringText(p))
}
