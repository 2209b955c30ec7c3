package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wenfp108/vibe-scout/internal/clock"
	"github.com/wenfp108/vibe-scout/internal/forum"
	"github.com/wenfp108/vibe-scout/internal/missions"
	"github.com/wenfp108/vibe-scout/internal/publisher"
	"github.com/wenfp108/vibe-scout/internal/rank"
)

type fakeMissions struct {
	missions []missions.Mission
	err      error
}

func (f *fakeMissions) Fetch(context.Context) ([]missions.Mission, error) {
	return f.missions, f.err
}

type fakePipeline struct {
	posts map[string][]forum.Post
	calls []string
}

func (f *fakePipeline) Acquire(_ context.Context, forumName string, _, _ int, _ forum.FetchMode) []forum.Post {
	f.calls = append(f.calls, forumName)
	return f.posts[forumName]
}

type fakeSyncer struct {
	snapshots []forum.TimeSnapshot
	err       error
}

func (f *fakeSyncer) Sync(_ context.Context, s forum.TimeSnapshot) (forum.DailyLedger, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	f.snapshots = append(f.snapshots, s)
	return forum.DailyLedger{s}, "scans/2026-02-04.json", nil
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, any) (string, error) {
	return "", errors.New("broker unavailable")
}

func (failingPublisher) Close() error { return nil }

var testInstant = time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC)

func newTestWorker(src MissionSource, pipe AcquirePipeline, sync Syncer, pub publisher.Publisher) *Worker {
	return New(src, pipe, rank.New(0, 0), sync, pub, clock.Fixed{T: testInstant}, Config{}, zap.NewNop())
}

func post(title string, score int, vibe float64) forum.Post {
	return forum.Post{ID: title, Title: title, Score: score, VibeVal: vibe}
}

func TestRunBuildsSectorPerMission(t *testing.T) {
	t.Parallel()

	pipe := &fakePipeline{posts: map[string][]forum.Post{
		"wallstreetbets": {post("up big", 100, 0.8), post("down bad", 50, -0.6)},
		"stocks":         {post("steady", 20, 0.1)},
	}}
	sync := &fakeSyncer{}
	pub := publisher.NewMemory()
	w := newTestWorker(&fakeMissions{missions: []missions.Mission{
		{Forum: "wallstreetbets", Keywords: []string{"big"}},
		{Forum: "stocks"},
	}}, pipe, sync, pub)

	require.NoError(t, w.Run(context.Background()))
	require.Equal(t, []string{"wallstreetbets", "stocks"}, pipe.calls)
	require.Len(t, sync.snapshots, 1)

	snap := sync.snapshots[0]
	require.Equal(t, testInstant, snap.Timestamp)
	require.Len(t, snap.Sectors, 2)
	require.Equal(t, "wallstreetbets", snap.Sectors[0].Subreddit)
	require.Equal(t, "up big", snap.Sectors[0].Champions[0].Title)
	require.InDelta(t, 0.1, snap.Sectors[0].AvgSentiment, 1e-9)
	require.Equal(t, "stocks", snap.Sectors[1].Subreddit)

	published := pub.Payloads()
	require.Len(t, published, 1)
	ann, ok := published[0].(Announcement)
	require.True(t, ok)
	require.Equal(t, "scans/2026-02-04.json", ann.Path)
	require.Equal(t, 2, ann.Sectors)
	require.NotEmpty(t, ann.RunID)
}

func TestRunNoMissionsIsANoOp(t *testing.T) {
	t.Parallel()

	pipe := &fakePipeline{}
	sync := &fakeSyncer{}
	w := newTestWorker(&fakeMissions{}, pipe, sync, publisher.NewMemory())

	require.NoError(t, w.Run(context.Background()))
	require.Empty(t, pipe.calls)
	require.Empty(t, sync.snapshots)
}

func TestRunMissionFetchFailureIsFatal(t *testing.T) {
	t.Parallel()

	w := newTestWorker(&fakeMissions{err: errors.New("api down")}, &fakePipeline{}, &fakeSyncer{}, publisher.NewMemory())
	require.Error(t, w.Run(context.Background()))
}

func TestRunSkipsEmptyForumsButKeepsOthers(t *testing.T) {
	t.Parallel()

	pipe := &fakePipeline{posts: map[string][]forum.Post{
		"stocks": {post("only one", 10, 0.2)},
	}}
	sync := &fakeSyncer{}
	w := newTestWorker(&fakeMissions{missions: []missions.Mission{
		{Forum: "ghosttown"},
		{Forum: "stocks"},
	}}, pipe, sync, publisher.NewMemory())

	require.NoError(t, w.Run(context.Background()))
	require.Len(t, sync.snapshots, 1)
	require.Len(t, sync.snapshots[0].Sectors, 1)
	require.Equal(t, "stocks", sync.snapshots[0].Sectors[0].Subreddit)
}

func TestRunAllForumsEmptySkipsSync(t *testing.T) {
	t.Parallel()

	sync := &fakeSyncer{}
	w := newTestWorker(&fakeMissions{missions: []missions.Mission{{Forum: "ghosttown"}}},
		&fakePipeline{}, sync, publisher.NewMemory())

	require.NoError(t, w.Run(context.Background()))
	require.Empty(t, sync.snapshots)
}

func TestRunSurfacesSyncFailure(t *testing.T) {
	t.Parallel()

	pipe := &fakePipeline{posts: map[string][]forum.Post{
		"stocks": {post("steady", 20, 0.1)},
	}}
	pub := publisher.NewMemory()
	w := newTestWorker(&fakeMissions{missions: []missions.Mission{{Forum: "stocks"}}},
		pipe, &fakeSyncer{err: errors.New("revision storm")}, pub)

	require.Error(t, w.Run(context.Background()))
	require.Empty(t, pub.Payloads())
}

func TestRunPublishFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	pipe := &fakePipeline{posts: map[string][]forum.Post{
		"stocks": {post("steady", 20, 0.1)},
	}}
	sync := &fakeSyncer{}
	w := newTestWorker(&fakeMissions{missions: []missions.Mission{{Forum: "stocks"}}},
		pipe, sync, failingPublisher{})

	require.NoError(t, w.Run(context.Background()))
	require.Len(t, sync.snapshots, 1)
}

func TestKeywordHitsMatchChampionTitles(t *testing.T) {
	t.Parallel()

	champions := []forum.ChampionPost{
		{Title: "NVDA earnings beat"},
		{Title: "macro doom thread"},
	}
	require.Equal(t, []string{"nvda", "doom"}, keywordHits([]string{"nvda", "doom", "tsla"}, champions))
	require.Empty(t, keywordHits(nil, champions))
}
