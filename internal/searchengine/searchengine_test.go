package searchengine

import (
	"context"
	"os"
	"testing"

	"github.com/twilog/twilogd/internal/embedder"
	twerrors "github.com/twilog/twilogd/internal/errors"
	"github.com/twilog/twilogd/internal/postrepo"
	"github.com/twilog/twilogd/internal/searchsettings"
	"github.com/twilog/twilogd/internal/summaryrepo"
	"github.com/twilog/twilogd/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitVec(hot int) []float32 {
	v := make([]float32, 4)
	v[hot] = 1
	return v
}

func testPosts(t *testing.T) *postrepo.Repository {
	t.Helper()
	r := postrepo.New()
	// Load isn't used here; posts are injected directly via a tiny CSV
	// written to a temp file, exercising the real loader end to end.
	path := writeCSV(t, []string{
		`1,https://x.com/alice/status/1,2024-01-01 00:00:00,hello world,1`,
		`2,https://x.com/bob/status/2,2024-01-02 00:00:00,goodbye world,1`,
		`3,https://x.com/alice/status/3,2024-01-03 00:00:00,hello again,1`,
	})
	require.NoError(t, r.Load(path))
	return r
}

func writeCSV(t *testing.T, lines []string) string {
	t.Helper()
	path := t.TempDir() + "/posts.csv"
	var data string
	for _, l := range lines {
		data += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	content, err := vectorstore.FromRows([]int64{1, 2, 3}, [][]float32{unitVec(0), unitVec(1), unitVec(0)})
	require.NoError(t, err)

	fn := func(_ context.Context, text string) ([]float32, error) {
		return unitVec(0), nil
	}
	emb, err := embedder.New(fn, "test-model", 0)
	require.NoError(t, err)

	posts := testPosts(t)
	summaries := summaryrepo.New()

	return New(emb, content, nil, nil, posts, summaries)
}

func TestScore_SingleModeRanksByCosine(t *testing.T) {
	e := newTestEngine(t)
	scored, err := e.score(context.Background(), ModeContent, nil, unitVec(0))
	require.NoError(t, err)
	require.Len(t, scored, 3)
	assert.Equal(t, int64(1), scored[0].PostID)
	assert.Equal(t, int64(3), scored[1].PostID)
}

func TestScore_FusionModeUnavailableWithoutAllStores(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.score(context.Background(), ModeAverage, nil, unitVec(0))
	require.Error(t, err)
	assert.Equal(t, twerrors.KindModeUnavailable, twerrors.GetKind(err))
}

func TestSearch_VectorQueryHydratesAndRanks(t *testing.T) {
	e := newTestEngine(t)
	hits, err := e.Search(context.Background(), "hello", ModeContent, nil, searchsettings.Default())
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, 1, hits[0].Rank)
	assert.Equal(t, "alice", hits[0].Post.User)
}

func TestSearch_TextOnlyPipelineMatchesSubstring(t *testing.T) {
	e := newTestEngine(t)
	hits, err := e.Search(context.Background(), "|hello", ModeContent, nil, searchsettings.Default())
	require.NoError(t, err)
	var ids []int64
	for _, h := range hits {
		ids = append(ids, h.Post.PostID)
		assert.Equal(t, float32(1.0), h.Score)
	}
	assert.ElementsMatch(t, []int64{1, 3}, ids)
}

func TestSearch_TextOnlyFusionModeRejected(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Search(context.Background(), "|hello", ModeAverage, nil, searchsettings.Default())
	require.Error(t, err)
	assert.Equal(t, twerrors.KindHybridNotSupportedForTextOnly, twerrors.GetKind(err))
}

func TestSearch_EmptyQueryFails(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Search(context.Background(), "  | ", ModeContent, nil, searchsettings.Default())
	require.Error(t, err)
	assert.Equal(t, twerrors.KindInvalidQuery, twerrors.GetKind(err))
}

func TestApplyPipeline_DistinctPostsGetConsecutiveRanks(t *testing.T) {
	e := newTestEngine(t)
	// posts 1 and 3 share author alice but different content, so they
	// won't collapse by default; verify distinct ranks are assigned in
	// score order instead.
	scored, err := e.score(context.Background(), ModeContent, nil, unitVec(0))
	require.NoError(t, err)
	hits := e.applyPipeline(scored, nil, searchsettings.Default())
	require.Len(t, hits, 3)
	assert.Equal(t, 1, hits[0].Rank)
	assert.Equal(t, 2, hits[1].Rank)
	assert.Equal(t, 3, hits[2].Rank)
}

func TestSuggestUsers_ReturnsClosestUnknownNames(t *testing.T) {
	e := newTestEngine(t)
	out := e.SuggestUsers([]string{"alice", "alicee"})
	_, stillKnown := out["alice"]
	assert.False(t, stillKnown)
	assert.Contains(t, out["alicee"], "alice")
}

func TestSearchPostsByText_SortsByTimestampDescending(t *testing.T) {
	e := newTestEngine(t)
	hits := e.SearchPostsByText("world", 10, "content")
	require.Len(t, hits, 2)
	assert.Equal(t, int64(2), hits[0].PostID)
	assert.Equal(t, int64(1), hits[1].PostID)
}
