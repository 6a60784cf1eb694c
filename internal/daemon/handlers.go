package daemon

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sort"
	"time"

	"github.com/twilog/twilogd/internal/embedder"
	twerrors "github.com/twilog/twilogd/internal/errors"
	"github.com/twilog/twilogd/internal/postrepo"
	"github.com/twilog/twilogd/internal/searchengine"
	"github.com/twilog/twilogd/internal/searchsettings"
	"github.com/twilog/twilogd/internal/statscache"
	"github.com/twilog/twilogd/internal/summaryrepo"
	"github.com/twilog/twilogd/internal/vectorstore"
)

// Handler bundles every loaded store and the search engine into one
// request-dispatch surface. It holds no per-connection state: every
// method is safe to call concurrently once construction completes.
type Handler struct {
	embed     *embedder.Embedder
	engine    *searchengine.Engine
	posts     *postrepo.Repository
	summaries *summaryrepo.Repository
	stats     *statscache.Cache
	postCSV   string
	modelName string
	startedAt time.Time
}

// NewHandler wires the loaded stores into a request handler.
func NewHandler(embed *embedder.Embedder, engine *searchengine.Engine, posts *postrepo.Repository, summaries *summaryrepo.Repository, stats *statscache.Cache, postCSV, modelName string) *Handler {
	return &Handler{
		embed:     embed,
		engine:    engine,
		posts:     posts,
		summaries: summaries,
		stats:     stats,
		postCSV:   postCSV,
		modelName: modelName,
		startedAt: time.Now(),
	}
}

func (h *Handler) getStatus(context.Context, json.RawMessage) (any, error) {
	return getStatusResult{
		Status:     "ready",
		Ready:      true,
		ServerType: "twilogd",
		Model:      h.modelName,
		DataStats:  &dataStats{TotalPosts: h.posts.Len()},
	}, nil
}

func (h *Handler) checkInit(context.Context, json.RawMessage) (any, error) {
	return checkInitResult{Status: "init_completed"}, nil
}

func (h *Handler) embedText(ctx context.Context, raw json.RawMessage) (any, error) {
	var p embedTextParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, twerrors.InvalidParams("invalid embed_text params", err)
	}
	if h.embed == nil {
		return nil, twerrors.New(twerrors.KindNotReady, "embedder not available", nil)
	}

	vec, err := h.embed.Embed(ctx, p.Text)
	if err != nil {
		return nil, err
	}
	blob, err := vectorstore.EncodeVector(vec)
	if err != nil {
		return nil, twerrors.Wrap(twerrors.KindProtocolError, err)
	}
	return embedTextResult{Vector: base64.StdEncoding.EncodeToString(blob)}, nil
}

func (h *Handler) searchSimilar(ctx context.Context, raw json.RawMessage) (any, error) {
	var p searchSimilarParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, twerrors.InvalidParams("invalid search_similar params", err)
	}

	mode := searchengine.Mode(p.Mode)
	if mode == "" {
		mode = searchengine.ModeContent
	}

	settings, err := searchsettings.FromJSON(p.Settings)
	if err != nil {
		return nil, twerrors.InvalidParams("invalid settings", err)
	}
	if settings.TopK < 1 || settings.TopK > maxSearchSimilarTopK {
		return nil, twerrors.ValueOutOfRange("top_k", "top_k must be between 1 and 100")
	}

	hits, err := h.engine.Search(ctx, p.Query, mode, p.Weights, settings)
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func (h *Handler) searchPostsByText(_ context.Context, raw json.RawMessage) (any, error) {
	var p searchPostsByTextParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, twerrors.InvalidParams("invalid search_posts_by_text params", err)
	}
	if p.Limit < 0 || p.Limit > maxLimit {
		return nil, twerrors.ValueOutOfRange("limit", "limit must be between 1 and 1000")
	}
	if p.Limit == 0 {
		p.Limit = defaultLimit
	}
	if p.Source == "" {
		p.Source = "content"
	}
	return h.engine.SearchPostsByText(p.SearchTerm, p.Limit, p.Source), nil
}

func (h *Handler) getUserStats(_ context.Context, raw json.RawMessage) (any, error) {
	var p getUserStatsParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, twerrors.InvalidParams("invalid get_user_stats params", err)
	}
	if p.Limit < 0 || p.Limit > maxLimit {
		return nil, twerrors.ValueOutOfRange("limit", "limit must be between 1 and 1000")
	}
	if p.Limit == 0 {
		p.Limit = defaultLimit
	}

	authors := h.posts.Authors()
	stats := make([]userStat, len(authors))
	for i, a := range authors {
		stats[i] = userStat{User: a, PostCount: h.posts.CountOf(a)}
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].PostCount != stats[j].PostCount {
			return stats[i].PostCount > stats[j].PostCount
		}
		return stats[i].User < stats[j].User
	})
	if p.Limit < len(stats) {
		stats = stats[:p.Limit]
	}
	return stats, nil
}

func (h *Handler) getDatabaseStats(_ context.Context, _ json.RawMessage) (any, error) {
	const cacheKey = "database_stats"

	var result getDatabaseStatsResult
	if h.stats != nil && h.postCSV != "" {
		fp, err := statscache.Fingerprint(h.postCSV)
		if err == nil {
			if hit, _ := h.stats.Get(cacheKey, fp, &result); hit {
				return result, nil
			}
		}
	}

	authors := make(map[string]struct{})
	var earliest, latest string
	total := 0
	h.posts.All(func(p postrepo.Post) {
		total++
		if p.Author != "" {
			authors[p.Author] = struct{}{}
		}
		if earliest == "" || p.Timestamp < earliest {
			earliest = p.Timestamp
		}
		if latest == "" || p.Timestamp > latest {
			latest = p.Timestamp
		}
	})

	result = getDatabaseStatsResult{
		TotalPosts: total,
		TotalUsers: len(authors),
		DateRange:  dateRangeResult{Earliest: earliest, Latest: latest},
	}

	if h.stats != nil && h.postCSV != "" {
		if fp, err := statscache.Fingerprint(h.postCSV); err == nil {
			_ = h.stats.Put(cacheKey, fp, result)
		}
	}
	return result, nil
}

func (h *Handler) getUserList(context.Context, json.RawMessage) (any, error) {
	return h.posts.Authors(), nil
}

func (h *Handler) suggestUsers(_ context.Context, raw json.RawMessage) (any, error) {
	var p suggestUsersParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, twerrors.InvalidParams("invalid suggest_users params", err)
	}
	return suggestUsersResult{Missing: h.engine.SuggestUsers(p.UserList)}, nil
}

// vectorSearchChunks runs the scoring-only stage and splits the result
// into vectorSearchChunkSize-row chunks for streaming.
func (h *Handler) vectorSearchChunks(ctx context.Context, raw json.RawMessage) ([]vectorSearchResult, error) {
	var p vectorSearchParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, twerrors.InvalidParams("invalid vector_search params", err)
	}

	mode := searchengine.Mode(p.Mode)
	if mode == "" {
		mode = searchengine.ModeContent
	}

	scored, err := h.engine.ScoreOnly(ctx, p.Query, mode, p.Weights)
	if err != nil {
		return nil, err
	}
	// p.TopK <= 0 means absent: return every scored row, unlike
	// search_similar's defaulted, capped top_k.
	if p.TopK > 0 && p.TopK < len(scored) {
		scored = scored[:p.TopK]
	}

	total := len(scored)
	chunkCount := (total + vectorSearchChunkSize - 1) / vectorSearchChunkSize
	if chunkCount == 0 {
		chunkCount = 1
	}

	chunks := make([]vectorSearchResult, 0, chunkCount)
	for i := 0; i < chunkCount; i++ {
		start := i * vectorSearchChunkSize
		end := start + vectorSearchChunkSize
		if end > total {
			end = total
		}
		data := make([][2]float64, end-start)
		for j, s := range scored[start:end] {
			data[j] = [2]float64{float64(s.PostID), float64(s.Score)}
		}
		chunks = append(chunks, vectorSearchResult{
			Data:        data,
			Chunk:       i,
			TotalChunks: chunkCount,
			StartRank:   start + 1,
		})
	}
	return chunks, nil
}
