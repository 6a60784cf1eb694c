package searchengine

import (
	"context"
	"sort"

	twerrors "github.com/twilog/twilogd/internal/errors"
	"github.com/twilog/twilogd/internal/searchsettings"
	"github.com/twilog/twilogd/internal/vectorstore"
)

// ScoreOnly embeds rawQuery and runs the scoring stage only, skipping
// the author/date/dedup/hydrate post-filter pipeline. This is
// vector_search's shape: a plain, chunkable (post_id, score) list.
func (e *Engine) ScoreOnly(ctx context.Context, rawQuery string, mode Mode, weights []float64) ([]vectorstore.Scored, error) {
	if e.embed == nil {
		return nil, twerrors.New(twerrors.KindNotReady, "embedder not available", nil)
	}
	vec, err := e.embed.Embed(ctx, rawQuery)
	if err != nil {
		return nil, err
	}
	return e.score(ctx, mode, weights, vec)
}

// score runs the scoring stage for mode against the embedded query
// vector, returning hits sorted by score descending (ties broken by
// ascending post id, matching Store.Scan). The scan-and-sort step is
// bounded by the engine's worker-pool semaphore.
func (e *Engine) score(ctx context.Context, mode Mode, weights []float64, query []float32) ([]vectorstore.Scored, error) {
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()

	if !mode.isFusion() {
		store := e.storeFor(mode)
		if store == nil {
			return nil, twerrors.ModeUnavailable(string(mode))
		}
		return store.Scan(query), nil
	}

	if e.content == nil || e.reasoning == nil || e.summary == nil {
		return nil, twerrors.ModeUnavailable(string(mode))
	}

	var w [3]float64
	if mode == ModeAverage {
		normalized, err := searchsettings.NormalizeWeights(weights)
		if err != nil {
			return nil, err
		}
		w = normalized
	}

	out := make([]vectorstore.Scored, 0, len(e.commonIDs))
	for _, id := range e.commonIDs {
		cv, _ := e.content.Get(id)
		rv, _ := e.reasoning.Get(id)
		sv, _ := e.summary.Get(id)

		sc := vectorstore.Dot(cv, query)
		sr := vectorstore.Dot(rv, query)
		ss := vectorstore.Dot(sv, query)

		var combined float32
		switch mode {
		case ModeAverage:
			combined = float32(w[0])*sc + float32(w[1])*sr + float32(w[2])*ss
		case ModeMaximum:
			combined = max3(sc, sr, ss)
		case ModeMinimum:
			combined = min3(sc, sr, ss)
		}
		out = append(out, vectorstore.Scored{PostID: id, Score: combined})
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].PostID < out[b].PostID
	})
	return out, nil
}

func max3(a, b, c float32) float32 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func min3(a, b, c float32) float32 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
