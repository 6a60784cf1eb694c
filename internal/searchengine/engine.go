// Package searchengine implements the scoring, filtering, deduplication,
// and hydration pipeline that turns a raw query string into ranked,
// enriched search results over the post/vector/summary stores.
package searchengine

import (
	"context"
	"runtime"

	"github.com/twilog/twilogd/internal/embedder"
	twerrors "github.com/twilog/twilogd/internal/errors"
	"github.com/twilog/twilogd/internal/postrepo"
	"github.com/twilog/twilogd/internal/summaryrepo"
	"github.com/twilog/twilogd/internal/vectorstore"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"
)

// defaultQueryCacheSize bounds the LRU cache of (query, mode, weights,
// settings) -> hits, avoiding repeated scan-and-sort work for repeated
// searches (same idiom as internal/embed/cached.go's CachedEmbedder).
const defaultQueryCacheSize = 256

// Mode selects a scoring strategy: one of the three single-source spaces
// or one of the three cross-space fusion reductions.
type Mode string

const (
	ModeContent   Mode = "content"
	ModeReasoning Mode = "reasoning"
	ModeSummary   Mode = "summary"
	ModeAverage   Mode = "average"
	ModeMaximum   Mode = "maximum"
	ModeMinimum   Mode = "minimum"
)

func (m Mode) isFusion() bool {
	return m == ModeAverage || m == ModeMaximum || m == ModeMinimum
}

// sourceOf maps a single-source mode to the summary-repo field it draws
// auxiliary text from; used by the text-only and substring-search paths.
func (m Mode) sourceOf() string {
	switch m {
	case ModeContent, ModeReasoning, ModeSummary:
		return string(m)
	default:
		return ""
	}
}

// Engine wires the vector stores, post/summary repositories, and embedder
// into the query pipeline described by the component's scoring and
// post-filter design. Every field is read-only after construction; the
// mutable shared resources are the worker-pool semaphore and the
// query-result LRU cache.
type Engine struct {
	embed *embedder.Embedder

	content   *vectorstore.Store
	reasoning *vectorstore.Store
	summary   *vectorstore.Store

	commonIDs []int64 // precomputed intersection, nil unless all three stores are present

	posts     *postrepo.Repository
	summaries *summaryrepo.Repository

	sem   *semaphore.Weighted // bounds concurrent scan-and-sort steps to GOMAXPROCS
	cache *lru.Cache[string, []Hit]
}

// New constructs an Engine. content/reasoning/summary may each be nil if
// that vector space was not loaded; modes requiring an absent store fail
// with ModeUnavailable at query time rather than at construction.
func New(embed *embedder.Embedder, content, reasoning, summary *vectorstore.Store, posts *postrepo.Repository, summaries *summaryrepo.Repository) *Engine {
	cache, _ := lru.New[string, []Hit](defaultQueryCacheSize)
	e := &Engine{
		embed:     embed,
		content:   content,
		reasoning: reasoning,
		summary:   summary,
		posts:     posts,
		summaries: summaries,
		sem:       semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
		cache:     cache,
	}
	if content != nil && reasoning != nil && summary != nil {
		e.commonIDs = vectorstore.CommonIDs(content, reasoning, summary)
	}
	return e
}

// storeFor returns the store backing a single-source mode, or nil for a
// fusion mode or an absent store.
func (e *Engine) storeFor(mode Mode) *vectorstore.Store {
	switch mode {
	case ModeContent:
		return e.content
	case ModeReasoning:
		return e.reasoning
	case ModeSummary:
		return e.summary
	default:
		return nil
	}
}

func (e *Engine) acquire(ctx context.Context) error {
	if e.sem == nil {
		return nil
	}
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return twerrors.Wrap(twerrors.KindProtocolError, err)
	}
	return nil
}

func (e *Engine) release() {
	if e.sem != nil {
		e.sem.Release(1)
	}
}
