// Package embedder adapts an externally supplied embedding callback into
// the single entry point the search engine needs: embed(text) -> unit
// vector. It owns the query-prefix convention and result caching; it
// does not implement or load any model itself.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	twerrors "github.com/twilog/twilogd/internal/errors"
)

// Vector is a 768-d embedding, L2-normalized by the underlying model.
type Vector = []float32

// Dims is the fixed embedding width.
const Dims = 768

// queryPrefix is prepended to every query before embedding, matching the
// convention the offline indexing pipeline uses for document embeddings
// ("検索文書: ") applied symmetrically to queries at search time.
const queryPrefix = "検索文書: "

// Func is the externally supplied embedding callback: given already
// pre-processed text, return its raw (not necessarily normalized)
// vector.
type Func func(ctx context.Context, text string) ([]float32, error)

// Embedder wraps an injected Func with the query prefix, L2
// normalization, an availability flag, and an LRU result cache. The
// caching idiom is grounded on internal/embed/cached.go's CachedEmbedder,
// applied here to a single-callback adapter instead of a multi-backend
// embedder hierarchy.
type Embedder struct {
	fn        Func
	modelName string
	available bool

	cache *lru.Cache[string, Vector]
}

// New wraps fn as an Embedder. cacheSize of 0 disables caching.
func New(fn Func, modelName string, cacheSize int) (*Embedder, error) {
	e := &Embedder{fn: fn, modelName: modelName, available: true}
	if cacheSize > 0 {
		c, err := lru.New[string, Vector](cacheSize)
		if err != nil {
			return nil, err
		}
		e.cache = c
	}
	return e, nil
}

// ModelName returns the model name that was passed to New.
func (e *Embedder) ModelName() string { return e.modelName }

// Available reports whether the embedder is usable. New sets it to true
// and nothing in this package clears it, so it stays true after a failed
// Embed call.
func (e *Embedder) Available() bool { return e.available }

// Embed embeds text, applying the query prefix and L2 normalization. A
// cache hit bypasses the callback entirely.
func (e *Embedder) Embed(ctx context.Context, text string) (Vector, error) {
	key := cacheKey(text, e.modelName)
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			return v, nil
		}
	}

	raw, err := e.fn(ctx, queryPrefix+text)
	if err != nil {
		return nil, twerrors.Wrap(twerrors.KindInvalidQuery, err)
	}

	v := normalize(raw)
	if e.cache != nil {
		e.cache.Add(key, v)
	}
	return v, nil
}

func cacheKey(text, model string) string {
	h := sha256.Sum256([]byte(text + "\x00" + model))
	return hex.EncodeToString(h[:])
}

// normalize returns an L2-normalized copy of v (v itself if it is all
// zeros) and leaves v unchanged, matching the
// normalizeVector helper in internal/embed/types.go.
func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
