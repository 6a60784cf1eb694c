package searchengine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	twerrors "github.com/twilog/twilogd/internal/errors"
	"github.com/twilog/twilogd/internal/postrepo"
	"github.com/twilog/twilogd/internal/queryparser"
	"github.com/twilog/twilogd/internal/searchsettings"
	"github.com/twilog/twilogd/internal/vectorstore"
)

// HydratedPost is the enriched post payload attached to each search hit.
type HydratedPost struct {
	PostID    int64    `json:"post_id"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp"`
	URL       string   `json:"url"`
	User      string   `json:"user"`
	Reasoning string   `json:"reasoning,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// Hit is one ranked, hydrated search result.
type Hit struct {
	Rank  int          `json:"rank"`
	Score float32      `json:"score"`
	Post  HydratedPost `json:"post"`
}

// Search runs the full pipeline: pipeline-split the raw query, score it
// (vector, substring, or both), then apply the author/date/dedup/rank/
// hydrate post-filter stages, stopping once top_k distinct posts have
// been accepted.
func (e *Engine) Search(ctx context.Context, rawQuery string, mode Mode, weights []float64, settings searchsettings.Settings) ([]Hit, error) {
	key := cacheKey(rawQuery, mode, weights, settings)
	if e.cache != nil {
		if hits, ok := e.cache.Get(key); ok {
			return hits, nil
		}
	}

	vectorQuery, textFilter, ok := queryparser.SplitPipeline(rawQuery)
	if !ok {
		return nil, twerrors.InvalidQuery("query must contain a vector query, a text filter, or both")
	}

	var (
		scored    []vectorstore.Scored
		textTerms *queryparser.Terms
	)

	switch {
	case vectorQuery == "" && textFilter != "":
		if mode.isFusion() {
			return nil, twerrors.HybridNotSupportedForTextOnly(string(mode))
		}
		terms := queryparser.Tokenize(textFilter)
		scored = e.substringScore(mode, terms)

	case vectorQuery != "":
		if e.embed == nil {
			return nil, twerrors.New(twerrors.KindNotReady, "embedder not available", nil)
		}
		vec, err := e.embed.Embed(ctx, vectorQuery)
		if err != nil {
			return nil, err
		}
		s, err := e.score(ctx, mode, weights, vec)
		if err != nil {
			return nil, err
		}
		scored = s
		if textFilter != "" {
			terms := queryparser.Tokenize(textFilter)
			textTerms = &terms
		}

	default:
		return nil, twerrors.InvalidQuery("query must contain a vector query, a text filter, or both")
	}

	hits := e.applyPipeline(scored, textTerms, settings)
	if e.cache != nil {
		e.cache.Add(key, hits)
	}
	return hits, nil
}

// cacheKey identifies a query result uniquely enough for the LRU cache:
// raw query text, mode, fusion weights, and the serialized filter
// settings.
func cacheKey(rawQuery string, mode Mode, weights []float64, settings searchsettings.Settings) string {
	settingsJSON, _ := settings.ToJSON()
	return fmt.Sprintf("%s\x00%s\x00%v\x00%s", rawQuery, mode, weights, settingsJSON)
}

// substringScore runs the text-only substring search implied by mode's
// source, returning every matching post with score 1.0. Ties are broken
// by ascending post id for a deterministic, reproducible ordering (no
// score differentiates matches in this path).
func (e *Engine) substringScore(mode Mode, terms queryparser.Terms) []vectorstore.Scored {
	source := mode.sourceOf()

	var hits []vectorstore.Scored
	e.posts.All(func(p postrepo.Post) {
		text := e.textForSource(p.PostID, p.Content, source)
		if terms.Matches(text) {
			hits = append(hits, vectorstore.Scored{PostID: p.PostID, Score: 1.0})
		}
	})

	sort.Slice(hits, func(a, b int) bool { return hits[a].PostID < hits[b].PostID })
	return hits
}

// textForSource resolves the text a substring query matches against:
// the post content itself, or the reasoning/summary field from the
// summary repository (empty, thus never matching, if absent).
func (e *Engine) textForSource(postID int64, content, source string) string {
	switch source {
	case "content":
		return content
	case "reasoning":
		if s, ok := e.summaries.Get(postID); ok {
			return s.Reasoning
		}
	case "summary":
		if s, ok := e.summaries.Get(postID); ok {
			return s.Summary
		}
	}
	return ""
}

// applyPipeline runs the author filter (plus the text-filter predicate
// when present), the date filter, duplicate collapse, rank assignment,
// and hydration, stopping once settings.TopK distinct posts have been
// accepted.
func (e *Engine) applyPipeline(scored []vectorstore.Scored, textTerms *queryparser.Terms, settings searchsettings.Settings) []Hit {
	type pending struct {
		score float32
		post  postrepo.Post
	}

	var accepted []pending
	seen := make(map[string]int) // dedup key -> index into accepted

	topK := settings.TopK
	if topK <= 0 {
		topK = 10
	}

	for _, s := range scored {
		post, ok := e.posts.Get(s.PostID)
		if !ok {
			continue
		}

		if textTerms != nil && !textTerms.Matches(post.Content) {
			continue
		}
		if !settings.Author.Allows(post.Author, e.posts.CountOf(post.Author)) {
			continue
		}
		if !settings.Date.Allows(post.Timestamp) {
			continue
		}

		key := post.Author + "\x00" + post.Content
		if idx, dup := seen[key]; dup {
			if post.Timestamp < accepted[idx].post.Timestamp {
				accepted[idx] = pending{score: s.Score, post: post}
			}
			continue
		}

		accepted = append(accepted, pending{score: s.Score, post: post})
		seen[key] = len(accepted) - 1
		if len(accepted) >= topK {
			break
		}
	}

	hits := make([]Hit, len(accepted))
	for i, p := range accepted {
		hits[i] = Hit{
			Rank:  i + 1,
			Score: p.score,
			Post:  e.hydrate(p.post),
		}
	}
	return hits
}

// hydrate builds the wire-facing post payload, attaching reasoning,
// summary, and tags only when the summary repository has the id.
func (e *Engine) hydrate(p postrepo.Post) HydratedPost {
	out := HydratedPost{
		PostID:    p.PostID,
		Content:   strings.TrimRightFunc(p.Content, unicode.IsSpace),
		Timestamp: p.Timestamp,
		URL:       p.URL,
		User:      p.Author,
	}
	if s, ok := e.summaries.Get(p.PostID); ok {
		out.Reasoning = s.Reasoning
		out.Summary = s.Summary
		out.Tags = s.Tags
	}
	return out
}
