package searchengine

import (
	"sort"

	"github.com/twilog/twilogd/internal/postrepo"
	"github.com/twilog/twilogd/internal/queryparser"
)

// TextHit is one result of SearchPostsByText, before the rank/dedup
// treatment the vector pipeline applies — this path is a plain
// chronological substring search, not a scored ranking.
type TextHit struct {
	PostID    int64  `json:"post_id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	User      string `json:"user"`
}

// SearchPostsByText parses term with the shell-style include/exclude
// parser, matches it against the field named by source (content,
// reasoning, or summary; any other value never matches), sorts
// survivors by timestamp descending, and returns up to limit of them.
func (e *Engine) SearchPostsByText(term string, limit int, source string) []TextHit {
	terms := queryparser.Tokenize(term)

	var matches []postrepo.Post
	e.posts.All(func(p postrepo.Post) {
		text := e.textForSource(p.PostID, p.Content, source)
		if terms.Matches(text) {
			matches = append(matches, p)
		}
	})

	sort.Slice(matches, func(i, j int) bool { return matches[i].Timestamp > matches[j].Timestamp })

	if limit >= 0 && limit < len(matches) {
		matches = matches[:limit]
	}

	out := make([]TextHit, len(matches))
	for i, p := range matches {
		out[i] = TextHit{PostID: p.PostID, Content: p.Content, Timestamp: p.Timestamp, URL: p.URL, User: p.Author}
	}
	return out
}
