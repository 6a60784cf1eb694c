// Package summaryrepo loads the per-post LLM-derived auxiliary records
// (reasoning, summary, tags) produced by the offline batch pipeline.
package summaryrepo

import (
	"bufio"
	"encoding/json"
	"os"

	twerrors "github.com/twilog/twilogd/internal/errors"
)

// Summary is one post's auxiliary record.
type Summary struct {
	PostID    int64
	Reasoning string
	Summary   string
	Tags      []string
}

// jsonLine is the on-disk shape of one results.jsonl line.
type jsonLine struct {
	Key       int64    `json:"key"`
	Reasoning string   `json:"reasoning"`
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
}

// Repository is the immutable, in-memory summary table plus a tag reverse
// index. A missing source file is tolerated: the repository is simply
// empty (grounded on batch_reader.py's load_summaries_data, which returns
// early if the jsonl path doesn't exist).
type Repository struct {
	byID  map[int64]Summary
	byTag map[string][]int64
}

// New returns an empty Repository. Call Load to populate it.
func New() *Repository {
	return &Repository{
		byID:  make(map[int64]Summary),
		byTag: make(map[string][]int64),
	}
}

// Load reads the JSONL file at path, one object per line with keys
// "key"/"reasoning"/"summary"/"tags". Malformed lines are skipped rather
// than failing the whole load, matching the tolerant behaviour of
// batch_reader.py. A missing file leaves the repository empty.
func (r *Repository) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return twerrors.CorruptStore("cannot open summary JSONL", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var parsed jsonLine
		if err := json.Unmarshal(line, &parsed); err != nil {
			continue
		}

		s := Summary{
			PostID:    parsed.Key,
			Reasoning: parsed.Reasoning,
			Summary:   parsed.Summary,
			Tags:      parsed.Tags,
		}
		r.byID[s.PostID] = s
		for _, tag := range s.Tags {
			r.byTag[tag] = append(r.byTag[tag], s.PostID)
		}
	}
	if err := scanner.Err(); err != nil {
		return twerrors.CorruptStore("error scanning summary JSONL", err)
	}

	return nil
}

// Get returns the summary for a post, if present.
func (r *Repository) Get(postID int64) (Summary, bool) {
	s, ok := r.byID[postID]
	return s, ok
}

// Has reports whether a summary exists for postID.
func (r *Repository) Has(postID int64) bool {
	_, ok := r.byID[postID]
	return ok
}

// PostsForTag returns the post ids tagged with tag, in insertion order.
func (r *Repository) PostsForTag(tag string) []int64 {
	return r.byTag[tag]
}

// Len returns the number of loaded summaries.
func (r *Repository) Len() int {
	return len(r.byID)
}
