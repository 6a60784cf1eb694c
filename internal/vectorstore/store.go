// Package vectorstore loads a chunked directory of safetensors files into
// an in-memory, sorted post-id → vector table and runs brute-force cosine
// similarity scans over it.
package vectorstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	twerrors "github.com/twilog/twilogd/internal/errors"
	"golang.org/x/sync/errgroup"
)

// Dimensions is the fixed embedding width used throughout twilogd.
const Dimensions = 768

// meta is the parsed contents of meta.json.
type meta struct {
	Chunks       int    `json:"chunks"`
	Model        string `json:"model"`
	EmbeddingDim int    `json:"embedding_dim"`
	ChunkSize    int    `json:"chunk_size"`
	CSVPath      string `json:"csv_path"`
}

// Scored pairs a post id with a similarity score.
type Scored struct {
	PostID int64
	Score  float32
}

// Store presents a chunked vector directory as a sorted post-id → vector
// table with O(log M) lookup and a full cosine scan.
type Store struct {
	ids  []int64     // sorted ascending
	rows [][]float32 // rows[i] corresponds to ids[i], each unit-norm, length Dimensions
}

// Load reads meta.json plus every NNNN.safetensors chunk in dir, validates
// them, and returns a ready-to-query Store. Chunk files are parsed
// concurrently; the merge-and-sort happens once all chunks have loaded.
func Load(dir string) (*Store, error) {
	metaPath := filepath.Join(dir, "meta.json")
	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, twerrors.CorruptStore(fmt.Sprintf("missing or unreadable meta.json in %s", dir), err).
			WithDetail("kind", "MetadataMissing")
	}

	var m meta
	if err := json.Unmarshal(metaBytes, &m); err != nil {
		return nil, twerrors.CorruptStore(fmt.Sprintf("malformed meta.json in %s", dir), err).
			WithDetail("kind", "MetadataMissing")
	}
	if m.Chunks <= 0 {
		return nil, twerrors.CorruptStore(fmt.Sprintf("meta.json in %s declares %d chunks", dir, m.Chunks), nil).
			WithDetail("kind", "MetadataMissing")
	}

	chunkIDs := make([][]int64, m.Chunks)
	chunkVecs := make([][]float32, m.Chunks)
	chunkCols := make([]int, m.Chunks)

	g := new(errgroup.Group)
	for i := 0; i < m.Chunks; i++ {
		i := i
		g.Go(func() error {
			path := filepath.Join(dir, fmt.Sprintf("%04d.safetensors", i))
			raw, err := os.ReadFile(path)
			if err != nil {
				return twerrors.CorruptStore(fmt.Sprintf("chunk %d unreadable", i), err).
					WithDetail("kind", "ChunkCorrupt").WithDetail("index", fmt.Sprint(i))
			}

			sf, err := parseSafetensors(raw)
			if err != nil {
				return twerrors.CorruptStore(fmt.Sprintf("chunk %d corrupt", i), err).
					WithDetail("kind", "ChunkCorrupt").WithDetail("index", fmt.Sprint(i))
			}

			ids, err := sf.int64Tensor("post_ids")
			if err != nil {
				return twerrors.CorruptStore(fmt.Sprintf("chunk %d: %v", i, err), err).
					WithDetail("kind", "ChunkCorrupt").WithDetail("index", fmt.Sprint(i))
			}
			vecs, cols, err := sf.float32Matrix("vectors")
			if err != nil {
				return twerrors.CorruptStore(fmt.Sprintf("chunk %d: %v", i, err), err).
					WithDetail("kind", "ChunkCorrupt").WithDetail("index", fmt.Sprint(i))
			}
			if cols != Dimensions {
				return twerrors.CorruptStore(fmt.Sprintf("chunk %d: vector width %d, want %d", i, cols, Dimensions), nil).
					WithDetail("kind", "ShapeMismatch")
			}
			if len(ids)*cols != len(vecs) {
				return twerrors.CorruptStore(fmt.Sprintf("chunk %d: %d ids but %d vector rows", i, len(ids), len(vecs)/cols), nil).
					WithDetail("kind", "ShapeMismatch")
			}

			chunkIDs[i] = ids
			chunkVecs[i] = vecs
			chunkCols[i] = cols
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, ids := range chunkIDs {
		total += len(ids)
	}

	type row struct {
		id  int64
		vec []float32
	}
	merged := make([]row, 0, total)
	for i, ids := range chunkIDs {
		cols := chunkCols[i]
		flat := chunkVecs[i]
		for j, id := range ids {
			merged = append(merged, row{id: id, vec: flat[j*cols : j*cols+cols]})
		}
	}

	sort.Slice(merged, func(a, b int) bool { return merged[a].id < merged[b].id })

	ids := make([]int64, len(merged))
	rows := make([][]float32, len(merged))
	for i, r := range merged {
		ids[i] = r.id
		rows[i] = r.vec
		if i > 0 && ids[i] == ids[i-1] {
			return nil, twerrors.CorruptStore(fmt.Sprintf("duplicate post_id %d across chunks", r.id), nil).
				WithDetail("kind", "DuplicateId").WithDetail("post_id", fmt.Sprint(r.id))
		}
	}

	return &Store{ids: ids, rows: rows}, nil
}

// FromRows builds a Store directly from an already sorted id slice and
// matching rows, without going through Load. Exposed for callers that
// assemble a store from something other than a chunked safetensors
// directory (synthetic fixtures, in-process tests).
func FromRows(ids []int64, rows [][]float32) (*Store, error) {
	if len(ids) != len(rows) {
		return nil, twerrors.CorruptStore("id count does not match row count", nil)
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			return nil, twerrors.CorruptStore("ids must be strictly ascending", nil)
		}
	}
	return &Store{ids: ids, rows: rows}, nil
}

// Len returns the number of rows held by the store.
func (s *Store) Len() int { return len(s.ids) }

// IDs returns the sorted slice of post ids held by the store. The caller
// must not mutate the returned slice.
func (s *Store) IDs() []int64 { return s.ids }

// Get returns the vector for post_id, if present.
func (s *Store) Get(postID int64) ([]float32, bool) {
	i := sort.Search(len(s.ids), func(i int) bool { return s.ids[i] >= postID })
	if i < len(s.ids) && s.ids[i] == postID {
		return s.rows[i], true
	}
	return nil, false
}

// Scan computes cosine similarity between query and every row, returning
// all rows sorted by similarity descending. Since every row and query
// vector is unit-norm (guaranteed by the embedder), cosine similarity
// reduces to a dot product.
func (s *Store) Scan(query []float32) []Scored {
	out := make([]Scored, len(s.ids))
	for i, v := range s.rows {
		out[i] = Scored{PostID: s.ids[i], Score: dot(v, query)}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].PostID < out[b].PostID
	})
	return out
}

// CommonIDs returns the sorted intersection of the post-id sets of three
// stores, used to slice the per-space matrices once for fusion scoring
// modes (average/maximum/minimum).
func CommonIDs(content, reasoning, summary *Store) []int64 {
	set := make(map[int64]int, content.Len())
	for _, id := range content.ids {
		set[id]++
	}
	for _, id := range reasoning.ids {
		if _, ok := set[id]; ok {
			set[id]++
		}
	}
	var common []int64
	for _, id := range summary.ids {
		if set[id] == 2 {
			common = append(common, id)
		}
	}
	sort.Slice(common, func(i, j int) bool { return common[i] < common[j] })
	return common
}

func dot(a, b []float32) float32 {
	var sum float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Dot computes the dot product of two equal-length unit vectors, which
// equals their cosine similarity. Exported for callers that need scores
// aligned to a specific id subset rather than a full Scan.
func Dot(a, b []float32) float32 { return dot(a, b) }
