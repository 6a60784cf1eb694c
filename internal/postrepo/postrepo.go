// Package postrepo loads the Twilog post CSV and derives per-author
// indexes used by the search engine's author filter and suggestions.
package postrepo

import (
	"encoding/csv"
	"fmt"
	"html"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	twerrors "github.com/twilog/twilogd/internal/errors"
)

// Post is one row of the source CSV, author-enriched at load time.
type Post struct {
	PostID    int64
	URL       string
	Timestamp string
	Content   string
	LogType   int
	Author    string
}

// urlPattern extracts the author handle and the status id from a
// twitter.com/x.com status URL. Grounded on data_csv.py's
// _extract_user_and_post_id regex.
var urlPattern = regexp.MustCompile(`https?://(?:www\.)?(?:twitter\.com|x\.com)/([^/]+)/status/(\d+)`)

// Repository is the immutable, in-memory post table plus author indexes.
// Constructed empty by New, populated once by Load, read-only thereafter.
type Repository struct {
	posts             map[int64]Post
	authorPostCounts  map[string]int
	authorList        []string
}

// New returns an empty Repository. Call Load to populate it.
func New() *Repository {
	return &Repository{
		posts:            make(map[int64]Post),
		authorPostCounts: make(map[string]int),
	}
}

// Load reads the 5-column, headerless CSV at path and builds the post
// table and author indexes. When multiple rows share a post_id, the row
// with the largest log_type wins (matches data_csv.py's
// _extract_users_from_csv conflict rule).
func (r *Repository) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return twerrors.CorruptStore(fmt.Sprintf("cannot open post CSV %s", path), err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 5
	reader.LazyQuotes = true

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return twerrors.CorruptStore(fmt.Sprintf("malformed row in %s", path), err)
		}

		postID, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			continue
		}
		logType, err := strconv.Atoi(record[4])
		if err != nil {
			logType = 0
		}

		existing, ok := r.posts[postID]
		if ok && existing.LogType >= logType {
			continue
		}

		url := record[1]
		content := html.UnescapeString(record[3])
		author := authorFromURL(url, postID)

		r.posts[postID] = Post{
			PostID:    postID,
			URL:       url,
			Timestamp: record[2],
			Content:   content,
			LogType:   logType,
			Author:    author,
		}
	}

	r.rebuildAuthorIndex()
	return nil
}

// authorFromURL extracts the author handle, requiring the URL's status id
// to agree with postID; otherwise the post has no derivable author.
func authorFromURL(url string, postID int64) string {
	m := urlPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	statusID, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || statusID != postID {
		return ""
	}
	return m[1]
}

func (r *Repository) rebuildAuthorIndex() {
	r.authorPostCounts = make(map[string]int, len(r.posts))
	for _, p := range r.posts {
		if p.Author == "" {
			continue
		}
		r.authorPostCounts[p.Author]++
	}

	authors := make([]string, 0, len(r.authorPostCounts))
	for a := range r.authorPostCounts {
		authors = append(authors, a)
	}
	sort.Strings(authors)
	r.authorList = authors
}

// Get returns the post with the given id, if present.
func (r *Repository) Get(postID int64) (Post, bool) {
	p, ok := r.posts[postID]
	return p, ok
}

// AuthorOf returns the derived author of a post, or "" if unknown.
func (r *Repository) AuthorOf(postID int64) string {
	return r.posts[postID].Author
}

// CountOf returns the number of posts attributed to an author.
func (r *Repository) CountOf(author string) int {
	return r.authorPostCounts[author]
}

// Authors returns the sorted, de-duplicated list of known authors. The
// caller must not mutate the returned slice.
func (r *Repository) Authors() []string {
	return r.authorList
}

// Len returns the number of loaded posts.
func (r *Repository) Len() int {
	return len(r.posts)
}

// All calls fn for every loaded post. Iteration order is unspecified.
func (r *Repository) All(fn func(Post)) {
	for _, p := range r.posts {
		fn(p)
	}
}

var (
	urlStripPattern     = regexp.MustCompile(`https?://\S+`)
	mentionStripPattern = regexp.MustCompile(`@\w+`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// StripContent removes URLs and @mentions and collapses whitespace, for
// display-oriented callers. Grounded on data_csv.py's strip_content; the
// canonical Content field used for matching and hydration is left
// untouched.
func StripContent(content string) string {
	stripped := urlStripPattern.ReplaceAllString(content, "")
	stripped = mentionStripPattern.ReplaceAllString(stripped, "")
	stripped = whitespacePattern.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(stripped)
}
