// Package queryparser implements the shell-style include/exclude
// substring tokenizer and the V|T pipeline splitter used to parse
// search queries.
package queryparser

import (
	"strings"
	"unicode"
)

// Terms holds the include and exclude substrings produced by Tokenize.
type Terms struct {
	Includes []string
	Excludes []string
}

// Tokenize parses a shell-style query into include/exclude terms.
//   - Whitespace separates tokens outside double quotes.
//   - A token prefixed by '-' outside quotes is an exclude term; the '-'
//     is consumed.
//   - Double quotes group a token (spaces inside are literal); the
//     quotes themselves are consumed.
//   - Backslash escapes the next character literally, including '-',
//     '"', space, and backslash itself.
//   - Empty tokens are dropped.
func Tokenize(query string) Terms {
	var terms Terms

	runes := []rune(query)
	i := 0
	n := len(runes)

	for i < n {
		for i < n && isSpace(runes[i]) {
			i++
		}
		if i >= n {
			break
		}

		exclude := false
		if runes[i] == '-' {
			exclude = true
			i++
		}

		var b strings.Builder
		inQuotes := false
		for i < n {
			c := runes[i]
			switch {
			case c == '\\' && i+1 < n:
				b.WriteRune(runes[i+1])
				i += 2
			case c == '"':
				inQuotes = !inQuotes
				i++
			case isSpace(c) && !inQuotes:
				goto tokenDone
			default:
				b.WriteRune(c)
				i++
			}
		}
	tokenDone:
		token := b.String()
		if token == "" {
			continue
		}
		if exclude {
			terms.Excludes = append(terms.Excludes, token)
		} else {
			terms.Includes = append(terms.Includes, token)
		}
	}

	return terms
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}

// Matches reports whether text satisfies the include/exclude predicate:
// every include term must be a (case-insensitive) substring of text, and
// no exclude term may be.
func (t Terms) Matches(text string) bool {
	folded := strings.ToLower(text)
	for _, inc := range t.Includes {
		if !strings.Contains(folded, strings.ToLower(inc)) {
			return false
		}
	}
	for _, exc := range t.Excludes {
		if strings.Contains(folded, strings.ToLower(exc)) {
			return false
		}
	}
	return true
}

// SplitPipeline splits a raw query on the first unquoted, unescaped '|':
// the left side is the vector query, the right side is the text filter.
// Either side may be empty after trimming; both empty is reported via ok=false.
//
// No ground-truth source for this splitter survives in the retrieval
// pack (parse_pipeline_query is referenced but its implementation is
// absent); it is implemented directly from the component's prose
// description, reusing the same quote/escape scanning style as Tokenize.
func SplitPipeline(query string) (vectorQuery, textFilter string, ok bool) {
	runes := []rune(query)
	n := len(runes)
	inQuotes := false

	splitAt := -1
	for i := 0; i < n; i++ {
		c := runes[i]
		switch {
		case c == '\\' && i+1 < n:
			i++
		case c == '"':
			inQuotes = !inQuotes
		case c == '|' && !inQuotes:
			splitAt = i
		}
		if splitAt >= 0 {
			break
		}
	}

	if splitAt < 0 {
		vectorQuery = strings.TrimSpace(query)
		textFilter = ""
	} else {
		vectorQuery = strings.TrimSpace(string(runes[:splitAt]))
		textFilter = strings.TrimSpace(string(runes[splitAt+1:]))
	}

	ok = vectorQuery != "" || textFilter != ""
	return vectorQuery, textFilter, ok
}
