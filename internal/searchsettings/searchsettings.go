// Package searchsettings defines the typed filter/paging configuration
// accepted by search_similar, and its (de)serialization from RPC params.
package searchsettings

import (
	"encoding/json"

	twerrors "github.com/twilog/twilogd/internal/errors"
)

// AuthorFilter is a sum type: at most one of Includes/Excludes is active
// (set), plus independently optional post-count thresholds. Grounded on
// settings.py's UserFilterSettings, re-modelled as a tagged sum type per
// the redesign note rather than ported as a dynamic dict.
type AuthorFilter struct {
	Includes     []string // nil when inactive
	Excludes     []string // nil when inactive
	ThresholdMin *int     // nil when unset
	ThresholdMax *int     // nil when unset
}

// Allows reports whether author passes the filter, given its post count.
func (f AuthorFilter) Allows(author string, postCount int) bool {
	if len(f.Includes) > 0 {
		if !contains(f.Includes, author) {
			return false
		}
	} else if len(f.Excludes) > 0 {
		if contains(f.Excludes, author) {
			return false
		}
	}

	if f.ThresholdMin != nil && postCount < *f.ThresholdMin {
		return false
	}
	if f.ThresholdMax != nil && postCount > *f.ThresholdMax {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// DateRange is an optional from/to bound over the post timestamp string
// (format "YYYY-MM-DD HH:MM:SS", lexicographically sortable so plain
// string comparison implements the range check).
type DateRange struct {
	From string // "" when unset
	To   string // "" when unset
}

// Allows reports whether timestamp passes the range. An empty timestamp
// always passes, matching settings.py's is_date_allowed.
func (d DateRange) Allows(timestamp string) bool {
	if timestamp == "" {
		return true
	}
	if d.From != "" && timestamp < d.From {
		return false
	}
	if d.To != "" && timestamp > d.To {
		return false
	}
	return true
}

// Settings bundles the three sub-filters accepted by search_similar
// (author filter, date range, top_k), each independently nullable/default.
type Settings struct {
	Author AuthorFilter
	Date   DateRange
	TopK   int
}

// Default returns the zero-value settings with the default top_k.
func Default() Settings {
	return Settings{TopK: 10}
}

// wireAuthorFilter is the JSON shape of the author filter sub-object:
// includes/excludes are mutually exclusive keys, thresholds independent.
type wireAuthorFilter struct {
	Includes     []string `json:"includes,omitempty"`
	Excludes     []string `json:"excludes,omitempty"`
	ThresholdMin *int     `json:"threshold_min,omitempty"`
	ThresholdMax *int     `json:"threshold_max,omitempty"`
}

type wireDateFilter struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

type wireSettings struct {
	UserFilter wireAuthorFilter `json:"user_filter"`
	DateFilter wireDateFilter   `json:"date_filter"`
	TopK       int              `json:"top_k"`
}

// FromJSON decodes a settings object from an RPC params field. A nil or
// empty payload yields Default().
func FromJSON(raw json.RawMessage) (Settings, error) {
	if len(raw) == 0 {
		return Default(), nil
	}

	var w wireSettings
	w.TopK = 10
	if err := json.Unmarshal(raw, &w); err != nil {
		return Settings{}, err
	}

	return Settings{
		Author: AuthorFilter{
			Includes:     w.UserFilter.Includes,
			Excludes:     w.UserFilter.Excludes,
			ThresholdMin: w.UserFilter.ThresholdMin,
			ThresholdMax: w.UserFilter.ThresholdMax,
		},
		Date: DateRange{
			From: w.DateFilter.From,
			To:   w.DateFilter.To,
		},
		TopK: w.TopK,
	}, nil
}

// NormalizeWeights validates and normalizes the three fusion weights for
// the "average" mode. An empty slice defaults to [1,1,1]. Per the
// redesign note in spec.md §9, a weight list whose length is not exactly
// 3 fails ValueOutOfRange rather than being silently truncated or padded
// (the reference implementation's behaviour).
func NormalizeWeights(weights []float64) ([3]float64, error) {
	if len(weights) == 0 {
		weights = []float64{1, 1, 1}
	}
	if len(weights) != 3 {
		return [3]float64{}, twerrors.ValueOutOfRange("weights", "weights must have exactly 3 entries")
	}

	sum := weights[0] + weights[1] + weights[2]
	if sum <= 0 {
		return [3]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, nil
	}
	return [3]float64{weights[0] / sum, weights[1] / sum, weights[2] / sum}, nil
}

// ToJSON encodes settings back to the RPC wire shape.
func (s Settings) ToJSON() ([]byte, error) {
	w := wireSettings{
		UserFilter: wireAuthorFilter{
			Includes:     s.Author.Includes,
			Excludes:     s.Author.Excludes,
			ThresholdMin: s.Author.ThresholdMin,
			ThresholdMax: s.Author.ThresholdMax,
		},
		DateFilter: wireDateFilter{From: s.Date.From, To: s.Date.To},
		TopK:       s.TopK,
	}
	return json.Marshal(w)
}
