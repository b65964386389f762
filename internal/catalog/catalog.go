// Package catalog filters, searches and orders movie listings.
package catalog

import (
	"sort"
	"strings"

	"github.com/bassista/go_reel/internal/repository"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// WatchedFilter selects movies by their watched flag.
type WatchedFilter string

const (
	WatchedAll       WatchedFilter = "all"
	WatchedOnly      WatchedFilter = "watched"
	WatchedUnwatched WatchedFilter = "unwatched"
)

// SortOrder names a listing order.
type SortOrder string

const (
	SortDefault    SortOrder = "default"
	SortRatingDesc SortOrder = "rating-desc"
	SortRatingAsc  SortOrder = "rating-asc"
	SortTitleAsc   SortOrder = "title-asc"
	SortTitleDesc  SortOrder = "title-desc"
)

// Query is the listing request. Zero values mean "no filter" and store order.
type Query struct {
	Genre   string        `form:"genre" json:"genre" validate:"max=64"`
	Watched WatchedFilter `form:"watched" json:"watched" validate:"omitempty,oneof=all watched unwatched"`
	Sort    SortOrder     `form:"sort" json:"sort" validate:"omitempty,oneof=default rating-desc rating-asc title-asc title-desc"`
	Search  string        `form:"q" json:"q" validate:"max=200"`
}

// Apply returns the movies selected by q in the requested order.
// The input slice is never modified.
func (q Query) Apply(movies []repository.Movie) []repository.Movie {
	return Sort(Filter(movies, q), q.Sort)
}

// Filter keeps the movies matching every criterion of q. Genre matches case-insensitively,
// and the search term is a fuzzy, case-insensitive match against the title.
func Filter(movies []repository.Movie, q Query) []repository.Movie {
	genre := strings.TrimSpace(q.Genre)
	if strings.EqualFold(genre, "all") {
		genre = ""
	}
	search := strings.TrimSpace(q.Search)

	out := make([]repository.Movie, 0, len(movies))
	for _, m := range movies {
		if genre != "" && !strings.EqualFold(m.Genre, genre) {
			continue
		}
		switch q.Watched {
		case WatchedOnly:
			if !m.Watched {
				continue
			}
		case WatchedUnwatched:
			if m.Watched {
				continue
			}
		}
		if search != "" && !fuzzy.MatchNormalizedFold(search, m.Title) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Sort returns a copy of movies in the given order. Ties keep their input order.
func Sort(movies []repository.Movie, order SortOrder) []repository.Movie {
	out := append([]repository.Movie(nil), movies...)
	if out == nil {
		out = []repository.Movie{}
	}

	switch order {
	case SortRatingDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	case SortRatingAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating < out[j].Rating })
	case SortTitleAsc, SortTitleDesc:
		// a Collator keeps internal buffers, so each sort gets its own
		col := collate.New(language.English, collate.IgnoreCase)
		desc := order == SortTitleDesc
		sort.SliceStable(out, func(i, j int) bool {
			c := col.CompareString(out[i].Title, out[j].Title)
			if desc {
				return c > 0
			}
			return c < 0
		})
	}
	return out
}

// Genres lists the distinct genres present, in first-seen order, folding case.
func Genres(movies []repository.Movie) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, m := range movies {
		key := strings.ToLower(m.Genre)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m.Genre)
	}
	return out
}
