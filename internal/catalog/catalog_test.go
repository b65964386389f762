package catalog

import (
	"testing"

	"github.com/bassista/go_reel/internal/repository"
	"github.com/stretchr/testify/assert"
)

func sampleList() []repository.Movie {
	return []repository.Movie{
		{ID: "1", Title: "The Shawshank Redemption", Genre: "Drama", Rating: 9.3, Watched: true},
		{ID: "2", Title: "inception", Genre: "Sci-Fi", Rating: 8.8, Watched: true},
		{ID: "3", Title: "Pulp Fiction", Genre: "Crime", Rating: 8.9, Watched: true},
		{ID: "4", Title: "The Dark Knight", Genre: "Action", Rating: 9.0, Watched: false},
		{ID: "5", Title: "Heat", Genre: "crime", Rating: 8.9, Watched: false},
	}
}

func ids(movies []repository.Movie) []string {
	out := make([]string, 0, len(movies))
	for _, m := range movies {
		out = append(out, m.ID)
	}
	return out
}

func TestFilter_GenreIsCaseInsensitive(t *testing.T) {
	for _, genre := range []string{"crime", "CRIME", " Crime "} {
		got := Filter(sampleList(), Query{Genre: genre})
		assert.Equal(t, []string{"3", "5"}, ids(got), genre)
	}
	assert.Len(t, Filter(sampleList(), Query{Genre: "all"}), 5)
	assert.Empty(t, Filter(sampleList(), Query{Genre: "Western"}))
}

func TestFilter_WatchedPartitionsTheSet(t *testing.T) {
	all := sampleList()
	watched := Filter(all, Query{Watched: WatchedOnly})
	unwatched := Filter(all, Query{Watched: WatchedUnwatched})

	assert.Equal(t, []string{"1", "2", "3"}, ids(watched))
	assert.Equal(t, []string{"4", "5"}, ids(unwatched))
	assert.Equal(t, len(all), len(watched)+len(unwatched))
	assert.Len(t, Filter(all, Query{Watched: WatchedAll}), len(all))
	assert.Len(t, Filter(all, Query{}), len(all))
}

func TestFilter_Search(t *testing.T) {
	got := Filter(sampleList(), Query{Search: "dark"})
	assert.Equal(t, []string{"4"}, ids(got))

	got = Filter(sampleList(), Query{Search: "INCPTN"})
	assert.Equal(t, []string{"2"}, ids(got), "fuzzy subsequence match folds case")

	got = Filter(sampleList(), Query{Search: "zzz"})
	assert.Empty(t, got)
}

func TestFilter_CombinedCriteria(t *testing.T) {
	got := Filter(sampleList(), Query{Genre: "crime", Watched: WatchedUnwatched})
	assert.Equal(t, []string{"5"}, ids(got))
}

func TestSort_Orders(t *testing.T) {
	tests := []struct {
		order SortOrder
		want  []string
	}{
		{SortDefault, []string{"1", "2", "3", "4", "5"}},
		{"", []string{"1", "2", "3", "4", "5"}},
		{SortRatingDesc, []string{"1", "4", "3", "5", "2"}},
		{SortRatingAsc, []string{"2", "3", "5", "4", "1"}},
		{SortTitleAsc, []string{"5", "2", "3", "4", "1"}},
		{SortTitleDesc, []string{"1", "4", "3", "2", "5"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Sort(sampleList(), tt.order)))
		})
	}
}

func TestSort_ConsistentWithComparator(t *testing.T) {
	asc := Sort(sampleList(), SortRatingAsc)
	for i := 1; i < len(asc); i++ {
		assert.LessOrEqual(t, asc[i-1].Rating, asc[i].Rating)
	}
	desc := Sort(sampleList(), SortRatingDesc)
	for i := 1; i < len(desc); i++ {
		assert.GreaterOrEqual(t, desc[i-1].Rating, desc[i].Rating)
	}
}

func TestSort_DoesNotModifyInput(t *testing.T) {
	in := sampleList()
	_ = Sort(in, SortTitleAsc)
	assert.Equal(t, sampleList(), in)

	assert.NotNil(t, Sort(nil, SortTitleAsc))
}

func TestQuery_Apply(t *testing.T) {
	got := Query{Watched: WatchedOnly, Sort: SortRatingAsc}.Apply(sampleList())
	assert.Equal(t, []string{"2", "3", "1"}, ids(got))
}

func TestQuery_Validation(t *testing.T) {
	v := repository.NewValidator()
	assert.NoError(t, v.Struct(Query{}))
	assert.NoError(t, v.Struct(Query{Watched: WatchedUnwatched, Sort: SortTitleDesc}))
	assert.Error(t, v.Struct(Query{Watched: "maybe"}))
	assert.Error(t, v.Struct(Query{Sort: "random"}))
}

func TestGenres(t *testing.T) {
	assert.Equal(t, []string{"Drama", "Sci-Fi", "Crime", "Action"}, Genres(sampleList()))
	assert.Empty(t, Genres(nil))
}
