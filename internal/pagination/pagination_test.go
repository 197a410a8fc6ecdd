package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ints(n int) SliceCollection[int] {
	s := make(SliceCollection[int], n)
	for i := range s {
		s[i] = i + 1
	}
	return s
}

func TestPaginate_TotalPages(t *testing.T) {
	ctx := context.Background()
	route := NewRoute("/api/users")

	tests := []struct {
		name      string
		total     int
		perPage   int
		wantPages int
	}{
		{"empty collection still has one page", 0, 10, 1},
		{"exact multiple", 20, 10, 2},
		{"remainder rounds up", 21, 10, 3},
		{"single item", 1, 100, 1},
		{"per page of one", 7, 1, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Paginate[int](ctx, ints(tt.total), Request{Page: 1, PerPage: tt.perPage, Route: route})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPages, p.Meta.TotalPages)
			assert.Equal(t, int64(tt.total), p.Meta.TotalItems)
			assert.LessOrEqual(t, len(p.Items), tt.perPage)
		})
	}
}

func TestPaginate_SlicesInOrder(t *testing.T) {
	p, err := Paginate[int](context.Background(), ints(25), Request{Page: 2, PerPage: 10, Route: NewRoute("/api/explore")})
	require.NoError(t, err)

	assert.Equal(t, []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, p.Items)
	assert.Equal(t, 2, p.Meta.Page)
	assert.Equal(t, 10, p.Meta.PerPage)
}

func TestPaginate_LastPageIsPartial(t *testing.T) {
	p, err := Paginate[int](context.Background(), ints(25), Request{Page: 3, PerPage: 10, Route: NewRoute("/api/explore")})
	require.NoError(t, err)
	assert.Equal(t, []int{21, 22, 23, 24, 25}, p.Items)
}

func TestPaginate_PastEndIsEmptyNotError(t *testing.T) {
	p, err := Paginate[int](context.Background(), ints(5), Request{Page: 9, PerPage: 10, Route: NewRoute("/api/explore")})
	require.NoError(t, err)

	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)
	assert.Equal(t, 1, p.Meta.TotalPages)
	assert.Equal(t, int64(5), p.Meta.TotalItems)
	assert.Nil(t, p.Links.Next)
	require.NotNil(t, p.Links.Prev)
	assert.Equal(t, "/api/explore?page=8&per_page=10", *p.Links.Prev)
}

func TestPaginate_Links(t *testing.T) {
	route := NewRoute("/api/users/{id}/followers", "id", "7")
	ctx := context.Background()

	first, err := Paginate[int](ctx, ints(30), Request{Page: 1, PerPage: 10, Route: route})
	require.NoError(t, err)
	assert.Equal(t, "/api/users/7/followers?page=1&per_page=10", first.Links.Self)
	require.NotNil(t, first.Links.Next)
	assert.Equal(t, "/api/users/7/followers?page=2&per_page=10", *first.Links.Next)
	assert.Nil(t, first.Links.Prev)

	middle, err := Paginate[int](ctx, ints(30), Request{Page: 2, PerPage: 10, Route: route})
	require.NoError(t, err)
	require.NotNil(t, middle.Links.Next)
	require.NotNil(t, middle.Links.Prev)
	assert.Equal(t, "/api/users/7/followers?page=1&per_page=10", *middle.Links.Prev)

	last, err := Paginate[int](ctx, ints(30), Request{Page: 3, PerPage: 10, Route: route})
	require.NoError(t, err)
	assert.Nil(t, last.Links.Next)
	require.NotNil(t, last.Links.Prev)
}

func TestPaginate_SinglePageHasNoNavigation(t *testing.T) {
	p, err := Paginate[int](context.Background(), ints(0), Request{Page: 1, PerPage: 10, Route: NewRoute("/api/messages")})
	require.NoError(t, err)
	assert.Nil(t, p.Links.Next)
	assert.Nil(t, p.Links.Prev)
}

func TestPaginate_JSONShape(t *testing.T) {
	p, err := Paginate[int](context.Background(), ints(3), Request{Page: 1, PerPage: 2, Route: NewRoute("/api/users")})
	require.NoError(t, err)

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))

	assert.Contains(t, body, "items")
	meta := body["_meta"].(map[string]any)
	assert.EqualValues(t, 1, meta["page"])
	assert.EqualValues(t, 2, meta["per_page"])
	assert.EqualValues(t, 2, meta["total_pages"])
	assert.EqualValues(t, 3, meta["total_items"])

	links := body["_links"].(map[string]any)
	assert.Equal(t, "/api/users?page=1&per_page=2", links["self"])
	assert.Equal(t, "/api/users?page=2&per_page=2", links["next"])
	assert.Contains(t, links, "prev")
	assert.Nil(t, links["prev"])
}

type failingCollection struct{ countErr, sliceErr error }

func (f failingCollection) Count(context.Context) (int64, error) { return 5, f.countErr }
func (f failingCollection) Slice(context.Context, int, int) ([]int, error) {
	return nil, f.sliceErr
}

func TestPaginate_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := Paginate[int](context.Background(), failingCollection{countErr: boom}, Request{Page: 1, PerPage: 10})
	assert.ErrorIs(t, err, boom)

	_, err = Paginate[int](context.Background(), failingCollection{sliceErr: boom}, Request{Page: 1, PerPage: 10})
	assert.ErrorIs(t, err, boom)
}

func TestClampAndParse(t *testing.T) {
	page, perPage := Clamp(0, 500)
	assert.Equal(t, 1, page)
	assert.Equal(t, MaxPerPage, perPage)

	page, perPage = Clamp(-3, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 1, perPage)

	page, perPage = ParseParams("", "")
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPerPage, perPage)

	page, perPage = ParseParams("abc", "1000")
	assert.Equal(t, 1, page)
	assert.Equal(t, MaxPerPage, perPage)

	page, perPage = ParseParams("4", "25")
	assert.Equal(t, 4, page)
	assert.Equal(t, 25, perPage)
}

func TestMap(t *testing.T) {
	p, err := Paginate[int](context.Background(), ints(3), Request{Page: 1, PerPage: 2, Route: NewRoute("/x")})
	require.NoError(t, err)

	doubled := Map(p, func(i int) int { return i * 2 })
	assert.Equal(t, []int{2, 4}, doubled.Items)
	assert.Equal(t, p.Meta, doubled.Meta)
	assert.Equal(t, p.Links, doubled.Links)
}
