// Package pagination turns an ordered collection into numbered pages
// with metadata and navigation links.
package pagination

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Collection is an ordered, already-filtered set of items. Implementations
// must order deterministically so pages are stable across calls.
type Collection[T any] interface {
	Count(ctx context.Context) (int64, error)
	Slice(ctx context.Context, offset, limit int) ([]T, error)
}

// Route is a path template such as "/api/users/{id}/followers" and the
// values substituted into it.
type Route struct {
	Path string
	Args map[string]string
}

// NewRoute builds a Route from alternating key/value pairs.
func NewRoute(path string, kv ...string) Route {
	args := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		args[kv[i]] = kv[i+1]
	}
	return Route{Path: path, Args: args}
}

// URL renders the route for the given page.
func (r Route) URL(page, perPage int) string {
	p := r.Path
	for k, v := range r.Args {
		p = strings.ReplaceAll(p, "{"+k+"}", url.PathEscape(v))
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	return p + "?" + q.Encode()
}

// Request carries the clamped page parameters and the route links are
// built from.
type Request struct {
	Page    int
	PerPage int
	Route   Route
}

// Meta holds the computed pagination facts.
type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
	TotalItems int64 `json:"total_items"`
}

// Links holds navigation links. Next and Prev are nil when absent.
type Links struct {
	Self string  `json:"self"`
	Next *string `json:"next"`
	Prev *string `json:"prev"`
}

// Page is one page of a collection.
type Page[T any] struct {
	Items []T   `json:"items"`
	Meta  Meta  `json:"_meta"`
	Links Links `json:"_links"`
}

// Clamp normalises raw page parameters: page is at least 1 and per_page
// lies in [1, MaxPerPage].
func Clamp(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// ParseParams reads page and per_page query values, falling back to the
// defaults for missing or non-numeric input, and clamps them.
func ParseParams(pageRaw, perPageRaw string) (int, int) {
	page, err := strconv.Atoi(strings.TrimSpace(pageRaw))
	if err != nil {
		page = 1
	}
	perPage, err := strconv.Atoi(strings.TrimSpace(perPageRaw))
	if err != nil {
		perPage = DefaultPerPage
	}
	return Clamp(page, perPage)
}

// Paginate materialises page req.Page of c. A page past the end yields
// no items, with accurate totals. The collection's order is kept as-is.
func Paginate[T any](ctx context.Context, c Collection[T], req Request) (*Page[T], error) {
	page, perPage := req.Page, req.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	total, err := c.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count collection: %w", err)
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	if totalPages < 1 {
		totalPages = 1
	}

	items := []T{}
	if page <= totalPages && total > 0 {
		items, err = c.Slice(ctx, (page-1)*perPage, perPage)
		if err != nil {
			return nil, fmt.Errorf("slice collection: %w", err)
		}
		if items == nil {
			items = []T{}
		}
	}

	links := Links{Self: req.Route.URL(page, perPage)}
	if page < totalPages {
		next := req.Route.URL(page+1, perPage)
		links.Next = &next
	}
	if page > 1 {
		prev := req.Route.URL(page-1, perPage)
		links.Prev = &prev
	}

	return &Page[T]{
		Items: items,
		Meta: Meta{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			TotalItems: total,
		},
		Links: links,
	}, nil
}

// Map converts the items of p with fn, keeping metadata and links.
func Map[T, U any](p *Page[T], fn func(T) U) *Page[U] {
	out := make([]U, 0, len(p.Items))
	for _, it := range p.Items {
		out = append(out, fn(it))
	}
	return &Page[U]{Items: out, Meta: p.Meta, Links: p.Links}
}

// SliceCollection adapts an in-memory, pre-ordered slice.
type SliceCollection[T any] []T

func (s SliceCollection[T]) Count(context.Context) (int64, error) {
	return int64(len(s)), nil
}

func (s SliceCollection[T]) Slice(_ context.Context, offset, limit int) ([]T, error) {
	if offset >= len(s) {
		return []T{}, nil
	}
	end := offset + limit
	if end > len(s) {
		end = len(s)
	}
	return s[offset:end], nil
}
