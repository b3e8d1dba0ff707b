// Package pagination fetches every requested page of a paged resource through
// the cache and merges the pages into one collection.
package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/naka-gawa/github-insights/internal/cache"
	"github.com/naka-gawa/github-insights/internal/pool"
)

// PageFunc fetches one page of a resource.
type PageFunc[T any] func(ctx context.Context, page int) ([]T, error)

// PageKey is the cache key of one page of the resource identified by prefix.
func PageKey(prefix string, page int) string {
	return fmt.Sprintf("%s:%d", prefix, page)
}

// FetchAllPages fetches pages through the cache with at most limit fetches in flight.
//
// Failed pages are dropped; an empty page is a successful page. Items keep page
// order. lastUpdated is the latest fetch time among successful pages, or the
// zero time when every page failed.
func FetchAllPages[T any](ctx context.Context, loader *cache.Loader, prefix string, fetchPage PageFunc[T], pages []int, ttl time.Duration, force bool, limit int) (items []T, lastUpdated time.Time) {
	tasks := make([]pool.Task[cache.Result[[]T]], len(pages))
	for i, page := range pages {
		tasks[i] = func(ctx context.Context) cache.Result[[]T] {
			return cache.Fetch(ctx, loader, PageKey(prefix, page), func(ctx context.Context) ([]T, error) {
				return fetchPage(ctx, page)
			}, ttl, force)
		}
	}

	items = []T{}
	for _, res := range pool.RunBounded(ctx, tasks, limit) {
		if !res.OK {
			continue
		}
		items = append(items, res.Value...)
		if res.FetchedAt.After(lastUpdated) {
			lastUpdated = res.FetchedAt
		}
	}
	return items, lastUpdated
}

// Range returns the page numbers 1..n.
func Range(n int) []int {
	pages := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		pages = append(pages, i)
	}
	return pages
}
