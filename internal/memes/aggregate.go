package memes

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Aggregate fetches all sources concurrently, merges their candidates,
// deduplicates by ID (keeping the higher popularity score) and ranks by
// popularity descending, stable for ties. A source that errors or returns
// nothing contributes zero candidates and never fails the aggregation.
func Aggregate(ctx context.Context, sources []Source) []Candidate {
	var mu sync.Mutex
	results := make([][]Candidate, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			items, err := src.Fetch(gctx)
			if err != nil {
				slog.Warn("meme source fetch failed", "source", src.Name(), "error", err)
				return nil
			}
			mu.Lock()
			results[i] = items
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return Merge(results)
}

// Merge flattens per-source result lists, deduplicating by candidate ID.
// When the same ID appears twice the entry with the higher popularity wins;
// insertion order is preserved otherwise.
func Merge(results [][]Candidate) []Candidate {
	index := make(map[string]int)
	var merged []Candidate

	for _, items := range results {
		for _, c := range items {
			if c.ID == "" {
				continue
			}
			if at, ok := index[c.ID]; ok {
				if c.Popularity > merged[at].Popularity {
					merged[at] = c
				}
				continue
			}
			index[c.ID] = len(merged)
			merged = append(merged, c)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Popularity > merged[j].Popularity
	})
	return merged
}
