// Package memes aggregates media candidates from scraping sources and
// filters them against per-chat send history.
package memes

import "context"

// Kind tags what a candidate is, which also decides how it is delivered.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

// Candidate is one fetchable media item. ID is stable across fetches
// (source-provided or content-addressed) and is the dedup key.
type Candidate struct {
	ID     string
	Source string
	Kind   Kind

	// MediaURL is the direct playable/downloadable URL. WebURL is a
	// public page fallback used when direct delivery fails.
	MediaURL string
	WebURL   string

	// Popularity ranks candidates when present (view count etc.); zero
	// means unknown.
	Popularity int64
}

// Source is an opaque candidate fetcher. Implementations must honor the
// context deadline and return an error (not hang) on failure; a failed
// source contributes zero candidates.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Candidate, error)
}
