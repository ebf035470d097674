package memes

import (
	"context"
	"errors"
	"testing"
)

type fakeSource struct {
	name  string
	items []Candidate
	err   error
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Fetch(_ context.Context) ([]Candidate, error) {
	return s.items, s.err
}

func TestMergeDeduplicatesKeepingHigherScore(t *testing.T) {
	a := []Candidate{{ID: "x", Source: "a", Popularity: 10}}
	b := []Candidate{{ID: "x", Source: "b", Popularity: 500}, {ID: "y", Source: "b"}}

	merged := Merge([][]Candidate{a, b})
	if len(merged) != 2 {
		t.Fatalf("len = %d, want 2", len(merged))
	}
	if merged[0].ID != "x" || merged[0].Popularity != 500 || merged[0].Source != "b" {
		t.Errorf("expected higher-score duplicate to win, got %+v", merged[0])
	}
}

func TestMergeRanksByPopularity(t *testing.T) {
	merged := Merge([][]Candidate{{
		{ID: "low", Popularity: 1},
		{ID: "high", Popularity: 9},
		{ID: "mid", Popularity: 5},
	}})
	want := []string{"high", "mid", "low"}
	for i, id := range want {
		if merged[i].ID != id {
			t.Errorf("merged[%d] = %q, want %q", i, merged[i].ID, id)
		}
	}
}

func TestMergeStableWithoutScores(t *testing.T) {
	merged := Merge([][]Candidate{{
		{ID: "first"},
		{ID: "second"},
		{ID: "third"},
	}})
	want := []string{"first", "second", "third"}
	for i, id := range want {
		if merged[i].ID != id {
			t.Errorf("merged[%d] = %q, want %q (insertion order)", i, merged[i].ID, id)
		}
	}
}

func TestMergeSkipsEmptyIDs(t *testing.T) {
	merged := Merge([][]Candidate{{{ID: ""}, {ID: "ok"}}})
	if len(merged) != 1 || merged[0].ID != "ok" {
		t.Errorf("expected only valid candidates, got %+v", merged)
	}
}

func TestAggregatePartialFailure(t *testing.T) {
	sources := []Source{
		&fakeSource{name: "broken", err: errors.New("timeout")},
		&fakeSource{name: "ok", items: []Candidate{{ID: "a"}, {ID: "b"}}},
	}

	got := Aggregate(context.Background(), sources)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (failed source contributes zero)", len(got))
	}
}

func TestFilterFresh(t *testing.T) {
	candidates := []Candidate{{ID: "X"}, {ID: "Y"}}
	fresh := FilterFresh(candidates, map[string]bool{"X": true})

	if len(fresh) != 1 || fresh[0].ID != "Y" {
		t.Errorf("FilterFresh = %+v, want just Y", fresh)
	}

	if got := FilterFresh(candidates, map[string]bool{"X": true, "Y": true}); len(got) != 0 {
		t.Errorf("all-excluded list must be empty, got %+v", got)
	}
}
