package memes

// FilterFresh drops candidates whose ID is in recentIDs (the chat's send
// history within the freshness window). An empty result means the caller
// sends the "nothing found" fallback — never a stale candidate.
func FilterFresh(candidates []Candidate, recentIDs map[string]bool) []Candidate {
	fresh := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if recentIDs[c.ID] {
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh
}
