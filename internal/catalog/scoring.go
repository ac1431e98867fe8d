package catalog

import "sort"

// Candidate is implemented by entities that expose named identity fields
// for scoring.
type Candidate interface {
	IdentityField(name string) string
}

// SortCandidates orders candidates by descending score, where a candidate
// scores the per-field weight for every important field it carries a
// non-empty value for. Field priority follows the alphabetical order of the
// field names, not caller order: the alphabetically-first name gets the
// largest weight, so scoring on ["mbid", "fid"] ranks a fid-only row above
// an mbid-only one. Ties keep arrival order; there is no secondary key.
func SortCandidates[C Candidate](candidates []C, importantFields []string) []C {
	ranked := append([]string(nil), importantFields...)
	sort.Strings(ranked)

	weights := make(map[string]int, len(ranked))
	for i, field := range ranked {
		weights[field] = len(ranked) - i
	}

	type scored struct {
		candidate C
		score     int
	}
	entries := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		score := 0
		for field, weight := range weights {
			if c.IdentityField(field) != "" {
				score += weight
			}
		}
		entries = append(entries, scored{candidate: c, score: score})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].score > entries[j].score
	})

	out := make([]C, len(entries))
	for i, e := range entries {
		out[i] = e.candidate
	}
	return out
}
