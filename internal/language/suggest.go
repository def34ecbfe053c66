package language

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

const maxSuggestDistance = 3

// Suggest returns up to n translation-table names resembling query, best
// match first. Subsequence matches ("frnch" -> "French") rank ahead of
// near-miss spellings.
func Suggest(query string, n int) []string {
	query = strings.TrimSpace(query)
	if query == "" || n <= 0 {
		return nil
	}

	ranks := fuzzy.RankFindFold(query, translationNames)
	sort.Sort(ranks)
	out := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for _, r := range ranks {
		if len(out) == n {
			return out
		}
		out = append(out, r.Target)
		seen[r.Target] = struct{}{}
	}

	type near struct {
		name string
		dist int
	}
	lowered := strings.ToLower(query)
	var candidates []near
	for _, name := range translationNames {
		if _, ok := seen[name]; ok {
			continue
		}
		if d := fuzzy.LevenshteinDistance(lowered, strings.ToLower(name)); d <= maxSuggestDistance {
			candidates = append(candidates, near{name: name, dist: d})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].name < candidates[j].name
	})
	for _, c := range candidates {
		if len(out) == n {
			break
		}
		out = append(out, c.name)
	}
	return out
}
