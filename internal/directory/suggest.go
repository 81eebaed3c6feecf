package directory

import (
	"sort"
	"strings"
)

// Suggest returns the query with every unknown term replaced by the closest
// indexed name term, and whether anything changed. Ties go to the
// alphabetically first term.
func (d *Index) Suggest(query string, maxDistance int) (string, bool, error) {
	if maxDistance <= 0 {
		maxDistance = DefaultFuzziness
	}
	dict, err := d.nameTerms()
	if err != nil {
		return query, false, err
	}
	known := make(map[string]struct{}, len(dict))
	for _, t := range dict {
		known[t] = struct{}{}
	}
	sort.Strings(dict)

	terms := strings.Fields(strings.ToLower(query))
	changed := false
	for i, term := range terms {
		if _, ok := known[term]; ok {
			continue
		}
		best, bestDist := "", maxDistance+1
		for _, candidate := range dict {
			if abs(len([]rune(candidate))-len([]rune(term))) > maxDistance {
				continue
			}
			if dist := levenshtein(term, candidate); dist < bestDist {
				best, bestDist = candidate, dist
			}
		}
		if best != "" {
			terms[i] = best
			changed = true
		}
	}
	return strings.Join(terms, " "), changed, nil
}

// levenshtein is the edit distance between a and b, counted in runes.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(a, b, c int) int {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
