package defs

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Suggest picks the closest candidate to a misspelt name, case-insensitively.
// Ties keep candidate order.
func Suggest(name string, candidates []string) (string, bool) {
	if name == "" {
		return "", false
	}
	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) == 0 {
		return "", false
	}
	sort.Stable(ranks)
	return ranks[0].Target, true
}
