package catalog

import (
	"github.com/agnivade/levenshtein"
)

// Suggest returns the configured card whose name is closest to name, if the
// edit distance is small enough to be a plausible typo.
func (c *Cards) Suggest(name string) (string, bool) {
	if c == nil || len(c.list) == 0 {
		return "", false
	}
	target := normalize(name)
	if target == "" {
		return "", false
	}

	best, bestDist := "", -1
	for _, card := range c.All() {
		d := levenshtein.ComputeDistance(target, normalize(card.Name))
		if bestDist < 0 || d < bestDist {
			best, bestDist = card.Name, d
		}
	}
	if bestDist == 0 || bestDist > maxDistance(target) {
		return "", false
	}
	return best, true
}

func maxDistance(s string) int {
	if n := len([]rune(s)) / 3; n > 2 {
		return n
	}
	return 2
}
