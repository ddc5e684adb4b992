package catalog

import (
	"sort"
)

// Profile describes the user a ranking is computed for.
// Zero SkinType means unknown.
type Profile struct {
	SkinType      int
	Concerns      []int
	Sensitivities []int
}

// RankOptions narrows and truncates a ranking.
type RankOptions struct {
	Category  *Category
	MinSafety float64
	Limit     int // 0 means no limit
}

// Scored is a product with its ranking score.
type Scored struct {
	Product Product
	Score   float64
}

const (
	skinTypeMatchWeight    = 3
	skinTypeUniversal      = 1
	concernMatchWeight     = 2
	sensitivityMatchWeight = 1
	sensitivityMissPenalty = 5
	safetyDivisor          = 2
)

// Score rates how well a product suits the profile. Higher is better.
func Score(p Product, profile Profile) float64 {
	var score float64

	switch {
	case len(p.SkinTypes) == 0:
		score += skinTypeUniversal
	case profile.SkinType != 0 && containsInt(p.SkinTypes, profile.SkinType):
		score += skinTypeMatchWeight
	}

	score += concernMatchWeight * float64(overlap(p.Concerns, profile.Concerns))

	if len(profile.Sensitivities) > 0 && len(p.Sensitivities) > 0 {
		n := overlap(p.Sensitivities, profile.Sensitivities)
		if n == 0 {
			score -= sensitivityMissPenalty
		}
		score += sensitivityMatchWeight * float64(n)
	}

	if p.SafetyScore != nil {
		score += *p.SafetyScore / safetyDivisor
	}
	return score
}

// Rank scores every product and returns them best first. Ties break on
// safety score, then name, then ID.
func Rank(products ProductMap, profile Profile, opts RankOptions) []Scored {
	ranked := make([]Scored, 0, len(products))
	for _, p := range products {
		if opts.Category != nil && p.Category != *opts.Category {
			continue
		}
		if opts.MinSafety > 0 && p.Safety() < opts.MinSafety {
			continue
		}
		ranked = append(ranked, Scored{Product: p, Score: Score(p, profile)})
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Product.Safety() != b.Product.Safety() {
			return a.Product.Safety() > b.Product.Safety()
		}
		if a.Product.Name != b.Product.Name {
			return a.Product.Name < b.Product.Name
		}
		return a.Product.ID < b.Product.ID
	})

	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	return ranked
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// overlap counts distinct values of want that appear in have.
func overlap(have, want []int) int {
	seen := make(map[int]bool, len(want))
	n := 0
	for _, w := range want {
		if seen[w] {
			continue
		}
		seen[w] = true
		if containsInt(have, w) {
			n++
		}
	}
	return n
}
