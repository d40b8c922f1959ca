package fixtures

import (
	"strings"
)

// DefaultPositionHierarchy lists positions from most to least senior.
var DefaultPositionHierarchy = []string{
	"KAKANIM",
	"KASUBBAG",
	"KASI",
	"KU",
	"KASUBSI",
	"JFT",
	"JFU",
	"P3K",
	"CPNS",
}

// PositionRanker orders positions by a configured hierarchy. Positions not in
// the hierarchy rank after all listed ones.
type PositionRanker struct {
	ranks map[string]int
}

func NewPositionRanker(hierarchy []string) PositionRanker {
	if len(hierarchy) == 0 {
		hierarchy = DefaultPositionHierarchy
	}
	ranks := make(map[string]int, len(hierarchy))
	for i, p := range hierarchy {
		key := strings.ToUpper(strings.TrimSpace(p))
		if _, dup := ranks[key]; !dup {
			ranks[key] = i
		}
	}
	return PositionRanker{ranks: ranks}
}

func (r PositionRanker) Rank(position string) int {
	if rank, ok := r.ranks[strings.ToUpper(strings.TrimSpace(position))]; ok {
		return rank
	}
	return len(r.ranks)
}
