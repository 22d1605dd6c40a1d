package service

import "sort"

// RankEntry pairs a student with a rankable value. Nil values receive no
// rank at all.
type RankEntry struct {
	StudentID string
	Value     *float64
}

// CompetitionRanks assigns standard competition ranks over the entries:
// values sort descending, ties share a rank, and ties consume rank slots
// (two students tied for 1st leave the next student at rank 3). Entries
// with nil values are excluded and absent from the result map.
func CompetitionRanks(entries []RankEntry) map[string]int {
	ranked := make([]RankEntry, 0, len(entries))
	for _, e := range entries {
		if e.Value != nil {
			ranked = append(ranked, e)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].Value > *ranked[j].Value
	})

	ranks := make(map[string]int, len(ranked))
	for i, e := range ranked {
		if i > 0 && *e.Value == *ranked[i-1].Value {
			ranks[e.StudentID] = ranks[ranked[i-1].StudentID]
			continue
		}
		ranks[e.StudentID] = i + 1
	}
	return ranks
}
