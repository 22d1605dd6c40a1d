package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompetitionRanksTiesConsumeSlots(t *testing.T) {
	ranks := CompetitionRanks([]RankEntry{
		{StudentID: "a", Value: floatPtr(90)},
		{StudentID: "b", Value: floatPtr(90)},
		{StudentID: "c", Value: floatPtr(80)},
	})
	require.Equal(t, map[string]int{"a": 1, "b": 1, "c": 3}, ranks)
}

func TestCompetitionRanksExcludesNil(t *testing.T) {
	ranks := CompetitionRanks([]RankEntry{
		{StudentID: "a", Value: floatPtr(75)},
		{StudentID: "b", Value: nil},
		{StudentID: "c", Value: floatPtr(95)},
	})
	require.Equal(t, map[string]int{"c": 1, "a": 2}, ranks)
	_, ranked := ranks["b"]
	require.False(t, ranked)
}

func TestCompetitionRanksEmpty(t *testing.T) {
	require.Empty(t, CompetitionRanks(nil))
}
