package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-rapor-api/internal/models"
)

func intPtr(v int) *int { return &v }

func recordsWithGrades(grades ...*int) []models.GradeRecord {
	records := make([]models.GradeRecord, 0, len(grades))
	for i, g := range grades {
		records = append(records, models.GradeRecord{
			StudentID: string(rune('a' + i)),
			Grade:     g,
		})
	}
	return records
}

func TestCalculatePeriodStats(t *testing.T) {
	stats := CalculatePeriodStats(recordsWithGrades(intPtr(85), intPtr(50), nil))
	require.Equal(t, models.SubmissionStats{
		TotalStudents: 3,
		Passes:        1,
		Fails:         1,
		Incompletes:   1,
		Average:       67.5,
	}, stats)
}

func TestCalculatePeriodStatsPassBoundary(t *testing.T) {
	stats := CalculatePeriodStats(recordsWithGrades(intPtr(70), intPtr(69)))
	require.Equal(t, 1, stats.Passes)
	require.Equal(t, 1, stats.Fails)
}

func TestCalculatePeriodStatsZeroGradeIsNotIncomplete(t *testing.T) {
	stats := CalculatePeriodStats(recordsWithGrades(intPtr(0), nil))
	require.Equal(t, 1, stats.Fails)
	require.Equal(t, 1, stats.Incompletes)
	require.Equal(t, 0.0, stats.Average)
}

func TestCalculatePeriodStatsAllIncomplete(t *testing.T) {
	stats := CalculatePeriodStats(recordsWithGrades(nil, nil))
	require.Equal(t, models.SubmissionStats{
		TotalStudents: 2,
		Incompletes:   2,
		Average:       0,
	}, stats)
}

func TestCalculatePeriodStatsEmpty(t *testing.T) {
	stats := CalculatePeriodStats(nil)
	require.Equal(t, models.SubmissionStats{}, stats)
}
