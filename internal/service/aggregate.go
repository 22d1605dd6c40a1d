package service

import (
	"math"

	"github.com/noah-isme/sma-rapor-api/internal/models"
)

// SemesterAverage computes the mean of the non-nil period grades within one
// semester's period set. Unlike submission stats, semester aggregates
// propagate nil: when every period in the set is nil the result is nil,
// never a silent zero.
func SemesterAverage(grades map[models.Period]*int, periods []models.Period) *float64 {
	var sum, count int
	for _, p := range periods {
		if v, ok := grades[p]; ok && v != nil {
			sum += *v
			count++
		}
	}
	if count == 0 {
		return nil
	}
	avg := float64(sum) / float64(count)
	return &avg
}

// OverallSubjectAverage returns the rounded mean of the two semester
// averages, or nil unless both are present. Rounding is half-up to the
// nearest integer.
func OverallSubjectAverage(first, second *float64) *int {
	if first == nil || second == nil {
		return nil
	}
	rounded := int(math.Floor((*first+*second)/2 + 0.5))
	return &rounded
}

// MeanOfAverages computes the mean of the non-nil values in the given
// per-period averages, or nil when none are set. Used for a student's
// cross-subject semester averages.
func MeanOfAverages(values map[models.Period]*float64, periods []models.Period) *float64 {
	var sum float64
	var count int
	for _, p := range periods {
		if v, ok := values[p]; ok && v != nil {
			sum += *v
			count++
		}
	}
	if count == 0 {
		return nil
	}
	avg := sum / float64(count)
	return &avg
}

// YearlyAverage is the mean of the student's two semester averages. When
// either side is missing the value propagates as nil; the engine never
// invents a number from incomplete inputs.
func YearlyAverage(first, second *float64) *float64 {
	if first == nil || second == nil {
		return nil
	}
	avg := (*first + *second) / 2
	return &avg
}
