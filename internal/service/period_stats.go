package service

import "github.com/noah-isme/sma-rapor-api/internal/models"

// CalculatePeriodStats reduces one submission's (or one period's) records
// into pass/fail/incomplete counts and the class average.
//
// A nil grade counts toward TotalStudents and Incompletes but never toward
// passes, fails, or the average. The pass boundary is inclusive at
// models.PassingGrade. When no non-nil grades exist the average is an
// explicit 0, not nil; TotalStudents == 0 is the only "no data" signal.
func CalculatePeriodStats(records []models.GradeRecord) models.SubmissionStats {
	stats := models.SubmissionStats{TotalStudents: len(records)}
	var sum, valid int
	for _, r := range records {
		if r.Grade == nil {
			continue
		}
		valid++
		sum += *r.Grade
		if *r.Grade >= models.PassingGrade {
			stats.Passes++
		}
	}
	stats.Fails = valid - stats.Passes
	stats.Incompletes = stats.TotalStudents - valid
	if valid > 0 {
		stats.Average = float64(sum) / float64(valid)
	}
	return stats
}
