package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-rapor-api/internal/dto"
	"github.com/noah-isme/sma-rapor-api/internal/models"
	appErrors "github.com/noah-isme/sma-rapor-api/pkg/errors"
)

// reportCache reads and writes cached report payloads.
type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ReportService builds periodic and yearly report views from approved
// grade records. Reports are projections: every build starts from the
// store, never from a previously rendered report.
type ReportService struct {
	store    gradeStore
	cache    reportCache
	metrics  *MetricsService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewReportService constructs ReportService. A zero ttl disables caching
// of yearly reports.
func NewReportService(store gradeStore, cache reportCache, metrics *MetricsService, logger *zap.Logger, cacheTTL time.Duration) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{store: store, cache: cache, metrics: metrics, logger: logger, cacheTTL: cacheTTL}
}

// PeriodicReport returns the per-student subject-by-period grid for a
// class. Only approved grades appear; pending and rejected records are
// invisible to reporting.
func (s *ReportService) PeriodicReport(ctx context.Context, query dto.ReportQuery) ([]models.StudentPeriodicReport, error) {
	start := time.Now()
	records, err := s.approvedRecords(ctx, query.AcademicYear, query.ClassID, query.StudentIDs)
	if err != nil {
		return nil, err
	}

	reports := make([]models.StudentPeriodicReport, 0)
	for _, student := range groupByStudent(records) {
		reports = append(reports, models.StudentPeriodicReport{
			StudentID:   student.id,
			StudentName: student.name,
			Subjects:    buildSubjectRows(student.records),
		})
	}
	sortStudentsPeriodic(reports)

	s.metrics.ObserveReportBuild(dto.ReportTypePeriodic, time.Since(start))
	return reports, nil
}

// YearlyReport returns the full class yearly view with per-student
// averages and class ranks. The whole-class build is cached; a student
// subset is filtered from the cached class view so ranks stay relative
// to the entire class.
func (s *ReportService) YearlyReport(ctx context.Context, query dto.ReportQuery) (*models.ClassYearlyReport, error) {
	cacheKey := fmt.Sprintf("report:yearly:%s:%s", query.AcademicYear, query.ClassID)

	var report models.ClassYearlyReport
	if s.cache != nil && s.cacheTTL > 0 {
		err := s.cache.Get(ctx, cacheKey, &report)
		if err == nil {
			s.metrics.RecordCacheOperation(true)
			return filterYearlyStudents(&report, query.StudentIDs), nil
		}
		if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("report cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	built, err := s.buildYearlyReport(ctx, query.AcademicYear, query.ClassID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, cacheKey, built, s.cacheTTL); err != nil {
			s.logger.Warn("report cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return filterYearlyStudents(built, query.StudentIDs), nil
}

func (s *ReportService) buildYearlyReport(ctx context.Context, academicYear, classID string) (*models.ClassYearlyReport, error) {
	start := time.Now()
	records, err := s.approvedRecords(ctx, academicYear, classID, nil)
	if err != nil {
		return nil, err
	}

	students := groupByStudent(records)
	yearly := make([]models.StudentYearlyReport, 0, len(students))
	for _, student := range students {
		subjects := buildSubjectRows(student.records)
		averages := buildPeriodAverages(subjects)
		yearly = append(yearly, models.StudentYearlyReport{
			StudentID:      student.id,
			StudentName:    student.name,
			Subjects:       subjects,
			PeriodAverages: averages,
			YearlyAverage:  YearlyAverage(averages.FirstSemesterAverage, averages.SecondSemesterAverage),
		})
	}
	assignClassRanks(yearly)
	sort.Slice(yearly, func(i, j int) bool {
		if yearly[i].StudentName != yearly[j].StudentName {
			return yearly[i].StudentName < yearly[j].StudentName
		}
		return yearly[i].StudentID < yearly[j].StudentID
	})

	report := &models.ClassYearlyReport{
		AcademicYear: academicYear,
		ClassID:      classID,
		Students:     yearly,
		GeneratedAt:  time.Now().UTC(),
	}
	s.metrics.ObserveReportBuild(dto.ReportTypeYearly, time.Since(start))
	return report, nil
}

func (s *ReportService) approvedRecords(ctx context.Context, academicYear, classID string, studentIDs []string) ([]models.GradeRecord, error) {
	records, err := s.store.List(ctx, models.GradeFilter{
		AcademicYear: academicYear,
		ClassID:      classID,
		StudentIDs:   studentIDs,
		Status:       models.GradeStatusApproved,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load approved grades")
	}
	return records, nil
}

type studentRecords struct {
	id      string
	name    string
	records []models.GradeRecord
}

func groupByStudent(records []models.GradeRecord) []studentRecords {
	index := make(map[string]int)
	students := make([]studentRecords, 0)
	for _, r := range records {
		i, ok := index[r.StudentID]
		if !ok {
			i = len(students)
			index[r.StudentID] = i
			students = append(students, studentRecords{id: r.StudentID, name: r.StudentName})
		}
		students[i].records = append(students[i].records, r)
	}
	return students
}

// buildSubjectRows lays one student's approved grades out as subject rows
// across the eight periods and derives the semester and overall averages.
func buildSubjectRows(records []models.GradeRecord) []models.SubjectReportRow {
	bySubject := make(map[string]map[models.Period]*int)
	subjects := make([]string, 0)
	for _, r := range records {
		grid, ok := bySubject[r.Subject]
		if !ok {
			grid = make(map[models.Period]*int, 8)
			bySubject[r.Subject] = grid
			subjects = append(subjects, r.Subject)
		}
		grid[r.Period] = r.Grade
	}
	sort.Strings(subjects)

	rows := make([]models.SubjectReportRow, 0, len(subjects))
	for _, subject := range subjects {
		grid := bySubject[subject]
		first := SemesterAverage(grid, models.FirstSemesterPeriods())
		second := SemesterAverage(grid, models.SecondSemesterPeriods())
		rows = append(rows, models.SubjectReportRow{
			Subject:               subject,
			Periods:               grid,
			FirstSemesterAverage:  first,
			SecondSemesterAverage: second,
			OverallAverage:        OverallSubjectAverage(first, second),
		})
	}
	return rows
}

// buildPeriodAverages computes a student's cross-subject mean per period,
// then the semester means over those period averages.
func buildPeriodAverages(subjects []models.SubjectReportRow) models.PeriodAverages {
	periods := make(map[models.Period]*float64, 8)
	for _, p := range models.AllPeriods() {
		var sum, count int
		for _, row := range subjects {
			if v, ok := row.Periods[p]; ok && v != nil {
				sum += *v
				count++
			}
		}
		if count == 0 {
			periods[p] = nil
			continue
		}
		avg := float64(sum) / float64(count)
		periods[p] = &avg
	}
	return models.PeriodAverages{
		Periods:               periods,
		FirstSemesterAverage:  MeanOfAverages(periods, models.FirstSemesterPeriods()),
		SecondSemesterAverage: MeanOfAverages(periods, models.SecondSemesterPeriods()),
	}
}

// assignClassRanks fills every student's RankSet from the class-wide
// competition ranking per period, per semester, and for the year.
func assignClassRanks(students []models.StudentYearlyReport) {
	rankColumn := func(value func(models.StudentYearlyReport) *float64) map[string]int {
		entries := make([]RankEntry, 0, len(students))
		for _, s := range students {
			entries = append(entries, RankEntry{StudentID: s.StudentID, Value: value(s)})
		}
		return CompetitionRanks(entries)
	}

	periodRanks := make(map[models.Period]map[string]int, 8)
	for _, p := range models.AllPeriods() {
		p := p
		periodRanks[p] = rankColumn(func(s models.StudentYearlyReport) *float64 {
			return s.PeriodAverages.Periods[p]
		})
	}
	firstRanks := rankColumn(func(s models.StudentYearlyReport) *float64 { return s.PeriodAverages.FirstSemesterAverage })
	secondRanks := rankColumn(func(s models.StudentYearlyReport) *float64 { return s.PeriodAverages.SecondSemesterAverage })
	yearlyRanks := rankColumn(func(s models.StudentYearlyReport) *float64 { return s.YearlyAverage })

	for i := range students {
		set := models.RankSet{Periods: make(map[models.Period]*int, 8)}
		for _, p := range models.AllPeriods() {
			set.Periods[p] = lookupRank(periodRanks[p], students[i].StudentID)
		}
		set.FirstSemester = lookupRank(firstRanks, students[i].StudentID)
		set.SecondSemester = lookupRank(secondRanks, students[i].StudentID)
		set.Yearly = lookupRank(yearlyRanks, students[i].StudentID)
		students[i].Ranks = set
	}
}

func lookupRank(ranks map[string]int, studentID string) *int {
	if rank, ok := ranks[studentID]; ok {
		return &rank
	}
	return nil
}

func filterYearlyStudents(report *models.ClassYearlyReport, studentIDs []string) *models.ClassYearlyReport {
	if len(studentIDs) == 0 {
		return report
	}
	wanted := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = true
	}
	filtered := *report
	filtered.Students = make([]models.StudentYearlyReport, 0, len(studentIDs))
	for _, s := range report.Students {
		if wanted[s.StudentID] {
			filtered.Students = append(filtered.Students, s)
		}
	}
	return &filtered
}

func sortStudentsPeriodic(reports []models.StudentPeriodicReport) {
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].StudentName != reports[j].StudentName {
			return reports[i].StudentName < reports[j].StudentName
		}
		return reports[i].StudentID < reports[j].StudentID
	})
}
