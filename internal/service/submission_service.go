package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-rapor-api/internal/dto"
	"github.com/noah-isme/sma-rapor-api/internal/models"
	appErrors "github.com/noah-isme/sma-rapor-api/pkg/errors"
)

// gradeStore is the keyed persistence contract the engine depends on. Two
// concurrent writes on the same key are serialized by the store through the
// compare-and-swap in UpdateDecision.
type gradeStore interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.GradeRecord, error)
	GetByKey(ctx context.Context, key models.GradeKey) (*models.GradeRecord, error)
	GetBySubmissionAndStudent(ctx context.Context, submissionID, studentID string) (*models.GradeRecord, error)
	Upsert(ctx context.Context, record *models.GradeRecord) error
	BulkUpsert(ctx context.Context, records []models.GradeRecord) error
	UpdateDecision(ctx context.Context, record *models.GradeRecord, expected time.Time) error
}

// reportInvalidator drops cached reports after a grade mutation.
type reportInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SubmissionService creates teacher submissions and serves grade and
// submission listings.
type SubmissionService struct {
	store     gradeStore
	cache     reportInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubmissionService constructs SubmissionService.
func NewSubmissionService(store gradeStore, cache reportInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{store: store, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// SubmitGrades creates one submission with one Pending record per
// (student, period) pair. The whole payload is validated before any write;
// a rejected record for a target key is only superseded when the request
// explicitly resubmits.
func (s *SubmissionService) SubmitGrades(ctx context.Context, req dto.SubmitGradesRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	seen := make(map[models.GradeKey]bool, len(req.Grades))
	for _, item := range req.Grades {
		if !item.Period.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown period %q", item.Period))
		}
		if !models.ValidGradeValue(item.Grade) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade for student %s out of range [%d, %d]", item.StudentID, models.MinGrade, models.MaxGrade))
		}
		key := models.GradeKey{AcademicYear: req.AcademicYear, ClassID: req.ClassID, Subject: req.Subject, Period: item.Period, StudentID: item.StudentID}
		if seen[key] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate entry for student %s period %s", item.StudentID, item.Period))
		}
		seen[key] = true
	}

	for key := range seen {
		existing, err := s.store.GetByKey(ctx, key)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check existing grade")
		}
		switch existing.Status {
		case models.GradeStatusRejected:
			if !req.Resubmit {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("rejected grade exists for student %s period %s; set resubmit to supersede it", key.StudentID, key.Period))
			}
		case models.GradeStatusPending:
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("grade for student %s period %s is already awaiting review", key.StudentID, key.Period))
		case models.GradeStatusApproved:
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("grade for student %s period %s is approved; use a change request", key.StudentID, key.Period))
		}
	}

	submissionID := uuid.NewString()
	now := time.Now().UTC()
	records := make([]models.GradeRecord, 0, len(req.Grades))
	for _, item := range req.Grades {
		records = append(records, models.GradeRecord{
			AcademicYear: req.AcademicYear,
			ClassID:      req.ClassID,
			Subject:      req.Subject,
			Period:       item.Period,
			StudentID:    item.StudentID,
			StudentName:  item.Name,
			TeacherID:    req.TeacherID,
			Grade:        item.Grade,
			Status:       models.GradeStatusPending,
			SubmissionID: submissionID,
			SubmittedAt:  now,
		})
	}
	if err := s.store.BulkUpsert(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to persist submission")
	}
	s.metrics.CountSubmittedGrades(len(records))
	s.invalidateReports(ctx, req.AcademicYear, req.ClassID)

	submission := buildSubmission(submissionID, records)
	return &submission, nil
}

// ListGrades returns the flat grade list for the filter.
func (s *SubmissionService) ListGrades(ctx context.Context, query dto.GradeQuery) ([]models.GradeRecord, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade query")
	}
	records, err := s.store.List(ctx, filterFromQuery(query))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list grades")
	}
	return records, nil
}

// ListSubmissions groups matching records into submission aggregates with
// freshly derived status and stats.
func (s *SubmissionService) ListSubmissions(ctx context.Context, query dto.GradeQuery) ([]models.Submission, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission query")
	}
	records, err := s.store.List(ctx, filterFromQuery(query))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list submissions")
	}
	return GroupSubmissions(records), nil
}

func (s *SubmissionService) invalidateReports(ctx context.Context, academicYear, classID string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("report:*:%s:%s", academicYear, classID)
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.String("pattern", pattern), zap.Error(err))
	}
}

func filterFromQuery(query dto.GradeQuery) models.GradeFilter {
	return models.GradeFilter{
		AcademicYear: query.AcademicYear,
		ClassID:      query.ClassID,
		Subject:      query.Subject,
		TeacherID:    query.TeacherID,
		StudentIDs:   query.StudentIDs,
		Period:       query.Period,
		Status:       query.Status,
		SubmissionID: query.SubmissionID,
	}
}

// GroupSubmissions groups a flat record set by submission ID. Status and
// stats are derived per group on every call; nothing is cached because
// member statuses move independently of the group.
func GroupSubmissions(records []models.GradeRecord) []models.Submission {
	grouped := make(map[string][]models.GradeRecord)
	for _, r := range records {
		grouped[r.SubmissionID] = append(grouped[r.SubmissionID], r)
	}
	submissions := make([]models.Submission, 0, len(grouped))
	for id, members := range grouped {
		submissions = append(submissions, buildSubmission(id, members))
	}
	sort.Slice(submissions, func(i, j int) bool {
		if !submissions[i].SubmittedAt.Equal(submissions[j].SubmittedAt) {
			return submissions[i].SubmittedAt.After(submissions[j].SubmittedAt)
		}
		return submissions[i].SubmissionID < submissions[j].SubmissionID
	})
	return submissions
}

func buildSubmission(submissionID string, members []models.GradeRecord) models.Submission {
	sort.Slice(members, func(i, j int) bool {
		return members[i].StudentName < members[j].StudentName
	})
	submission := models.Submission{
		SubmissionID: submissionID,
		Status:       DeriveSubmissionStatus(members),
		Stats:        CalculatePeriodStats(members),
		Grades:       members,
	}
	if len(members) > 0 {
		first := members[0]
		submission.AcademicYear = first.AcademicYear
		submission.ClassID = first.ClassID
		submission.Subject = first.Subject
		submission.Period = first.Period
		submission.TeacherID = first.TeacherID
		submission.SubmittedAt = first.SubmittedAt
	}
	return submission
}
