package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-rapor-api/internal/dto"
	"github.com/noah-isme/sma-rapor-api/internal/models"
	"github.com/noah-isme/sma-rapor-api/internal/repository"
	appErrors "github.com/noah-isme/sma-rapor-api/pkg/errors"
)

// ChangeRequestService stages teacher change requests against decided
// grades. A staged record goes back to Pending while keeping its prior
// decided value, so a later rejection can restore it exactly.
type ChangeRequestService struct {
	store     gradeStore
	cache     reportInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChangeRequestService constructs ChangeRequestService.
func NewChangeRequestService(store gradeStore, cache reportInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ChangeRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeRequestService{store: store, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Stage applies a change request to the records of one submission. Each
// change is an independent single-key write; a failing key never rolls
// back the others.
func (s *ChangeRequestService) Stage(ctx context.Context, req dto.ChangeRequest) (*dto.ChangeRequestResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change request payload")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "change request reason must not be empty")
	}
	for _, change := range req.Changes {
		grade := change.NewGrade
		if !models.ValidGradeValue(&grade) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade for student %s out of range [%d, %d]", change.StudentID, models.MinGrade, models.MaxGrade))
		}
	}

	result := &dto.ChangeRequestResult{Items: make([]dto.ChangeRequestItemResult, 0, len(req.Changes))}
	type scope struct{ year, class string }
	touched := make(map[scope]bool)

	for _, change := range req.Changes {
		itemResult := dto.ChangeRequestItemResult{StudentID: change.StudentID}
		record, outcome, message := s.stageOne(ctx, req.SubmissionID, change, reason)
		itemResult.Outcome = outcome
		itemResult.Message = message
		switch outcome {
		case dto.OutcomeUpdated:
			result.Staged++
			touched[scope{record.AcademicYear, record.ClassID}] = true
		case dto.OutcomeSkipped:
			result.Unchanged++
		default:
			result.Failed++
		}
		result.Items = append(result.Items, itemResult)
	}

	if result.Staged > 0 {
		s.metrics.CountChangeRequest()
	}
	for sc := range touched {
		s.invalidateReports(ctx, sc.year, sc.class)
	}
	return result, nil
}

func (s *ChangeRequestService) stageOne(ctx context.Context, submissionID string, change dto.GradeChangeItem, reason string) (*models.GradeRecord, string, string) {
	record, err := s.store.GetBySubmissionAndStudent(ctx, submissionID, change.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dto.OutcomeFailed, appErrors.ErrNotFound.Code + ": no grade record for submission and student"
		}
		return nil, dto.OutcomeFailed, appErrors.ErrStoreUnavailable.Code + ": " + err.Error()
	}

	newGrade := change.NewGrade

	if record.UnderReview() {
		if record.Grade != nil && *record.Grade == newGrade && record.ReviewReason != nil && *record.ReviewReason == reason {
			return record, dto.OutcomeSkipped, "identical change already under review"
		}
		// Replace the pending proposal; the original prior value stays staged.
		record.Grade = &newGrade
		record.ReviewReason = &reason
	} else {
		switch record.Status {
		case models.GradeStatusPending:
			return nil, dto.OutcomeFailed, appErrors.ErrInvalidTransition.Code + ": grade is still awaiting its first decision"
		case models.GradeStatusApproved, models.GradeStatusRejected:
			priorStatus := record.Status
			record.PriorGrade = record.Grade
			record.PriorStatus = &priorStatus
			record.PriorRejectionReason = record.RejectionReason
			record.ReviewReason = &reason
			record.Grade = &newGrade
			record.Status = models.GradeStatusPending
			record.RejectionReason = nil
		}
	}

	if err := s.store.UpdateDecision(ctx, record, record.LastUpdated); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, dto.OutcomeFailed, appErrors.ErrNotFound.Code + ": record disappeared before staging"
		case errors.Is(err, repository.ErrVersionConflict):
			return nil, dto.OutcomeFailed, appErrors.ErrConcurrentModification.Code + ": record changed by another actor; re-fetch and retry"
		default:
			return nil, dto.OutcomeFailed, appErrors.ErrStoreUnavailable.Code + ": " + err.Error()
		}
	}
	return record, dto.OutcomeUpdated, ""
}

func (s *ChangeRequestService) invalidateReports(ctx context.Context, academicYear, classID string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("report:*:%s:%s", academicYear, classID)
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.String("pattern", pattern), zap.Error(err))
	}
}
