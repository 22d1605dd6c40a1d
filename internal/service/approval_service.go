package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-rapor-api/internal/dto"
	"github.com/noah-isme/sma-rapor-api/internal/models"
	"github.com/noah-isme/sma-rapor-api/internal/repository"
	appErrors "github.com/noah-isme/sma-rapor-api/pkg/errors"
)

// ApprovalService applies administrator decisions to grade records. Bulk
// updates are a sequence of independent single-key writes: one record
// losing a race or being in the wrong state never rolls back the others.
type ApprovalService struct {
	store     gradeStore
	cache     reportInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewApprovalService constructs ApprovalService.
func NewApprovalService(store gradeStore, cache reportInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ApprovalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{store: store, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// UpdateStatuses applies the decisions item by item and reports every
// key's outcome individually. Non-pending targets are excluded from the
// action but counted as skipped so callers can tell "nothing to do" from
// "succeeded".
func (s *ApprovalService) UpdateStatuses(ctx context.Context, req dto.UpdateStatusRequest) (*dto.UpdateStatusResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status update payload")
	}

	result := &dto.UpdateStatusResult{Items: make([]dto.StatusUpdateItemResult, 0, len(req.Items))}
	type scope struct{ year, class string }
	touched := make(map[scope]bool)

	for _, item := range req.Items {
		itemResult := dto.StatusUpdateItemResult{SubmissionID: item.SubmissionID, StudentID: item.StudentID}
		record, outcome, message := s.decide(ctx, item)
		itemResult.Outcome = outcome
		itemResult.Message = message
		switch outcome {
		case dto.OutcomeUpdated:
			result.Updated++
			touched[scope{record.AcademicYear, record.ClassID}] = true
		case dto.OutcomeSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
		result.Items = append(result.Items, itemResult)
	}

	s.metrics.CountDecisions(strings.ToLower(string(models.GradeStatusApproved)), countDecided(req.Items, result.Items, models.GradeStatusApproved))
	s.metrics.CountDecisions(strings.ToLower(string(models.GradeStatusRejected)), countDecided(req.Items, result.Items, models.GradeStatusRejected))

	for sc := range touched {
		s.invalidateReports(ctx, sc.year, sc.class)
	}
	return result, nil
}

// decide loads the targeted record and applies one transition. The
// returned record is only meaningful for the updated outcome.
func (s *ApprovalService) decide(ctx context.Context, item dto.StatusUpdateItem) (*models.GradeRecord, string, string) {
	record, err := s.store.GetBySubmissionAndStudent(ctx, item.SubmissionID, item.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dto.OutcomeFailed, appErrors.ErrNotFound.Code + ": no grade record for submission and student"
		}
		return nil, dto.OutcomeFailed, appErrors.ErrStoreUnavailable.Code + ": " + err.Error()
	}

	var changed bool
	var message string
	switch item.Status {
	case models.GradeStatusApproved:
		changed, message, err = applyApprove(record)
	case models.GradeStatusRejected:
		changed, message, err = applyReject(record, item.RejectionReason)
	default:
		return nil, dto.OutcomeFailed, appErrors.ErrValidation.Code + ": status must be APPROVED or REJECTED"
	}
	if err != nil {
		return nil, dto.OutcomeFailed, appErrors.FromError(err).Code + ": " + appErrors.FromError(err).Message
	}
	if !changed {
		return record, dto.OutcomeSkipped, message
	}

	if err := s.store.UpdateDecision(ctx, record, record.LastUpdated); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, dto.OutcomeFailed, appErrors.ErrNotFound.Code + ": record disappeared before decision"
		case errors.Is(err, repository.ErrVersionConflict):
			return nil, dto.OutcomeFailed, appErrors.ErrConcurrentModification.Code + ": record changed by another actor; re-fetch and retry"
		default:
			return nil, dto.OutcomeFailed, appErrors.ErrStoreUnavailable.Code + ": " + err.Error()
		}
	}
	return record, dto.OutcomeUpdated, message
}

// applyApprove mutates the record in memory for an approval. An approved
// record is a no-op that must not refresh last_updated; a rejected record
// cannot be approved in place.
func applyApprove(record *models.GradeRecord) (bool, string, error) {
	switch record.Status {
	case models.GradeStatusApproved:
		return false, "already approved", nil
	case models.GradeStatusRejected:
		return false, "", appErrors.Clone(appErrors.ErrInvalidTransition, "rejected grade must be resubmitted, not approved")
	}
	if record.UnderReview() {
		// Accepting the proposal: the staged grade becomes the decided one.
		record.PriorGrade = nil
		record.PriorStatus = nil
		record.PriorRejectionReason = nil
		record.ReviewReason = nil
	}
	record.Status = models.GradeStatusApproved
	record.RejectionReason = nil
	return true, "", nil
}

// applyReject mutates the record in memory for a rejection. Rejecting an
// under-review record restores the prior decided value exactly instead of
// discarding it.
func applyReject(record *models.GradeRecord, reason string) (bool, string, error) {
	if record.UnderReview() {
		record.Grade = record.PriorGrade
		record.Status = *record.PriorStatus
		record.RejectionReason = record.PriorRejectionReason
		record.PriorGrade = nil
		record.PriorStatus = nil
		record.PriorRejectionReason = nil
		record.ReviewReason = nil
		return true, "change request rejected; prior grade restored", nil
	}

	reason = strings.TrimSpace(reason)
	switch record.Status {
	case models.GradeStatusRejected:
		if reason == "" {
			return false, "", appErrors.Clone(appErrors.ErrValidation, "rejection reason must not be empty")
		}
		if record.RejectionReason != nil && *record.RejectionReason == reason {
			return false, "already rejected with the same reason", nil
		}
		// Reason correction on an already-rejected record.
		record.RejectionReason = &reason
		return true, "rejection reason updated", nil
	case models.GradeStatusApproved:
		return false, "not pending; approved grades change via change request", nil
	}
	if reason == "" {
		return false, "", appErrors.Clone(appErrors.ErrValidation, "rejection reason must not be empty")
	}
	record.Status = models.GradeStatusRejected
	record.RejectionReason = &reason
	return true, "", nil
}

func (s *ApprovalService) invalidateReports(ctx context.Context, academicYear, classID string) {
	if s.cache == nil {
		return
	}
	pattern := "report:*:" + academicYear + ":" + classID
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.String("pattern", pattern), zap.Error(err))
	}
}

func countDecided(items []dto.StatusUpdateItem, results []dto.StatusUpdateItemResult, status models.GradeStatus) int {
	var n int
	for i, item := range items {
		if item.Status == status && i < len(results) && results[i].Outcome == dto.OutcomeUpdated {
			n++
		}
	}
	return n
}
