package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-rapor-api/internal/dto"
	"github.com/noah-isme/sma-rapor-api/internal/models"
)

func seedRecord(store *gradeStoreStub, studentID string, grade *int, status models.GradeStatus) *models.GradeRecord {
	record := &models.GradeRecord{
		AcademicYear: "2025/2026",
		ClassID:      "10A",
		Subject:      "Mathematics",
		Period:       models.PeriodFirst,
		StudentID:    studentID,
		StudentName:  strings.ToUpper(studentID),
		TeacherID:    "teacher-1",
		Grade:        grade,
		Status:       status,
		SubmissionID: "sub-1",
	}
	_ = store.Upsert(context.Background(), record)
	return store.records[record.ID]
}

func decision(studentID string, status models.GradeStatus, reason string) dto.UpdateStatusRequest {
	return dto.UpdateStatusRequest{Items: []dto.StatusUpdateItem{{
		SubmissionID:    "sub-1",
		StudentID:       studentID,
		Status:          status,
		RejectionReason: reason,
	}}}
}

func TestApprovePendingRecord(t *testing.T) {
	store := newGradeStoreStub()
	seedRecord(store, "s1", intPtr(85), models.GradeStatusPending)
	svc := NewApprovalService(store, nil, nil, nil, nil)

	result, err := svc.UpdateStatuses(context.Background(), decision("s1", models.GradeStatusApproved, ""))
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)
	require.Equal(t, dto.OutcomeUpdated, result.Items[0].Outcome)

	stored, _ := store.GetBySubmissionAndStudent(context.Background(), "sub-1", "s1")
	require.Equal(t, models.GradeStatusApproved, stored.Status)
	require.Nil(t, stored.RejectionReason)
}

func TestApproveApprovedIsNoOp(t *testing.T) {
	store := newGradeStoreStub()
	record := seedRecord(store, "s1", intPtr(85), models.GradeStatusApproved)
	before := record.LastUpdated
	svc := NewApprovalService(store, nil, nil, nil, nil)

	result, err := svc.UpdateStatuses(context.Background(), decision("s1", models.GradeStatusApproved, ""))
	require.NoError(t, err)
	require.Equal(t, 1, result.Skipped)
	require.Equal(t, dto.OutcomeSkipped, result.Items[0].Outcome)
	require.True(t, record.LastUpdated.Equal(before))
}

func TestApproveRejectedFails(t *testing.T) {
	store := newGradeStoreStub()
	reason := "too high"
	record := seedRecord(store, "s1", intPtr(100), models.GradeStatusRejected)
	record.RejectionReason = &reason
	svc := NewApprovalService(store, nil, nil, nil, nil)

	result, err := svc.UpdateStatuses(context.Background(), decision("s1", models.GradeStatusApproved, ""))
	require.NoError(t, err)
	require.Equal(t, 1, result.Failed)
	require.Contains(t, result.Items[0].Message, "INVALID_TRANSITION")
	require.Equal(t, models.GradeStatusRejected, record.Status)
}

func TestRejectPendingRequiresReason(t *testing.T) {
	store := newGradeStoreStub()
	record := seedRecord(store, "s1", intPtr(85), models.GradeStatusPending)
	svc := NewApprovalService(store, nil, nil, nil, nil)

	result, err := svc.UpdateStatuses(context.Background(), decision("s1", models.GradeStatusRejected, "  "))
	require.NoError(t, err)
	require.Equal(t, 1, result.Failed)
	require.Contains(t, result.Items[0].Message, "VALIDATION")
	require.Equal(t, models.GradeStatusPending, record.Status)

	result, err = svc.UpdateStatuses(context.Background(), decision("s1", models.GradeStatusRejected, "suspicious"))
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)
	require.Equal(t, models.GradeStatusRejected, record.Status)
	require.Equal(t, "suspicious", *record.RejectionReason)
}

func TestRejectApprovedIsSkipped(t *testing.T) {
	store := newGradeStoreStub()
	record := seedRecord(store, "s1", intPtr(85), models.GradeStatusApproved)
	svc := NewApprovalService(store, nil, nil, nil, nil)

	result, err := svc.UpdateStatuses(context.Background(), decision("s1", models.GradeStatusRejected, "late"))
	require.NoError(t, err)
	require.Equal(t, 1, result.Skipped)
	require.Equal(t, models.GradeStatusApproved, record.Status)
}

func TestRejectRejectedUpdatesReasonOnly(t *testing.T) {
	store := newGradeStoreStub()
	reason := "original reason"
	record := seedRecord(store, "s1", intPtr(85), models.GradeStatusRejected)
	record.RejectionReason = &reason
	svc := NewApprovalService(store, nil, nil, nil, nil)

	result, err := svc.UpdateStatuses(context.Background(), decision("s1", models.GradeStatusRejected, "original reason"))
	require.NoError(t, err)
	require.Equal(t, 1, result.Skipped)

	result, err = svc.UpdateStatuses(context.Background(), decision("s1", models.GradeStatusRejected, "better reason"))
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)
	require.Equal(t, "better reason", *record.RejectionReason)
	require.Equal(t, models.GradeStatusRejected, record.Status)
}

func TestApproveUnderReviewAcceptsProposal(t *testing.T) {
	store := newGradeStoreStub()
	record := seedRecord(store, "s1", intPtr(95), models.GradeStatusPending)
	prior := models.GradeStatusApproved
	record.PriorGrade = intPtr(85)
	record.PriorStatus = &prior
	reviewReason := "transcription error"
	record.ReviewReason = &reviewReason
	svc := NewApprovalService(store, nil, nil, nil, nil)

	result, err := svc.UpdateStatuses(context.Background(), decision("s1", models.GradeStatusApproved, ""))
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)
	require.Equal(t, models.GradeStatusApproved, record.Status)
	require.Equal(t, 95, *record.Grade)
	require.Nil(t, record.PriorGrade)
	require.Nil(t, record.PriorStatus)
	require.Nil(t, record.ReviewReason)
}

func TestRejectUnderReviewRestoresPrior(t *testing.T) {
	store := newGradeStoreStub()
	record := seedRecord(store, "s1", intPtr(95), models.GradeStatusPending)
	prior := models.GradeStatusRejected
	priorReason := "kept from before"
	record.PriorGrade = intPtr(85)
	record.PriorStatus = &prior
	record.PriorRejectionReason = &priorReason
	reviewReason := "second look"
	record.ReviewReason = &reviewReason
	svc := NewApprovalService(store, nil, nil, nil, nil)

	result, err := svc.UpdateStatuses(context.Background(), decision("s1", models.GradeStatusRejected, ""))
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)
	require.Equal(t, models.GradeStatusRejected, record.Status)
	require.Equal(t, 85, *record.Grade)
	require.Equal(t, "kept from before", *record.RejectionReason)
	require.Nil(t, record.PriorGrade)
	require.Nil(t, record.PriorStatus)
	require.Nil(t, record.PriorRejectionReason)
	require.Nil(t, record.ReviewReason)
}

func TestBulkDecisionsAreIndependent(t *testing.T) {
	store := newGradeStoreStub()
	seedRecord(store, "s1", intPtr(85), models.GradeStatusPending)
	seedRecord(store, "s2", intPtr(60), models.GradeStatusPending)
	reason := "fixed"
	rejected := seedRecord(store, "s3", intPtr(20), models.GradeStatusRejected)
	rejected.RejectionReason = &reason
	cache := newCacheStub()
	svc := NewApprovalService(store, cache, nil, nil, nil)

	result, err := svc.UpdateStatuses(context.Background(), dto.UpdateStatusRequest{Items: []dto.StatusUpdateItem{
		{SubmissionID: "sub-1", StudentID: "s1", Status: models.GradeStatusApproved},
		{SubmissionID: "sub-1", StudentID: "s2", Status: models.GradeStatusRejected, RejectionReason: "incomplete work"},
		{SubmissionID: "sub-1", StudentID: "s3", Status: models.GradeStatusApproved},
		{SubmissionID: "sub-1", StudentID: "missing", Status: models.GradeStatusApproved},
	}})
	require.NoError(t, err)
	require.Equal(t, 2, result.Updated)
	require.Equal(t, 2, result.Failed)
	require.Contains(t, result.Items[3].Message, "NOT_FOUND")
	require.Equal(t, []string{"report:*:2025/2026:10A"}, cache.patterns)
}

func TestDecisionVersionConflict(t *testing.T) {
	store := newGradeStoreStub()
	record := seedRecord(store, "s1", intPtr(85), models.GradeStatusPending)
	store.forceConflict = true
	svc := NewApprovalService(store, nil, nil, nil, nil)

	result, err := svc.UpdateStatuses(context.Background(), decision("s1", models.GradeStatusApproved, ""))
	require.NoError(t, err)
	require.Equal(t, 1, result.Failed)
	require.Contains(t, result.Items[0].Message, "CONCURRENT_MODIFICATION")
	require.Equal(t, models.GradeStatusPending, record.Status)
}
