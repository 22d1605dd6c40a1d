package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-rapor-api/internal/dto"
	"github.com/noah-isme/sma-rapor-api/internal/models"
	appErrors "github.com/noah-isme/sma-rapor-api/pkg/errors"
)

func changeRequest(reason string, changes ...dto.GradeChangeItem) dto.ChangeRequest {
	return dto.ChangeRequest{SubmissionID: "sub-1", Reason: reason, Changes: changes}
}

func TestStageChangeOnApprovedRecord(t *testing.T) {
	store := newGradeStoreStub()
	record := seedRecord(store, "s1", intPtr(85), models.GradeStatusApproved)
	cache := newCacheStub()
	svc := NewChangeRequestService(store, cache, nil, nil, nil)

	result, err := svc.Stage(context.Background(), changeRequest("transcription error",
		dto.GradeChangeItem{StudentID: "s1", NewGrade: 95},
	))
	require.NoError(t, err)
	require.Equal(t, 1, result.Staged)
	require.Equal(t, dto.OutcomeUpdated, result.Items[0].Outcome)

	require.Equal(t, models.GradeStatusPending, record.Status)
	require.Equal(t, 95, *record.Grade)
	require.Equal(t, 85, *record.PriorGrade)
	require.Equal(t, models.GradeStatusApproved, *record.PriorStatus)
	require.Equal(t, "transcription error", *record.ReviewReason)
	require.Nil(t, record.RejectionReason)
	require.Equal(t, []string{"report:*:2025/2026:10A"}, cache.patterns)
}

func TestStageChangeOnRejectedKeepsPriorReason(t *testing.T) {
	store := newGradeStoreStub()
	reason := "unreadable"
	record := seedRecord(store, "s1", intPtr(40), models.GradeStatusRejected)
	record.RejectionReason = &reason
	svc := NewChangeRequestService(store, nil, nil, nil, nil)

	_, err := svc.Stage(context.Background(), changeRequest("resubmitted paper",
		dto.GradeChangeItem{StudentID: "s1", NewGrade: 70},
	))
	require.NoError(t, err)
	require.Equal(t, models.GradeStatusPending, record.Status)
	require.Equal(t, models.GradeStatusRejected, *record.PriorStatus)
	require.Equal(t, "unreadable", *record.PriorRejectionReason)
	require.Nil(t, record.RejectionReason)
}

func TestStageIdenticalChangeIsIdempotent(t *testing.T) {
	store := newGradeStoreStub()
	record := seedRecord(store, "s1", intPtr(85), models.GradeStatusApproved)
	svc := NewChangeRequestService(store, nil, nil, nil, nil)
	ctx := context.Background()

	req := changeRequest("transcription error", dto.GradeChangeItem{StudentID: "s1", NewGrade: 95})
	_, err := svc.Stage(ctx, req)
	require.NoError(t, err)
	afterFirst := record.LastUpdated

	result, err := svc.Stage(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 1, result.Unchanged)
	require.Equal(t, dto.OutcomeSkipped, result.Items[0].Outcome)
	require.True(t, record.LastUpdated.Equal(afterFirst))
	require.Equal(t, 85, *record.PriorGrade)
}

func TestStageDifferentChangeReplacesProposal(t *testing.T) {
	store := newGradeStoreStub()
	record := seedRecord(store, "s1", intPtr(85), models.GradeStatusApproved)
	svc := NewChangeRequestService(store, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Stage(ctx, changeRequest("first pass", dto.GradeChangeItem{StudentID: "s1", NewGrade: 95}))
	require.NoError(t, err)

	result, err := svc.Stage(ctx, changeRequest("recount", dto.GradeChangeItem{StudentID: "s1", NewGrade: 92}))
	require.NoError(t, err)
	require.Equal(t, 1, result.Staged)
	require.Equal(t, 92, *record.Grade)
	require.Equal(t, "recount", *record.ReviewReason)
	// The original decided value stays staged for a later restore.
	require.Equal(t, 85, *record.PriorGrade)
	require.Equal(t, models.GradeStatusApproved, *record.PriorStatus)
}

func TestStageChangeOnPendingFails(t *testing.T) {
	store := newGradeStoreStub()
	record := seedRecord(store, "s1", intPtr(85), models.GradeStatusPending)
	svc := NewChangeRequestService(store, nil, nil, nil, nil)

	result, err := svc.Stage(context.Background(), changeRequest("eager fix",
		dto.GradeChangeItem{StudentID: "s1", NewGrade: 95},
	))
	require.NoError(t, err)
	require.Equal(t, 1, result.Failed)
	require.Contains(t, result.Items[0].Message, "INVALID_TRANSITION")
	require.Equal(t, models.GradeStatusPending, record.Status)
	require.Nil(t, record.PriorStatus)
}

func TestStageChangeValidation(t *testing.T) {
	store := newGradeStoreStub()
	seedRecord(store, "s1", intPtr(85), models.GradeStatusApproved)
	svc := NewChangeRequestService(store, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Stage(ctx, changeRequest("   ", dto.GradeChangeItem{StudentID: "s1", NewGrade: 95}))
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Stage(ctx, changeRequest("reason", dto.GradeChangeItem{StudentID: "s1", NewGrade: 101}))
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestStageChangeMissingRecord(t *testing.T) {
	svc := NewChangeRequestService(newGradeStoreStub(), nil, nil, nil, nil)
	result, err := svc.Stage(context.Background(), changeRequest("reason",
		dto.GradeChangeItem{StudentID: "ghost", NewGrade: 80},
	))
	require.NoError(t, err)
	require.Equal(t, 1, result.Failed)
	require.Contains(t, result.Items[0].Message, "NOT_FOUND")
}
