package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-rapor-api/internal/dto"
	"github.com/noah-isme/sma-rapor-api/internal/models"
	appErrors "github.com/noah-isme/sma-rapor-api/pkg/errors"
)

func submitRequest(grades ...dto.SubmitGradeItem) dto.SubmitGradesRequest {
	return dto.SubmitGradesRequest{
		AcademicYear: "2025/2026",
		ClassID:      "10A",
		Subject:      "Mathematics",
		TeacherID:    "teacher-1",
		Grades:       grades,
	}
}

func TestSubmitGradesCreatesPendingRecords(t *testing.T) {
	store := newGradeStoreStub()
	cache := newCacheStub()
	svc := NewSubmissionService(store, cache, nil, nil, nil)

	submission, err := svc.SubmitGrades(context.Background(), submitRequest(
		dto.SubmitGradeItem{StudentID: "s1", Name: "Ana", Grade: intPtr(85), Period: models.PeriodFirst},
		dto.SubmitGradeItem{StudentID: "s2", Name: "Budi", Grade: intPtr(50), Period: models.PeriodFirst},
		dto.SubmitGradeItem{StudentID: "s3", Name: "Citra", Grade: nil, Period: models.PeriodFirst},
	))
	require.NoError(t, err)
	require.NotEmpty(t, submission.SubmissionID)
	require.Equal(t, models.SubmissionStatusPending, submission.Status)
	require.Equal(t, models.SubmissionStats{
		TotalStudents: 3,
		Passes:        1,
		Fails:         1,
		Incompletes:   1,
		Average:       67.5,
	}, submission.Stats)
	require.Len(t, store.records, 3)
	for _, r := range store.records {
		require.Equal(t, models.GradeStatusPending, r.Status)
		require.Equal(t, submission.SubmissionID, r.SubmissionID)
	}
	require.Equal(t, []string{"report:*:2025/2026:10A"}, cache.patterns)
}

func TestSubmitGradesRejectsDuplicateStudentPeriod(t *testing.T) {
	svc := NewSubmissionService(newGradeStoreStub(), nil, nil, nil, nil)
	_, err := svc.SubmitGrades(context.Background(), submitRequest(
		dto.SubmitGradeItem{StudentID: "s1", Name: "Ana", Grade: intPtr(80), Period: models.PeriodFirst},
		dto.SubmitGradeItem{StudentID: "s1", Name: "Ana", Grade: intPtr(82), Period: models.PeriodFirst},
	))
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestSubmitGradesRejectsUnknownPeriodAndRange(t *testing.T) {
	svc := NewSubmissionService(newGradeStoreStub(), nil, nil, nil, nil)

	_, err := svc.SubmitGrades(context.Background(), submitRequest(
		dto.SubmitGradeItem{StudentID: "s1", Name: "Ana", Grade: intPtr(80), Period: "ninthPeriod"},
	))
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.SubmitGrades(context.Background(), submitRequest(
		dto.SubmitGradeItem{StudentID: "s1", Name: "Ana", Grade: intPtr(101), Period: models.PeriodFirst},
	))
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestSubmitGradesConflictsWithLiveRecords(t *testing.T) {
	store := newGradeStoreStub()
	svc := NewSubmissionService(store, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.SubmitGrades(ctx, submitRequest(
		dto.SubmitGradeItem{StudentID: "s1", Name: "Ana", Grade: intPtr(80), Period: models.PeriodFirst},
	))
	require.NoError(t, err)

	// Pending record blocks a second submission for the same key.
	_, err = svc.SubmitGrades(ctx, submitRequest(
		dto.SubmitGradeItem{StudentID: "s1", Name: "Ana", Grade: intPtr(90), Period: models.PeriodFirst},
	))
	require.True(t, appErrors.Is(err, appErrors.ErrConflict))

	// So does an approved one.
	record := store.byKey(models.GradeKey{
		AcademicYear: "2025/2026", ClassID: "10A", Subject: "Mathematics",
		Period: models.PeriodFirst, StudentID: "s1",
	})
	record.Status = models.GradeStatusApproved
	_, err = svc.SubmitGrades(ctx, submitRequest(
		dto.SubmitGradeItem{StudentID: "s1", Name: "Ana", Grade: intPtr(90), Period: models.PeriodFirst},
	))
	require.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestSubmitGradesResubmitSupersedesRejected(t *testing.T) {
	store := newGradeStoreStub()
	svc := NewSubmissionService(store, nil, nil, nil, nil)
	ctx := context.Background()

	first, err := svc.SubmitGrades(ctx, submitRequest(
		dto.SubmitGradeItem{StudentID: "s1", Name: "Ana", Grade: intPtr(40), Period: models.PeriodFirst},
	))
	require.NoError(t, err)

	key := models.GradeKey{
		AcademicYear: "2025/2026", ClassID: "10A", Subject: "Mathematics",
		Period: models.PeriodFirst, StudentID: "s1",
	}
	reason := "implausible score"
	rejected := store.byKey(key)
	rejected.Status = models.GradeStatusRejected
	rejected.RejectionReason = &reason

	// Without the resubmit flag the rejected record stays untouched.
	_, err = svc.SubmitGrades(ctx, submitRequest(
		dto.SubmitGradeItem{StudentID: "s1", Name: "Ana", Grade: intPtr(75), Period: models.PeriodFirst},
	))
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))

	req := submitRequest(
		dto.SubmitGradeItem{StudentID: "s1", Name: "Ana", Grade: intPtr(75), Period: models.PeriodFirst},
	)
	req.Resubmit = true
	second, err := svc.SubmitGrades(ctx, req)
	require.NoError(t, err)
	require.NotEqual(t, first.SubmissionID, second.SubmissionID)

	replaced := store.byKey(key)
	require.Equal(t, models.GradeStatusPending, replaced.Status)
	require.Nil(t, replaced.RejectionReason)
	require.Equal(t, 75, *replaced.Grade)
	require.Len(t, store.records, 1)
}

func TestGroupSubmissionsDerivesPerGroup(t *testing.T) {
	records := []models.GradeRecord{
		{SubmissionID: "sub-1", StudentID: "s1", StudentName: "Ana", Status: models.GradeStatusApproved, Grade: intPtr(80)},
		{SubmissionID: "sub-1", StudentID: "s2", StudentName: "Budi", Status: models.GradeStatusPending, Grade: intPtr(60)},
		{SubmissionID: "sub-2", StudentID: "s3", StudentName: "Citra", Status: models.GradeStatusRejected, Grade: intPtr(30)},
	}
	submissions := GroupSubmissions(records)
	require.Len(t, submissions, 2)

	byID := make(map[string]models.Submission, 2)
	for _, sub := range submissions {
		byID[sub.SubmissionID] = sub
	}
	require.Equal(t, models.SubmissionStatusPartiallyApproved, byID["sub-1"].Status)
	require.Equal(t, models.SubmissionStatusRejected, byID["sub-2"].Status)
	require.Equal(t, 2, byID["sub-1"].Stats.TotalStudents)
}

func TestListGradesRequiresAcademicYear(t *testing.T) {
	svc := NewSubmissionService(newGradeStoreStub(), nil, nil, nil, nil)
	_, err := svc.ListGrades(context.Background(), dto.GradeQuery{})
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
