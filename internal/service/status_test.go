package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-rapor-api/internal/models"
)

func recordsWithStatuses(statuses ...models.GradeStatus) []models.GradeRecord {
	records := make([]models.GradeRecord, 0, len(statuses))
	for i, s := range statuses {
		records = append(records, models.GradeRecord{
			StudentID: string(rune('a' + i)),
			Status:    s,
		})
	}
	return records
}

func TestDeriveSubmissionStatus(t *testing.T) {
	pending := models.GradeStatusPending
	approved := models.GradeStatusApproved
	rejected := models.GradeStatusRejected

	cases := []struct {
		name     string
		statuses []models.GradeStatus
		want     models.SubmissionStatus
	}{
		{"empty", nil, models.SubmissionStatusPending},
		{"all pending", []models.GradeStatus{pending, pending}, models.SubmissionStatusPending},
		{"all approved", []models.GradeStatus{approved, approved, approved}, models.SubmissionStatusApproved},
		{"all rejected", []models.GradeStatus{rejected, rejected}, models.SubmissionStatusRejected},
		{"approved and pending", []models.GradeStatus{approved, pending}, models.SubmissionStatusPartiallyApproved},
		{"approved and rejected", []models.GradeStatus{approved, rejected}, models.SubmissionStatusPartiallyApproved},
		{"approved rejected pending", []models.GradeStatus{approved, rejected, pending}, models.SubmissionStatusPartiallyApproved},
		{"rejected and pending", []models.GradeStatus{rejected, pending}, models.SubmissionStatusPending},
		{"single approved", []models.GradeStatus{approved}, models.SubmissionStatusApproved},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DeriveSubmissionStatus(recordsWithStatuses(tc.statuses...)))
		})
	}
}

func TestDeriveSubmissionStatusOrderIndependent(t *testing.T) {
	statuses := []models.GradeStatus{
		models.GradeStatusApproved,
		models.GradeStatusRejected,
		models.GradeStatusPending,
	}
	permutations := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	for _, perm := range permutations {
		ordered := make([]models.GradeStatus, 0, len(perm))
		for _, i := range perm {
			ordered = append(ordered, statuses[i])
		}
		require.Equal(t, models.SubmissionStatusPartiallyApproved,
			DeriveSubmissionStatus(recordsWithStatuses(ordered...)))
	}
}
