package service

import "github.com/noah-isme/sma-rapor-api/internal/models"

// DeriveSubmissionStatus computes the aggregate status of a submission from
// its member grade statuses. It is the single source of truth for this
// derivation; callers must never re-derive it locally.
//
// Rules: empty set is Pending; all approved is Approved; all rejected is
// Rejected; any mix with at least one approval is Partially Approved;
// otherwise Pending. The result is independent of member order.
func DeriveSubmissionStatus(members []models.GradeRecord) models.SubmissionStatus {
	if len(members) == 0 {
		return models.SubmissionStatusPending
	}
	var approved, rejected, pending int
	for _, m := range members {
		switch m.Status {
		case models.GradeStatusApproved:
			approved++
		case models.GradeStatusRejected:
			rejected++
		default:
			pending++
		}
	}
	switch {
	case approved == len(members):
		return models.SubmissionStatusApproved
	case rejected == len(members):
		return models.SubmissionStatusRejected
	case approved > 0:
		return models.SubmissionStatusPartiallyApproved
	default:
		return models.SubmissionStatusPending
	}
}
