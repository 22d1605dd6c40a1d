package models

import "time"

// SubmissionStatus is derived from member grade statuses and never stored.
type SubmissionStatus string

const (
	SubmissionStatusPending           SubmissionStatus = "PENDING"
	SubmissionStatusApproved          SubmissionStatus = "APPROVED"
	SubmissionStatusRejected          SubmissionStatus = "REJECTED"
	SubmissionStatusPartiallyApproved SubmissionStatus = "PARTIALLY_APPROVED"
)

// SubmissionStats summarises one submission or one period worth of grades.
// Average defaults to 0 when no non-nil grades exist; callers distinguish
// "no data" from "average of zero" via TotalStudents.
type SubmissionStats struct {
	TotalStudents int     `json:"total_students"`
	Passes        int     `json:"passes"`
	Fails         int     `json:"fails"`
	Incompletes   int     `json:"incompletes"`
	Average       float64 `json:"average"`
}

// Submission is the derived aggregate of all records sharing a submission
// ID. Status and Stats are recomputed on every read.
type Submission struct {
	SubmissionID string           `json:"submission_id"`
	AcademicYear string           `json:"academic_year"`
	ClassID      string           `json:"class_id"`
	Subject      string           `json:"subject"`
	Period       Period           `json:"period"`
	TeacherID    string           `json:"teacher_id"`
	Status       SubmissionStatus `json:"status"`
	Stats        SubmissionStats  `json:"stats"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	Grades       []GradeRecord    `json:"grades"`
}
