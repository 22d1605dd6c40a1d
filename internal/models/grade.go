package models

import "time"

// GradeStatus tracks the approval lifecycle of a single grade record.
type GradeStatus string

const (
	// GradeStatusPending marks a grade awaiting administrator review.
	GradeStatusPending GradeStatus = "PENDING"
	// GradeStatusApproved marks a grade accepted by an administrator.
	GradeStatusApproved GradeStatus = "APPROVED"
	// GradeStatusRejected marks a grade refused with a reason.
	GradeStatusRejected GradeStatus = "REJECTED"
)

// Grade value bounds and the fixed passing threshold. The threshold is a
// domain constant, not configuration.
const (
	MinGrade     = 0
	MaxGrade     = 100
	PassingGrade = 70
)

// Period identifies one of the eight fixed grading intervals in a year.
type Period string

const (
	PeriodFirst     Period = "firstPeriod"
	PeriodSecond    Period = "secondPeriod"
	PeriodThird     Period = "thirdPeriod"
	PeriodThirdExam Period = "thirdPeriodExam"
	PeriodFourth    Period = "fourthPeriod"
	PeriodFifth     Period = "fifthPeriod"
	PeriodSixth     Period = "sixthPeriod"
	PeriodSixthExam Period = "sixthPeriodExam"
)

// AllPeriods returns the eight periods in report order.
func AllPeriods() []Period {
	return []Period{
		PeriodFirst, PeriodSecond, PeriodThird, PeriodThirdExam,
		PeriodFourth, PeriodFifth, PeriodSixth, PeriodSixthExam,
	}
}

// FirstSemesterPeriods returns the periods that make up the first semester.
func FirstSemesterPeriods() []Period {
	return []Period{PeriodFirst, PeriodSecond, PeriodThird, PeriodThirdExam}
}

// SecondSemesterPeriods returns the periods that make up the second semester.
func SecondSemesterPeriods() []Period {
	return []Period{PeriodFourth, PeriodFifth, PeriodSixth, PeriodSixthExam}
}

// Valid reports whether p is one of the eight known periods.
func (p Period) Valid() bool {
	switch p {
	case PeriodFirst, PeriodSecond, PeriodThird, PeriodThirdExam,
		PeriodFourth, PeriodFifth, PeriodSixth, PeriodSixthExam:
		return true
	}
	return false
}

// GradeKey is the unique identity of a live grade record.
type GradeKey struct {
	AcademicYear string `json:"academic_year"`
	ClassID      string `json:"class_id"`
	Subject      string `json:"subject"`
	Period       Period `json:"period"`
	StudentID    string `json:"student_id"`
}

// GradeRecord is the atomic unit of the grade lifecycle. A nil Grade means
// the student has no mark for the period (incomplete), which is distinct
// from a grade of zero.
//
// The Prior* fields carry the under-review variant: when a change request
// re-opens a decided record, the previous grade, status, and rejection
// reason are staged here so a reviewer can compare before/after and a
// rejected review restores the original exactly.
type GradeRecord struct {
	ID                   string       `db:"id" json:"id"`
	AcademicYear         string       `db:"academic_year" json:"academic_year"`
	ClassID              string       `db:"class_id" json:"class_id"`
	Subject              string       `db:"subject" json:"subject"`
	Period               Period       `db:"period" json:"period"`
	StudentID            string       `db:"student_id" json:"student_id"`
	StudentName          string       `db:"student_name" json:"student_name"`
	TeacherID            string       `db:"teacher_id" json:"teacher_id"`
	Grade                *int         `db:"grade" json:"grade"`
	Status               GradeStatus  `db:"status" json:"status"`
	RejectionReason      *string      `db:"rejection_reason" json:"rejection_reason,omitempty"`
	SubmissionID         string       `db:"submission_id" json:"submission_id"`
	PriorGrade           *int         `db:"prior_grade" json:"prior_grade,omitempty"`
	PriorStatus          *GradeStatus `db:"prior_status" json:"prior_status,omitempty"`
	PriorRejectionReason *string      `db:"prior_rejection_reason" json:"prior_rejection_reason,omitempty"`
	ReviewReason         *string      `db:"review_reason" json:"review_reason,omitempty"`
	SubmittedAt          time.Time    `db:"submitted_at" json:"submitted_at"`
	LastUpdated          time.Time    `db:"last_updated" json:"last_updated"`
}

// Key returns the record's unique identity tuple.
func (r GradeRecord) Key() GradeKey {
	return GradeKey{
		AcademicYear: r.AcademicYear,
		ClassID:      r.ClassID,
		Subject:      r.Subject,
		Period:       r.Period,
		StudentID:    r.StudentID,
	}
}

// UnderReview reports whether the record carries a staged change-request
// proposal awaiting a fresh decision.
func (r GradeRecord) UnderReview() bool {
	return r.PriorStatus != nil
}

// ValidGradeValue reports whether v is nil or inside [MinGrade, MaxGrade].
func ValidGradeValue(v *int) bool {
	return v == nil || (*v >= MinGrade && *v <= MaxGrade)
}

// GradeFilter scopes grade queries. Zero values mean no constraint.
type GradeFilter struct {
	AcademicYear string
	ClassID      string
	Subject      string
	TeacherID    string
	StudentIDs   []string
	Period       Period
	Status       GradeStatus
	SubmissionID string
}
