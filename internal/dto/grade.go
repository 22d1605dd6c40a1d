package dto

import "github.com/noah-isme/sma-rapor-api/internal/models"

// SubmitGradeItem is one student's mark within a submission payload. A nil
// Grade is an explicit incomplete and must survive the wire as null.
type SubmitGradeItem struct {
	StudentID string        `json:"student_id" validate:"required"`
	Name      string        `json:"name" validate:"required"`
	Grade     *int          `json:"grade"`
	Period    models.Period `json:"period" validate:"required"`
}

// SubmitGradesRequest creates one submission with one record per
// (student, period) pair. Resubmit must be set to supersede rejected
// records for the same keys.
type SubmitGradesRequest struct {
	AcademicYear string            `json:"academic_year" validate:"required"`
	ClassID      string            `json:"class_id" validate:"required"`
	Subject      string            `json:"subject" validate:"required"`
	TeacherID    string            `json:"teacher_id" validate:"required"`
	Resubmit     bool              `json:"resubmit"`
	Grades       []SubmitGradeItem `json:"grades" validate:"required,min=1,dive"`
}

// GradeQuery filters flat grade and submission listings.
type GradeQuery struct {
	AcademicYear string             `form:"academicYear" validate:"required"`
	ClassID      string             `form:"classId"`
	Subject      string             `form:"subject"`
	TeacherID    string             `form:"teacherId"`
	StudentIDs   []string           `form:"studentIds"`
	Period       models.Period      `form:"period"`
	Status       models.GradeStatus `form:"status"`
	SubmissionID string             `form:"submissionId"`
}

// StatusUpdateItem is one administrator decision within a bulk update.
type StatusUpdateItem struct {
	SubmissionID    string             `json:"submission_id" validate:"required"`
	StudentID       string             `json:"student_id" validate:"required"`
	Status          models.GradeStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	RejectionReason string             `json:"rejection_reason"`
}

// UpdateStatusRequest applies decisions as independent single-key writes.
type UpdateStatusRequest struct {
	Items []StatusUpdateItem `json:"items" validate:"required,min=1,dive"`
}

// Per-item outcomes for bulk decisions. Skipped records were not Pending
// and are excluded from the action without failing the batch.
const (
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// StatusUpdateItemResult reports one key's outcome.
type StatusUpdateItemResult struct {
	SubmissionID string `json:"submission_id"`
	StudentID    string `json:"student_id"`
	Outcome      string `json:"outcome"`
	Message      string `json:"message,omitempty"`
}

// UpdateStatusResult summarises a bulk decision, separating "nothing to do"
// from "succeeded" via the per-outcome counts.
type UpdateStatusResult struct {
	Updated int                      `json:"updated"`
	Skipped int                      `json:"skipped"`
	Failed  int                      `json:"failed"`
	Items   []StatusUpdateItemResult `json:"items"`
}

// GradeChangeItem proposes a new grade for one student.
type GradeChangeItem struct {
	StudentID string `json:"student_id" validate:"required"`
	NewGrade  int    `json:"new_grade" validate:"min=0,max=100"`
}

// ChangeRequest stages revisions to already-decided grades within a
// submission. It never applies directly; targets re-enter the pending path.
type ChangeRequest struct {
	SubmissionID string            `json:"submission_id" validate:"required"`
	Reason       string            `json:"reason" validate:"required"`
	Changes      []GradeChangeItem `json:"changes" validate:"required,min=1,dive"`
}

// ChangeRequestItemResult reports the staging outcome for one student.
type ChangeRequestItemResult struct {
	StudentID string `json:"student_id"`
	Outcome   string `json:"outcome"`
	Message   string `json:"message,omitempty"`
}

// ChangeRequestResult summarises a change request submission.
type ChangeRequestResult struct {
	Staged    int                       `json:"staged"`
	Unchanged int                       `json:"unchanged"`
	Failed    int                       `json:"failed"`
	Items     []ChangeRequestItemResult `json:"items"`
}
