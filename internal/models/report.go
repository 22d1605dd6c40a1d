package models

import "time"

// SubjectReportRow carries one subject's approved grades across the eight
// periods plus the derived semester and overall averages. Nil values mean
// "not computed"; semester aggregates never default to zero.
type SubjectReportRow struct {
	Subject               string          `json:"subject"`
	Periods               map[Period]*int `json:"periods"`
	FirstSemesterAverage  *float64        `json:"first_semester_average"`
	SecondSemesterAverage *float64        `json:"second_semester_average"`
	OverallAverage        *int            `json:"overall_average"`
}

// PeriodAverages holds a student's cross-subject mean per period and per
// semester.
type PeriodAverages struct {
	Periods               map[Period]*float64 `json:"periods"`
	FirstSemesterAverage  *float64            `json:"first_semester_average"`
	SecondSemesterAverage *float64            `json:"second_semester_average"`
}

// RankSet carries a student's class ranks. Nil means the student had no
// value to rank for that column (displayed as "-").
type RankSet struct {
	Periods        map[Period]*int `json:"periods"`
	FirstSemester  *int            `json:"first_semester"`
	SecondSemester *int            `json:"second_semester"`
	Yearly         *int            `json:"yearly"`
}

// StudentPeriodicReport is the per-student grid of subjects by periods,
// built from approved records only.
type StudentPeriodicReport struct {
	StudentID   string             `json:"student_id"`
	StudentName string             `json:"student_name"`
	Subjects    []SubjectReportRow `json:"subjects"`
}

// StudentYearlyReport extends the periodic grid with averages and ranks.
type StudentYearlyReport struct {
	StudentID      string             `json:"student_id"`
	StudentName    string             `json:"student_name"`
	Subjects       []SubjectReportRow `json:"subjects"`
	PeriodAverages PeriodAverages     `json:"period_averages"`
	Ranks          RankSet            `json:"ranks"`
	YearlyAverage  *float64           `json:"yearly_average"`
}

// ClassYearlyReport is the full class view, recomputed on demand from
// approved grades; it is never the source of truth.
type ClassYearlyReport struct {
	AcademicYear string                `json:"academic_year"`
	ClassID      string                `json:"class_id"`
	Students     []StudentYearlyReport `json:"students"`
	GeneratedAt  time.Time             `json:"generated_at"`
}

// ExportType selects which report an export job renders.
type ExportType string

const (
	ExportTypePeriodic ExportType = "PERIODIC"
	ExportTypeYearly   ExportType = "YEARLY"
)

// ExportStatus tracks export job progress.
type ExportStatus string

const (
	ExportStatusQueued   ExportStatus = "QUEUED"
	ExportStatusRunning  ExportStatus = "RUNNING"
	ExportStatusFinished ExportStatus = "FINISHED"
	ExportStatusFailed   ExportStatus = "FAILED"
)

// ExportJob is a persisted asynchronous report export.
type ExportJob struct {
	ID           string       `db:"id" json:"id"`
	Type         ExportType   `db:"type" json:"type"`
	AcademicYear string       `db:"academic_year" json:"academic_year"`
	ClassID      string       `db:"class_id" json:"class_id"`
	Status       ExportStatus `db:"status" json:"status"`
	ResultPath   *string      `db:"result_path" json:"result_path,omitempty"`
	ErrorMessage *string      `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
}
