package dto

import (
	"time"

	"github.com/noah-isme/sma-rapor-api/internal/models"
)

// Report type flags for the query endpoint.
const (
	ReportTypePeriodic = "periodic"
	ReportTypeYearly   = "yearly"
)

// ReportQuery selects a pre-aggregated report for a class, optionally
// narrowed to an explicit student subset.
type ReportQuery struct {
	AcademicYear string   `form:"academicYear" validate:"required"`
	ClassID      string   `form:"classId" validate:"required"`
	Type         string   `form:"type" validate:"required,oneof=periodic yearly"`
	StudentIDs   []string `form:"studentIds"`
}

// ExportRequest queues an asynchronous CSV export of a report.
type ExportRequest struct {
	Type         models.ExportType `json:"type" validate:"required,oneof=PERIODIC YEARLY"`
	AcademicYear string            `json:"academic_year" validate:"required"`
	ClassID      string            `json:"class_id" validate:"required"`
}

// ExportJobResponse reports export progress and, once finished, a signed
// download URL.
type ExportJobResponse struct {
	ID           string              `json:"id"`
	Type         models.ExportType   `json:"type"`
	Status       models.ExportStatus `json:"status"`
	DownloadURL  *string             `json:"download_url,omitempty"`
	ExpiresAt    *time.Time          `json:"expires_at,omitempty"`
	ErrorMessage *string             `json:"error_message,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	FinishedAt   *time.Time          `json:"finished_at,omitempty"`
}
