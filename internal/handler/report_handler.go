package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-rapor-api/internal/dto"
	"github.com/noah-isme/sma-rapor-api/internal/service"
	appErrors "github.com/noah-isme/sma-rapor-api/pkg/errors"
	"github.com/noah-isme/sma-rapor-api/pkg/response"
)

// ReportHandler exposes report queries and the export pipeline.
type ReportHandler struct {
	reports *service.ReportService
	exports *service.ExportService
}

// NewReportHandler constructs handler. The export service may be nil when
// the pipeline is disabled.
func NewReportHandler(reports *service.ReportService, exports *service.ExportService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// GetReport godoc
// @Summary Periodic or yearly class report
// @Tags Reports
// @Produce json
// @Param academicYear query string true "Academic year"
// @Param classId query string true "Class"
// @Param type query string true "periodic or yearly"
// @Param studentIds query string false "Comma-separated student IDs"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	query := dto.ReportQuery{
		AcademicYear: c.Query("academicYear"),
		ClassID:      c.Query("classId"),
		Type:         c.Query("type"),
		StudentIDs:   splitCSV(c.Query("studentIds")),
	}
	if query.AcademicYear == "" || query.ClassID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "academicYear and classId required"))
		return
	}
	switch query.Type {
	case dto.ReportTypePeriodic:
		report, err := h.reports.PeriodicReport(c.Request.Context(), query)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, report, nil)
	case dto.ReportTypeYearly:
		report, err := h.reports.YearlyReport(c.Request.Context(), query)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, report, nil)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "type must be periodic or yearly"))
	}
}

// CreateExport godoc
// @Summary Queue an asynchronous CSV export
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export payload"
// @Success 202 {object} response.Envelope
// @Router /reports/export [post]
func (h *ReportHandler) CreateExport(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "report exports disabled"))
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	job, err := h.exports.CreateExport(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// ExportStatus godoc
// @Summary Export job status
// @Tags Reports
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/export/{id} [get]
func (h *ReportHandler) ExportStatus(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "report exports disabled"))
		return
	}
	job, err := h.exports.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished export
// @Tags Reports
// @Produce text/csv
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Router /export/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "report exports disabled"))
		return
	}
	download, err := h.exports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, download.File)
}
