package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-rapor-api/internal/dto"
	"github.com/noah-isme/sma-rapor-api/internal/models"
	"github.com/noah-isme/sma-rapor-api/internal/service"
	appErrors "github.com/noah-isme/sma-rapor-api/pkg/errors"
	"github.com/noah-isme/sma-rapor-api/pkg/response"
)

// GradeHandler exposes grade submission and listing endpoints.
type GradeHandler struct {
	submissions *service.SubmissionService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(submissions *service.SubmissionService) *GradeHandler {
	return &GradeHandler{submissions: submissions}
}

// Submit godoc
// @Summary Submit grades for a class, subject, and period
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.SubmitGradesRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Submit(c *gin.Context) {
	var req dto.SubmitGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	submission, err := h.submissions.SubmitGrades(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// List godoc
// @Summary List grade records
// @Tags Grades
// @Produce json
// @Param academicYear query string true "Academic year"
// @Param classId query string false "Class"
// @Param subject query string false "Subject"
// @Param teacherId query string false "Teacher"
// @Param studentIds query string false "Comma-separated student IDs"
// @Param period query string false "Period"
// @Param status query string false "Status"
// @Param submissionId query string false "Submission"
// @Success 200 {object} response.Envelope
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	grades, err := h.submissions.ListGrades(c.Request.Context(), gradeQueryFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// ListSubmissions godoc
// @Summary List submissions with derived status and stats
// @Tags Grades
// @Produce json
// @Param academicYear query string true "Academic year"
// @Param classId query string false "Class"
// @Param subject query string false "Subject"
// @Param teacherId query string false "Teacher"
// @Param period query string false "Period"
// @Param submissionId query string false "Submission"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *GradeHandler) ListSubmissions(c *gin.Context) {
	submissions, err := h.submissions.ListSubmissions(c.Request.Context(), gradeQueryFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}

func gradeQueryFromContext(c *gin.Context) dto.GradeQuery {
	return dto.GradeQuery{
		AcademicYear: c.Query("academicYear"),
		ClassID:      c.Query("classId"),
		Subject:      c.Query("subject"),
		TeacherID:    c.Query("teacherId"),
		StudentIDs:   splitCSV(c.Query("studentIds")),
		Period:       models.Period(c.Query("period")),
		Status:       models.GradeStatus(c.Query("status")),
		SubmissionID: c.Query("submissionId"),
	}
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
