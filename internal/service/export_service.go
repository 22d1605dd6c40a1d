package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-rapor-api/internal/dto"
	"github.com/noah-isme/sma-rapor-api/internal/models"
	"github.com/noah-isme/sma-rapor-api/internal/repository"
	appErrors "github.com/noah-isme/sma-rapor-api/pkg/errors"
	"github.com/noah-isme/sma-rapor-api/pkg/export"
	"github.com/noah-isme/sma-rapor-api/pkg/jobs"
	"github.com/noah-isme/sma-rapor-api/pkg/storage"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ExportService runs asynchronous CSV exports of report views. Jobs are
// persisted before they are enqueued so a restart can replay anything
// still queued.
type ExportService struct {
	repo       exportJobStore
	reports    *ReportService
	exporter   *export.CSVExporter
	files      *storage.LocalStorage
	signer     *storage.SignedURLSigner
	queue      jobDispatcher
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	maxRetries int
	cleanupTTL time.Duration
	basePath   string
}

// ExportServiceConfig tunes the export pipeline.
type ExportServiceConfig struct {
	MaxRetries int
	CleanupTTL time.Duration
	// BasePath prefixes generated download URLs, e.g. "/api/v1".
	BasePath string
}

// ExportDownload is a resolved, ready-to-stream export file.
type ExportDownload struct {
	File      *os.File
	Filename  string
	ExpiresAt time.Time
}

// NewExportService constructs the export service.
func NewExportService(repo exportJobStore, reports *ReportService, files *storage.LocalStorage, signer *storage.SignedURLSigner, metrics *MetricsService, logger *zap.Logger, cfg ExportServiceConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.CleanupTTL <= 0 {
		cfg.CleanupTTL = 24 * time.Hour
	}
	return &ExportService{
		repo:       repo,
		reports:    reports,
		exporter:   export.NewCSVExporter(),
		files:      files,
		signer:     signer,
		metrics:    metrics,
		validator:  validator.New(),
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		cleanupTTL: cfg.CleanupTTL,
		basePath:   strings.TrimRight(cfg.BasePath, "/"),
	}
}

// SetQueue wires the dispatcher. The queue needs the service's Handle as
// its handler, so the two are connected after construction.
func (s *ExportService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// CreateExport persists a new job and enqueues it.
func (s *ExportService) CreateExport(ctx context.Context, req dto.ExportRequest) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}
	job := &models.ExportJob{
		Type:         req.Type,
		AcademicYear: req.AcademicYear,
		ClassID:      req.ClassID,
		Status:       models.ExportStatusQueued,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to create export job")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export queue not running")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		failed := models.ExportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		_ = s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
			Status:       &failed,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return s.jobResponse(job), nil
}

// Status returns job metadata. Finished jobs carry a signed download URL
// minted per request, so expiry is measured from the status call.
func (s *ExportService) Status(ctx context.Context, id string) (*dto.ExportJobResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load export job")
	}
	return s.jobResponse(job), nil
}

// ResolveDownload validates the signed token and opens the export file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load export job")
	}
	if job.Status != models.ExportStatusFinished || job.ResultPath == nil || *job.ResultPath != relPath {
		return nil, appErrors.Clone(appErrors.ErrValidation, "export not ready for download")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{File: file, Filename: filepath.Base(relPath), ExpiresAt: expiresAt}, nil
}

// Handle processes one queued export job.
func (s *ExportService) Handle(ctx context.Context, job jobs.Job) error {
	record, err := s.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	running := models.ExportStatusRunning
	if err := s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &running}); err != nil {
		return err
	}

	relPath, err := s.render(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= s.maxRetries {
			failed := models.ExportStatusFailed
			now := time.Now().UTC()
			if updateErr := s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status:       &failed,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				s.logger.Sugar().Warnw("failed to mark export failed", "job_id", job.ID, "error", updateErr)
			}
			s.metrics.CountExportJob(string(models.ExportStatusFailed))
		} else {
			queued := models.ExportStatusQueued
			if updateErr := s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status:       &queued,
				ErrorMessage: &msg,
			}); updateErr != nil {
				s.logger.Sugar().Warnw("failed to requeue export", "job_id", job.ID, "error", updateErr)
			}
		}
		return err
	}

	finished := models.ExportStatusFinished
	now := time.Now().UTC()
	clear := ""
	if err := s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &finished,
		ResultPath:   &relPath,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Sugar().Warnw("failed to mark export finished", "job_id", job.ID, "error", err)
		return err
	}
	s.metrics.CountExportJob(string(models.ExportStatusFinished))
	return nil
}

// RecoverPendingJobs replays queued jobs after a process restart.
func (s *ExportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued export jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending export", "job_id", job.ID, "error", err)
		}
	}
}

// StartCleanup boots a goroutine that purges expired export files.
func (s *ExportService) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.files.CleanupOlderThan(s.cleanupTTL); err != nil {
					s.logger.Sugar().Warnw("export cleanup failed", "error", err)
				}
			}
		}
	}()
}

func (s *ExportService) render(ctx context.Context, job *models.ExportJob) (string, error) {
	var data export.Dataset
	var err error
	query := dto.ReportQuery{AcademicYear: job.AcademicYear, ClassID: job.ClassID}
	switch job.Type {
	case models.ExportTypePeriodic:
		var report []models.StudentPeriodicReport
		report, err = s.reports.PeriodicReport(ctx, query)
		if err == nil {
			data = periodicDataset(report)
		}
	case models.ExportTypeYearly:
		var report *models.ClassYearlyReport
		report, err = s.reports.YearlyReport(ctx, query)
		if err == nil {
			data = yearlyDataset(report)
		}
	default:
		return "", fmt.Errorf("unsupported export type %q", job.Type)
	}
	if err != nil {
		return "", err
	}

	payload, err := s.exporter.Render(data)
	if err != nil {
		return "", err
	}
	year := strings.ReplaceAll(job.AcademicYear, "/", "-")
	filename := fmt.Sprintf("%s/%s-%s-%s.csv", job.ID, strings.ToLower(string(job.Type)), year, job.ClassID)
	return s.files.Save(filename, payload)
}

func (s *ExportService) jobResponse(job *models.ExportJob) *dto.ExportJobResponse {
	resp := &dto.ExportJobResponse{
		ID:           job.ID,
		Type:         job.Type,
		Status:       job.Status,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		FinishedAt:   job.FinishedAt,
	}
	if job.Status == models.ExportStatusFinished && job.ResultPath != nil && s.signer != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.ResultPath)
		if err != nil {
			s.logger.Sugar().Warnw("failed to sign download url", "job_id", job.ID, "error", err)
		} else {
			url := fmt.Sprintf("%s/export/%s", s.basePath, token)
			resp.DownloadURL = &url
			resp.ExpiresAt = &expiresAt
		}
	}
	return resp
}

func periodicDataset(students []models.StudentPeriodicReport) export.Dataset {
	data := export.Dataset{Headers: subjectRowHeaders()}
	for _, student := range students {
		for _, row := range student.Subjects {
			data.Rows = append(data.Rows, subjectRow(student.StudentID, student.StudentName, row))
		}
	}
	return data
}

func yearlyDataset(report *models.ClassYearlyReport) export.Dataset {
	headers := subjectRowHeaders()
	headers = append(headers, "first_semester_rank", "second_semester_rank", "yearly_average", "yearly_rank")
	data := export.Dataset{Headers: headers}
	for _, student := range report.Students {
		for _, row := range student.Subjects {
			data.Rows = append(data.Rows, subjectRow(student.StudentID, student.StudentName, row))
		}
		summary := map[string]string{
			"student_id":           student.StudentID,
			"student_name":         student.StudentName,
			"subject":              "ALL",
			"first_semester_rank":  fmtIntPtr(student.Ranks.FirstSemester),
			"second_semester_rank": fmtIntPtr(student.Ranks.SecondSemester),
			"yearly_average":       fmtFloatPtr(student.YearlyAverage),
			"yearly_rank":          fmtIntPtr(student.Ranks.Yearly),
		}
		for _, p := range models.AllPeriods() {
			summary[string(p)] = fmtFloatPtr(student.PeriodAverages.Periods[p])
		}
		summary["first_semester_average"] = fmtFloatPtr(student.PeriodAverages.FirstSemesterAverage)
		summary["second_semester_average"] = fmtFloatPtr(student.PeriodAverages.SecondSemesterAverage)
		data.Rows = append(data.Rows, summary)
	}
	return data
}

func subjectRowHeaders() []string {
	headers := []string{"student_id", "student_name", "subject"}
	for _, p := range models.AllPeriods() {
		headers = append(headers, string(p))
	}
	return append(headers, "first_semester_average", "second_semester_average", "overall_average")
}

func subjectRow(studentID, studentName string, row models.SubjectReportRow) map[string]string {
	out := map[string]string{
		"student_id":   studentID,
		"student_name": studentName,
		"subject":      row.Subject,
	}
	for _, p := range models.AllPeriods() {
		out[string(p)] = fmtIntPtr(row.Periods[p])
	}
	out["first_semester_average"] = fmtFloatPtr(row.FirstSemesterAverage)
	out["second_semester_average"] = fmtFloatPtr(row.SecondSemesterAverage)
	out["overall_average"] = fmtIntPtr(row.OverallAverage)
	return out
}

func fmtIntPtr(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func fmtFloatPtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
