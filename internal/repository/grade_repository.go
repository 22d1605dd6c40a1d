package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-rapor-api/internal/models"
)

// ErrVersionConflict signals that a keyed write lost a race: the row's
// last_updated no longer matched the caller's snapshot.
var ErrVersionConflict = errors.New("grade record version conflict")

const gradeColumns = `id, academic_year, class_id, subject, period, student_id, student_name, teacher_id,
	grade, status, rejection_reason, submission_id, prior_grade, prior_status, prior_rejection_reason,
	review_reason, submitted_at, last_updated`

// GradeRepository is the keyed store for grade records. All writes target
// the unique (academic_year, class_id, subject, period, student_id) key.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// List returns grade records matching the filter.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM grade_records WHERE 1=1", gradeColumns)
	var args []interface{}
	add := func(clause string, value interface{}) {
		query += fmt.Sprintf(" AND %s = $%d", clause, len(args)+1)
		args = append(args, value)
	}
	if filter.AcademicYear != "" {
		add("academic_year", filter.AcademicYear)
	}
	if filter.ClassID != "" {
		add("class_id", filter.ClassID)
	}
	if filter.Subject != "" {
		add("subject", filter.Subject)
	}
	if filter.TeacherID != "" {
		add("teacher_id", filter.TeacherID)
	}
	if filter.Period != "" {
		add("period", string(filter.Period))
	}
	if filter.Status != "" {
		add("status", string(filter.Status))
	}
	if filter.SubmissionID != "" {
		add("submission_id", filter.SubmissionID)
	}
	if len(filter.StudentIDs) > 0 {
		placeholders := make([]string, len(filter.StudentIDs))
		for i, id := range filter.StudentIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		query += fmt.Sprintf(" AND student_id IN (%s)", strings.Join(placeholders, ","))
	}
	query += " ORDER BY submitted_at DESC, student_name ASC"

	var records []models.GradeRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list grade records: %w", err)
	}
	return records, nil
}

// GetByKey returns the live record for the unique key, or sql.ErrNoRows.
func (r *GradeRepository) GetByKey(ctx context.Context, key models.GradeKey) (*models.GradeRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM grade_records
	WHERE academic_year = $1 AND class_id = $2 AND subject = $3 AND period = $4 AND student_id = $5`, gradeColumns)
	var record models.GradeRecord
	if err := r.db.GetContext(ctx, &record, query, key.AcademicYear, key.ClassID, key.Subject, string(key.Period), key.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get grade record: %w", err)
	}
	return &record, nil
}

// GetBySubmissionAndStudent returns the single record targeted by an
// administrator decision, or sql.ErrNoRows.
func (r *GradeRepository) GetBySubmissionAndStudent(ctx context.Context, submissionID, studentID string) (*models.GradeRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM grade_records WHERE submission_id = $1 AND student_id = $2", gradeColumns)
	var record models.GradeRecord
	if err := r.db.GetContext(ctx, &record, query, submissionID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get grade record by submission: %w", err)
	}
	return &record, nil
}

// Upsert inserts a record or supersedes the live record for its key. A
// superseding write replaces every attribute including the submission ID;
// the old row never survives as a duplicate key.
func (r *GradeRepository) Upsert(ctx context.Context, record *models.GradeRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = now
	}
	record.LastUpdated = now
	const query = `INSERT INTO grade_records (id, academic_year, class_id, subject, period, student_id, student_name, teacher_id,
		grade, status, rejection_reason, submission_id, prior_grade, prior_status, prior_rejection_reason, review_reason, submitted_at, last_updated)
	VALUES (:id, :academic_year, :class_id, :subject, :period, :student_id, :student_name, :teacher_id,
		:grade, :status, :rejection_reason, :submission_id, :prior_grade, :prior_status, :prior_rejection_reason, :review_reason, :submitted_at, :last_updated)
	ON CONFLICT (academic_year, class_id, subject, period, student_id)
	DO UPDATE SET student_name = EXCLUDED.student_name, teacher_id = EXCLUDED.teacher_id, grade = EXCLUDED.grade,
		status = EXCLUDED.status, rejection_reason = EXCLUDED.rejection_reason, submission_id = EXCLUDED.submission_id,
		prior_grade = EXCLUDED.prior_grade, prior_status = EXCLUDED.prior_status,
		prior_rejection_reason = EXCLUDED.prior_rejection_reason, review_reason = EXCLUDED.review_reason,
		submitted_at = EXCLUDED.submitted_at, last_updated = EXCLUDED.last_updated`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert grade record: %w", err)
	}
	return nil
}

// BulkUpsert applies records as independent single-key writes. A failure
// stops the loop but earlier writes stand; there is deliberately no
// multi-row transaction here.
func (r *GradeRepository) BulkUpsert(ctx context.Context, records []models.GradeRecord) error {
	for i := range records {
		if err := r.Upsert(ctx, &records[i]); err != nil {
			return err
		}
	}
	return nil
}

// UpdateDecision persists the mutable lifecycle fields of a record guarded
// by a compare-and-swap on last_updated. Returns sql.ErrNoRows when the
// record no longer exists and ErrVersionConflict when another actor won
// the race.
func (r *GradeRepository) UpdateDecision(ctx context.Context, record *models.GradeRecord, expected time.Time) error {
	now := time.Now().UTC()
	const query = `UPDATE grade_records
	SET grade = $1, status = $2, rejection_reason = $3, prior_grade = $4, prior_status = $5,
		prior_rejection_reason = $6, review_reason = $7, last_updated = $8
	WHERE id = $9 AND last_updated = $10`
	res, err := r.db.ExecContext(ctx, query,
		record.Grade, string(record.Status), record.RejectionReason,
		record.PriorGrade, record.PriorStatus, record.PriorRejectionReason, record.ReviewReason,
		now, record.ID, expected)
	if err != nil {
		return fmt.Errorf("update grade decision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update grade decision result: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM grade_records WHERE id = $1)", record.ID); err != nil {
			return fmt.Errorf("check grade record existence: %w", err)
		}
		if !exists {
			return sql.ErrNoRows
		}
		return ErrVersionConflict
	}
	record.LastUpdated = now
	return nil
}
