package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-rapor-api/internal/models"
)

func newGradeRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func gradeRows(t *testing.T) *sqlmock.Rows {
	t.Helper()
	grade := 85
	return sqlmock.NewRows([]string{
		"id", "academic_year", "class_id", "subject", "period", "student_id", "student_name", "teacher_id",
		"grade", "status", "rejection_reason", "submission_id", "prior_grade", "prior_status",
		"prior_rejection_reason", "review_reason", "submitted_at", "last_updated",
	}).AddRow(
		"rec-1", "2025/2026", "10A", "Mathematics", "firstPeriod", "s1", "Ana", "teacher-1",
		grade, "PENDING", nil, "sub-1", nil, nil, nil, nil, time.Now(), time.Now(),
	)
}

func TestGradeRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newGradeRepoMock(t)
	defer cleanup()

	repo := NewGradeRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, academic_year")).
		WithArgs("2025/2026", "10A", "PENDING", "s1", "s2").
		WillReturnRows(gradeRows(t))

	records, err := repo.List(context.Background(), models.GradeFilter{
		AcademicYear: "2025/2026",
		ClassID:      "10A",
		Status:       models.GradeStatusPending,
		StudentIDs:   []string{"s1", "s2"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "s1", records[0].StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryGetByKeyNoRows(t *testing.T) {
	db, mock, cleanup := newGradeRepoMock(t)
	defer cleanup()

	repo := NewGradeRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, academic_year")).
		WithArgs("2025/2026", "10A", "Mathematics", "firstPeriod", "ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByKey(context.Background(), models.GradeKey{
		AcademicYear: "2025/2026", ClassID: "10A", Subject: "Mathematics",
		Period: models.PeriodFirst, StudentID: "ghost",
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpsertGeneratesDefaults(t *testing.T) {
	db, mock, cleanup := newGradeRepoMock(t)
	defer cleanup()

	repo := NewGradeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grade_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	grade := 85
	record := &models.GradeRecord{
		AcademicYear: "2025/2026", ClassID: "10A", Subject: "Mathematics",
		Period: models.PeriodFirst, StudentID: "s1", StudentName: "Ana",
		TeacherID: "teacher-1", Grade: &grade, Status: models.GradeStatusPending,
		SubmissionID: "sub-1",
	}
	require.NoError(t, repo.Upsert(context.Background(), record))
	require.NotEmpty(t, record.ID)
	require.False(t, record.SubmittedAt.IsZero())
	require.False(t, record.LastUpdated.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpdateDecisionSuccess(t *testing.T) {
	db, mock, cleanup := newGradeRepoMock(t)
	defer cleanup()

	repo := NewGradeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grade_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	expected := time.Now().Add(-time.Minute)
	record := &models.GradeRecord{ID: "rec-1", Status: models.GradeStatusApproved, LastUpdated: expected}
	require.NoError(t, repo.UpdateDecision(context.Background(), record, expected))
	require.True(t, record.LastUpdated.After(expected))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpdateDecisionVersionConflict(t *testing.T) {
	db, mock, cleanup := newGradeRepoMock(t)
	defer cleanup()

	repo := NewGradeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grade_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("rec-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	record := &models.GradeRecord{ID: "rec-1", Status: models.GradeStatusApproved}
	err := repo.UpdateDecision(context.Background(), record, time.Now())
	require.ErrorIs(t, err, ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpdateDecisionMissingRecord(t *testing.T) {
	db, mock, cleanup := newGradeRepoMock(t)
	defer cleanup()

	repo := NewGradeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grade_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("rec-9").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	record := &models.GradeRecord{ID: "rec-9", Status: models.GradeStatusApproved}
	err := repo.UpdateDecision(context.Background(), record, time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
