package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noah-isme/sma-rapor-api/internal/models"
	"github.com/noah-isme/sma-rapor-api/internal/repository"
	appErrors "github.com/noah-isme/sma-rapor-api/pkg/errors"
)

// gradeStoreStub is an in-memory gradeStore with the same compare-and-swap
// semantics as the SQL repository.
type gradeStoreStub struct {
	records map[string]*models.GradeRecord
	clock   time.Time
	nextID  int

	forceConflict bool
	listErr       error
}

func newGradeStoreStub() *gradeStoreStub {
	return &gradeStoreStub{
		records: make(map[string]*models.GradeRecord),
		clock:   time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC),
	}
}

func (s *gradeStoreStub) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *gradeStoreStub) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	wanted := make(map[string]bool, len(filter.StudentIDs))
	for _, id := range filter.StudentIDs {
		wanted[id] = true
	}
	out := make([]models.GradeRecord, 0, len(s.records))
	for _, r := range s.records {
		if filter.AcademicYear != "" && r.AcademicYear != filter.AcademicYear {
			continue
		}
		if filter.ClassID != "" && r.ClassID != filter.ClassID {
			continue
		}
		if filter.Subject != "" && r.Subject != filter.Subject {
			continue
		}
		if filter.TeacherID != "" && r.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Period != "" && r.Period != filter.Period {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.SubmissionID != "" && r.SubmissionID != filter.SubmissionID {
			continue
		}
		if len(wanted) > 0 && !wanted[r.StudentID] {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *gradeStoreStub) GetByKey(ctx context.Context, key models.GradeKey) (*models.GradeRecord, error) {
	for _, r := range s.records {
		if r.Key() == key {
			copied := *r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *gradeStoreStub) GetBySubmissionAndStudent(ctx context.Context, submissionID, studentID string) (*models.GradeRecord, error) {
	for _, r := range s.records {
		if r.SubmissionID == submissionID && r.StudentID == studentID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *gradeStoreStub) Upsert(ctx context.Context, record *models.GradeRecord) error {
	for id, r := range s.records {
		if r.Key() == record.Key() {
			delete(s.records, id)
			break
		}
	}
	if record.ID == "" {
		s.nextID++
		record.ID = fmt.Sprintf("rec-%d", s.nextID)
	}
	now := s.tick()
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = now
	}
	record.LastUpdated = now
	copied := *record
	s.records[record.ID] = &copied
	return nil
}

func (s *gradeStoreStub) BulkUpsert(ctx context.Context, records []models.GradeRecord) error {
	for i := range records {
		if err := s.Upsert(ctx, &records[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *gradeStoreStub) UpdateDecision(ctx context.Context, record *models.GradeRecord, expected time.Time) error {
	stored, ok := s.records[record.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if s.forceConflict || !stored.LastUpdated.Equal(expected) {
		return repository.ErrVersionConflict
	}
	stored.Grade = record.Grade
	stored.Status = record.Status
	stored.RejectionReason = record.RejectionReason
	stored.PriorGrade = record.PriorGrade
	stored.PriorStatus = record.PriorStatus
	stored.PriorRejectionReason = record.PriorRejectionReason
	stored.ReviewReason = record.ReviewReason
	stored.LastUpdated = s.tick()
	record.LastUpdated = stored.LastUpdated
	return nil
}

func (s *gradeStoreStub) byKey(key models.GradeKey) *models.GradeRecord {
	for _, r := range s.records {
		if r.Key() == key {
			return r
		}
	}
	return nil
}

// cacheStub implements both reportCache and reportInvalidator.
type cacheStub struct {
	data     map[string][]byte
	patterns []string
	sets     int
	gets     int
}

func newCacheStub() *cacheStub {
	return &cacheStub{data: make(map[string][]byte)}
}

func (c *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	c.gets++
	raw, ok := c.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.patterns = append(c.patterns, pattern)
	c.data = make(map[string][]byte)
	return nil
}
