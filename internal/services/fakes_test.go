package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	progrepos "github.com/loopworks/traintrack-backend/internal/data/repos/progression"
	types "github.com/loopworks/traintrack-backend/internal/domain"
	"github.com/loopworks/traintrack-backend/internal/platform/logger"
)

func testLogger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logg, err := logger.New("test")
	if err != nil {
		tb.Fatalf("init logger: %v", err)
	}
	return logg
}

// memCatalog serves a fixed set of courses without a database.
type memCatalog struct {
	courses map[uuid.UUID]*types.Course
	levels  map[uuid.UUID][]*types.Level
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		courses: map[uuid.UUID]*types.Course{},
		levels:  map[uuid.UUID][]*types.Level{},
	}
}

func (c *memCatalog) addCourse(title string, levelCount int) (*types.Course, []*types.Level) {
	course := &types.Course{ID: uuid.New(), Title: title}
	levels := make([]*types.Level, 0, levelCount)
	for i := 0; i < levelCount; i++ {
		levels = append(levels, &types.Level{
			ID:       uuid.New(),
			CourseID: course.ID,
			Ordinal:  i + 1,
			Title:    title,
		})
	}
	c.courses[course.ID] = course
	c.levels[course.ID] = levels
	return course, levels
}

func (c *memCatalog) CreateCourse(_ context.Context, input CourseInput) (*types.Course, error) {
	course, _ := c.addCourse(input.Title, len(input.LevelTitles))
	return course, nil
}

func (c *memCatalog) ListCourses(_ context.Context) ([]*types.Course, error) {
	out := make([]*types.Course, 0, len(c.courses))
	for _, course := range c.courses {
		out = append(out, course)
	}
	return out, nil
}

func (c *memCatalog) GetCourse(_ context.Context, courseID uuid.UUID) (*types.Course, error) {
	course, ok := c.courses[courseID]
	if !ok {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

func (c *memCatalog) GetOrderedLevels(_ context.Context, courseID uuid.UUID) ([]*types.Level, error) {
	levels, ok := c.levels[courseID]
	if !ok || len(levels) == 0 {
		return nil, ErrCourseNotFound
	}
	return levels, nil
}

func (c *memCatalog) GetLevel(_ context.Context, levelID uuid.UUID) (*types.Level, error) {
	for _, levels := range c.levels {
		for _, lvl := range levels {
			if lvl.ID == levelID {
				return lvl, nil
			}
		}
	}
	return nil, ErrLevelNotFound
}

type progressKey struct {
	workerID uuid.UUID
	levelID  uuid.UUID
}

// memProgressRepo mirrors the conditional-write semantics of the real repo
// over a mutex-guarded map, so engine races can be exercised with plain
// goroutines.
type memProgressRepo struct {
	mu   sync.Mutex
	rows map[progressKey]*types.ProgressRecord
}

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{rows: map[progressKey]*types.ProgressRecord{}}
}

func (r *memProgressRepo) CreateIfAbsent(_ context.Context, _ *gorm.DB, rec *types.ProgressRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := progressKey{rec.WorkerID, rec.LevelID}
	if _, ok := r.rows[key]; ok {
		return false, nil
	}
	cp := *rec
	r.rows[key] = &cp
	return true, nil
}

func (r *memProgressRepo) GetByWorkerAndLevelIDs(_ context.Context, _ *gorm.DB, workerID uuid.UUID, levelIDs []uuid.UUID) ([]*types.ProgressRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.ProgressRecord
	for _, id := range levelIDs {
		if rec, ok := r.rows[progressKey{workerID, id}]; ok {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memProgressRepo) ListByWorkerAndCourse(_ context.Context, _ *gorm.DB, workerID, courseID uuid.UUID) ([]*types.ProgressRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.ProgressRecord
	for _, rec := range r.rows {
		if rec.WorkerID == workerID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memProgressRepo) UpdateStatusIf(_ context.Context, _ *gorm.DB, workerID, levelID uuid.UUID, from []types.ProgressStatus, to types.ProgressStatus, score datatypes.JSON, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[progressKey{workerID, levelID}]
	if !ok {
		return false, nil
	}
	matched := false
	for _, st := range from {
		if rec.Status == st {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	rec.Status = to
	rec.UpdatedAt = at
	switch to {
	case types.StatusInProgress:
		t := at
		rec.StartedAt = &t
	case types.StatusCompleted:
		t := at
		rec.CompletedAt = &t
	}
	if score != nil {
		rec.Score = score
	}
	return true, nil
}

func (r *memProgressRepo) statusOf(workerID, levelID uuid.UUID) types.ProgressStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[progressKey{workerID, levelID}]
	if !ok {
		return ""
	}
	return rec.Status
}

func (r *memProgressRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type certKey struct {
	workerID uuid.UUID
	courseID uuid.UUID
}

type memCertificateRepo struct {
	mu   sync.Mutex
	rows map[certKey]*types.Certificate
}

func newMemCertificateRepo() *memCertificateRepo {
	return &memCertificateRepo{rows: map[certKey]*types.Certificate{}}
}

func (r *memCertificateRepo) CreateIfAbsent(_ context.Context, _ *gorm.DB, cert *types.Certificate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := certKey{cert.WorkerID, cert.CourseID}
	if _, ok := r.rows[key]; ok {
		return false, nil
	}
	cp := *cert
	r.rows[key] = &cp
	return true, nil
}

func (r *memCertificateRepo) GetByWorkerAndCourse(_ context.Context, _ *gorm.DB, workerID, courseID uuid.UUID) (*types.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cert, ok := r.rows[certKey{workerID, courseID}]
	if !ok {
		return nil, nil
	}
	cp := *cert
	return &cp, nil
}

func (r *memCertificateRepo) ListByWorker(_ context.Context, _ *gorm.DB, workerID uuid.UUID) ([]*types.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Certificate
	for _, cert := range r.rows {
		if cert.WorkerID == workerID {
			cp := *cert
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memCertificateRepo) ListUnissuedCompletions(_ context.Context, _ *gorm.DB, _ int) ([]*progrepos.CompletionRef, error) {
	return nil, nil
}

func (r *memCertificateRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// noopAudit satisfies AuditService for engine tests; events are irrelevant to
// the assertions and the real implementation writes asynchronously anyway.
type noopAudit struct{}

func (noopAudit) Record(context.Context, AuditEventInput) {}
func (noopAudit) ListForWorker(context.Context, uuid.UUID, int) ([]*types.AuditEvent, error) {
	return nil, nil
}
