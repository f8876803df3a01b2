package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	types "github.com/loopworks/traintrack-backend/internal/domain"
)

type engineFixture struct {
	engine       ProgressionService
	certificates CertificateService
	catalog      *memCatalog
	progress     *memProgressRepo
	certs        *memCertificateRepo
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	logg := testLogger(t)
	catalog := newMemCatalog()
	progress := newMemProgressRepo()
	certs := newMemCertificateRepo()
	certSvc := NewCertificateService(nil, logg, catalog, progress, certs, noopAudit{})
	engine := NewProgressionService(nil, logg, catalog, progress, certSvc, noopAudit{})
	return &engineFixture{
		engine:       engine,
		certificates: certSvc,
		catalog:      catalog,
		progress:     progress,
		certs:        certs,
	}
}

func TestInitializeOrGetProgressFresh(t *testing.T) {
	f := newEngineFixture(t)
	_, levels := f.catalog.addCourse("Forklift Basics", 3)
	workerID := uuid.New()
	ctx := context.Background()

	tree, err := f.engine.InitializeOrGetProgress(ctx, workerID, levels[0].CourseID)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(tree.Levels) != 3 {
		t.Fatalf("got %d levels, want 3", len(tree.Levels))
	}
	want := []types.ProgressStatus{types.StatusUnlocked, types.StatusLocked, types.StatusLocked}
	for i, lp := range tree.Levels {
		if lp.Status != want[i] {
			t.Fatalf("level %d status = %s, want %s", i, lp.Status, want[i])
		}
	}
	if tree.Complete {
		t.Fatal("fresh tree must not be complete")
	}
	if f.progress.count() != 3 {
		t.Fatalf("ledger has %d rows, want 3", f.progress.count())
	}
}

func TestInitializeOrGetProgressConcurrent(t *testing.T) {
	f := newEngineFixture(t)
	_, levels := f.catalog.addCourse("Crane Operation", 4)
	workerID := uuid.New()
	courseID := levels[0].CourseID

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.engine.InitializeOrGetProgress(context.Background(), workerID, courseID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent initialize: %v", err)
	}

	if f.progress.count() != 4 {
		t.Fatalf("ledger has %d rows after concurrent init, want 4", f.progress.count())
	}
	if st := f.progress.statusOf(workerID, levels[0].ID); st != types.StatusUnlocked {
		t.Fatalf("first level stored status = %s, want unlocked", st)
	}
}

func TestInitializeOrGetProgressUnknownCourse(t *testing.T) {
	f := newEngineFixture(t)
	if _, err := f.engine.InitializeOrGetProgress(context.Background(), uuid.New(), uuid.New()); err != ErrCourseNotFound {
		t.Fatalf("got %v, want ErrCourseNotFound", err)
	}
}

func TestMarkLevelStarted(t *testing.T) {
	f := newEngineFixture(t)
	_, levels := f.catalog.addCourse("Welding", 2)
	workerID := uuid.New()
	ctx := context.Background()

	tree, err := f.engine.MarkLevelStarted(ctx, workerID, levels[0].ID)
	if err != nil {
		t.Fatalf("start first level: %v", err)
	}
	if tree.Levels[0].Status != types.StatusInProgress {
		t.Fatalf("first level status = %s, want in_progress", tree.Levels[0].Status)
	}
	if tree.Levels[0].StartedAt == nil {
		t.Fatal("started_at not stamped")
	}

	// Repeating the call is a no-op.
	if _, err := f.engine.MarkLevelStarted(ctx, workerID, levels[0].ID); err != nil {
		t.Fatalf("restart first level: %v", err)
	}

	// A locked level cannot be started.
	if _, err := f.engine.MarkLevelStarted(ctx, workerID, levels[1].ID); err != ErrInvalidTransition {
		t.Fatalf("start locked level: got %v, want ErrInvalidTransition", err)
	}
}

func TestRecordLevelCompletionWalk(t *testing.T) {
	f := newEngineFixture(t)
	_, levels := f.catalog.addCourse("Rigging", 3)
	workerID := uuid.New()
	ctx := context.Background()

	res, err := f.engine.RecordLevelCompletion(ctx, workerID, levels[0].ID, nil)
	if err != nil {
		t.Fatalf("complete first level: %v", err)
	}
	if res.Status != types.StatusCompleted {
		t.Fatalf("result status = %s, want completed", res.Status)
	}
	if res.UnlockedLevelID == nil || *res.UnlockedLevelID != levels[1].ID {
		t.Fatalf("unlocked level = %v, want %s", res.UnlockedLevelID, levels[1].ID)
	}
	if res.CourseComplete {
		t.Fatal("course must not be complete after one of three levels")
	}

	// Repeating the completion is a no-op with no new unlock.
	res, err = f.engine.RecordLevelCompletion(ctx, workerID, levels[0].ID, nil)
	if err != nil {
		t.Fatalf("repeat completion: %v", err)
	}
	if res.UnlockedLevelID != nil {
		t.Fatalf("repeat completion unlocked %s", *res.UnlockedLevelID)
	}
	if st := f.progress.statusOf(workerID, levels[1].ID); st != types.StatusUnlocked {
		t.Fatalf("second level stored status = %s, want unlocked", st)
	}
	if st := f.progress.statusOf(workerID, levels[2].ID); st != types.StatusLocked {
		t.Fatalf("third level stored status = %s, want locked", st)
	}
}

func TestRecordLevelCompletionSkipAhead(t *testing.T) {
	f := newEngineFixture(t)
	_, levels := f.catalog.addCourse("Electrical Safety", 3)
	workerID := uuid.New()
	ctx := context.Background()

	if _, err := f.engine.InitializeOrGetProgress(ctx, workerID, levels[0].CourseID); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := f.engine.RecordLevelCompletion(ctx, workerID, levels[2].ID, nil); err != ErrInvalidTransition {
		t.Fatalf("skip-ahead completion: got %v, want ErrInvalidTransition", err)
	}

	// The rejected write must leave the ledger untouched.
	if st := f.progress.statusOf(workerID, levels[2].ID); st != types.StatusLocked {
		t.Fatalf("third level stored status = %s after rejected completion, want locked", st)
	}
	if st := f.progress.statusOf(workerID, levels[0].ID); st != types.StatusUnlocked {
		t.Fatalf("first level stored status = %s, want unlocked", st)
	}
}

func TestRecordLevelCompletionAfterLostUnlock(t *testing.T) {
	f := newEngineFixture(t)
	_, levels := f.catalog.addCourse("Lockout Tagout", 3)
	workerID := uuid.New()
	ctx := context.Background()

	// Ledger left by a partial failure: level 1's completion committed but the
	// successor-unlock write never landed, so level 2's stored status is still
	// locked.
	seed := []types.ProgressStatus{types.StatusCompleted, types.StatusLocked, types.StatusLocked}
	for i, lvl := range levels {
		if _, err := f.progress.CreateIfAbsent(ctx, nil, &types.ProgressRecord{
			ID:       uuid.New(),
			WorkerID: workerID,
			LevelID:  lvl.ID,
			Status:   seed[i],
		}); err != nil {
			t.Fatalf("seed record: %v", err)
		}
	}

	tree, err := f.engine.InitializeOrGetProgress(ctx, workerID, levels[0].CourseID)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if tree.Levels[1].Status != types.StatusUnlocked {
		t.Fatalf("drifted frontier reads %s, want unlocked", tree.Levels[1].Status)
	}

	// Completing the effective frontier must succeed despite the stale stored
	// status, and the chain repairs itself.
	res, err := f.engine.RecordLevelCompletion(ctx, workerID, levels[1].ID, nil)
	if err != nil {
		t.Fatalf("complete drifted frontier: %v", err)
	}
	if res.Status != types.StatusCompleted {
		t.Fatalf("result status = %s, want completed", res.Status)
	}
	if res.UnlockedLevelID == nil || *res.UnlockedLevelID != levels[2].ID {
		t.Fatalf("unlocked level = %v, want %s", res.UnlockedLevelID, levels[2].ID)
	}
	if st := f.progress.statusOf(workerID, levels[1].ID); st != types.StatusCompleted {
		t.Fatalf("second level stored status = %s, want completed", st)
	}
	if st := f.progress.statusOf(workerID, levels[2].ID); st != types.StatusUnlocked {
		t.Fatalf("third level stored status = %s, want unlocked", st)
	}
}

func TestRecordLevelCompletionUnknownLevel(t *testing.T) {
	f := newEngineFixture(t)
	if _, err := f.engine.RecordLevelCompletion(context.Background(), uuid.New(), uuid.New(), nil); err != ErrLevelNotFound {
		t.Fatalf("got %v, want ErrLevelNotFound", err)
	}
}

func TestRecordLevelCompletionIssuesCertificate(t *testing.T) {
	f := newEngineFixture(t)
	_, levels := f.catalog.addCourse("Confined Spaces", 2)
	workerID := uuid.New()
	ctx := context.Background()

	if _, err := f.engine.RecordLevelCompletion(ctx, workerID, levels[0].ID, nil); err != nil {
		t.Fatalf("complete first level: %v", err)
	}
	res, err := f.engine.RecordLevelCompletion(ctx, workerID, levels[1].ID, nil)
	if err != nil {
		t.Fatalf("complete final level: %v", err)
	}
	if !res.CourseComplete {
		t.Fatal("course should be complete")
	}
	if res.CertificateID == nil {
		t.Fatal("certificate should have been issued synchronously")
	}
	if f.certs.count() != 1 {
		t.Fatalf("certificate rows = %d, want 1", f.certs.count())
	}
}

func TestConcurrentFinalCompletionSingleCertificate(t *testing.T) {
	f := newEngineFixture(t)
	_, levels := f.catalog.addCourse("Scaffolding", 2)
	workerID := uuid.New()
	ctx := context.Background()

	if _, err := f.engine.RecordLevelCompletion(ctx, workerID, levels[0].ID, nil); err != nil {
		t.Fatalf("complete first level: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan *CompletionResult, 12)
	errs := make(chan error, 12)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.engine.RecordLevelCompletion(context.Background(), workerID, levels[1].ID, nil)
			if err != nil {
				errs <- err
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(errs)
	close(results)
	for err := range errs {
		t.Fatalf("concurrent final completion: %v", err)
	}

	if f.certs.count() != 1 {
		t.Fatalf("certificate rows = %d after racing completions, want 1", f.certs.count())
	}
	var certID uuid.UUID
	for res := range results {
		if !res.CourseComplete {
			t.Fatal("every racing caller should observe the completed course")
		}
		if res.CertificateID == nil {
			continue
		}
		if certID == uuid.Nil {
			certID = *res.CertificateID
		} else if certID != *res.CertificateID {
			t.Fatalf("callers saw different certificates: %s vs %s", certID, *res.CertificateID)
		}
	}
	if certID == uuid.Nil {
		t.Fatal("no caller observed the issued certificate")
	}
}
