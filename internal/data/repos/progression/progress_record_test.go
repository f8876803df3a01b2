package progression

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/loopworks/traintrack-backend/internal/domain"
	"github.com/loopworks/traintrack-backend/internal/data/repos/testutil"
)

func TestProgressRecordRepoCreateIfAbsent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewProgressRecordRepo(db, testutil.Logger(t))

	w := testutil.SeedWorker(t, ctx, tx, "progressrepo@example.com")
	_, levels := testutil.SeedCourse(t, ctx, tx, "safety", 2)

	rec := &types.ProgressRecord{
		ID:       uuid.New(),
		WorkerID: w.ID,
		LevelID:  levels[0].ID,
		Status:   types.StatusUnlocked,
	}
	created, err := repo.CreateIfAbsent(ctx, tx, rec)
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if !created {
		t.Fatalf("CreateIfAbsent: expected first insert to create a row")
	}

	dup := &types.ProgressRecord{
		ID:       uuid.New(),
		WorkerID: w.ID,
		LevelID:  levels[0].ID,
		Status:   types.StatusLocked,
	}
	created, err = repo.CreateIfAbsent(ctx, tx, dup)
	if err != nil {
		t.Fatalf("CreateIfAbsent duplicate: %v", err)
	}
	if created {
		t.Fatalf("CreateIfAbsent: duplicate insert must not create a second row")
	}

	rows, err := repo.GetByWorkerAndLevelIDs(ctx, tx, w.ID, []uuid.UUID{levels[0].ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetByWorkerAndLevelIDs: err=%v len=%d", err, len(rows))
	}
	if rows[0].Status != types.StatusUnlocked {
		t.Fatalf("duplicate insert overwrote initial status: got=%s", rows[0].Status)
	}
}

func TestProgressRecordRepoUpdateStatusIf(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewProgressRecordRepo(db, testutil.Logger(t))

	w := testutil.SeedWorker(t, ctx, tx, "conditional@example.com")
	_, levels := testutil.SeedCourse(t, ctx, tx, "forklift", 1)
	testutil.SeedProgressRecord(t, ctx, tx, w.ID, levels[0].ID, types.StatusUnlocked)

	now := time.Now().UTC()

	// Wrong predecessor: record is unlocked, not locked.
	applied, err := repo.UpdateStatusIf(ctx, tx, w.ID, levels[0].ID,
		[]types.ProgressStatus{types.StatusLocked}, types.StatusUnlocked, nil, now)
	if err != nil {
		t.Fatalf("UpdateStatusIf wrong predecessor: %v", err)
	}
	if applied {
		t.Fatalf("UpdateStatusIf: transition from wrong predecessor must not apply")
	}

	applied, err = repo.UpdateStatusIf(ctx, tx, w.ID, levels[0].ID,
		[]types.ProgressStatus{types.StatusUnlocked, types.StatusInProgress}, types.StatusCompleted, nil, now)
	if err != nil {
		t.Fatalf("UpdateStatusIf: %v", err)
	}
	if !applied {
		t.Fatalf("UpdateStatusIf: expected transition to apply")
	}

	// Second identical transition must lose the conditional write.
	applied, err = repo.UpdateStatusIf(ctx, tx, w.ID, levels[0].ID,
		[]types.ProgressStatus{types.StatusUnlocked, types.StatusInProgress}, types.StatusCompleted, nil, now)
	if err != nil {
		t.Fatalf("UpdateStatusIf repeat: %v", err)
	}
	if applied {
		t.Fatalf("UpdateStatusIf: repeated completion must not apply twice")
	}

	rows, err := repo.GetByWorkerAndLevelIDs(ctx, tx, w.ID, []uuid.UUID{levels[0].ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetByWorkerAndLevelIDs: err=%v len=%d", err, len(rows))
	}
	if rows[0].Status != types.StatusCompleted {
		t.Fatalf("unexpected status: got=%s want=%s", rows[0].Status, types.StatusCompleted)
	}
	if rows[0].CompletedAt == nil {
		t.Fatalf("completed_at not stamped")
	}
}

func TestProgressRecordRepoListByWorkerAndCourse(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewProgressRecordRepo(db, testutil.Logger(t))

	w := testutil.SeedWorker(t, ctx, tx, "listbycourse@example.com")
	course, levels := testutil.SeedCourse(t, ctx, tx, "welding", 3)
	otherCourse, otherLevels := testutil.SeedCourse(t, ctx, tx, "other", 1)
	_ = otherCourse

	for i, lvl := range levels {
		status := types.StatusLocked
		if i == 0 {
			status = types.StatusUnlocked
		}
		testutil.SeedProgressRecord(t, ctx, tx, w.ID, lvl.ID, status)
	}
	testutil.SeedProgressRecord(t, ctx, tx, w.ID, otherLevels[0].ID, types.StatusUnlocked)

	rows, err := repo.ListByWorkerAndCourse(ctx, tx, w.ID, course.ID)
	if err != nil {
		t.Fatalf("ListByWorkerAndCourse: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("ListByWorkerAndCourse: got=%d want=3", len(rows))
	}
	for i, row := range rows {
		if row.LevelID != levels[i].ID {
			t.Fatalf("rows not in ordinal order at %d", i)
		}
	}
}
