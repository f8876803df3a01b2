package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/loopworks/traintrack-backend/internal/domain"
	"gorm.io/gorm"
)

func SeedWorker(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.Worker {
	tb.Helper()
	w := &types.Worker{
		ID:        uuid.New(),
		Email:     email,
		Password:  "pw",
		FirstName: "A",
		LastName:  "B",
	}
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		tb.Fatalf("seed worker: %v", err)
	}
	return w
}

// SeedCourse creates a course with levelCount levels at ordinals 1..levelCount.
func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, levelCount int) (*types.Course, []*types.Level) {
	tb.Helper()
	c := &types.Course{
		ID:    uuid.New(),
		Title: title,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}

	levels := make([]*types.Level, 0, levelCount)
	for i := 1; i <= levelCount; i++ {
		levels = append(levels, &types.Level{
			ID:       uuid.New(),
			CourseID: c.ID,
			Ordinal:  i,
			Title:    fmt.Sprintf("%s level %d", title, i),
		})
	}
	if len(levels) > 0 {
		if err := tx.WithContext(ctx).Create(&levels).Error; err != nil {
			tb.Fatalf("seed levels: %v", err)
		}
	}
	return c, levels
}

func SeedProgressRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, workerID, levelID uuid.UUID, status types.ProgressStatus) *types.ProgressRecord {
	tb.Helper()
	rec := &types.ProgressRecord{
		ID:       uuid.New(),
		WorkerID: workerID,
		LevelID:  levelID,
		Status:   status,
	}
	if status == types.StatusCompleted {
		now := time.Now().UTC()
		rec.CompletedAt = &now
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed progress record: %v", err)
	}
	return rec
}
