package services

import (
	"github.com/google/uuid"

	types "github.com/loopworks/traintrack-backend/internal/domain"
)

// DeriveEffectiveStatuses computes the display status of every level from the
// stored ledger rows, in ordinal order. The ordered-gating rule is applied at
// read time: completed levels stay completed up to the first gap, the first
// non-completed level is the frontier (unlocked, or in_progress when the
// stored row says so), and everything past the frontier reads as locked no
// matter what the stored status claims. A ledger left inconsistent by a
// partially applied write therefore self-heals on the next read.
func DeriveEffectiveStatuses(levels []*types.Level, records map[uuid.UUID]*types.ProgressRecord) []types.ProgressStatus {
	out := make([]types.ProgressStatus, len(levels))
	frontierSeen := false
	for i, lvl := range levels {
		stored := types.StatusLocked
		if rec, ok := records[lvl.ID]; ok && rec != nil {
			stored = rec.Status
		}
		switch {
		case frontierSeen:
			out[i] = types.StatusLocked
		case stored == types.StatusCompleted:
			out[i] = types.StatusCompleted
		case stored == types.StatusInProgress:
			frontierSeen = true
			out[i] = types.StatusInProgress
		default:
			frontierSeen = true
			out[i] = types.StatusUnlocked
		}
	}
	return out
}

// AllCompleted reports whether every derived status is COMPLETED, i.e. the
// course is finished.
func AllCompleted(statuses []types.ProgressStatus) bool {
	if len(statuses) == 0 {
		return false
	}
	for _, st := range statuses {
		if st != types.StatusCompleted {
			return false
		}
	}
	return true
}
