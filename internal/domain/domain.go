// Package domain re-exports the persisted model types from their area
// subpackages so callers can hold a single import.
package domain

import (
	"github.com/loopworks/traintrack-backend/internal/domain/audit"
	"github.com/loopworks/traintrack-backend/internal/domain/catalog"
	"github.com/loopworks/traintrack-backend/internal/domain/progression"
	"github.com/loopworks/traintrack-backend/internal/domain/worker"
)

type Worker = worker.Worker

type Course = catalog.Course
type Level = catalog.Level

type ProgressStatus = progression.ProgressStatus
type ProgressRecord = progression.ProgressRecord
type Certificate = progression.Certificate

const (
	StatusLocked     = progression.StatusLocked
	StatusUnlocked   = progression.StatusUnlocked
	StatusInProgress = progression.StatusInProgress
	StatusCompleted  = progression.StatusCompleted
)

type AuditEvent = audit.Event
