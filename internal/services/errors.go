package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrCourseNotFound: unknown course, or a course with no levels. Caller
	// error, not retryable.
	ErrCourseNotFound = errors.New("course not found")
	// ErrLevelNotFound: unknown level id. Caller error, not retryable.
	ErrLevelNotFound = errors.New("level not found")
	// ErrInvalidTransition: the worker tried to act on a level whose effective
	// status forbids it (completing or starting a locked level). The client
	// should re-fetch the progression tree.
	ErrInvalidTransition = errors.New("invalid progression transition")
	// ErrPrematureIssuance: the certificate issuer re-checked the ledger and
	// the course is not actually complete.
	ErrPrematureIssuance = errors.New("course is not complete")
	// ErrStorageUnavailable: the ledger or certificate store could not be
	// reached. Retryable; the client should back off and try again.
	ErrStorageUnavailable = errors.New("storage temporarily unavailable")

	// ErrEmailTaken and ErrInvalidCredentials belong to the auth edge.
	ErrEmailTaken         = errors.New("a worker with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// storeErr wraps a storage failure, tagging driver-level I/O errors with
// ErrStorageUnavailable so the HTTP edge surfaces them as retryable instead
// of as a server bug. Query and constraint errors pass through untagged.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if storageUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func storageUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08xxx connection exceptions, 53xxx insufficient resources,
		// 57P0x server shutdown / cannot connect now.
		return strings.HasPrefix(pgErr.Code, "08") ||
			strings.HasPrefix(pgErr.Code, "53") ||
			strings.HasPrefix(pgErr.Code, "57P")
	}
	return false
}
