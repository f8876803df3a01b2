package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestStoreErrTagsIOFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"net op error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}},
		{"bad conn", fmt.Errorf("exec: %w", driver.ErrBadConn)},
		{"invalid db", gorm.ErrInvalidDB},
		{"deadline", context.DeadlineExceeded},
		{"pg cannot connect now", &pgconn.PgError{Code: "57P03"}},
		{"pg connection failure", &pgconn.PgError{Code: "08006"}},
		{"pg out of memory", &pgconn.PgError{Code: "53200"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := storeErr("load ledger", tc.err)
			if !errors.Is(got, ErrStorageUnavailable) {
				t.Fatalf("storeErr(%v) not tagged as storage unavailable: %v", tc.err, got)
			}
			if got.Error() == "" {
				t.Fatalf("wrapped error lost its message")
			}
		})
	}
}

func TestStoreErrLeavesQueryErrorsUntagged(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}},
		{"syntax error", &pgconn.PgError{Code: "42601"}},
		{"plain error", errors.New("duplicate key value violates unique constraint")},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := storeErr("insert certificate", tc.err)
			if errors.Is(got, ErrStorageUnavailable) {
				t.Fatalf("storeErr(%v) wrongly tagged as storage unavailable", tc.err)
			}
			if !errors.Is(got, tc.err) {
				t.Fatalf("wrapped error dropped the cause: %v", got)
			}
		})
	}
}

func TestStoreErrNil(t *testing.T) {
	if got := storeErr("noop", nil); got != nil {
		t.Fatalf("storeErr(nil) = %v, want nil", got)
	}
}
