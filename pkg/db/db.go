// Package db defines the Database capability DbEx's core consumes
// (spec §6: "a Database object supports: open/close a connection;
// execute a parameterless SQL batch returning nothing; execute
// returning scalar; execute returning rows; parameterized execution
// for the journal audit"), plus a connection-retrying implementation
// over database/sql.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cloudflare/backoff"
)

// ErrConnectionInit wraps every error produced while opening or
// pinging a connection, after retries are exhausted, and every error
// from the session setup; test for it with errors.Is.
var ErrConnectionInit = errors.New("db: connection initialization failed")

// DB is the capability the core's collaborators depend on. It is
// deliberately narrow: no transaction type leaks through it except
// via WithTransaction, so the core never needs to know which driver
// is underneath.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	WithTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error
	Close() error
}

// RetryPolicy controls the connection-initialization retry described
// in spec §4.7: "on connection-initialization operations only, up to
// maxRetries (default 5) attempts with 500 ms between retries".
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// DefaultRetryPolicy matches spec §4.7's stated default.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 5, Delay: 500 * time.Millisecond}
}

// SessionSetup runs once against a freshly opened connection, letting
// a dialect apply engine-specific session settings (time zone,
// ANSI_NULLS, sql_mode, ...).
type SessionSetup func(ctx context.Context, conn *sql.DB) error

// SQLDB wraps a *sql.DB. Unlike the teacher's RDB (which retries every
// query on a Postgres lock_timeout error), SQLDB does not retry
// steady-state queries: spec §4.7 scopes retry to "connection
// initialization operations only". A per-script command failure
// bubbles immediately so the orchestrator can halt the phase and
// report the failing command index without silently masking it behind
// a retry loop.
type SQLDB struct {
	Conn *sql.DB
}

// Open opens a connection with the given driver/DSN, retrying the
// initial ping per policy, then runs setup (if non-nil) once.
func Open(ctx context.Context, driverName, dsn string, policy RetryPolicy, setup SessionSetup) (*SQLDB, error) {
	attempts := policy.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var conn *sql.DB
	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err = sql.Open(driverName, dsn)
		if err == nil {
			err = conn.PingContext(ctx)
		}
		if err == nil {
			break
		}
		if attempt == attempts {
			return nil, fmt.Errorf("%w: %w", ErrConnectionInit, err)
		}
		if sleepErr := sleepCtx(ctx, policy.Delay); sleepErr != nil {
			return nil, sleepErr
		}
	}

	if setup != nil {
		if err := setup(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%w: %w", ErrConnectionInit, err)
		}
	}

	return &SQLDB{Conn: conn}, nil
}

func (d *SQLDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.Conn.ExecContext(ctx, query, args...)
}

func (d *SQLDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.Conn.QueryContext(ctx, query, args...)
}

func (d *SQLDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.Conn.QueryRowContext(ctx, query, args...)
}

// WithTransaction runs f inside a transaction, committing on success
// and rolling back (then returning f's error) otherwise. Per the
// orchestrator's "no global transaction" contract (spec §4.7), no
// phase wraps a whole script in it; the journal audit insert runs as a
// plain ExecContext.
func (d *SQLDB) WithTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := f(ctx, tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}

	return tx.Commit()
}

func (d *SQLDB) Close() error {
	return d.Conn.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ScanFirstValue scans the first value assuming rows contains a single
// row with a single value. If rows is empty, dest is left unchanged
// and rows.Err() is returned.
func ScanFirstValue[T any](rows *sql.Rows, dest *T) error {
	if rows.Next() {
		if err := rows.Scan(dest); err != nil {
			return err
		}
	}
	return rows.Err()
}

// AdvisoryLockBackoff returns a jittered exponential backoff schedule
// capped at max, starting at 250ms. The orchestrator takes no advisory
// lock and does not call it.
func AdvisoryLockBackoff(max time.Duration) *backoff.Backoff {
	return backoff.New(max, 250*time.Millisecond)
}
