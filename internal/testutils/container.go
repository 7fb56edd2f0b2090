// SPDX-License-Identifier: Apache-2.0

package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const defaultPostgresVersion = "16.3"

var sharedConnStr string

// SharedPostgresMain starts one postgres container for every test in the
// calling package, per the teacher's SharedTestMain pattern, and tears it
// down after m.Run returns.
func SharedPostgresMain(m *testing.M) {
	ctx := context.Background()

	pgVersion := os.Getenv("DBEX_TEST_POSTGRES_VERSION")
	if pgVersion == "" {
		pgVersion = defaultPostgresVersion
	}

	ctr, err := postgres.Run(ctx, "postgres:"+pgVersion,
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		os.Exit(1)
	}

	sharedConnStr, err = ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		os.Exit(1)
	}

	code := m.Run()

	_ = ctr.Terminate(ctx)
	os.Exit(code)
}

// NewTestDatabase creates a fresh database on the shared container and
// returns its connection string. Call SharedPostgresMain from the
// package's TestMain first.
func NewTestDatabase(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	admin, err := sql.Open("postgres", sharedConnStr)
	if err != nil {
		t.Fatalf("open admin connection: %v", err)
	}
	t.Cleanup(func() { _ = admin.Close() })

	dbName := fmt.Sprintf("dbex_test_%d", time.Now().UnixNano())
	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName)); err != nil {
		t.Fatalf("create test database: %v", err)
	}

	u, err := url.Parse(sharedConnStr)
	if err != nil {
		t.Fatalf("parse connection string: %v", err)
	}
	u.Path = "/" + dbName
	return u.String()
}
