// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbex-project/dbex/internal/logging"
	"github.com/dbex-project/dbex/pkg/dbexerr"
	"github.com/dbex-project/dbex/pkg/dialect"
	"github.com/dbex-project/dbex/pkg/params"
	"github.com/dbex-project/dbex/pkg/source"
)

func newTestOrchestrator() *Orchestrator {
	fsys := fstest.MapFS{}
	p := params.New(map[string]string{params.DatabaseName: "acme"}, nil, time.Now(), "svc")
	o := New(dialect.Postgres(), "host=localhost dbname=acme", p, source.New(fsys), logging.NewNoopLogger())
	return o
}

func TestRun_DestructiveWithoutConfirmation(t *testing.T) {
	o := newTestOrchestrator()
	o.Confirm = func(string) bool { return false }
	err := o.Run(context.Background(), CmdDrop)
	require.ErrorIs(t, err, dbexerr.ErrDestructiveActionNotConfirmed)
}

func TestRun_DestructiveWithAcceptPrompts_SkipsConfirm(t *testing.T) {
	o := newTestOrchestrator()
	called := false
	o.Confirm = func(string) bool { called = true; return false }
	o.AcceptPrompts = true
	// Accepting prompts bypasses Confirm entirely; the run still fails
	// later (no live database), but never because of confirmation.
	err := o.Run(context.Background(), CmdDrop)
	assert.False(t, called)
	assert.NotErrorIs(t, err, dbexerr.ErrDestructiveActionNotConfirmed)
}

func TestRun_NonDestructiveNoOpWhenNothingDiscovered(t *testing.T) {
	o := newTestOrchestrator()
	// No Migrate/Schema/Reset/Data bits set: Run should return without
	// needing a live target connection.
	err := o.Run(context.Background(), 0)
	require.NoError(t, err)
}

func TestDropDatabaseSQL(t *testing.T) {
	assert.Equal(t, `DROP DATABASE IF EXISTS "acme";`, dropDatabaseSQL(dialect.Postgres(), "acme"))
}

func TestCreateDatabaseSQL(t *testing.T) {
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS `acme`;", createDatabaseSQL(dialect.MySQL(), "acme"))
	assert.Equal(t, `CREATE DATABASE "acme";`, createDatabaseSQL(dialect.Postgres(), "acme"))
}
