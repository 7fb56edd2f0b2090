// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbex-project/dbex/pkg/db"
	"github.com/dbex-project/dbex/pkg/dialect"
)

func TestNew_UsesDialectDefaultLocation(t *testing.T) {
	j := New(&db.FakeDB{}, dialect.SQLServer(), "", "")
	assert.Equal(t, "dbo", j.Schema)
	assert.Equal(t, "SchemaVersions", j.Table)
}

func TestNew_OverrideWins(t *testing.T) {
	j := New(&db.FakeDB{}, dialect.Postgres(), "custom", "ledger")
	assert.Equal(t, "custom", j.Schema)
	assert.Equal(t, "ledger", j.Table)
}

func TestEnsureExists_ExecutesDDL(t *testing.T) {
	fake := &db.FakeDB{}
	j := New(fake, dialect.Postgres(), "", "")
	require.NoError(t, j.EnsureExists(context.Background()))
	require.Len(t, fake.ExecCalls, 1)
	assert.Contains(t, fake.ExecCalls[0], "CREATE TABLE IF NOT EXISTS")
}

func TestAuditScriptExecution_UsesDialectPlaceholder(t *testing.T) {
	fake := &db.FakeDB{}
	j := New(fake, dialect.MySQL(), "", "")
	require.NoError(t, j.AuditScriptExecution(context.Background(), "001_init.sql", time.Now()))
	require.Len(t, fake.ExecCalls, 1)
	assert.Contains(t, fake.ExecCalls[0], "VALUES (?, ?)")
}
