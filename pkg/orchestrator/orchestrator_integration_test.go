// SPDX-License-Identifier: Apache-2.0

package orchestrator_test

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbex-project/dbex/internal/logging"
	"github.com/dbex-project/dbex/internal/testutils"
	"github.com/dbex-project/dbex/pkg/dialect"
	"github.com/dbex-project/dbex/pkg/orchestrator"
	"github.com/dbex-project/dbex/pkg/params"
	"github.com/dbex-project/dbex/pkg/source"
)

func TestMain(m *testing.M) {
	testutils.SharedPostgresMain(m)
}

// fixtureFS mirrors a small Deploy+Data project: a ref-data table
// (Gender), a table that links to it purely by naming convention
// (Person.GenderId, no physical constraint - spec §4.3's "even
// without a physical FK"), and a table with a genuine physical FK
// (Order.CustomerId -> Person.PersonId).
func fixtureFS() fstest.MapFS {
	return fstest.MapFS{
		"Migrations/20260101-000000-create-tables.sql": &fstest.MapFile{Data: []byte(`
CREATE SCHEMA IF NOT EXISTS dbo;
CREATE TABLE dbo."Gender" (
	"GenderId" smallint PRIMARY KEY,
	"Code" varchar(1) NOT NULL UNIQUE,
	"Text" varchar(20) NOT NULL
);
CREATE TABLE dbo."Person" (
	"PersonId" uuid PRIMARY KEY,
	"DisplayName" varchar(100) NOT NULL,
	"GenderId" smallint
);
CREATE TABLE dbo."Order" (
	"OrderId" int PRIMARY KEY,
	"CustomerId" uuid NOT NULL REFERENCES dbo."Person"("PersonId")
);
`)},
		"Data/10-gender.yaml": &fstest.MapFile{Data: []byte(`
dbo:
  - Gender:
      - GenderId: 1
        Code: M
        Text: Male
      - GenderId: 2
        Code: F
        Text: Female
`)},
		"Data/20-person.yaml": &fstest.MapFile{Data: []byte(`
dbo:
  - Person:
      - PersonId: "11111111-1111-1111-1111-111111111111"
        DisplayName: Alex
        GenderId: M
`)},
	}
}

func newIntegrationOrchestrator(t *testing.T, connStr string, fsys fstest.MapFS) *orchestrator.Orchestrator {
	t.Helper()
	p := params.New(map[string]string{params.DatabaseName: "dbex_test"}, nil, time.Now(), "dbex-test")
	return orchestrator.New(dialect.Postgres(), connStr, p, source.New(fsys), logging.NewNoopLogger())
}

func TestOrchestrator_DeployWithData_ResolvesForeignRefDataByCode(t *testing.T) {
	connStr := testutils.NewTestDatabase(t)
	o := newIntegrationOrchestrator(t, connStr, fixtureFS())

	err := o.Run(context.Background(), orchestrator.CmdDeployWithData)
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	defer db.Close()

	var name string
	var genderID int
	err = db.QueryRow(`SELECT "DisplayName", "GenderId" FROM dbo."Person" WHERE "PersonId" = '11111111-1111-1111-1111-111111111111'`).Scan(&name, &genderID)
	require.NoError(t, err)
	assert.Equal(t, "Alex", name)
	assert.Equal(t, 1, genderID)
}

func TestOrchestrator_Data_RejectsUnknownForeignKey(t *testing.T) {
	connStr := testutils.NewTestDatabase(t)
	fsys := fixtureFS()
	fsys["Data/30-order.yaml"] = &fstest.MapFile{Data: []byte(`
dbo:
  - Order:
      - OrderId: 1
        CustomerId: "99999999-9999-9999-9999-999999999999"
`)}

	o := newIntegrationOrchestrator(t, connStr, fsys)

	err := o.Run(context.Background(), orchestrator.CmdDeployWithData)
	require.Error(t, err)

	var pqErr *pq.Error
	if assert.ErrorAs(t, err, &pqErr) {
		assert.Equal(t, testutils.FKViolationErrorCode, string(pqErr.Code.Name()))
	}
}
