// SPDX-License-Identifier: Apache-2.0

package data

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbex-project/dbex/internal/extfn"
	"github.com/dbex-project/dbex/pkg/dialect"
	"github.com/dbex-project/dbex/pkg/params"
	"github.com/dbex-project/dbex/pkg/schema"
	"github.com/dbex-project/dbex/pkg/source"
)

func strPtr(s string) *string { return &s }

func testModel() *schema.Model {
	return &schema.Model{Tables: map[string]*schema.TableSchema{
		"dbo.Gender": {
			Schema: "dbo", Name: "Gender",
			PrimaryKeyColumns: []string{"GenderId"},
			IsRefData:         true,
			RefDataCodeColumn: strPtr("Code"),
			RefDataTextColumn: strPtr("Text"),
			Columns: []*schema.ColumnSchema{
				{Name: "GenderId", Type: "int", IsPrimaryKey: true},
				{Name: "Code", Type: "varchar"},
				{Name: "Text", Type: "varchar"},
				{Name: "IsActive", Type: "bit"},
				{Name: "SortOrder", Type: "int"},
			},
		},
		"dbo.Person": {
			Schema: "dbo", Name: "Person",
			PrimaryKeyColumns: []string{"PersonId"},
			Columns: []*schema.ColumnSchema{
				{Name: "PersonId", Type: "uniqueidentifier", IsPrimaryKey: true},
				{Name: "FirstName", Type: "varchar"},
				{Name: "Birthday", Type: "date"},
				{Name: "GenderId", Type: "int", IsForeignRefData: true,
					ForeignTable: strPtr("Gender"), ForeignSchema: strPtr("dbo"), ForeignRefDataCodeColumn: strPtr("Code")},
				{Name: "CreatedDate", Type: "datetime", IsCreatedAudit: true},
				{Name: "CreatedBy", Type: "varchar", IsCreatedAudit: true},
			},
		},
		"dbo.Pet": {
			Schema: "dbo", Name: "Pet",
			PrimaryKeyColumns: []string{"PetId"},
			Columns: []*schema.ColumnSchema{
				{Name: "PetId", Type: "int", IsPrimaryKey: true},
				{Name: "PersonId", Type: "uniqueidentifier"},
				{Name: "Name", Type: "varchar"},
			},
		},
	}}
}

func newTestContext() DefaultContext {
	return DefaultContext{
		Params:      params.New(nil, nil, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), "svc-account"),
		Registry:    extfn.NewRegistry(),
		Conventions: schema.DefaultConventions(),
		Generators: map[string]Generator{
			"guid": GuidGenerator{},
			"int":  NewIntGenerator(1),
		},
	}
}

// spec §8 scenario 4: a ref-data merge round-trip, including the
// SortOrder 1, 2 default.
func TestLoadAndProcess_RefDataMergeScalarPair(t *testing.T) {
	fsys := fstest.MapFS{
		"Data/ref.yaml": &fstest.MapFile{Data: []byte(`
dbo:
  - $Gender:
      - M: Male
      - F: Female
`)},
	}
	src := source.New(fsys)
	refs, err := src.Discover()
	require.NoError(t, err)

	loader := NewLoader(testModel(), dialect.SQLServer(), newTestContext())
	tables, err := loader.LoadAndProcess(refs)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	table := tables[0]
	assert.True(t, table.IsMerge)
	require.Len(t, table.Rows, 2)

	code, ok := table.Rows[0].Get("Code")
	require.True(t, ok)
	assert.Equal(t, "M", code)
	text, ok := table.Rows[0].Get("Text")
	require.True(t, ok)
	assert.Equal(t, "Male", text)
	sortOrder, ok := table.Rows[0].Get("SortOrder")
	require.True(t, ok)
	assert.Equal(t, int64(1), sortOrder)

	sortOrder2, ok := table.Rows[1].Get("SortOrder")
	require.True(t, ok)
	assert.Equal(t, int64(2), sortOrder2)

	isActive, ok := table.Rows[0].Get("IsActive")
	require.True(t, ok)
	assert.Equal(t, true, isActive)

	result, err := Emit(table, testModel(), dialect.SQLServer())
	require.NoError(t, err)
	require.Len(t, result.Statements, 2)
	assert.Contains(t, result.Statements[0], "MERGE INTO")
}

// spec §8 scenario 5: a row resolves a foreign-ref-data column by its
// bare entity name ("Gender" standing in for "GenderId"), rendering a
// code-lookup subquery at emission time.
func TestLoadAndProcess_ForeignRefDataByBareName(t *testing.T) {
	fsys := fstest.MapFS{
		"Data/demo.yaml": &fstest.MapFile{Data: []byte(`
demo:
  - ^Person:
      - FirstName: Wendy
        Gender: F
        Birthday: 1985-03-18
`)},
	}
	src := source.New(fsys)
	refs, err := src.Discover()
	require.NoError(t, err)

	model := testModel()
	model.Tables["demo.Person"] = model.Tables["dbo.Person"]
	model.Tables["demo.Person"].Schema = "demo"

	loader := NewLoader(model, dialect.SQLServer(), newTestContext())
	tables, err := loader.LoadAndProcess(refs)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	row := tables[0].Rows[0]
	genderID, ok := row.Get("GenderId")
	require.True(t, ok)
	sub, ok := genderID.(SubqueryRef)
	require.True(t, ok)
	assert.Contains(t, sub.SQL, "SELECT")
	assert.Contains(t, sub.SQL, "'F'")

	createdBy, ok := row.Get("CreatedBy")
	require.True(t, ok)
	assert.Equal(t, "svc-account", createdBy)

	personID, ok := row.Get("PersonId")
	require.True(t, ok)
	assert.IsType(t, uuid.UUID{}, personID)
}

// A row's array-valued column becomes a child table, and the parent's
// already-explicit primary key cascades into each child row.
func TestLoadAndProcess_ChildTableCascadesParentPK(t *testing.T) {
	parentID := uuid.New()
	fsys := fstest.MapFS{
		"Data/demo.yaml": &fstest.MapFile{Data: []byte(`
dbo:
  - ^Person:
      - PersonId: ` + parentID.String() + `
        FirstName: Ada
        Pet:
          - Name: Rex
          - Name: Fido
`)},
	}
	src := source.New(fsys)
	refs, err := src.Discover()
	require.NoError(t, err)

	loader := NewLoader(testModel(), dialect.SQLServer(), newTestContext())
	tables, err := loader.LoadAndProcess(refs)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	var petTable *Table
	for _, tbl := range tables {
		if tbl.Name == "Pet" {
			petTable = tbl
		}
	}
	require.NotNil(t, petTable)
	require.Len(t, petTable.Rows, 2)

	for _, row := range petTable.Rows {
		id, ok := row.Get("PersonId")
		require.True(t, ok)
		assert.Equal(t, parentID, id)
	}
}

// A nested object value (as opposed to a nested array) is a
// structural error (spec §4.4 step 3).
func TestLoadAndProcess_NestedObjectIsInvalidStructure(t *testing.T) {
	fsys := fstest.MapFS{
		"Data/demo.yaml": &fstest.MapFile{Data: []byte(`
dbo:
  - Person:
      - FirstName: Ada
        Birthday:
          Year: 1985
`)},
	}
	src := source.New(fsys)
	refs, err := src.Discover()
	require.NoError(t, err)

	loader := NewLoader(testModel(), dialect.SQLServer(), newTestContext())
	_, err = loader.LoadAndProcess(refs)
	require.Error(t, err)
}

// Schema "*" carries a table-agnostic DataConfig, which Emit must
// render without resolving a TableSchema.
func TestLoadAndProcess_StarSchemaConfig(t *testing.T) {
	fsys := fstest.MapFS{
		"Data/config.yaml": &fstest.MapFile{Data: []byte(`
"*":
  - preConditionSql: "SELECT 1 FROM {{table}}"
  - preSql: "PRINT 'starting'"
  - postSql: "PRINT 'done'"
`)},
	}
	src := source.New(fsys)
	refs, err := src.Discover()
	require.NoError(t, err)

	loader := NewLoader(testModel(), dialect.SQLServer(), newTestContext())
	tables, err := loader.LoadAndProcess(refs)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.True(t, tables[0].IsConfig)

	result, err := Emit(tables[0], testModel(), dialect.SQLServer())
	require.NoError(t, err)
	assert.Equal(t, "PRINT 'starting'", result.PreSQL)
	assert.Equal(t, "PRINT 'done'", result.PostSQL)
	assert.Empty(t, result.Statements)
}

func TestLoadAndProcess_UnknownTable(t *testing.T) {
	fsys := fstest.MapFS{
		"Data/nope.yaml": &fstest.MapFile{Data: []byte(`
dbo:
  - Nope:
      - X: 1
`)},
	}
	src := source.New(fsys)
	refs, err := src.Discover()
	require.NoError(t, err)

	loader := NewLoader(testModel(), dialect.Postgres(), newTestContext())
	_, err = loader.LoadAndProcess(refs)
	require.Error(t, err)
}

func TestEmit_PlainInsert(t *testing.T) {
	table := &Table{Schema: "dbo", Name: "Gender", Rows: []*Row{
		{Columns: []Column{{Name: "GenderId", Raw: int64(1)}, {Name: "Code", Raw: "M"}}},
	}}
	result, err := Emit(table, testModel(), dialect.SQLServer())
	require.NoError(t, err)
	require.Len(t, result.Statements, 1)
	assert.Contains(t, result.Statements[0], "INSERT INTO")
	assert.Contains(t, result.Statements[0], "'M'")
}

func TestEmit_Merge(t *testing.T) {
	table := &Table{
		Schema: "dbo", Name: "Gender", IsMerge: true,
		Rows: []*Row{{Columns: []Column{{Name: "Code", Raw: "M"}, {Name: "Text", Raw: "Male"}}}},
	}
	result, err := Emit(table, testModel(), dialect.SQLServer())
	require.NoError(t, err)
	require.Len(t, result.Statements, 1)
	assert.Contains(t, result.Statements[0], "MERGE INTO")
	assert.Contains(t, result.Statements[0], "target.[Code] = source.[Code]")
}

func TestOrderTables_CycleDetected(t *testing.T) {
	model := &schema.Model{Tables: map[string]*schema.TableSchema{
		"dbo.A": {Schema: "dbo", Name: "A", Columns: []*schema.ColumnSchema{
			{Name: "BId", ForeignTable: strPtr("B"), ForeignSchema: strPtr("dbo")},
		}},
		"dbo.B": {Schema: "dbo", Name: "B", Columns: []*schema.ColumnSchema{
			{Name: "AId", ForeignTable: strPtr("A"), ForeignSchema: strPtr("dbo")},
		}},
	}}
	tables := []*Table{{Schema: "dbo", Name: "A"}, {Schema: "dbo", Name: "B"}}
	_, err := OrderTables(tables, model)
	require.Error(t, err)
}
