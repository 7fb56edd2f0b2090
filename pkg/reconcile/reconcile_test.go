// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbex-project/dbex/pkg/dbexerr"
	"github.com/dbex-project/dbex/pkg/dialect"
	"github.com/dbex-project/dbex/pkg/source"
)

func TestParseHead_View(t *testing.T) {
	ref := source.ScriptRef{Name: "Schema/dbo/Views/vw_Person.sql", Schema: "dbo"}
	obj, err := ParseHead(ref, "CREATE OR ALTER VIEW dbo.vw_Person AS SELECT 1;", dialect.SQLServer())
	require.NoError(t, err)
	assert.Equal(t, "VIEW", obj.Type.Keyword)
	assert.Equal(t, "dbo", obj.Schema)
	assert.Equal(t, "vw_Person", obj.Name)
}

func TestParseHead_NotACreateStatement(t *testing.T) {
	ref := source.ScriptRef{Name: "x.sql"}
	_, err := ParseHead(ref, "SELECT 1;", dialect.Postgres())
	require.ErrorIs(t, err, dbexerr.ErrNotACreateStatement)
}

func TestParseHead_UnsupportedObjectType(t *testing.T) {
	ref := source.ScriptRef{Name: "x.sql"}
	_, err := ParseHead(ref, "CREATE TABLE dbo.Foo (Id int);", dialect.Postgres())
	require.ErrorIs(t, err, dbexerr.ErrUnsupportedObjectType)
}

func TestOrderForCreateAndDrop(t *testing.T) {
	dia := dialect.SQLServer()
	view := &Object{Type: dialect.ObjectType{Keyword: "VIEW", Ordinal: 2}, Schema: "dbo", Name: "V1"}
	typ := &Object{Type: dialect.ObjectType{Keyword: "TYPE", Ordinal: 0}, Schema: "dbo", Name: "T1"}
	fn := &Object{Type: dialect.ObjectType{Keyword: "FUNCTION", Ordinal: 1}, Schema: "dbo", Name: "F1"}

	created := OrderForCreate([]*Object{view, fn, typ}, nil, "dbo")
	require.Equal(t, []*Object{typ, fn, view}, created)

	dropped := OrderForDrop([]*Object{view, fn, typ}, nil, "dbo")
	require.Equal(t, []*Object{view, fn, typ}, dropped)

	assert.Equal(t, "DROP VIEW IF EXISTS [dbo].[V1];", RenderDrop(view, dia))
}

func TestOrderForCreate_ExplicitSchemaOrder(t *testing.T) {
	a := &Object{Type: dialect.ObjectType{Keyword: "VIEW", Ordinal: 0}, Schema: "reporting", Name: "V1"}
	b := &Object{Type: dialect.ObjectType{Keyword: "VIEW", Ordinal: 0}, Schema: "dbo", Name: "V2"}

	// Without an explicit order, "dbo" (the default schema) sorts first.
	assert.Equal(t, []*Object{b, a}, OrderForCreate([]*Object{a, b}, nil, "dbo"))

	// An explicit -so/--schema-order overrides the default-schema-first rule.
	assert.Equal(t, []*Object{a, b}, OrderForCreate([]*Object{a, b}, []string{"reporting", "dbo"}, "dbo"))
}
