// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbex-project/dbex/pkg/dialect"
)

func strPtr(s string) *string { return &s }

func TestInferRefDataAndForeignRefData(t *testing.T) {
	model := &Model{Tables: map[string]*TableSchema{
		"dbo.Gender": {
			Schema: "dbo", Name: "Gender",
			PrimaryKeyColumns: []string{"GenderId"},
			Columns: []*ColumnSchema{
				{Name: "GenderId", Type: "int", IsPrimaryKey: true},
				{Name: "Code", Type: "varchar"},
				{Name: "Text", Type: "varchar"},
			},
		},
		"dbo.Person": {
			Schema: "dbo", Name: "Person",
			PrimaryKeyColumns: []string{"PersonId"},
			Columns: []*ColumnSchema{
				{Name: "PersonId", Type: "int", IsPrimaryKey: true},
				{Name: "FirstName", Type: "varchar"},
				{Name: "GenderId", Type: "int"},
			},
		},
	}}

	in := &Introspector{Dialect: dialect.Postgres(), Conventions: DefaultConventions()}
	in.inferRefData(model)
	in.inferForeignRefData(model)

	gender := model.Tables["dbo.Gender"]
	assert.True(t, gender.IsRefData)
	assert.Equal(t, "Code", *gender.RefDataCodeColumn)

	genderID := model.Tables["dbo.Person"].Column("GenderId")
	assert.True(t, genderID.IsForeignRefData)
	assert.Equal(t, "Gender", *genderID.ForeignTable)
	assert.Equal(t, "Code", *genderID.ForeignRefDataCodeColumn)
}

func TestInferSemanticFlags(t *testing.T) {
	model := &Model{Tables: map[string]*TableSchema{
		"dbo.Order": {
			Schema: "dbo", Name: "Order",
			Columns: []*ColumnSchema{
				{Name: "CreatedDate", Type: "datetime"},
				{Name: "CreatedBy", Type: "varchar"},
				{Name: "TenantId", Type: "int"},
				{Name: "RowVersion", Type: "binary"},
				{Name: "IsDeleted", Type: "bit"},
				{Name: "PayloadJson", Type: "varchar", DefaultValue: strPtr("")},
			},
		},
	}}

	in := &Introspector{Dialect: dialect.SQLServer(), Conventions: DefaultConventions()}
	in.inferSemanticFlags(model)

	order := model.Tables["dbo.Order"]
	assert.True(t, order.Column("CreatedDate").IsCreatedAudit)
	assert.True(t, order.Column("CreatedBy").IsCreatedAudit)
	assert.True(t, order.Column("TenantId").IsTenantID)
	assert.True(t, order.Column("RowVersion").IsRowVersion)
	assert.True(t, order.Column("IsDeleted").IsIsDeleted)
	assert.True(t, order.Column("PayloadJson").IsJSONContent)
}
