// SPDX-License-Identifier: Apache-2.0

package data

import (
	"strings"

	"github.com/dbex-project/dbex/internal/extfn"
	"github.com/dbex-project/dbex/pkg/params"
	"github.com/dbex-project/dbex/pkg/schema"
)

// ColumnDefault is one user-specified default for a (schema, table,
// column) (spec §4.4.5(d)). Schema and Table may be empty, meaning
// "any schema" / "any table"; findColumnDefault resolves the
// most-specific match first.
type ColumnDefault struct {
	Schema string
	Table  string
	Column string
	Value  any
}

// DefaultContext carries the session state ApplyDefaults consults:
// the fixed "now"/user-name parameters, the extension-function
// registry for ^(expr) defaults, the identifier generators keyed by
// the engine type class they populate ("guid", "int", "long"), the
// naming conventions that name a ref-data table's own extra columns,
// and any user-specified column defaults.
type DefaultContext struct {
	Params         *params.Parameters
	Registry       *extfn.Registry
	Generators     map[string]Generator
	Conventions    schema.Conventions
	ColumnDefaults []ColumnDefault
}

// ApplyDefaults fills every column a row omits, in precedence order
// (spec §4.4.5): (a) audit columns, tenant id, and soft-delete flag;
// (b) a ref-data table's own IsActive/SortOrder columns; (c) a
// generated identifier for a non-identity primary key, gated on the
// source document's `^` table-prefix marker; (d) a user-specified
// per-(schema,table,column) default. A column the row already
// specifies is never touched, regardless of this order.
//
// rowIndex is the row's zero-based position within its table, used to
// number SortOrder starting at 1. generateID is Table.HasGenerateID:
// without the `^` prefix, a non-identity primary key is left for the
// caller's own default (d) or the engine's own column default.
func ApplyDefaults(table *schema.TableSchema, row *Row, ctx DefaultContext, rowIndex int, generateID bool) error {
	for _, col := range table.Columns {
		if _, present := row.Get(col.Name); present {
			continue
		}

		switch {
		case col.IsCreatedAudit || col.IsUpdatedAudit:
			applyAuditDefault(row, col, ctx)
			continue

		case col.IsTenantID:
			if v, ok := ctx.Params.Get("TenantId"); ok {
				row.Set(col.Name, v)
			}
			continue

		case col.IsIsDeleted:
			row.Set(col.Name, false)
			continue
		}

		if table.IsRefData && applyRefDataDefault(row, col, ctx.Conventions, rowIndex) {
			continue
		}

		if col.IsPrimaryKey && !col.IsIdentity && generateID {
			gen, ok := ctx.Generators[generatorKey(col)]
			if !ok {
				continue
			}
			v, err := gen.Next()
			if err != nil {
				return err
			}
			row.Set(col.Name, v)
			continue
		}

		if v, ok := findColumnDefault(ctx.ColumnDefaults, table.Schema, table.Name, col.Name); ok {
			row.Set(col.Name, v)
		}

		// col.IsRowVersion columns are left unset: engines that
		// support rowversion/timestamp maintain it themselves.
	}
	return nil
}

// applyRefDataDefault sets a ref-data table's own IsActive/SortOrder
// columns (spec §4.4.5(b), §8 scenario 4: seeded rows default to
// SortOrder 1, 2, ... in source order). It reports whether col was
// one of these and so has already been handled.
func applyRefDataDefault(row *Row, col *schema.ColumnSchema, conv schema.Conventions, rowIndex int) bool {
	switch {
	case conv.IsActiveColumn != "" && strings.EqualFold(col.Name, conv.IsActiveColumn):
		row.Set(col.Name, true)
		return true
	case conv.SortOrderColumn != "" && strings.EqualFold(col.Name, conv.SortOrderColumn):
		row.Set(col.Name, rowIndex+1)
		return true
	}
	return false
}

// findColumnDefault resolves ColumnDefaults most-specific-first: an
// exact (schema, table) match beats a same-schema/any-table match,
// which beats an any-schema/any-table match on column name alone.
func findColumnDefault(defaults []ColumnDefault, schemaName, tableName, colName string) (any, bool) {
	bestRank := -1
	var bestVal any
	for _, d := range defaults {
		if !strings.EqualFold(d.Column, colName) {
			continue
		}
		if d.Schema != "" && !strings.EqualFold(d.Schema, schemaName) {
			continue
		}
		if d.Table != "" && !strings.EqualFold(d.Table, tableName) {
			continue
		}
		rank := 0
		if d.Schema != "" {
			rank++
		}
		if d.Table != "" {
			rank++
		}
		if rank > bestRank {
			bestRank = rank
			bestVal = d.Value
		}
	}
	return bestVal, bestRank >= 0
}

func applyAuditDefault(row *Row, col *schema.ColumnSchema, ctx DefaultContext) {
	if isDateTimeTypeName(strings.ToLower(col.Type)) {
		row.Set(col.Name, ctx.Params.Now())
		return
	}
	if name, ok := ctx.Params.Get(params.UserName); ok {
		row.Set(col.Name, name)
	}
}

func generatorKey(col *schema.ColumnSchema) string {
	t := strings.ToLower(col.Type)
	switch {
	case isGUIDTypeName(t):
		return "guid"
	case strings.Contains(t, "big"):
		return "long"
	default:
		return "int"
	}
}
