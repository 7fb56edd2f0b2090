// SPDX-License-Identifier: Apache-2.0

package data

import (
	"fmt"

	"github.com/dbex-project/dbex/pkg/dialect"
	"github.com/dbex-project/dbex/pkg/schema"
)

// SubqueryRef is a column value that must be emitted as literal SQL
// text rather than a quoted/parameterized literal: a foreign-key
// lookup by reference-data code (spec §4.4.3: "resolved at emission
// time via a correlated subquery, not a pre-flight id lookup").
type SubqueryRef struct {
	SQL string
}

// ResolveForeignKeys rewrites every foreign-ref-data column whose row
// value is a string into a SubqueryRef that looks the string up as a
// code. A column holding a non-string value (e.g. an integer, a json
// number, or a non-string ^(expr) result) is left untouched; a string
// that happens to be a guid is still treated as a code.
func ResolveForeignKeys(table *schema.TableSchema, row *Row, dia dialect.Dialect) error {
	for _, col := range table.Columns {
		if !col.IsForeignRefData || col.ForeignTable == nil || col.ForeignRefDataCodeColumn == nil {
			continue
		}
		v, ok := row.Get(col.Name)
		if !ok || v == nil {
			continue
		}
		code, ok := v.(string)
		if !ok {
			continue
		}

		foreignSchema := ""
		if col.ForeignSchema != nil {
			foreignSchema = *col.ForeignSchema
		}
		literal, err := dia.FormatValue(code)
		if err != nil {
			return err
		}

		idCol := col.Name
		if col.ForeignColumn != nil {
			idCol = *col.ForeignColumn
		}

		sql := fmt.Sprintf("(SELECT %s FROM %s WHERE %s = %s)",
			dia.QuoteIdentifier(idCol),
			dia.QuoteQualified(foreignSchema, *col.ForeignTable),
			dia.QuoteIdentifier(*col.ForeignRefDataCodeColumn),
			literal,
		)
		row.Set(col.Name, SubqueryRef{SQL: sql})
	}
	return nil
}
