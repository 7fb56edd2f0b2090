// SPDX-License-Identifier: Apache-2.0

package data

import (
	"fmt"
	"strings"

	"github.com/dbex-project/dbex/pkg/dbexerr"
	"github.com/dbex-project/dbex/pkg/dialect"
	"github.com/dbex-project/dbex/pkg/schema"
)

// EmitResult is the rendered SQL for one data table: an optional
// guard query the orchestrator runs first (a non-empty result means
// "already seeded, skip"), the pre/post hooks, and one INSERT/upsert
// statement per row.
type EmitResult struct {
	PreConditionQuery string
	PreSQL            string
	Statements        []string
	PostSQL           string
}

// Emit renders table's rows as SQL, assuming every row's columns have
// already been coerced and FK-resolved (Coerce / ResolveForeignKeys).
// A "*"-schema DataConfig table carries no rows and no TableSchema to
// resolve against; only its pre/post hooks are meaningful.
func Emit(table *Table, model *schema.Model, dia dialect.Dialect) (*EmitResult, error) {
	if table.IsConfig {
		return &EmitResult{
			PreConditionQuery: substitutePlaceholders(table.PreCondition, table),
			PreSQL:            substitutePlaceholders(table.PreSQL, table),
			PostSQL:           substitutePlaceholders(table.PostSQL, table),
		}, nil
	}

	ts, ok := model.Lookup(table.Schema, table.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", dbexerr.ErrTableNotFound, table.QualifiedName())
	}

	res := &EmitResult{
		PreConditionQuery: substitutePlaceholders(table.PreCondition, table),
		PreSQL:            substitutePlaceholders(table.PreSQL, table),
		PostSQL:           substitutePlaceholders(table.PostSQL, table),
	}

	for _, row := range table.Rows {
		stmt, err := emitRowStatement(table, ts, row, dia)
		if err != nil {
			return nil, err
		}
		res.Statements = append(res.Statements, stmt)
	}
	return res, nil
}

func substitutePlaceholders(sql string, table *Table) string {
	if sql == "" {
		return ""
	}
	sql = strings.ReplaceAll(sql, "{{schema}}", table.Schema)
	sql = strings.ReplaceAll(sql, "{{table}}", table.Name)
	return sql
}

// renderedColumn is one column of one row, already formatted to SQL
// text, carrying the audit/key classification emitMerge's WHEN
// MATCHED / WHEN NOT MATCHED column sets are derived from.
type renderedColumn struct {
	quoted         string
	value          string
	isCreatedAudit bool
	isUpdatedAudit bool
	// isGeneratedPK marks a non-identity primary key column: its
	// value comes from the loader's own identifier generator, not the
	// source row, so it is excluded from the merge match key (spec
	// §4.4: "all non-audit columns minus the generated PK").
	isGeneratedPK bool
}

func (c renderedColumn) isMatchKey() bool {
	return !c.isCreatedAudit && !c.isUpdatedAudit && !c.isGeneratedPK
}

func emitRowStatement(table *Table, ts *schema.TableSchema, row *Row, dia dialect.Dialect) (string, error) {
	cols := make([]renderedColumn, 0, len(row.Columns))

	for _, col := range row.Columns {
		colSchema := ts.Column(col.Name)
		if colSchema == nil {
			return "", fmt.Errorf("%w: column %q not found on %s", dbexerr.ErrInvalidStructure, col.Name, table.QualifiedName())
		}

		var rendered string
		if sub, ok := col.Raw.(SubqueryRef); ok {
			rendered = sub.SQL
		} else {
			v, err := dia.FormatValue(col.Raw)
			if err != nil {
				return "", fmt.Errorf("%w: column %q: %v", dbexerr.ErrValueCoercion, col.Name, err)
			}
			rendered = v
		}

		cols = append(cols, renderedColumn{
			quoted:         dia.QuoteIdentifier(col.Name),
			value:          rendered,
			isCreatedAudit: colSchema.IsCreatedAudit,
			isUpdatedAudit: colSchema.IsUpdatedAudit,
			isGeneratedPK:  colSchema.IsPrimaryKey && !colSchema.IsIdentity && table.HasGenerateID,
		})
	}

	qualified := dia.QuoteQualified(table.Schema, table.Name)
	if !table.IsMerge {
		columns, values := quotedAndValues(cols)
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);", qualified, strings.Join(columns, ", "), strings.Join(values, ", ")), nil
	}

	switch dia.UpsertStyle() {
	case dialect.UpsertStyleInsertOnConflict:
		return emitOnConflict(qualified, cols, dia), nil
	case dialect.UpsertStyleInsertOnDuplicateKey:
		return emitOnDuplicateKey(qualified, cols), nil
	default:
		return emitMerge(qualified, cols, dia), nil
	}
}

func quotedAndValues(cols []renderedColumn) (quoted, values []string) {
	quoted = make([]string, len(cols))
	values = make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = c.quoted
		values[i] = c.value
	}
	return quoted, values
}

// emitOnConflict renders Postgres's INSERT ... ON CONFLICT DO UPDATE.
// The INSERT column list is always the full row (Postgres ties it to
// the VALUES list above the ON CONFLICT clause); only the UPDATE SET
// list is restricted to non-match, non-created-audit columns.
func emitOnConflict(qualified string, cols []renderedColumn, dia dialect.Dialect) string {
	columns, values := quotedAndValues(cols)

	var matchKeys, setClauses []string
	for _, c := range cols {
		if c.isMatchKey() {
			matchKeys = append(matchKeys, c.quoted)
			continue
		}
		if c.isCreatedAudit {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", c.quoted, c.quoted))
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s;",
		qualified, strings.Join(columns, ", "), strings.Join(values, ", "),
		strings.Join(matchKeys, ", "), strings.Join(setClauses, ", "))
}

// emitOnDuplicateKey renders MySQL's INSERT ... ON DUPLICATE KEY
// UPDATE, whose UPDATE clause excludes the same columns as Postgres's
// ON CONFLICT DO UPDATE (MySQL has no explicit match-key list; the
// engine derives the conflicting key from the table's own unique
// index).
func emitOnDuplicateKey(qualified string, cols []renderedColumn) string {
	columns, values := quotedAndValues(cols)

	var setClauses []string
	for _, c := range cols {
		if c.isMatchKey() || c.isCreatedAudit {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = VALUES(%s)", c.quoted, c.quoted))
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s;",
		qualified, strings.Join(columns, ", "), strings.Join(values, ", "), strings.Join(setClauses, ", "))
}

// emitMerge renders a standard-SQL MERGE. Per spec §4.4: the match
// clause is all non-audit columns minus the generated PK, WHEN
// MATCHED updates every non-created-audit column, and WHEN NOT
// MATCHED inserts every non-updated-audit column.
func emitMerge(qualified string, cols []renderedColumn, dia dialect.Dialect) string {
	sourceCols := make([]string, len(cols))
	for i, c := range cols {
		sourceCols[i] = fmt.Sprintf("%s AS %s", c.value, c.quoted)
	}

	var onClauses, updateClauses, insertCols, insertVals []string
	for _, c := range cols {
		if c.isMatchKey() {
			onClauses = append(onClauses, fmt.Sprintf("target.%s = source.%s", c.quoted, c.quoted))
		}
		if !c.isCreatedAudit {
			updateClauses = append(updateClauses, fmt.Sprintf("target.%s = source.%s", c.quoted, c.quoted))
		}
		if !c.isUpdatedAudit {
			insertCols = append(insertCols, c.quoted)
			insertVals = append(insertVals, fmt.Sprintf("source.%s", c.quoted))
		}
	}

	return fmt.Sprintf(
		"MERGE INTO %s AS target USING (SELECT %s) AS source ON %s WHEN MATCHED THEN UPDATE SET %s WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);",
		qualified, strings.Join(sourceCols, ", "), strings.Join(onClauses, " AND "),
		strings.Join(updateClauses, ", "), strings.Join(insertCols, ", "), strings.Join(insertVals, ", "),
	)
}
