// SPDX-License-Identifier: Apache-2.0

package data

import (
	"fmt"

	"github.com/dbex-project/dbex/pkg/dbexerr"
	"github.com/dbex-project/dbex/pkg/dialect"
	"github.com/dbex-project/dbex/pkg/params"
	"github.com/dbex-project/dbex/pkg/schema"
	"github.com/dbex-project/dbex/pkg/source"
)

// Loader ties together parsing, defaulting, FK resolution, coercion,
// and dependency ordering for every discovered data file (spec §4.4,
// orchestrated as a single pass over C2's KindData refs).
type Loader struct {
	Model   *schema.Model
	Dialect dialect.Dialect
	Context DefaultContext
}

// NewLoader constructs a Loader against an already-introspected model.
func NewLoader(model *schema.Model, dia dialect.Dialect, ctx DefaultContext) *Loader {
	return &Loader{Model: model, Dialect: dia, Context: ctx}
}

// LoadAndProcess parses every KindData ref, resolves each declared
// table against the model, applies defaults, resolves foreign-key-by-
// code references, coerces every scalar to its column's engine type,
// and returns the tables in dependency order ready for Emit. Any
// "*"-schema DataConfig tables are prepended ahead of the dependency
// order, since they carry no rows to order against.
func (l *Loader) LoadAndProcess(refs []source.ScriptRef) ([]*Table, error) {
	var configs []*Table
	var dataTables []*Table

	for _, ref := range refs {
		if ref.Kind != source.KindData {
			continue
		}
		pf, err := Parse(ref)
		if err != nil {
			return nil, err
		}
		if pf.Config != nil {
			configs = append(configs, &Table{
				IsConfig:     true,
				PreSQL:       pf.Config.PreSQL,
				PostSQL:      pf.Config.PostSQL,
				PreCondition: pf.Config.PreConditionSQL,
				SourceFile:   pf.Config.SourceFile,
			})
		}
		for _, rt := range pf.Tables {
			built, err := l.buildTable(rt)
			if err != nil {
				return nil, err
			}
			dataTables = append(dataTables, built...)
		}
	}

	for _, t := range dataTables {
		ts, ok := l.Model.Lookup(t.Schema, t.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s (declared in %s)", dbexerr.ErrTableNotFound, t.QualifiedName(), t.SourceFile)
		}
		for i, row := range t.Rows {
			if err := ApplyDefaults(ts, row, l.Context, i, t.HasGenerateID); err != nil {
				return nil, fmt.Errorf("%s: %w", t.SourceFile, err)
			}
			if err := l.evaluateRuntimeParams(row); err != nil {
				return nil, fmt.Errorf("%s: %w", t.SourceFile, err)
			}
			if err := ResolveForeignKeys(ts, row, l.Dialect); err != nil {
				return nil, fmt.Errorf("%s: %w", t.SourceFile, err)
			}
			if err := coerceRow(ts, row, l.Dialect); err != nil {
				return nil, fmt.Errorf("%s: %w", t.SourceFile, err)
			}
		}
	}

	ordered, err := OrderTables(dataTables, l.Model)
	if err != nil {
		return nil, err
	}
	return append(configs, ordered...), nil
}

// evaluateRuntimeParams replaces every string scalar beginning
// `^(...)` with its resolved value (spec §4.4 "runtime-parameter
// evaluation"), ahead of type coercion so the resolved value, not the
// literal escape text, is what gets coerced against the column type.
func (l *Loader) evaluateRuntimeParams(row *Row) error {
	for i, col := range row.Columns {
		s, ok := col.Raw.(string)
		if !ok {
			continue
		}
		expr, ok := params.IsRuntimeParam(s)
		if !ok {
			continue
		}
		v, err := l.Context.Params.EvaluateRuntimeParam(expr, l.Context.Registry)
		if err != nil {
			return err
		}
		row.Columns[i].Raw = v
	}
	return nil
}

// buildTable resolves rt's physical TableSchema (spec §4.4 steps 1-2)
// and builds one Table per RawTable discovered while walking its rows
// — rt itself, plus one per nested child table found inside a row's
// array-valued column.
func (l *Loader) buildTable(rt *RawTable) ([]*Table, error) {
	ts, ok := l.Model.Lookup(rt.Schema, rt.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s (declared in %s)", dbexerr.ErrTableNotFound, qualify(rt.Schema, rt.Name), rt.SourceFile)
	}

	table := &Table{
		Schema:        rt.Schema,
		Name:          rt.Name,
		IsMerge:       rt.IsMerge,
		HasGenerateID: rt.HasGenerateID,
		SourceFile:    rt.SourceFile,
	}

	var children []*Table
	for _, raw := range rt.Rows {
		row, childTables, err := l.buildRow(ts, raw, rt.SourceFile)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rt.SourceFile, err)
		}
		table.Rows = append(table.Rows, row)
		children = append(children, childTables...)
	}

	return append([]*Table{table}, children...), nil
}

type childTableSpec struct {
	name string
	rows []*RawRow
}

// buildRow resolves one raw row's keys against ts (spec §4.4 step 3):
// a scalar-pair ref-data shorthand, a matching column or
// foreign-ref-data column, a nested child table (array value), or a
// structural error (nested object value). Any child tables it finds
// are built and returned alongside the row, with the parent's own
// already-explicit primary key value cascaded into each child row
// that does not already set it.
func (l *Loader) buildRow(ts *schema.TableSchema, raw *RawRow, sourceFile string) (*Row, []*Table, error) {
	conv := l.Context.Conventions
	if ts.IsRefData && isScalarPairRow(raw, ts, conv) {
		row := &Row{}
		key := raw.Keys[0]
		row.Set(*ts.RefDataCodeColumn, key)
		row.Set(*ts.RefDataTextColumn, raw.Vals[key])
		return row, nil, nil
	}

	row := &Row{}
	var childSpecs []childTableSpec
	for _, key := range raw.Keys {
		switch val := raw.Vals[key].(type) {
		case *RawRow:
			return nil, nil, fmt.Errorf("%w: column %q is a nested object", dbexerr.ErrInvalidStructure, key)
		case []*RawRow:
			childSpecs = append(childSpecs, childTableSpec{name: key, rows: val})
		default:
			name := key
			if target := resolveColumnTarget(ts, key, conv); target != nil {
				name = target.Name
			}
			row.Set(name, val)
		}
	}

	if len(childSpecs) == 0 {
		return row, nil, nil
	}

	var pkValue any
	var havePK bool
	if len(ts.PrimaryKeyColumns) == 1 {
		pkValue, havePK = row.Get(ts.PrimaryKeyColumns[0])
	}

	var children []*Table
	for _, cs := range childSpecs {
		if havePK {
			for _, cr := range cs.rows {
				cr.setDefault(ts.PrimaryKeyColumns[0], pkValue)
			}
		}
		childRaw := &RawTable{Schema: ts.Schema, Name: cs.name, Rows: cs.rows, SourceFile: sourceFile}
		built, err := l.buildTable(childRaw)
		if err != nil {
			return nil, nil, err
		}
		children = append(children, built...)
	}
	return row, children, nil
}

// isScalarPairRow reports whether raw is a ref-data scalar-pair row
// (spec §4.4: "a scalar pair whose key is the reference-data code and
// whose value is the reference-data text"): exactly one key, whose
// value is a plain scalar, and which does not itself name a real or
// foreign-ref-data column (so an author can still write out `Code:`/
// `Text:` explicitly on a single-column row without it being
// mistaken for the shorthand).
func isScalarPairRow(raw *RawRow, ts *schema.TableSchema, conv schema.Conventions) bool {
	if len(raw.Keys) != 1 || ts.RefDataCodeColumn == nil || ts.RefDataTextColumn == nil {
		return false
	}
	key := raw.Keys[0]
	switch raw.Vals[key].(type) {
	case *RawRow, []*RawRow:
		return false
	}
	return resolveColumnTarget(ts, key, conv) == nil
}

// resolveColumnTarget implements spec §4.4 step 3's column match: an
// exact column name, or failing that, `<key><IdSuffix>` if it names a
// foreign-ref-data column (a row may write the bare entity name and
// supply its ref-data code as the value).
func resolveColumnTarget(ts *schema.TableSchema, key string, conv schema.Conventions) *schema.ColumnSchema {
	if c := ts.Column(key); c != nil {
		return c
	}
	if c := ts.Column(key + conv.ForeignIDSuffix); c != nil && c.IsForeignRefData {
		return c
	}
	return nil
}

// coerceRow coerces every column except one already rewritten to a
// SubqueryRef by ResolveForeignKeys, which carries its own literal
// SQL text and must not be re-typed against the column's declared
// engine type (a foreign-key column's declared type is the target
// id's type, not the code string being looked up).
func coerceRow(ts *schema.TableSchema, row *Row, dia dialect.Dialect) error {
	for i, col := range row.Columns {
		if _, isSubquery := col.Raw.(SubqueryRef); isSubquery {
			continue
		}
		colSchema := ts.Column(col.Name)
		if colSchema == nil {
			return fmt.Errorf("%w: column %q not found on %s", dbexerr.ErrInvalidStructure, col.Name, ts.QualifiedName())
		}
		v, err := Coerce(col.Raw, colSchema, dia)
		if err != nil {
			return err
		}
		row.Columns[i].Raw = v
	}
	return nil
}
