// SPDX-License-Identifier: Apache-2.0

// Package data implements the data parser (component C4, spec §4.4),
// the densest subsystem: parsing YAML/JSON seed files into an ordered
// in-memory table/row/column model, resolving foreign-key-by-code
// references, coercing scalars to column types, applying defaults,
// generating identifiers, ordering tables by dependency, and emitting
// dialect-specific INSERT/upsert SQL.
package data

// Column is one named, ordered slot in a row. Order is preserved from
// the source file because a row's key order determines nothing
// semantically, but duplicate-column detection during parse needs it.
type Column struct {
	Name string
	Raw  any
}

// Row is an ordered set of column values as they appeared in the
// source file, before coercion or defaulting.
type Row struct {
	Columns []Column
}

// Get returns a column's raw value and whether it was present.
func (r *Row) Get(name string) (any, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c.Raw, true
		}
	}
	return nil, false
}

// Set overwrites an existing column's value, or appends a new one.
func (r *Row) Set(name string, v any) {
	for i := range r.Columns {
		if r.Columns[i].Name == name {
			r.Columns[i].Raw = v
			return
		}
	}
	r.Columns = append(r.Columns, Column{Name: name, Raw: v})
}

// Table is one schema-resolved table ready for default-application
// and emission: the target (schema, table), the rows it declares, and
// the optional pre/post SQL hooks. IsMerge and HasGenerateID come from
// the source document's `$`/`^` table-prefix markers (spec §4.4); a
// nested child table (discovered while building a parent row's array
// column) carries neither, since it has no prefix of its own.
type Table struct {
	Schema string
	Name   string

	Rows []*Row

	IsMerge       bool
	HasGenerateID bool
	PreSQL        string
	PostSQL       string
	PreCondition  string

	// IsConfig marks a table-agnostic DataConfig carrier (source
	// schema key "*", spec §4.4): Rows is always empty, and only the
	// pre/post hooks are meaningful.
	IsConfig bool

	// SourceFile is the originating path, used in error messages.
	SourceFile string
}

// QualifiedName joins schema and name with a dot, matching
// schema.TableSchema.QualifiedName.
func (t *Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}
