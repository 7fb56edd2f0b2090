// SPDX-License-Identifier: Apache-2.0

// Package schema defines the normalized table/column model (spec §3)
// and the introspector (component C3) that populates it from a live
// database's information_schema plus engine-specific catalog extras.
package schema

// ColumnSchema describes one column of an introspected table, per
// spec §3's ColumnSchema invariants.
type ColumnSchema struct {
	Name       string
	Type       string
	Length     *int
	Precision  *int
	Scale      *int
	IsNullable bool

	IsPrimaryKey bool
	IsIdentity   bool
	IsUnique     bool
	IsComputed   bool
	DefaultValue *string

	ForeignSchema           *string
	ForeignTable            *string
	ForeignColumn           *string
	IsForeignRefData        bool
	ForeignRefDataCodeColumn *string

	// Semantic flags, populated by the inference pass (spec §4.3).
	IsCreatedAudit bool
	IsUpdatedAudit bool
	IsTenantID     bool
	IsRowVersion   bool
	IsIsDeleted    bool
	IsRefData      bool
	IsJSONContent  bool
}

// TableSchema describes one introspected table or view, per spec §3.
type TableSchema struct {
	Schema string
	Name   string
	IsView bool

	Columns           []*ColumnSchema
	PrimaryKeyColumns []string

	// IsRefData, RefDataCodeColumn, and RefDataTextColumn are populated
	// by the inference pass: a table is reference data if it contains a
	// non-PK string column matching the dialect's code/text naming
	// conventions.
	IsRefData         bool
	RefDataCodeColumn *string
	RefDataTextColumn *string
}

// Column looks up a column by name, or nil if absent.
func (t *TableSchema) Column(name string) *ColumnSchema {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// QualifiedName joins schema and name with a dot, omitting the schema
// when empty (MySQL has no separate schema layer).
func (t *TableSchema) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Model is the full set of tables/views introspected from one
// database, keyed by qualified name, cached for the lifetime of a
// migration session (spec §2: "Data introspects via C3 (once,
// cached)").
type Model struct {
	Tables map[string]*TableSchema
}

// Lookup finds a table by (schema, name). When schema is empty the
// table is looked up by its bare name; no default schema is applied.
func (m *Model) Lookup(schema, name string) (*TableSchema, bool) {
	key := name
	if schema != "" {
		key = schema + "." + name
	}
	t, ok := m.Tables[key]
	return t, ok
}
