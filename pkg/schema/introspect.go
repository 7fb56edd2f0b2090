// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbex-project/dbex/pkg/db"
	"github.com/dbex-project/dbex/pkg/dbexerr"
	"github.com/dbex-project/dbex/pkg/dialect"
)

// Conventions configures the naming-based inference pass (spec
// §4.3): which column names count as a reference-data code/text pair,
// the suffix a foreign-ref-data column carries, and the semantic
// audit/tenant/row-version/soft-delete column names. Sensible defaults
// are provided by DefaultConventions; Parameters are not consulted.
type Conventions struct {
	RefDataCodeColumn   string
	RefDataTextColumn    string
	// IsActiveColumn and SortOrderColumn name a ref-data table's own
	// extra columns defaulted by the data loader (spec §4.4.5(b)),
	// not used during introspection inference itself.
	IsActiveColumn       string
	SortOrderColumn      string
	ForeignIDSuffix      string
	CreatedDateColumn    string
	CreatedByColumn      string
	UpdatedDateColumn    string
	UpdatedByColumn      string
	TenantIDColumn       string
	RowVersionColumn     string
	IsDeletedColumn      string
	JSONContentSuffix    string
	// AlternateRefDataSchemas lists additional schemas (besides a
	// column's own) to search for a ref-data table named <X> when
	// resolving a <X><IdSuffix> foreign-ref-data link.
	AlternateRefDataSchemas []string
}

// DefaultConventions mirrors the naming conventions implied by
// spec §3/§4.3's own examples (Code/Text, <X>Id, CreatedDate/By, ...).
func DefaultConventions() Conventions {
	return Conventions{
		RefDataCodeColumn: "Code",
		RefDataTextColumn: "Text",
		IsActiveColumn:    "IsActive",
		SortOrderColumn:   "SortOrder",
		ForeignIDSuffix:   "Id",
		CreatedDateColumn: "CreatedDate",
		CreatedByColumn:   "CreatedBy",
		UpdatedDateColumn: "UpdatedDate",
		UpdatedByColumn:   "UpdatedBy",
		TenantIDColumn:    "TenantId",
		RowVersionColumn:  "RowVersion",
		IsDeletedColumn:   "IsDeleted",
		JSONContentSuffix: "Json",
	}
}

// Introspector runs the dialect's information_schema query and builds
// a Model, then applies the inference passes of spec §4.3.
type Introspector struct {
	DB          db.DB
	Dialect     dialect.Dialect
	Conventions Conventions
}

// NewIntrospector constructs an Introspector with default conventions.
func NewIntrospector(database db.DB, dia dialect.Dialect) *Introspector {
	return &Introspector{DB: database, Dialect: dia, Conventions: DefaultConventions()}
}

// Introspect runs the full pass sequence: base column enumeration,
// then primary key / unique / foreign key / identity / computed
// detection, then semantic inference.
func (in *Introspector) Introspect(ctx context.Context) (*Model, error) {
	model, err := in.queryColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dbexerr.ErrIntrospectionError, err)
	}

	if err := in.loadPrimaryKeys(ctx, model); err != nil {
		return nil, fmt.Errorf("%w: %w", dbexerr.ErrIntrospectionError, err)
	}
	if err := in.loadUniqueConstraints(ctx, model); err != nil {
		return nil, fmt.Errorf("%w: %w", dbexerr.ErrIntrospectionError, err)
	}
	if err := in.loadForeignKeys(ctx, model); err != nil {
		return nil, fmt.Errorf("%w: %w", dbexerr.ErrIntrospectionError, err)
	}

	in.dropAlwaysGenerated(model)
	in.inferRefData(model)
	in.inferForeignRefData(model)
	in.inferSemanticFlags(model)

	return model, nil
}

func (in *Introspector) queryColumns(ctx context.Context) (*Model, error) {
	rows, err := in.DB.QueryContext(ctx, in.Dialect.InformationSchemaQuery())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	model := &Model{Tables: make(map[string]*TableSchema)}

	for rows.Next() {
		var (
			tableSchema, tableName, columnName, dataType string
			isView, isNullable, isIdentity, isGenerated   bool
			length, precision, scale                      *int
			defaultValue                                  *string
			ordinal                                       int
		)
		if err := rows.Scan(&tableSchema, &tableName, &isView, &columnName, &dataType,
			&length, &precision, &scale, &isNullable, &defaultValue, &isIdentity, &isGenerated, &ordinal); err != nil {
			return nil, err
		}

		key := tableSchema
		if key != "" {
			key += "."
		}
		key += tableName

		table, ok := model.Tables[key]
		if !ok {
			table = &TableSchema{Schema: tableSchema, Name: tableName, IsView: isView}
			model.Tables[key] = table
		}

		col := &ColumnSchema{
			Name:         columnName,
			Type:         dataType,
			Length:       length,
			Precision:    precision,
			Scale:        scale,
			IsNullable:   isNullable,
			IsIdentity:   isIdentity,
			IsComputed:   isGenerated,
			DefaultValue: defaultValue,
		}
		table.Columns = append(table.Columns, col)
	}

	return model, rows.Err()
}

// dropAlwaysGenerated removes always-generated computed columns from
// the model per spec §4.3 ("always-generated columns (removed from
// model)"), leaving other computed columns (e.g. persisted
// expressions that still accept no direct writes but are useful to
// surface) in place, flagged via IsComputed.
func (in *Introspector) dropAlwaysGenerated(model *Model) {
	for _, table := range model.Tables {
		kept := table.Columns[:0]
		for _, c := range table.Columns {
			if c.IsComputed && c.DefaultValue == nil && isAlwaysGeneratedByNameHeuristic(c) {
				continue
			}
			kept = append(kept, c)
		}
		table.Columns = kept
	}
}

// isAlwaysGeneratedByNameHeuristic exists because information_schema
// alone doesn't distinguish ALWAYS-generated from BY DEFAULT-generated
// uniformly across engines; a column already flagged IsComputed with
// no captured default expression is treated as always-generated.
func isAlwaysGeneratedByNameHeuristic(c *ColumnSchema) bool {
	return c.DefaultValue == nil
}

func (in *Introspector) loadPrimaryKeys(ctx context.Context, model *Model) error {
	query := primaryKeyQuery(in.Dialect)
	rows, err := in.DB.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableSchema, tableName, columnName string
		if err := rows.Scan(&tableSchema, &tableName, &columnName); err != nil {
			return err
		}
		key := tableSchema
		if key != "" {
			key += "."
		}
		key += tableName
		table, ok := model.Tables[key]
		if !ok {
			continue
		}
		if col := table.Column(columnName); col != nil {
			col.IsPrimaryKey = true
		}
		table.PrimaryKeyColumns = append(table.PrimaryKeyColumns, columnName)
	}
	return rows.Err()
}

func (in *Introspector) loadUniqueConstraints(ctx context.Context, model *Model) error {
	query := uniqueConstraintQuery(in.Dialect)
	rows, err := in.DB.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableSchema, tableName, columnName string
		if err := rows.Scan(&tableSchema, &tableName, &columnName); err != nil {
			return err
		}
		key := tableSchema
		if key != "" {
			key += "."
		}
		key += tableName
		table, ok := model.Tables[key]
		if !ok {
			continue
		}
		if col := table.Column(columnName); col != nil {
			col.IsUnique = true
		}
	}
	return rows.Err()
}

func (in *Introspector) loadForeignKeys(ctx context.Context, model *Model) error {
	query := foreignKeyQuery(in.Dialect)
	rows, err := in.DB.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableSchema, tableName, columnName, foreignSchema, foreignTable, foreignColumn string
		if err := rows.Scan(&tableSchema, &tableName, &columnName, &foreignSchema, &foreignTable, &foreignColumn); err != nil {
			return err
		}
		key := tableSchema
		if key != "" {
			key += "."
		}
		key += tableName
		table, ok := model.Tables[key]
		if !ok {
			continue
		}
		col := table.Column(columnName)
		if col == nil {
			continue
		}
		col.ForeignSchema = &foreignSchema
		col.ForeignTable = &foreignTable
		col.ForeignColumn = &foreignColumn
	}
	return rows.Err()
}

// inferRefData marks a table as reference data when it has a non-PK
// string column matching the configured code convention and another
// matching the text convention (spec §4.3).
func (in *Introspector) inferRefData(model *Model) {
	for _, table := range model.Tables {
		var codeCol, textCol *ColumnSchema
		for _, c := range table.Columns {
			if c.IsPrimaryKey {
				continue
			}
			if !in.Dialect.IsStringType(c.Type) {
				continue
			}
			if strings.EqualFold(c.Name, in.Conventions.RefDataCodeColumn) {
				codeCol = c
			}
			if strings.EqualFold(c.Name, in.Conventions.RefDataTextColumn) {
				textCol = c
			}
		}
		if codeCol != nil && textCol != nil {
			table.IsRefData = true
			table.RefDataCodeColumn = &codeCol.Name
			table.RefDataTextColumn = &textCol.Name
			codeCol.IsRefData = true
		}
	}
}

// inferForeignRefData links a non-PK column named "<X><IdSuffix>" to a
// ref-data table named "<X>" in the same schema, or an alternate
// configured schema, even without a physical foreign key (spec §4.3).
func (in *Introspector) inferForeignRefData(model *Model) {
	suffix := in.Conventions.ForeignIDSuffix
	for _, table := range model.Tables {
		for _, c := range table.Columns {
			if c.IsPrimaryKey || c.ForeignTable != nil {
				continue
			}
			if !strings.HasSuffix(c.Name, suffix) || len(c.Name) <= len(suffix) {
				continue
			}
			refName := c.Name[:len(c.Name)-len(suffix)]

			candidateSchemas := append([]string{table.Schema}, in.Conventions.AlternateRefDataSchemas...)
			for _, s := range candidateSchemas {
				if ref, ok := model.Lookup(s, refName); ok && ref.IsRefData {
					c.IsForeignRefData = true
					c.ForeignRefDataCodeColumn = ref.RefDataCodeColumn
					schemaCopy, nameCopy := ref.Schema, ref.Name
					c.ForeignSchema = &schemaCopy
					c.ForeignTable = &nameCopy
					break
				}
			}
		}
	}
}

func (in *Introspector) inferSemanticFlags(model *Model) {
	conv := in.Conventions
	for _, table := range model.Tables {
		for _, c := range table.Columns {
			switch {
			case strings.EqualFold(c.Name, conv.CreatedDateColumn):
				c.IsCreatedAudit = true
			case strings.EqualFold(c.Name, conv.CreatedByColumn):
				c.IsCreatedAudit = true
			case strings.EqualFold(c.Name, conv.UpdatedDateColumn):
				c.IsUpdatedAudit = true
			case strings.EqualFold(c.Name, conv.UpdatedByColumn):
				c.IsUpdatedAudit = true
			case strings.EqualFold(c.Name, conv.TenantIDColumn):
				c.IsTenantID = true
			case strings.EqualFold(c.Name, conv.RowVersionColumn):
				c.IsRowVersion = true
			case strings.EqualFold(c.Name, conv.IsDeletedColumn):
				c.IsIsDeleted = true
			}
			if conv.JSONContentSuffix != "" && strings.HasSuffix(c.Name, conv.JSONContentSuffix) && len(c.Name) > len(conv.JSONContentSuffix) {
				c.IsJSONContent = true
			}
		}
	}
}
