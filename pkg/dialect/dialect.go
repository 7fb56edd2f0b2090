// SPDX-License-Identifier: Apache-2.0

// Package dialect is the C8 plug-point: per-engine overrides for
// quoting, supported CREATE object types, information_schema query
// text, journal location, type mapping, value formatting, and the
// reset bypass predicate. Three concrete dialects are provided:
// Postgres, MySQL, and SQL Server.
package dialect

import (
	"context"
	"database/sql"
)

// ObjectType is one entry in a dialect's supported CREATE-object list,
// carrying the precedence ordinal the schema-object reconciler sorts
// by (spec §4.5: "Type precedence: dialect list (e.g. SQL Server:
// TYPE < FUNCTION < VIEW < PROCEDURE)").
type ObjectType struct {
	// Keyword is the identifier that follows CREATE [OR REPLACE|OR
	// ALTER] in script source, upper-cased for comparison (e.g.
	// "FUNCTION", "VIEW", "PROCEDURE", "TYPE").
	Keyword string
	// Ordinal is the sort key; lower runs first on create, last on
	// drop.
	Ordinal int
	// DropSuffix is appended after the qualified name in the DROP
	// statement the reconciler renders, e.g. "()" is never needed
	// for DROP, but some engines require a trailing clause such as
	// " CASCADE"; empty by default.
	DropSuffix string
}

// UpsertStyle selects which SQL shape the data loader renders for a
// merge ($) table, since "MERGE" is not portable across all three
// engines (spec §4.4 SQL emission: "If isMerge: emit a single upsert
// keyed on the merge-match columns").
type UpsertStyle int

const (
	// UpsertStyleMerge renders a standard-SQL MERGE statement
	// (SQL Server, and Postgres 15+).
	UpsertStyleMerge UpsertStyle = iota
	// UpsertStyleInsertOnConflict renders Postgres's
	// INSERT ... ON CONFLICT (...) DO UPDATE.
	UpsertStyleInsertOnConflict
	// UpsertStyleInsertOnDuplicateKey renders MySQL's
	// INSERT ... ON DUPLICATE KEY UPDATE.
	UpsertStyleInsertOnDuplicateKey
)

// Dialect is the capability set every engine-specific adapter
// implements.
type Dialect interface {
	// Name is the short engine identifier: "postgres", "mysql", or
	// "sqlserver".
	Name() string

	// DriverName is the database/sql driver name registered for this
	// engine (e.g. "postgres", "mysql", "sqlserver").
	DriverName() string

	// QuoteIdentifier quotes a single identifier per the dialect's
	// bracketing convention ([...] / `...` / "...").
	QuoteIdentifier(name string) string

	// QuoteQualified quotes and joins a schema-qualified identifier.
	// If schema is empty, the identifier is unqualified.
	QuoteQualified(schema, name string) string

	// DefaultSchema is the engine's default schema ("dbo", "public",
	// or "" for MySQL, whose default schema is the database itself).
	DefaultSchema() string

	// SupportsDefaultSchemaFirst reports whether the default schema
	// sorts first in schema-object precedence (spec §4.5).
	SupportsDefaultSchemaFirst() bool

	// SupportsCreateOrAlter reports whether "CREATE OR ALTER" is a
	// recognized head in addition to plain CREATE and
	// CREATE OR REPLACE.
	SupportsCreateOrAlter() bool

	// CreateObjectTypes returns the dialect's supported CREATE object
	// types, used by the reconciler for validation and ordering.
	CreateObjectTypes() []ObjectType

	// JournalLocation returns the dialect-default (schema, table) for
	// the migration journal (spec §3, overridable via parameters).
	JournalLocation() (schema, table string)

	// InformationSchemaQuery returns the SQL text the introspector
	// runs to enumerate (table, column) rows, already including the
	// engine-specific catalog extras needed for identity/computed
	// column detection (spec §4.3).
	InformationSchemaQuery() string

	// FormatValue renders a Go value as a SQL literal: NULL, bool,
	// UUID, date/time, string (escaped, multibyte-prefixed where
	// applicable), or a passthrough numeric literal. Every time.Time
	// renders as a full UTC 'YYYY-MM-DD hh:mm:ss.fff' literal; there is
	// no separate date-only or time-only form.
	FormatValue(v any) (string, error)

	// IsIntegerType, IsDecimalType, and IsStringType classify a
	// column's engine type name for the data parser's type-coercion
	// pass (spec §4.4.4).
	IsIntegerType(typeName string) bool
	IsDecimalType(typeName string) bool
	IsStringType(typeName string) bool

	// UpsertStyle selects how the data loader renders a merge table.
	UpsertStyle() UpsertStyle

	// DataResetFilterPredicate reports whether schema should be
	// excluded from the Reset phase's enumerated tables (spec §4.8:
	// "exclude dbo/cdc on SQL Server, exclude pg_* on Postgres").
	DataResetFilterPredicate(schema string) bool

	// AdminDatabaseName is the engine's administrative database used
	// for Drop/Create (spec §4.7: "the master connection ... with
	// database name cleared/replaced with the engine's administrative
	// database").
	AdminDatabaseName() string

	// WithDatabase returns a DSN equivalent to dsn but targeting
	// database instead of whatever database dsn names.
	WithDatabase(dsn, database string) (string, error)

	// ApplySessionSettings runs once on a freshly opened connection.
	ApplySessionSettings(ctx context.Context, conn *sql.DB) error

	// BatchSeparatorIsGO reports whether batches in this dialect are
	// split on a standalone "GO" line rather than on semicolons (spec
	// §4.1: true for SQL Server only).
	BatchSeparatorIsGO() bool
}

// ByName returns the Dialect registered under name ("postgres",
// "mysql", "sqlserver"), or nil if unknown.
func ByName(name string) Dialect {
	switch name {
	case "postgres", "postgresql":
		return Postgres()
	case "mysql":
		return MySQL()
	case "sqlserver", "mssql":
		return SQLServer()
	default:
		return nil
	}
}
