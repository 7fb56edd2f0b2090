// SPDX-License-Identifier: Apache-2.0

package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// side effect of import registers the "postgres" database/sql driver.
	"github.com/lib/pq"
)

type postgres struct{}

// Postgres returns the PostgreSQL dialect adapter.
func Postgres() Dialect { return postgres{} }

func (postgres) Name() string       { return "postgres" }
func (postgres) DriverName() string { return "postgres" }

func (postgres) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d postgres) QuoteQualified(schema, name string) string {
	if schema == "" {
		return d.QuoteIdentifier(name)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(name)
}

func (postgres) DefaultSchema() string              { return "public" }
func (postgres) SupportsDefaultSchemaFirst() bool    { return true }
func (postgres) SupportsCreateOrAlter() bool         { return false }
func (postgres) BatchSeparatorIsGO() bool            { return false }
func (postgres) AdminDatabaseName() string           { return "postgres" }
func (postgres) UpsertStyle() UpsertStyle            { return UpsertStyleInsertOnConflict }

func (postgres) CreateObjectTypes() []ObjectType {
	return []ObjectType{
		{Keyword: "TYPE", Ordinal: 0},
		{Keyword: "FUNCTION", Ordinal: 1},
		{Keyword: "VIEW", Ordinal: 2},
		{Keyword: "PROCEDURE", Ordinal: 3},
	}
}

func (postgres) JournalLocation() (string, string) { return "public", "schemaversions" }

func (postgres) InformationSchemaQuery() string {
	return `
SELECT
	c.table_schema,
	c.table_name,
	(t.table_type = 'VIEW') AS is_view,
	c.column_name,
	c.data_type,
	c.character_maximum_length,
	c.numeric_precision,
	c.numeric_scale,
	(c.is_nullable = 'YES') AS is_nullable,
	c.column_default,
	(c.is_identity = 'YES') AS is_identity,
	(c.is_generated = 'ALWAYS') AS is_generated,
	c.ordinal_position
FROM information_schema.columns c
JOIN information_schema.tables t
	ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY c.table_schema, c.table_name, c.ordinal_position;
`
}

func (postgres) FormatValue(v any) (string, error) {
	if s, ok, err := formatCommon(v); ok || err != nil {
		return s, err
	}
	switch val := v.(type) {
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case string:
		return "'" + escapeString(val) + "'", nil
	case []byte:
		return fmt.Sprintf("'\\x%x'", val), nil
	default:
		return "", fmt.Errorf("dialect/postgres: cannot format value of type %T", v)
	}
}

func (postgres) IsIntegerType(typeName string) bool {
	switch strings.ToLower(typeName) {
	case "smallint", "integer", "bigint", "int", "int2", "int4", "int8", "serial", "bigserial":
		return true
	}
	return false
}

func (postgres) IsDecimalType(typeName string) bool {
	switch strings.ToLower(typeName) {
	case "numeric", "decimal", "real", "double precision", "money":
		return true
	}
	return false
}

func (postgres) IsStringType(typeName string) bool {
	switch strings.ToLower(typeName) {
	case "character varying", "varchar", "character", "char", "text", "citext", "uuid":
		return true
	}
	return false
}

func (postgres) DataResetFilterPredicate(schema string) bool {
	return schema == "pg_catalog" || strings.HasPrefix(schema, "pg_") || schema == "information_schema"
}

func (postgres) WithDatabase(dsn, database string) (string, error) {
	parsed, err := pq.ParseURL(dsn)
	if err != nil {
		// Already a libpq keyword/value string; swap dbname= directly.
		return replaceOrAppendKV(dsn, "dbname", database), nil
	}
	return replaceOrAppendKV(parsed, "dbname", database), nil
}

func (postgres) ApplySessionSettings(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, "SET TIME ZONE 'UTC'")
	return err
}

// replaceOrAppendKV replaces key=value in a libpq-style "key=value
// key=value" DSN, appending it if absent.
func replaceOrAppendKV(kv, key, value string) string {
	fields := strings.Fields(kv)
	prefix := key + "="
	found := false
	for i, f := range fields {
		if strings.HasPrefix(f, prefix) {
			fields[i] = prefix + value
			found = true
		}
	}
	if !found {
		fields = append(fields, prefix+value)
	}
	return strings.Join(fields, " ")
}
