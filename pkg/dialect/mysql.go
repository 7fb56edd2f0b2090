// SPDX-License-Identifier: Apache-2.0

package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// side effect of import registers the "mysql" database/sql driver.
	_ "github.com/go-sql-driver/mysql"
)

type mysqlDialect struct{}

// MySQL returns the MySQL/MariaDB dialect adapter.
func MySQL() Dialect { return mysqlDialect{} }

func (mysqlDialect) Name() string       { return "mysql" }
func (mysqlDialect) DriverName() string { return "mysql" }

func (mysqlDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d mysqlDialect) QuoteQualified(schema, name string) string {
	if schema == "" {
		return d.QuoteIdentifier(name)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(name)
}

// DefaultSchema is empty: MySQL has no schema layer distinct from the
// database, so the "schema" in a MySQL DataTable/TableSchema is the
// database name itself, and there is no separate default to prefer.
func (mysqlDialect) DefaultSchema() string           { return "" }
func (mysqlDialect) SupportsDefaultSchemaFirst() bool { return false }
func (mysqlDialect) SupportsCreateOrAlter() bool      { return false }
func (mysqlDialect) BatchSeparatorIsGO() bool         { return false }
func (mysqlDialect) AdminDatabaseName() string        { return "information_schema" }
func (mysqlDialect) UpsertStyle() UpsertStyle         { return UpsertStyleInsertOnDuplicateKey }

// MySQL's CREATE OR REPLACE is supported for VIEW only; FUNCTION and
// PROCEDURE require DROP IF EXISTS + CREATE, which is exactly the
// reconciler's own drop/create cycle, so all three are listed
// uniformly and the reconciler always runs its own drop-then-create.
func (mysqlDialect) CreateObjectTypes() []ObjectType {
	return []ObjectType{
		{Keyword: "FUNCTION", Ordinal: 0},
		{Keyword: "VIEW", Ordinal: 1},
		{Keyword: "PROCEDURE", Ordinal: 2},
	}
}

func (mysqlDialect) JournalLocation() (string, string) { return "", "schemaversions" }

func (mysqlDialect) InformationSchemaQuery() string {
	return `
SELECT
	c.TABLE_SCHEMA,
	c.TABLE_NAME,
	(t.TABLE_TYPE = 'VIEW') AS IS_VIEW,
	c.COLUMN_NAME,
	c.DATA_TYPE,
	c.CHARACTER_MAXIMUM_LENGTH,
	c.NUMERIC_PRECISION,
	c.NUMERIC_SCALE,
	(c.IS_NULLABLE = 'YES') AS IS_NULLABLE,
	c.COLUMN_DEFAULT,
	(c.EXTRA LIKE '%auto_increment%') AS IS_IDENTITY,
	(c.EXTRA LIKE '%GENERATED%') AS IS_GENERATED,
	c.ORDINAL_POSITION
FROM information_schema.COLUMNS c
JOIN information_schema.TABLES t
	ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
WHERE c.TABLE_SCHEMA = DATABASE()
ORDER BY c.TABLE_SCHEMA, c.TABLE_NAME, c.ORDINAL_POSITION;
`
}

func (mysqlDialect) FormatValue(v any) (string, error) {
	if s, ok, err := formatCommon(v); ok || err != nil {
		return s, err
	}
	switch val := v.(type) {
	case bool:
		if val {
			return "1", nil
		}
		return "0", nil
	case string:
		return "'" + escapeString(val) + "'", nil
	case []byte:
		return fmt.Sprintf("X'%x'", val), nil
	default:
		return "", fmt.Errorf("dialect/mysql: cannot format value of type %T", v)
	}
}

func (mysqlDialect) IsIntegerType(typeName string) bool {
	switch strings.ToLower(typeName) {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint":
		return true
	}
	return false
}

func (mysqlDialect) IsDecimalType(typeName string) bool {
	switch strings.ToLower(typeName) {
	case "decimal", "numeric", "float", "double":
		return true
	}
	return false
}

func (mysqlDialect) IsStringType(typeName string) bool {
	switch strings.ToLower(typeName) {
	case "char", "varchar", "text", "tinytext", "mediumtext", "longtext":
		return true
	}
	return false
}

func (mysqlDialect) DataResetFilterPredicate(schema string) bool {
	switch strings.ToLower(schema) {
	case "information_schema", "performance_schema", "mysql", "sys":
		return true
	}
	return false
}

func (mysqlDialect) WithDatabase(dsn, database string) (string, error) {
	at := strings.LastIndex(dsn, "/")
	if at < 0 {
		return "", fmt.Errorf("dialect/mysql: dsn %q has no database segment", dsn)
	}
	base := dsn[:at+1]
	rest := dsn[at+1:]
	if q := strings.IndexByte(rest, '?'); q >= 0 {
		return base + database + rest[q:], nil
	}
	return base + database, nil
}

func (mysqlDialect) ApplySessionSettings(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, "SET time_zone = '+00:00', sql_mode = 'STRICT_ALL_TABLES,NO_ENGINE_SUBSTITUTION'")
	return err
}
