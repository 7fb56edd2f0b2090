// SPDX-License-Identifier: Apache-2.0

package dialect

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	// side effect of import registers the "sqlserver" database/sql driver.
	_ "github.com/denisenkom/go-mssqldb"
)

type sqlServer struct{}

// SQLServer returns the Microsoft SQL Server dialect adapter.
func SQLServer() Dialect { return sqlServer{} }

func (sqlServer) Name() string       { return "sqlserver" }
func (sqlServer) DriverName() string { return "sqlserver" }

func (sqlServer) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (d sqlServer) QuoteQualified(schema, name string) string {
	if schema == "" {
		return d.QuoteIdentifier(name)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(name)
}

func (sqlServer) DefaultSchema() string              { return "dbo" }
func (sqlServer) SupportsDefaultSchemaFirst() bool    { return true }
func (sqlServer) SupportsCreateOrAlter() bool         { return true }
func (sqlServer) BatchSeparatorIsGO() bool            { return true }
func (sqlServer) AdminDatabaseName() string           { return "master" }
func (sqlServer) UpsertStyle() UpsertStyle            { return UpsertStyleMerge }

func (sqlServer) CreateObjectTypes() []ObjectType {
	return []ObjectType{
		{Keyword: "TYPE", Ordinal: 0},
		{Keyword: "FUNCTION", Ordinal: 1},
		{Keyword: "VIEW", Ordinal: 2},
		{Keyword: "PROCEDURE", Ordinal: 3},
	}
}

func (sqlServer) JournalLocation() (string, string) { return "dbo", "SchemaVersions" }

func (sqlServer) InformationSchemaQuery() string {
	return `
SELECT
	c.TABLE_SCHEMA,
	c.TABLE_NAME,
	CASE WHEN t.TABLE_TYPE = 'VIEW' THEN 1 ELSE 0 END AS IS_VIEW,
	c.COLUMN_NAME,
	c.DATA_TYPE,
	c.CHARACTER_MAXIMUM_LENGTH,
	c.NUMERIC_PRECISION,
	c.NUMERIC_SCALE,
	CASE WHEN c.IS_NULLABLE = 'YES' THEN 1 ELSE 0 END AS IS_NULLABLE,
	c.COLUMN_DEFAULT,
	COLUMNPROPERTY(OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME), c.COLUMN_NAME, 'IsIdentity') AS IS_IDENTITY,
	COLUMNPROPERTY(OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME), c.COLUMN_NAME, 'IsComputed') AS IS_GENERATED,
	c.ORDINAL_POSITION
FROM INFORMATION_SCHEMA.COLUMNS c
JOIN INFORMATION_SCHEMA.TABLES t
	ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
ORDER BY c.TABLE_SCHEMA, c.TABLE_NAME, c.ORDINAL_POSITION;
`
}

func (sqlServer) FormatValue(v any) (string, error) {
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
		// N'...' prefix so Unicode (nvarchar) literals survive
		// without codepage loss, per spec §4.8's "multibyte-string
		// prefix where applicable".
		return "N'" + escapeString(val) + "'", nil
	case []byte:
		return "0x" + hex.EncodeToString(val), nil
	default:
		return "", fmt.Errorf("dialect/sqlserver: cannot format value of type %T", v)
	}
}

func (sqlServer) IsIntegerType(typeName string) bool {
	switch strings.ToLower(typeName) {
	case "tinyint", "smallint", "int", "bigint":
		return true
	}
	return false
}

func (sqlServer) IsDecimalType(typeName string) bool {
	switch strings.ToLower(typeName) {
	case "decimal", "numeric", "float", "real", "money", "smallmoney":
		return true
	}
	return false
}

func (sqlServer) IsStringType(typeName string) bool {
	switch strings.ToLower(typeName) {
	case "char", "varchar", "nchar", "nvarchar", "text", "ntext", "uniqueidentifier":
		return true
	}
	return false
}

func (sqlServer) DataResetFilterPredicate(schema string) bool {
	switch schema {
	case "sys", "INFORMATION_SCHEMA", "cdc", "guest":
		return true
	}
	return false
}

func (sqlServer) WithDatabase(dsn, database string) (string, error) {
	return replaceOrAppendKV(dsn, "database", database), nil
}

func (sqlServer) ApplySessionSettings(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, "SET ANSI_NULLS ON; SET QUOTED_IDENTIFIER ON;")
	return err
}
