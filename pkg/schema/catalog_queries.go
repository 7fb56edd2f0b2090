// SPDX-License-Identifier: Apache-2.0

package schema

import "github.com/dbex-project/dbex/pkg/dialect"

// primaryKeyQuery, uniqueConstraintQuery, and foreignKeyQuery return
// the dialect-specific information_schema queries used by the
// introspector's follow-up passes (spec §4.3: "Subsequent passes add:
// primary keys, unique single-column constraints, single-column
// foreign keys..."). All three engines expose the same
// information_schema.key_column_usage / table_constraints /
// referential_constraints views (MySQL and Postgres natively; SQL
// Server via its INFORMATION_SCHEMA compatibility views), so one
// ANSI-flavored query per concern covers all three dialects, modulo
// case of the view/column names which SQL Server requires upper-case
// for on some configurations - each dialect still gets its own
// query text so a future engine-specific quirk has a home.
func primaryKeyQuery(d dialect.Dialect) string {
	switch d.Name() {
	case "sqlserver":
		return `
SELECT kcu.TABLE_SCHEMA, kcu.TABLE_NAME, kcu.COLUMN_NAME
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
	ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY';
`
	default:
		return `
SELECT kcu.table_schema, kcu.table_name, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
	ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
WHERE tc.constraint_type = 'PRIMARY KEY';
`
	}
}

func uniqueConstraintQuery(d dialect.Dialect) string {
	switch d.Name() {
	case "sqlserver":
		return `
SELECT kcu.TABLE_SCHEMA, kcu.TABLE_NAME, kcu.COLUMN_NAME
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
	ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
WHERE tc.CONSTRAINT_TYPE = 'UNIQUE'
GROUP BY kcu.TABLE_SCHEMA, kcu.TABLE_NAME, kcu.COLUMN_NAME, tc.CONSTRAINT_NAME
HAVING COUNT(*) = 1;
`
	default:
		return `
SELECT kcu.table_schema, kcu.table_name, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
	ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
WHERE tc.constraint_type = 'UNIQUE'
GROUP BY kcu.table_schema, kcu.table_name, kcu.column_name, tc.constraint_name
HAVING COUNT(*) = 1;
`
	}
}

func foreignKeyQuery(d dialect.Dialect) string {
	switch d.Name() {
	case "sqlserver":
		return `
SELECT
	fk_kcu.TABLE_SCHEMA, fk_kcu.TABLE_NAME, fk_kcu.COLUMN_NAME,
	pk_kcu.TABLE_SCHEMA, pk_kcu.TABLE_NAME, pk_kcu.COLUMN_NAME
FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE fk_kcu
	ON rc.CONSTRAINT_NAME = fk_kcu.CONSTRAINT_NAME
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE pk_kcu
	ON rc.UNIQUE_CONSTRAINT_NAME = pk_kcu.CONSTRAINT_NAME AND fk_kcu.ORDINAL_POSITION = pk_kcu.ORDINAL_POSITION;
`
	default:
		return `
SELECT
	fk_kcu.table_schema, fk_kcu.table_name, fk_kcu.column_name,
	pk_kcu.table_schema, pk_kcu.table_name, pk_kcu.column_name
FROM information_schema.referential_constraints rc
JOIN information_schema.key_column_usage fk_kcu
	ON rc.constraint_name = fk_kcu.constraint_name
JOIN information_schema.key_column_usage pk_kcu
	ON rc.unique_constraint_name = pk_kcu.constraint_name AND fk_kcu.ordinal_position = pk_kcu.ordinal_position;
`
	}
}
