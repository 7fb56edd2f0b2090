// SPDX-License-Identifier: Apache-2.0

// Package journal implements the persisted migration ledger
// (component C6, spec §3 JournalEntry / §4.6): ensuring the journal
// table exists, reading the set of executed script names, and
// appending an entry on successful execution.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/dbex-project/dbex/pkg/db"
	"github.com/dbex-project/dbex/pkg/dialect"
)

// Journal is the persisted ledger of executed migration-script names,
// exempt from the Reset phase (spec §4.6).
type Journal struct {
	DB      db.DB
	Dialect dialect.Dialect
	Schema  string
	Table   string
}

// New constructs a Journal at the dialect-default location, which the
// caller may override (spec §3: "overridable via parameters").
func New(database db.DB, dia dialect.Dialect, schemaOverride, tableOverride string) *Journal {
	schema, table := dia.JournalLocation()
	if schemaOverride != "" {
		schema = schemaOverride
	}
	if tableOverride != "" {
		table = tableOverride
	}
	return &Journal{DB: database, Dialect: dia, Schema: schema, Table: table}
}

// EnsureExists creates the journal table idempotently.
func (j *Journal) EnsureExists(ctx context.Context) error {
	qualified := j.Dialect.QuoteQualified(j.Schema, j.Table)
	scriptNameCol := j.Dialect.QuoteIdentifier("ScriptName")
	appliedCol := j.Dialect.QuoteIdentifier("Applied")
	idCol := j.Dialect.QuoteIdentifier("Id")

	var ddl string
	switch j.Dialect.Name() {
	case "sqlserver":
		ddl = fmt.Sprintf(`
IF NOT EXISTS (SELECT 1 FROM sys.schemas WHERE name = '%[1]s')
	EXEC('CREATE SCHEMA %[1]s');
IF OBJECT_ID('%[2]s', 'U') IS NULL
	EXEC('CREATE TABLE %[2]s (%[3]s INT IDENTITY PRIMARY KEY, %[4]s VARCHAR(255) NOT NULL UNIQUE, %[5]s DATETIME2 NOT NULL)');
`, j.Schema, qualified, idCol, scriptNameCol, appliedCol)
	case "mysql":
		ddl = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s INT AUTO_INCREMENT PRIMARY KEY, %s VARCHAR(255) NOT NULL UNIQUE, %s DATETIME(3) NOT NULL);`,
			qualified, idCol, scriptNameCol, appliedCol)
	default: // postgres
		ddl = fmt.Sprintf(`
CREATE SCHEMA IF NOT EXISTS %[1]s;
CREATE TABLE IF NOT EXISTS %[2]s (%[3]s SERIAL PRIMARY KEY, %[4]s VARCHAR(255) NOT NULL UNIQUE, %[5]s TIMESTAMP NOT NULL);
`, j.Dialect.QuoteIdentifier(j.Schema), qualified, idCol, scriptNameCol, appliedCol)
	}

	_, err := j.DB.ExecContext(ctx, ddl)
	return err
}

// GetExecutedScripts returns the set of script names already
// journalled.
func (j *Journal) GetExecutedScripts(ctx context.Context) (map[string]bool, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", j.Dialect.QuoteIdentifier("ScriptName"), j.Dialect.QuoteQualified(j.Schema, j.Table))
	rows, err := j.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = true
	}
	return names, rows.Err()
}

// AuditScriptExecution appends an entry recording a successfully
// executed script. Invariant: unique by scriptName (spec §3); a
// caller re-auditing the same name is a programming error upstream,
// not handled here.
func (j *Journal) AuditScriptExecution(ctx context.Context, scriptName string, appliedAt time.Time) error {
	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s, %s)",
		j.Dialect.QuoteQualified(j.Schema, j.Table),
		j.Dialect.QuoteIdentifier("ScriptName"),
		j.Dialect.QuoteIdentifier("Applied"),
		placeholder(j.Dialect, 1),
		placeholder(j.Dialect, 2),
	)
	_, err := j.DB.ExecContext(ctx, query, scriptName, appliedAt.UTC())
	return err
}

// DropTable drops the journal table entirely. The orchestrator's Drop
// phase does not call it: that phase drops the whole database, which
// removes the journal table with it.
func (j *Journal) DropTable(ctx context.Context) error {
	query := fmt.Sprintf("DROP TABLE IF EXISTS %s", j.Dialect.QuoteQualified(j.Schema, j.Table))
	_, err := j.DB.ExecContext(ctx, query)
	return err
}

func placeholder(d dialect.Dialect, position int) string {
	if d.Name() == "postgres" {
		return fmt.Sprintf("$%d", position)
	}
	return "?"
}
