// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/lib/pq"

	"github.com/dbex-project/dbex/internal/extfn"
	"github.com/dbex-project/dbex/internal/logging"
	"github.com/dbex-project/dbex/pkg/data"
	"github.com/dbex-project/dbex/pkg/dbexerr"
	"github.com/dbex-project/dbex/pkg/dialect"
	"github.com/dbex-project/dbex/pkg/db"
	"github.com/dbex-project/dbex/pkg/journal"
	"github.com/dbex-project/dbex/pkg/params"
	"github.com/dbex-project/dbex/pkg/reconcile"
	"github.com/dbex-project/dbex/pkg/schema"
	"github.com/dbex-project/dbex/pkg/source"
	"github.com/dbex-project/dbex/pkg/sqlsplit"
)

// Orchestrator runs the fixed-order phase sequence against one target
// database (spec §4.7). It owns no open connections at construction
// time; Run opens what each requested phase needs and closes it
// before returning.
type Orchestrator struct {
	Dialect      dialect.Dialect
	DSN          string
	RetryPolicy  db.RetryPolicy
	Params       *params.Parameters
	Registry     *extfn.Registry
	Source       *source.Source
	Logger       logging.Logger
	AcceptPrompts bool

	// Confirm prompts the operator before a destructive command;
	// overridable in tests. Returns true to proceed.
	Confirm func(prompt string) bool

	JournalSchema string
	JournalTable  string

	// SchemaOrder is the CLI's explicit -so/--schema-order precedence
	// list, consumed by runSchema (spec §4.5's "Schema precedence").
	SchemaOrder []string

	// Output, when non-nil, redirects every script-driven phase
	// (PreDeploy/PostDeploy/PostDatabaseCreate, Migrate, Schema, Reset's
	// override scripts) to write its resolved SQL here instead of
	// executing it, backing the CLI's -o/--output dry-run flag. Data
	// row emission still executes directly: its SQL is generated
	// per-row from already-introspected state, not worth re-deriving
	// for a preview that can't see row-level coercion failures anyway.
	Output io.Writer

	Generators map[string]data.Generator

	target db.DB
	model  *schema.Model
}

// New constructs an Orchestrator with a default confirmation prompt
// that always refuses (the CLI layer wires pterm.DefaultInteractiveConfirm
// in its place).
func New(dia dialect.Dialect, dsn string, p *params.Parameters, src *source.Source, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		Dialect:     dia,
		DSN:         dsn,
		RetryPolicy: db.DefaultRetryPolicy(),
		Params:      p,
		Registry:    extfn.NewRegistry(),
		Source:      src,
		Logger:      logger,
		Confirm:     func(string) bool { return false },
		Generators: map[string]data.Generator{
			"guid": data.GuidGenerator{},
			"int":  data.NewIntGenerator(1),
			"long": data.NewLongGenerator(1),
		},
	}
}

// Run executes every phase cmd selects, in the fixed order Drop,
// Create, Migrate, Schema, Reset, Data (spec §4.7).
func (o *Orchestrator) Run(ctx context.Context, cmd Command) error {
	if cmd.destructive() && !o.AcceptPrompts {
		prompt := fmt.Sprintf("This will run destructive operations against %s. Continue?", o.Dialect.Name())
		if !o.Confirm(prompt) {
			return dbexerr.ErrDestructiveActionNotConfirmed
		}
	}

	if cmd.Has(CmdDrop) {
		if err := o.runDrop(ctx); err != nil {
			return fmt.Errorf("drop: %w", err)
		}
	}
	if cmd.Has(CmdCreate) {
		if err := o.runCreate(ctx); err != nil {
			return fmt.Errorf("create: %w", err)
		}
	}

	needsTarget := cmd.Has(CmdMigrate) || cmd.Has(CmdSchema) || cmd.Has(CmdReset) || cmd.Has(CmdData)
	if !needsTarget {
		return nil
	}

	if err := o.ensureTarget(ctx); err != nil {
		return err
	}
	defer o.closeTarget()

	j := journal.New(o.target, o.Dialect, o.JournalSchema, o.JournalTable)
	if err := j.EnsureExists(ctx); err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	if cmd.Has(CmdMigrate) {
		if err := o.runMigrate(ctx, j); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if cmd.Has(CmdSchema) {
		if err := o.runSchema(ctx); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	if cmd.Has(CmdReset) {
		if err := o.runReset(ctx); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	if cmd.Has(CmdData) {
		if err := o.runData(ctx); err != nil {
			return fmt.Errorf("data: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) ensureTarget(ctx context.Context) error {
	if o.target != nil {
		return nil
	}
	conn, err := db.Open(ctx, o.Dialect.DriverName(), o.DSN, o.RetryPolicy, o.Dialect.ApplySessionSettings)
	if err != nil {
		return err
	}
	o.target = conn
	return nil
}

func (o *Orchestrator) closeTarget() {
	if o.target == nil {
		return
	}
	_ = o.target.Close()
	o.target = nil
}

// runDrop drops the target database entirely via the admin
// connection, so a subsequent Create starts clean (design decision
// §9(b): the journal table disappears with it).
func (o *Orchestrator) runDrop(ctx context.Context) error {
	adminDSN, err := o.Dialect.WithDatabase(o.DSN, o.Dialect.AdminDatabaseName())
	if err != nil {
		return err
	}
	adminConn, err := db.Open(ctx, o.Dialect.DriverName(), adminDSN, o.RetryPolicy, nil)
	if err != nil {
		return err
	}
	defer adminConn.Close()

	dbName, err := o.targetDatabaseName()
	if err != nil {
		return err
	}
	_, err = adminConn.ExecContext(ctx, dropDatabaseSQL(o.Dialect, dbName))
	return err
}

// runCreate creates the target database if it does not already exist,
// then runs PreDeploy scripts and once-only PostDatabaseCreate
// scripts against it.
func (o *Orchestrator) runCreate(ctx context.Context) error {
	adminDSN, err := o.Dialect.WithDatabase(o.DSN, o.Dialect.AdminDatabaseName())
	if err != nil {
		return err
	}
	adminConn, err := db.Open(ctx, o.Dialect.DriverName(), adminDSN, o.RetryPolicy, nil)
	if err != nil {
		return err
	}
	defer adminConn.Close()

	dbName, err := o.targetDatabaseName()
	if err != nil {
		return err
	}
	if _, err := adminConn.ExecContext(ctx, createDatabaseSQL(o.Dialect, dbName)); err != nil && !isAlreadyExists(err) {
		return err
	}

	if err := o.ensureTarget(ctx); err != nil {
		return err
	}

	refs, err := o.Source.Discover()
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if ref.Kind != source.KindPreDeploy {
			continue
		}
		if err := o.executeScriptRef(ctx, ref); err != nil {
			return err
		}
	}

	j := journal.New(o.target, o.Dialect, o.JournalSchema, o.JournalTable)
	if err := j.EnsureExists(ctx); err != nil {
		return err
	}
	executed, err := j.GetExecutedScripts(ctx)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if ref.Kind != source.KindPostDatabaseCreate || executed[ref.Name] {
			continue
		}
		if err := o.executeScriptRef(ctx, ref); err != nil {
			return err
		}
		if err := j.AuditScriptExecution(ctx, ref.Name, time.Now()); err != nil {
			return err
		}
	}
	return nil
}

// runMigrate runs every un-journalled Migrate script in name order,
// bracketed by the always-run PreDeploy/PostDeploy scripts (spec
// §4.7). A failing script halts the run before it is journalled, so
// a re-run retries it.
func (o *Orchestrator) runMigrate(ctx context.Context, j *journal.Journal) error {
	refs, err := o.Source.Discover()
	if err != nil {
		return err
	}

	for _, ref := range refs {
		if ref.Kind != source.KindPreDeploy {
			continue
		}
		if err := o.executeScriptRef(ctx, ref); err != nil {
			return err
		}
	}

	executed, err := j.GetExecutedScripts(ctx)
	if err != nil {
		return err
	}

	var migrations []source.ScriptRef
	for _, ref := range refs {
		if ref.Kind == source.KindMigrate {
			migrations = append(migrations, ref)
		}
	}
	sort.Slice(migrations, func(i, k int) bool { return migrations[i].Name < migrations[k].Name })

	for _, ref := range migrations {
		select {
		case <-ctx.Done():
			return dbexerr.ErrCancelled
		default:
		}
		if executed[ref.Name] {
			continue
		}
		if err := o.executeScriptRef(ctx, ref); err != nil {
			return fmt.Errorf("%s: %w", ref.Name, err)
		}
		if err := j.AuditScriptExecution(ctx, ref.Name, time.Now()); err != nil {
			return err
		}
	}

	for _, ref := range refs {
		if ref.Kind != source.KindPostDeploy {
			continue
		}
		if err := o.executeScriptRef(ctx, ref); err != nil {
			return err
		}
	}
	return nil
}

// runSchema reparses and reapplies every Schema script in
// dependency-precedence order; schema objects are idempotent
// CREATE OR REPLACE/ALTER statements, never journalled (spec §4.5).
func (o *Orchestrator) runSchema(ctx context.Context) error {
	refs, err := o.Source.Discover()
	if err != nil {
		return err
	}

	var objects []*reconcile.Object
	content := make(map[string]string)
	for _, ref := range refs {
		if ref.Kind != source.KindSchema {
			continue
		}
		f, err := ref.Open()
		if err != nil {
			return err
		}
		raw, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return err
		}
		obj, err := reconcile.ParseHead(ref, string(raw), o.Dialect)
		if err != nil {
			return err
		}
		objects = append(objects, obj)
		content[obj.QualifiedName()] = string(raw)
	}

	for _, obj := range reconcile.OrderForCreate(objects, o.SchemaOrder, o.Dialect.DefaultSchema()) {
		sql := o.Params.SubstituteSQL(content[obj.QualifiedName()])
		if err := o.execBatches(ctx, sql); err != nil {
			return fmt.Errorf("%s: %w", obj.Ref.Name, err)
		}
	}
	return nil
}

// runReset deletes every non-excluded table's rows (spec §4.8: the
// journal table and dialect-excluded system schemas are never
// touched), then runs any explicit Reset/*.sql override scripts.
func (o *Orchestrator) runReset(ctx context.Context) error {
	if err := o.ensureModel(ctx); err != nil {
		return err
	}

	journalSchema, journalTable := o.Dialect.JournalLocation()
	if o.JournalSchema != "" {
		journalSchema = o.JournalSchema
	}
	if o.JournalTable != "" {
		journalTable = o.JournalTable
	}

	var names []string
	for key := range o.model.Tables {
		names = append(names, key)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	for _, key := range names {
		t := o.model.Tables[key]
		if t.IsView || o.Dialect.DataResetFilterPredicate(t.Schema) {
			continue
		}
		if t.Schema == journalSchema && t.Name == journalTable {
			continue
		}
		qualified := o.Dialect.QuoteQualified(t.Schema, t.Name)
		if err := o.execBatches(ctx, fmt.Sprintf("DELETE FROM %s;", qualified)); err != nil {
			return fmt.Errorf("%s: %w", t.QualifiedName(), err)
		}
	}

	refs, err := o.Source.Discover()
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if ref.Kind != source.KindReset {
			continue
		}
		if err := o.executeScriptRef(ctx, ref); err != nil {
			return err
		}
	}
	return nil
}

// runData loads, resolves, and emits every Data file's rows, skipping
// a table whose preCondition query already returns a row (spec §4.4:
// "Data scripts always re-run; idempotency is the author's own guard
// query").
func (o *Orchestrator) runData(ctx context.Context) error {
	if err := o.ensureModel(ctx); err != nil {
		return err
	}

	refs, err := o.Source.Discover()
	if err != nil {
		return err
	}

	loader := data.NewLoader(o.model, o.Dialect, data.DefaultContext{
		Params:      o.Params,
		Registry:    o.Registry,
		Generators:  o.Generators,
		Conventions: schema.DefaultConventions(),
	})
	tables, err := loader.LoadAndProcess(refs)
	if err != nil {
		return err
	}

	for _, t := range tables {
		result, err := data.Emit(t, o.model, o.Dialect)
		if err != nil {
			return fmt.Errorf("%s: %w", t.SourceFile, err)
		}

		if result.PreConditionQuery != "" {
			rows, err := o.target.QueryContext(ctx, result.PreConditionQuery)
			if err != nil {
				return fmt.Errorf("%s: precondition: %w", t.SourceFile, err)
			}
			hasRow := rows.Next()
			rows.Close()
			if hasRow {
				continue
			}
		}

		if result.PreSQL != "" {
			if err := o.execBatches(ctx, result.PreSQL); err != nil {
				return fmt.Errorf("%s: preSql: %w", t.SourceFile, err)
			}
		}
		for _, stmt := range result.Statements {
			if _, err := o.target.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %w", t.SourceFile, err)
			}
		}
		if result.PostSQL != "" {
			if err := o.execBatches(ctx, result.PostSQL); err != nil {
				return fmt.Errorf("%s: postSql: %w", t.SourceFile, err)
			}
		}
	}
	return nil
}

func (o *Orchestrator) ensureModel(ctx context.Context) error {
	if o.model != nil {
		return nil
	}
	if err := o.ensureTarget(ctx); err != nil {
		return err
	}
	in := schema.NewIntrospector(o.target, o.Dialect)
	m, err := in.Introspect(ctx)
	if err != nil {
		return err
	}
	o.model = m
	return nil
}

func (o *Orchestrator) executeScriptRef(ctx context.Context, ref source.ScriptRef) error {
	f, err := ref.Open()
	if err != nil {
		return err
	}
	raw, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return err
	}
	sql := o.Params.SubstituteSQL(string(raw))
	return o.execBatches(ctx, sql)
}

func (o *Orchestrator) execBatches(ctx context.Context, sql string) error {
	batches, err := sqlsplit.SplitBatches(sql, o.Dialect.BatchSeparatorIsGO())
	if err != nil {
		return err
	}
	for _, batch := range batches {
		if o.Output != nil {
			if _, err := fmt.Fprintf(o.Output, "%s\n", batch); err != nil {
				return err
			}
			continue
		}
		if _, err := o.target.ExecContext(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) targetDatabaseName() (string, error) {
	if name, ok := o.Params.Get(params.DatabaseName); ok {
		return name, nil
	}
	return "", fmt.Errorf("%w: DatabaseName parameter not set", dbexerr.ErrInvalidStructure)
}

func dropDatabaseSQL(dia dialect.Dialect, name string) string {
	return fmt.Sprintf("DROP DATABASE IF EXISTS %s;", dia.QuoteIdentifier(name))
}

func createDatabaseSQL(dia dialect.Dialect, name string) string {
	if dia.Name() == "postgres" {
		// Postgres has no CREATE DATABASE IF NOT EXISTS; isAlreadyExists
		// tolerates the driver's duplicate_database error instead.
		return fmt.Sprintf("CREATE DATABASE %s;", dia.QuoteIdentifier(name))
	}
	return fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s;", dia.QuoteIdentifier(name))
}

// isAlreadyExists reports whether err is Postgres's duplicate_database
// error (SQLSTATE 42P04), the one expected failure mode of a plain
// CREATE DATABASE run against an already-provisioned database.
func isAlreadyExists(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P04"
	}
	return false
}
