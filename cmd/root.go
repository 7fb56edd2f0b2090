// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/dbex-project/dbex/cmd/flags"
	"github.com/dbex-project/dbex/internal/logging"
	"github.com/dbex-project/dbex/pkg/dbexerr"
	"github.com/dbex-project/dbex/pkg/dialect"
	"github.com/dbex-project/dbex/pkg/orchestrator"
	"github.com/dbex-project/dbex/pkg/params"
	"github.com/dbex-project/dbex/pkg/source"
)

// Version is set at build time via -ldflags.
var Version = "development"

var rootCmd = &cobra.Command{
	Use:          "dbex",
	Short:        "A relational database migration and data-seeding engine",
	SilenceUsage: true,
	Version:      Version,
}

func init() {
	flags.Register(rootCmd)
}

// Execute runs the root command.
func Execute() error {
	rootCmd.AddCommand(
		phaseCmd("drop", "Drop the target database", orchestrator.CmdDrop),
		phaseCmd("create", "Create the target database and run PreDeploy/PostDatabaseCreate scripts", orchestrator.CmdCreate),
		phaseCmd("migrate", "Apply outstanding Migrate scripts", orchestrator.CmdMigrate),
		phaseCmd("schema", "Reconcile Schema objects (views, functions, procedures, ...)", orchestrator.CmdSchema),
		phaseCmd("reset", "Delete every table's rows and run Reset scripts", orchestrator.CmdReset),
		phaseCmd("data", "Load and apply Data files", orchestrator.CmdData),
		phaseCmd("deploy", "Create + Migrate + Schema", orchestrator.CmdDeploy),
		phaseCmd("deploy-with-data", "Create + Migrate + Schema + Data", orchestrator.CmdDeployWithData),
		phaseCmd("all", "Create + Migrate + Schema + Data", orchestrator.CmdAll),
		phaseCmd("drop-and-all", "Drop, then Create + Migrate + Schema + Data", orchestrator.CmdDropAndAll),
		phaseCmd("reset-and-all", "Create + Migrate + Schema, then Reset, then Data", orchestrator.CmdResetAndAll),
		phaseCmd("reset-and-data", "Reset, then Data", orchestrator.CmdResetAndData),
		executeCmd(),
		scriptCmd(),
		statusCmd(),
	)
	return rootCmd.Execute()
}

// buildOrchestrator wires flags into a fresh Orchestrator, shared by
// every phase/Execute/Script/status command (teacher's NewRoll). The
// returned cleanup func must run after the orchestrator is done being
// used; it closes the -o/--output file, if one was opened.
func buildOrchestrator() (*orchestrator.Orchestrator, func(), error) {
	dsn := flags.ConnectionString()
	if dsn == "" {
		return nil, nil, fmt.Errorf("%w: --connection-string or --connection-varname must resolve to a connection string", dbexerr.ErrInvalidStructure)
	}

	dia, err := resolveDialect(flags.Dialect(), dsn)
	if err != nil {
		return nil, nil, err
	}

	roots, err := scriptRoots(flags.Assemblies())
	if err != nil {
		return nil, nil, err
	}

	overrides := flags.Params()
	userName := overrides[params.UserName]
	if userName == "" {
		userName = currentUserName()
	}
	p := params.New(nil, overrides, time.Now(), userName)

	o := orchestrator.New(dia, dsn, p, source.New(roots...), logging.NewPtermLogger())
	o.AcceptPrompts = flags.AcceptPrompts()
	o.SchemaOrder = flags.SchemaOrder()
	o.Confirm = promptConfirm

	cleanup := func() {}
	if out := flags.Output(); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return nil, nil, err
		}
		o.Output = f
		cleanup = func() { _ = f.Close() }
	}

	return o, cleanup, nil
}

// resolveDialect honors an explicit -d/--dialect flag, falling back to
// the connection string's scheme/driver prefix.
func resolveDialect(explicit, dsn string) (dialect.Dialect, error) {
	if explicit != "" {
		if dia := dialect.ByName(explicit); dia != nil {
			return dia, nil
		}
		return nil, fmt.Errorf("%w: unknown dialect %q", dbexerr.ErrInvalidStructure, explicit)
	}

	switch {
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		return dialect.Postgres(), nil
	case strings.HasPrefix(dsn, "sqlserver://"):
		return dialect.SQLServer(), nil
	case strings.HasPrefix(dsn, "mysql://") || strings.Contains(dsn, "@tcp("):
		return dialect.MySQL(), nil
	default:
		return nil, fmt.Errorf("%w: cannot infer dialect from connection string; pass -d/--dialect", dbexerr.ErrInvalidStructure)
	}
}

// scriptRoots resolves each --assembly directory to a probed fs.FS, in
// the order given (spec §4.2: "ordered probing list"). With none
// given, the current directory is probed, matching a project run from
// its own script tree.
func scriptRoots(dirs []string) ([]fs.FS, error) {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	roots := make([]fs.FS, 0, len(dirs))
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %q is not a directory", dbexerr.ErrInvalidStructure, dir)
		}
		roots = append(roots, os.DirFS(dir))
	}
	return roots, nil
}

func currentUserName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "dbex"
}

// promptConfirm backs a destructive command's interactive confirmation
// with pterm, matching the teacher's terminal-UX library.
func promptConfirm(prompt string) bool {
	result, _ := pterm.DefaultInteractiveConfirm.WithDefaultText(prompt).Show()
	return result
}

// phaseCmd builds one of the fixed-phase or aggregate commands from
// spec §6's command list, all sharing the same orchestrator wiring.
func phaseCmd(use, short string, cmd orchestrator.Command) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cc *cobra.Command, _ []string) error {
			o, cleanup, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()
			return runPhase(cc.Context(), o, use, cmd)
		},
	}
}

func runPhase(ctx context.Context, o *orchestrator.Orchestrator, label string, cmd orchestrator.Command) error {
	sp, _ := pterm.DefaultSpinner.WithText(fmt.Sprintf("Running %s...", label)).Start()
	if err := o.Run(ctx, cmd); err != nil {
		sp.Fail(fmt.Sprintf("%s failed: %s", label, err))
		return err
	}
	sp.Success(fmt.Sprintf("%s complete", label))
	return nil
}
