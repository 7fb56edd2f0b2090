// SPDX-License-Identifier: Apache-2.0

// Package flags binds the CLI surface's options (spec §6) to viper,
// mirroring the teacher's cmd/flags package: each persistent flag is
// registered once on the root command and read back through a
// viper-backed accessor, so every subcommand sees the same value
// regardless of where in the tree it was set.
package flags

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Register attaches every CLI surface option from spec §6 to cmd's
// persistent flags and binds it into viper under DBEX_* env vars.
//
// spec §6 writes several of these as two-letter short forms
// (-cs, -cv, -so, -eo) in the .NET-tool convention it was distilled
// from; pflag shorthands are restricted to a single ASCII character,
// so those become long-flag-only here. -o, -a, and -p keep their
// single-letter shorthand.
func Register(cmd *cobra.Command) {
	cmd.PersistentFlags().String("connection-string", "", "Database connection string")
	cmd.PersistentFlags().String("connection-varname", "", "Environment variable holding the connection string")
	cmd.PersistentFlags().StringP("dialect", "d", "", "Database dialect: postgres, mysql, or sqlserver")
	cmd.PersistentFlags().StringArray("schema-order", nil, "Explicit schema precedence for the Schema phase (repeatable)")
	cmd.PersistentFlags().StringP("output", "o", "", "Write resolved SQL here instead of executing it (dry run)")
	cmd.PersistentFlags().StringArrayP("assembly", "a", nil, "Additional script directory to probe, lowest precedence last (repeatable)")
	cmd.PersistentFlags().Bool("entry-assembly-only", false, "Ignore every --assembly directory but the first")
	cmd.PersistentFlags().StringToStringP("param", "p", nil, "Override a session parameter, name=value (repeatable)")
	cmd.PersistentFlags().Bool("accept-prompts", false, "Skip interactive confirmation for destructive commands")

	for _, name := range []string{
		"connection-string", "connection-varname", "dialect", "schema-order",
		"output", "assembly", "entry-assembly-only", "param", "accept-prompts",
	} {
		_ = viper.BindPFlag(name, cmd.PersistentFlags().Lookup(name))
	}
	viper.SetEnvPrefix("DBEX")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// ConnectionString resolves the target DSN: an explicit
// --connection-string wins; otherwise --connection-varname names an
// environment variable to read it from (spec §6: "-cv|--connection-varname").
func ConnectionString() string {
	if cs := viper.GetString("connection-string"); cs != "" {
		return cs
	}
	if varName := viper.GetString("connection-varname"); varName != "" {
		return os.Getenv(varName)
	}
	return ""
}

func Dialect() string { return viper.GetString("dialect") }

func SchemaOrder() []string { return viper.GetStringSlice("schema-order") }

func Output() string { return viper.GetString("output") }

// Assemblies returns the probed script-directory list, trimmed to the
// first entry when --entry-assembly-only is set (spec §6's
// `-eo|--entry-assembly-only`, generalizing ".NET assembly" to "script
// directory" for a filesystem-sourced CLI).
func Assemblies() []string {
	dirs := viper.GetStringSlice("assembly")
	if viper.GetBool("entry-assembly-only") && len(dirs) > 1 {
		return dirs[:1]
	}
	return dirs
}

func Params() map[string]string { return viper.GetStringMapString("param") }

func AcceptPrompts() bool { return viper.GetBool("accept-prompts") }
