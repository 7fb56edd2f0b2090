// SPDX-License-Identifier: Apache-2.0

// Package orchestrator implements the migration orchestrator
// (component C7, spec §4.7): the fixed-order phase runner that wires
// together the script source, schema introspector, data loader,
// schema-object reconciler, and journal against one target database.
package orchestrator

// Command is a bitmask selecting which phases Run executes. The
// phases always run in the fixed order Drop, Create, Migrate, Schema,
// Reset, Data regardless of which bits are set (spec §4.7).
type Command uint8

const (
	CmdDrop Command = 1 << iota
	CmdCreate
	CmdMigrate
	CmdSchema
	CmdReset
	CmdData
)

// Aggregate command sets matching the CLI's named top-level verbs,
// each a bit-union of the base phases (SPEC_FULL.md's CLI section).
const (
	CmdDeploy         = CmdCreate | CmdMigrate | CmdSchema
	CmdDeployWithData = CmdDeploy | CmdData
	CmdAll            = CmdCreate | CmdMigrate | CmdSchema | CmdData
	CmdDropAndAll     = CmdDrop | CmdAll
	CmdResetAndAll    = CmdReset | CmdAll
	CmdResetAndData   = CmdReset | CmdData
)

// Has reports whether flag is set in c.
func (c Command) Has(flag Command) bool { return c&flag != 0 }

// destructive reports whether running c requires interactive
// confirmation (or --accept-prompts): Drop and Reset both discard
// data (spec §4.7 / §7 ErrDestructiveActionNotConfirmed).
func (c Command) destructive() bool { return c.Has(CmdDrop) || c.Has(CmdReset) }
