// SPDX-License-Identifier: Apache-2.0

// Package logging provides the leveled logger threaded explicitly
// through the orchestrator and its collaborators. There is no package
// global: every caller receives its logger from the session that
// constructed it, per the "global state" design note.
package logging

import "github.com/pterm/pterm"

// Logger is the minimal leveled interface DbEx collaborators log
// through.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type ptermLogger struct {
	logger pterm.Logger
}

// NewPtermLogger returns a Logger backed by pterm's structured logger,
// used by the CLI for human-facing output.
func NewPtermLogger() Logger {
	return &ptermLogger{logger: pterm.DefaultLogger}
}

func (l *ptermLogger) Debug(msg string, kv ...any) { l.logger.Debug(msg, l.logger.Args(kv...)) }
func (l *ptermLogger) Info(msg string, kv ...any)  { l.logger.Info(msg, l.logger.Args(kv...)) }
func (l *ptermLogger) Warn(msg string, kv ...any)  { l.logger.Warn(msg, l.logger.Args(kv...)) }
func (l *ptermLogger) Error(msg string, kv ...any) { l.logger.Error(msg, l.logger.Args(kv...)) }

type noopLogger struct{}

// NewNoopLogger returns a Logger that discards everything, used by
// tests and library callers that don't want terminal output.
func NewNoopLogger() Logger { return &noopLogger{} }

func (*noopLogger) Debug(string, ...any) {}
func (*noopLogger) Info(string, ...any)  {}
func (*noopLogger) Warn(string, ...any)  {}
func (*noopLogger) Error(string, ...any) {}
