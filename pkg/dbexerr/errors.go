// SPDX-License-Identifier: Apache-2.0

// Package dbexerr defines the error taxonomy shared by every DbEx
// collaborator. Each sentinel corresponds to one row of the error
// table in the design document; callers should wrap a sentinel with
// fmt.Errorf("...: %w", ErrX) rather than returning it bare, so that
// context (script name, command index, driver message) travels with
// it.
package dbexerr

import "errors"

var (
	// ErrConnectionFailure indicates a driver-level failure opening or
	// pinging a connection. Connection-init failures are retried by
	// db.Open and surface as db.ErrConnectionInit, not as this value.
	ErrConnectionFailure = errors.New("dbex: connection failure")

	// ErrScriptSyntax indicates the tokenizer found an unterminated
	// string literal or block comment.
	ErrScriptSyntax = errors.New("dbex: script syntax error")

	// ErrNotACreateStatement indicates a Schema script's head token
	// stream does not begin with CREATE (optionally CREATE OR REPLACE
	// / CREATE OR ALTER).
	ErrNotACreateStatement = errors.New("dbex: script does not begin with a CREATE statement")

	// ErrUnsupportedObjectType indicates a Schema script's CREATE head
	// names an object type outside the dialect's supported list.
	ErrUnsupportedObjectType = errors.New("dbex: unsupported schema object type")

	// ErrDuplicateColumn indicates a data row assigns the same column
	// name twice.
	ErrDuplicateColumn = errors.New("dbex: duplicate column in data row")

	// ErrInvalidStructure indicates a data row contains a nested
	// object where only a scalar or child-table array is permitted.
	ErrInvalidStructure = errors.New("dbex: invalid data structure")

	// ErrTableNotFound indicates a data file references a table with
	// no corresponding introspected TableSchema.
	ErrTableNotFound = errors.New("dbex: table not found")

	// ErrParameterUnresolved indicates a ^(expr) runtime-parameter
	// reference could not be resolved against the well-known names,
	// the runtime-parameter map, or the extension-function registry.
	ErrParameterUnresolved = errors.New("dbex: runtime parameter unresolved")

	// ErrValueCoercion indicates a scalar could not be parsed into its
	// column's semantic type.
	ErrValueCoercion = errors.New("dbex: value coercion failed")

	// ErrDataDependencyCycle indicates the data tables' foreign-key
	// graph is not a DAG, so no emission order exists.
	ErrDataDependencyCycle = errors.New("dbex: data dependency cycle")

	// ErrDestructiveActionNotConfirmed indicates Drop or Reset was
	// requested without interactive confirmation or --accept-prompts.
	ErrDestructiveActionNotConfirmed = errors.New("dbex: destructive action not confirmed")

	// ErrIntrospectionError indicates a driver error while querying
	// information_schema or its engine-specific catalog extras.
	ErrIntrospectionError = errors.New("dbex: introspection error")

	// ErrResourceNotFound indicates a requested embedded/packaged
	// resource does not exist in any probed script source.
	ErrResourceNotFound = errors.New("dbex: resource not found")

	// ErrCancelled indicates the operation's context was cancelled
	// mid-phase; the in-flight script is not journalled.
	ErrCancelled = errors.New("dbex: cancelled")
)
