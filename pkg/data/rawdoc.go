// SPDX-License-Identifier: Apache-2.0

package data

import (
	"fmt"
	"strings"

	"github.com/dbex-project/dbex/pkg/dbexerr"
)

// RawRow is one decoded row, or nested object, before any
// schema-aware interpretation: ordered key/value pairs exactly as
// they appeared in the source file. A value is a scalar, a *RawRow
// (a nested object — always a structural error when it ends up
// attached to a column, spec §4.4 step 3), or []*RawRow (an array,
// meaning either this table's own row list or, when found inside a
// row, a nested child table).
type RawRow struct {
	Keys []string
	Vals map[string]any
}

// set appends key/val, rejecting a key repeated within the same
// mapping (spec §4.4: "a repeated key within one row is a structural
// error").
func (r *RawRow) set(key string, val any) error {
	if r.Vals == nil {
		r.Vals = make(map[string]any)
	}
	if _, exists := r.Vals[key]; exists {
		return fmt.Errorf("%w: duplicate column %q in row", dbexerr.ErrDuplicateColumn, key)
	}
	r.Keys = append(r.Keys, key)
	r.Vals[key] = val
	return nil
}

// setDefault sets key only if it is not already present, used to
// cascade a parent row's primary key into a child row "by convention"
// (spec §4.4 step 3) without overriding a value the child row already
// specifies itself.
func (r *RawRow) setDefault(key string, val any) {
	if r.Vals == nil {
		r.Vals = make(map[string]any)
	}
	if _, exists := r.Vals[key]; exists {
		return
	}
	r.Keys = append(r.Keys, key)
	r.Vals[key] = val
}

// RawTable is one `<prefix><TableName>: [ <row>... ]` entry from a
// schema section of a data file (spec §4.4), still unresolved against
// any TableSchema.
type RawTable struct {
	Schema        string
	Name          string
	IsMerge       bool
	HasGenerateID bool
	Rows          []*RawRow
	SourceFile    string
}

// DataConfig is schema key "*"'s table-agnostic carrier (spec §4.4):
// pre/post SQL that runs once per file, outside any single table's
// emission.
type DataConfig struct {
	PreConditionSQL string
	PreSQL          string
	PostSQL         string
	SourceFile      string
}

// ParsedFile is one data file's full decode: every table it declares,
// plus an optional "*"-schema DataConfig.
type ParsedFile struct {
	Tables []*RawTable
	Config *DataConfig
}

// parseTableKey splits a schema-section entry's key into its `$`
// (merge) / `^` (generate-identifier) prefix flags and bare table
// name. Combined order is fixed by spec §4.4: "$^Name".
func parseTableKey(key string) (isMerge, hasGenerateID bool, name string) {
	rest := key
	if after, ok := strings.CutPrefix(rest, "$"); ok {
		isMerge = true
		rest = after
	}
	if after, ok := strings.CutPrefix(rest, "^"); ok {
		hasGenerateID = true
		rest = after
	}
	return isMerge, hasGenerateID, rest
}

const (
	configFieldPreCondition = "preConditionSql"
	configFieldPreSQL       = "preSql"
	configFieldPostSQL      = "postSql"
)
