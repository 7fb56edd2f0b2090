// SPDX-License-Identifier: Apache-2.0

// Package reconcile implements the schema-object reconciler
// (component C5, spec §4.5): parsing a Schema script's CREATE head,
// classifying its object type against the dialect's supported list,
// and ordering objects for create (dependency-precedence ascending)
// and drop (descending, the reverse).
package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dbex-project/dbex/pkg/dbexerr"
	"github.com/dbex-project/dbex/pkg/dialect"
	"github.com/dbex-project/dbex/pkg/source"
	"github.com/dbex-project/dbex/pkg/sqlsplit"
)

// Object is one Schema script resolved to a concrete CREATE target.
type Object struct {
	Type   dialect.ObjectType
	Schema string
	Name   string
	Ref    source.ScriptRef
}

// QualifiedName joins Schema and Name with a dot.
func (o *Object) QualifiedName() string {
	if o.Schema == "" {
		return o.Name
	}
	return o.Schema + "." + o.Name
}

// ParseHead tokenizes content's leading CREATE clause and resolves it
// against dia's supported object types.
func ParseHead(ref source.ScriptRef, content string, dia dialect.Dialect) (*Object, error) {
	tokens, err := sqlsplit.ScanCreateHead(content)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 || !strings.EqualFold(tokens[0].Text, "CREATE") {
		return nil, fmt.Errorf("%w: %s", dbexerr.ErrNotACreateStatement, ref.Name)
	}

	idx := 1
	if idx < len(tokens) && strings.EqualFold(tokens[idx].Text, "OR") {
		idx++ // "OR"
		if idx < len(tokens) {
			idx++ // "REPLACE" or "ALTER"
		}
	}
	if idx >= len(tokens) {
		return nil, fmt.Errorf("%w: %s", dbexerr.ErrNotACreateStatement, ref.Name)
	}

	keyword := strings.ToUpper(tokens[idx].Text)
	idx++

	var objType *dialect.ObjectType
	for _, ot := range dia.CreateObjectTypes() {
		if ot.Keyword == keyword {
			t := ot
			objType = &t
			break
		}
	}
	if objType == nil {
		return nil, fmt.Errorf("%w: %q in %s", dbexerr.ErrUnsupportedObjectType, keyword, ref.Name)
	}

	var nameParts []string
	for idx < len(tokens) {
		if tokens[idx].Text == "." {
			idx++
			continue
		}
		nameParts = append(nameParts, tokens[idx].Text)
		idx++
	}
	if len(nameParts) == 0 {
		return nil, fmt.Errorf("%w: %s has no object name after %s", dbexerr.ErrNotACreateStatement, ref.Name, keyword)
	}

	schemaName := ref.Schema
	name := nameParts[0]
	if len(nameParts) >= 2 {
		schemaName, name = nameParts[0], nameParts[1]
	}
	if schemaName == "" {
		schemaName = dia.DefaultSchema()
	}

	return &Object{Type: *objType, Schema: schemaName, Name: name, Ref: ref}, nil
}

// OrderForCreate sorts objects ascending by schema precedence, then
// type precedence ordinal, then name, so CREATE statements never run
// before an object type or schema they can depend on (spec §4.5).
// schemaOrder is the CLI's explicit `-so/--schema-order` list; a
// schema absent from it sorts after every listed schema, in
// lexicographic order among themselves. defaultSchema always sorts
// first when it appears in schemaOrder's absence, per "the default
// schema is first when supported".
func OrderForCreate(objects []*Object, schemaOrder []string, defaultSchema string) []*Object {
	rank := schemaRank(schemaOrder, defaultSchema)

	out := append([]*Object(nil), objects...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i].Schema), rank(out[j].Schema)
		if ri != rj {
			return ri < rj
		}
		if out[i].Schema != out[j].Schema {
			return out[i].Schema < out[j].Schema
		}
		if out[i].Type.Ordinal != out[j].Type.Ordinal {
			return out[i].Type.Ordinal < out[j].Type.Ordinal
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// OrderForDrop is OrderForCreate reversed, so a dropped object's
// dependents (later-precedence types) are gone first.
func OrderForDrop(objects []*Object, schemaOrder []string, defaultSchema string) []*Object {
	created := OrderForCreate(objects, schemaOrder, defaultSchema)
	out := make([]*Object, len(created))
	for i, o := range created {
		out[len(created)-1-i] = o
	}
	return out
}

// schemaRank returns a function ranking a schema name by its position
// in explicit (falling back to defaultSchema-first), with every
// unlisted schema ranked after all listed ones.
func schemaRank(explicit []string, defaultSchema string) func(string) int {
	order := explicit
	if len(order) == 0 && defaultSchema != "" {
		order = []string{defaultSchema}
	}
	pos := make(map[string]int, len(order))
	for i, s := range order {
		pos[s] = i
	}
	return func(schema string) int {
		if r, ok := pos[schema]; ok {
			return r
		}
		return len(order)
	}
}

// RenderDrop renders a conditional DROP statement for o.
func RenderDrop(o *Object, dia dialect.Dialect) string {
	return fmt.Sprintf("DROP %s IF EXISTS %s%s;", o.Type.Keyword, dia.QuoteQualified(o.Schema, o.Name), o.Type.DropSuffix)
}
