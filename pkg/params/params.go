// SPDX-License-Identifier: Apache-2.0

// Package params implements the session Parameters map (spec §3) and
// the two substitution mechanisms that read from it: SQL's
// {{paramName}} (spec §4.7/§6) and data scalars' ^(expr) (spec §4.4).
package params

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dbex-project/dbex/internal/extfn"
	"github.com/dbex-project/dbex/pkg/dbexerr"
)

// Well-known parameter keys (spec §3).
const (
	DatabaseName = "DatabaseName"
	JournalSchema = "JournalSchema"
	JournalTable  = "JournalTable"
	UserName      = "UserName"
	DateTimeNow   = "DateTimeNow"
)

// Parameters is the session's read-only-after-entry string→value map.
// User overrides (CLI -p/--param) win over defaults populated at
// session start (spec §3: "user overrides win over defaults").
type Parameters struct {
	values map[string]string
	now    time.Time
}

// New constructs Parameters from defaults, then applies overrides on
// top, and stamps DateTimeNow/UserName if not already present. now is
// threaded in explicitly (never time.Now() read deep in the stack)
// so a session has one consistent notion of "now".
func New(defaults, overrides map[string]string, now time.Time, userName string) *Parameters {
	p := &Parameters{values: make(map[string]string), now: now}
	for k, v := range defaults {
		p.values[k] = v
	}
	for k, v := range overrides {
		p.values[k] = v
	}
	if _, ok := p.values[UserName]; !ok {
		p.values[UserName] = userName
	}
	if _, ok := p.values[DateTimeNow]; !ok {
		p.values[DateTimeNow] = now.UTC().Format(time.RFC3339)
	}
	return p
}

// Get returns a parameter's stringified value and whether it was set.
func (p *Parameters) Get(name string) (string, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Now returns the session's fixed notion of "now".
func (p *Parameters) Now() time.Time { return p.now }

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// SubstituteSQL replaces every {{paramName}} in script with the
// stringified parameter value. An unknown placeholder is preserved
// verbatim (spec §4.7: "Unknown placeholders are preserved verbatim").
func (p *Parameters) SubstituteSQL(script string) string {
	return placeholderPattern.ReplaceAllStringFunc(script, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := p.values[name]; ok {
			return v
		}
		return match
	})
}

// runtimeParamPattern matches a ^(expr) data-scalar escape; expr may
// contain dots, parentheses, commas, and spaces (a dotted member path
// with an optional trailing assembly/module qualifier, per spec §4.4).
var runtimeParamPattern = regexp.MustCompile(`^\^\((.*)\)$`)

// IsRuntimeParam reports whether s is a ^(expr) escape.
func IsRuntimeParam(s string) (expr string, ok bool) {
	m := runtimeParamPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// EvaluateRuntimeParam resolves a ^(expr) escape per spec §4.4's
// order: well-known names, then the runtime-parameter map, then the
// extension-function registry (replacing the source material's
// reflective namespace walk, per §9).
func (p *Parameters) EvaluateRuntimeParam(expr string, registry *extfn.Registry) (any, error) {
	switch expr {
	case UserName:
		return p.values[UserName], nil
	case DateTimeNow:
		return p.now.UTC(), nil
	}

	if v, ok := p.values[expr]; ok {
		return v, nil
	}

	if registry != nil && registry.Has(expr) {
		return registry.Resolve(expr)
	}

	return nil, fmt.Errorf("%w: %q", dbexerr.ErrParameterUnresolved, expr)
}
