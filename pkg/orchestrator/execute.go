// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"fmt"
	"io"

	"github.com/dbex-project/dbex/pkg/dbexerr"
	"github.com/dbex-project/dbex/pkg/source"
)

// ExecuteSQL runs each statement directly against the target,
// outside the journal and the fixed phase order: the CLI's
// `Execute <sql>...` admin escape hatch (spec §1/§6). Each argument is
// substituted for {{param}} placeholders independently and may itself
// contain multiple dialect-appropriate batches.
func (o *Orchestrator) ExecuteSQL(ctx context.Context, statements ...string) error {
	if err := o.ensureTarget(ctx); err != nil {
		return err
	}
	defer o.closeTarget()

	for _, stmt := range statements {
		if err := o.execBatches(ctx, o.Params.SubstituteSQL(stmt)); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteScript runs one named, already-discovered script outside the
// journal and the fixed phase order; the CLI's Script subcommands
// (list, show) do not call it. name is matched against every script
// Source.Discover finds, regardless of kind.
func (o *Orchestrator) ExecuteScript(ctx context.Context, name string) error {
	ref, err := o.findScript(name)
	if err != nil {
		return err
	}
	if err := o.ensureTarget(ctx); err != nil {
		return err
	}
	defer o.closeTarget()

	return o.executeScriptRef(ctx, ref)
}

// ShowScript returns a named script's substituted SQL without
// executing it, backing the CLI's "Script show <name>" subcommand.
func (o *Orchestrator) ShowScript(name string) (string, error) {
	ref, err := o.findScript(name)
	if err != nil {
		return "", err
	}
	f, err := ref.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return o.Params.SubstituteSQL(string(raw)), nil
}

// ListScripts returns every discovered script, for the CLI's
// "Script list" subcommand.
func (o *Orchestrator) ListScripts() ([]source.ScriptRef, error) {
	return o.Source.Discover()
}

func (o *Orchestrator) findScript(name string) (source.ScriptRef, error) {
	refs, err := o.Source.Discover()
	if err != nil {
		return source.ScriptRef{}, err
	}
	for _, ref := range refs {
		if ref.Name == name {
			return ref, nil
		}
	}
	return source.ScriptRef{}, fmt.Errorf("%w: %q", dbexerr.ErrResourceNotFound, name)
}
