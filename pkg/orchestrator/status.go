// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"sort"

	"github.com/dbex-project/dbex/pkg/journal"
	"github.com/dbex-project/dbex/pkg/source"
)

// KindStatus reports one script kind's discovered/journalled counts.
type KindStatus struct {
	Kind       string
	Discovered int
	Journalled int
}

// Status summarizes the target's migration state (SUPPLEMENTED
// FEATURES #2: grounded on the teacher's cmd/status.go / pkg/roll's
// status reporting, generalized from one JSONB ledger entry per
// migration to per-kind discovered/journalled counts against the flat
// journal of spec §4.6). Its only write to the target is creating the
// journal table when it does not exist yet.
type Status struct {
	Kinds                []KindStatus
	DestructiveConfirmed bool
}

func (o *Orchestrator) Status(ctx context.Context) (*Status, error) {
	refs, err := o.Source.Discover()
	if err != nil {
		return nil, err
	}

	if err := o.ensureTarget(ctx); err != nil {
		return nil, err
	}
	defer o.closeTarget()

	j := journal.New(o.target, o.Dialect, o.JournalSchema, o.JournalTable)
	if err := j.EnsureExists(ctx); err != nil {
		return nil, err
	}
	executed, err := j.GetExecutedScripts(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[source.Kind]*KindStatus)
	for _, ref := range refs {
		ks, ok := counts[ref.Kind]
		if !ok {
			ks = &KindStatus{Kind: ref.Kind.String()}
			counts[ref.Kind] = ks
		}
		ks.Discovered++
		if executed[ref.Name] {
			ks.Journalled++
		}
	}

	out := &Status{DestructiveConfirmed: o.AcceptPrompts}
	for _, ks := range counts {
		out.Kinds = append(out.Kinds, *ks)
	}
	sort.Slice(out.Kinds, func(i, k int) bool { return out.Kinds[i].Kind < out.Kinds[k].Kind })
	return out, nil
}
