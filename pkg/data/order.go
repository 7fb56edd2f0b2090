// SPDX-License-Identifier: Apache-2.0

package data

import (
	"fmt"

	"github.com/dbex-project/dbex/pkg/dbexerr"
	"github.com/dbex-project/dbex/pkg/schema"
)

// OrderTables returns tables in dependency order (a foreign-key
// target before its referencer) via Kahn's algorithm, so emitted
// INSERTs never violate a constraint (spec §4.4.6). A dependency
// cycle is reported rather than broken arbitrarily.
func OrderTables(tables []*Table, model *schema.Model) ([]*Table, error) {
	index := make(map[string]int, len(tables))
	for i, t := range tables {
		index[t.QualifiedName()] = i
	}

	adj := make([][]int, len(tables))
	indegree := make([]int, len(tables))

	for i, t := range tables {
		ts, ok := model.Lookup(t.Schema, t.Name)
		if !ok {
			continue
		}
		deps := make(map[string]bool)
		for _, col := range ts.Columns {
			if col.ForeignTable == nil {
				continue
			}
			foreignSchema := ""
			if col.ForeignSchema != nil {
				foreignSchema = *col.ForeignSchema
			}
			key := qualify(foreignSchema, *col.ForeignTable)
			if key == t.QualifiedName() {
				continue // self-referencing FK does not order against itself
			}
			deps[key] = true
		}
		for dep := range deps {
			if j, ok := index[dep]; ok {
				adj[j] = append(adj[j], i)
				indegree[i]++
			}
		}
	}

	var queue []int
	for i := range tables {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	ordered := make([]*Table, 0, len(tables))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		ordered = append(ordered, tables[n])
		for _, m := range adj[n] {
			indegree[m]--
			if indegree[m] == 0 {
				queue = append(queue, m)
			}
		}
	}

	if len(ordered) != len(tables) {
		return nil, fmt.Errorf("%w: among the data tables being loaded", dbexerr.ErrDataDependencyCycle)
	}
	return ordered, nil
}

func qualify(schemaName, name string) string {
	if schemaName == "" {
		return name
	}
	return schemaName + "." + name
}
