// SPDX-License-Identifier: Apache-2.0

package data

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/dbex-project/dbex/pkg/dbexerr"
)

// parseYAML decodes a data file via yaml.Node so row/column order is
// preserved and duplicate keys are caught; yaml.v3's struct-tag
// decoding would silently keep the last duplicate, hiding an
// authoring mistake.
func parseYAML(content []byte) (*ParsedFile, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", dbexerr.ErrInvalidStructure, err)
	}
	if len(root.Content) == 0 {
		return &ParsedFile{}, nil
	}
	docNode := root.Content[0]
	if docNode.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top-level document must map schema names to table lists", dbexerr.ErrInvalidStructure)
	}

	pf := &ParsedFile{}
	for i := 0; i+1 < len(docNode.Content); i += 2 {
		schemaName := docNode.Content[i].Value
		entriesNode := docNode.Content[i+1]
		if entriesNode.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("%w: schema %q must list tables as a sequence", dbexerr.ErrInvalidStructure, schemaName)
		}

		for _, entryNode := range entriesNode.Content {
			if entryNode.Kind != yaml.MappingNode || len(entryNode.Content) != 2 {
				return nil, fmt.Errorf("%w: schema %q entry must be a single-key mapping", dbexerr.ErrInvalidStructure, schemaName)
			}
			key := entryNode.Content[0].Value
			valueNode := entryNode.Content[1]

			if schemaName == "*" {
				if err := applyConfigField(pf, key, valueNode); err != nil {
					return nil, err
				}
				continue
			}

			isMerge, hasGenerateID, name := parseTableKey(key)
			if valueNode.Kind != yaml.SequenceNode {
				return nil, fmt.Errorf("%w: table %q must list rows as a sequence", dbexerr.ErrInvalidStructure, name)
			}
			rt := &RawTable{Schema: schemaName, Name: name, IsMerge: isMerge, HasGenerateID: hasGenerateID}
			for _, rowNode := range valueNode.Content {
				row, err := decodeYAMLRow(rowNode)
				if err != nil {
					return nil, err
				}
				rt.Rows = append(rt.Rows, row)
			}
			pf.Tables = append(pf.Tables, rt)
		}
	}
	return pf, nil
}

func applyConfigField(pf *ParsedFile, key string, valueNode *yaml.Node) error {
	var v string
	if err := valueNode.Decode(&v); err != nil {
		return fmt.Errorf("%w: schema \"*\" field %q: %v", dbexerr.ErrInvalidStructure, key, err)
	}
	if pf.Config == nil {
		pf.Config = &DataConfig{}
	}
	switch key {
	case configFieldPreCondition:
		pf.Config.PreConditionSQL = v
	case configFieldPreSQL:
		pf.Config.PreSQL = v
	case configFieldPostSQL:
		pf.Config.PostSQL = v
	default:
		return fmt.Errorf("%w: schema \"*\" has no field %q", dbexerr.ErrInvalidStructure, key)
	}
	return nil
}

func decodeYAMLRow(rowNode *yaml.Node) (*RawRow, error) {
	if rowNode.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: row must be a mapping", dbexerr.ErrInvalidStructure)
	}
	row := &RawRow{}
	for i := 0; i+1 < len(rowNode.Content); i += 2 {
		name := rowNode.Content[i].Value
		v, err := decodeYAMLValue(rowNode.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("%w: decoding column %q: %v", dbexerr.ErrInvalidStructure, name, err)
		}
		if err := row.set(name, v); err != nil {
			return nil, err
		}
	}
	return row, nil
}

// decodeYAMLValue decodes one row value into a scalar, a *RawRow
// (nested object), or []*RawRow (nested child-table rows), leaving
// the schema-aware distinction between "column value" and "child
// table" to Loader.buildRow.
func decodeYAMLValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.MappingNode:
		return decodeYAMLRow(node)
	case yaml.SequenceNode:
		rows := make([]*RawRow, 0, len(node.Content))
		for _, elemNode := range node.Content {
			row, err := decodeYAMLRow(elemNode)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		return rows, nil
	default:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
