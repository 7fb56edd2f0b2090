// SPDX-License-Identifier: Apache-2.0

package data

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dbex-project/dbex/pkg/dbexerr"
)

// orderedObj preserves JSON object key order and rejects a repeated
// key, which encoding/json's map-based decoding would silently drop.
type orderedObj struct {
	keys []string
	vals map[string]any
}

func (o *orderedObj) set(k string, v any) error {
	if o.vals == nil {
		o.vals = make(map[string]any)
	}
	if _, exists := o.vals[k]; exists {
		return fmt.Errorf("%w: duplicate key %q", dbexerr.ErrDuplicateColumn, k)
	}
	o.keys = append(o.keys, k)
	o.vals[k] = v
	return nil
}

// parseJSON decodes a data file token-by-token against the same
// schema→table→rows shape as parseYAML (spec §4.4), so object key
// order and duplicate detection match the YAML parser's behavior.
func parseJSON(content []byte) (*ParsedFile, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	val, err := decodeJSONValue(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dbexerr.ErrInvalidStructure, err)
	}
	doc, ok := val.(*orderedObj)
	if !ok {
		return nil, fmt.Errorf("%w: top-level document must map schema names to table lists", dbexerr.ErrInvalidStructure)
	}

	pf := &ParsedFile{}
	for _, schemaName := range doc.keys {
		entriesVal, _ := doc.vals[schemaName]
		entries, ok := entriesVal.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: schema %q must list tables as an array", dbexerr.ErrInvalidStructure, schemaName)
		}

		for _, entryVal := range entries {
			entry, ok := entryVal.(*orderedObj)
			if !ok || len(entry.keys) != 1 {
				return nil, fmt.Errorf("%w: schema %q entry must be a single-key object", dbexerr.ErrInvalidStructure, schemaName)
			}
			key := entry.keys[0]
			value := entry.vals[key]

			if schemaName == "*" {
				s, ok := value.(string)
				if !ok {
					return nil, fmt.Errorf("%w: schema \"*\" field %q must be a string", dbexerr.ErrInvalidStructure, key)
				}
				if pf.Config == nil {
					pf.Config = &DataConfig{}
				}
				switch key {
				case configFieldPreCondition:
					pf.Config.PreConditionSQL = s
				case configFieldPreSQL:
					pf.Config.PreSQL = s
				case configFieldPostSQL:
					pf.Config.PostSQL = s
				default:
					return nil, fmt.Errorf("%w: schema \"*\" has no field %q", dbexerr.ErrInvalidStructure, key)
				}
				continue
			}

			isMerge, hasGenerateID, name := parseTableKey(key)
			rowVals, ok := value.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: table %q must list rows as an array", dbexerr.ErrInvalidStructure, name)
			}
			rt := &RawTable{Schema: schemaName, Name: name, IsMerge: isMerge, HasGenerateID: hasGenerateID}
			for _, rv := range rowVals {
				ro, ok := rv.(*orderedObj)
				if !ok {
					return nil, fmt.Errorf("%w: row must be an object", dbexerr.ErrInvalidStructure)
				}
				row, err := decodeJSONRow(ro)
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

func decodeJSONRow(obj *orderedObj) (*RawRow, error) {
	row := &RawRow{}
	for _, k := range obj.keys {
		v, err := decodeJSONRowValue(obj.vals[k])
		if err != nil {
			return nil, fmt.Errorf("%w: decoding column %q: %v", dbexerr.ErrInvalidStructure, k, err)
		}
		if err := row.set(k, v); err != nil {
			return nil, err
		}
	}
	return row, nil
}

// decodeJSONRowValue converts a generic decoded JSON value into a
// scalar, a *RawRow (nested object), or []*RawRow (nested child-table
// rows), mirroring decodeYAMLValue.
func decodeJSONRowValue(v any) (any, error) {
	switch t := v.(type) {
	case *orderedObj:
		return decodeJSONRow(t)
	case []any:
		rows := make([]*RawRow, 0, len(t))
		for _, elem := range t {
			ro, ok := elem.(*orderedObj)
			if !ok {
				return nil, fmt.Errorf("array element must be an object")
			}
			row, err := decodeJSONRow(ro)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		return rows, nil
	default:
		return v, nil
	}
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, isDelim := tok.(json.Delim)
	if !isDelim {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := &orderedObj{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("non-string object key")
			}
			val, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			if err := obj.set(key, val); err != nil {
				return nil, err
			}
		}
		if _, err := dec.Token(); err != nil { // consume '}'
			return nil, err
		}
		return obj, nil
	case '[':
		var arr []any
		for dec.More() {
			val, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil { // consume ']'
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}
