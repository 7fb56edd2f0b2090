// SPDX-License-Identifier: Apache-2.0

package data

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dbex-project/dbex/pkg/dbexerr"
	"github.com/dbex-project/dbex/pkg/source"
)

// Parse reads ref's content against spec §4.4's fixed document shape
// (`<SchemaName|"*">: [ {<prefix><TableName>: [<row-or-scalar>...]} ]`)
// and returns every table it declares plus an optional "*"-schema
// DataConfig. This stage is purely syntactic: it does not resolve
// table/column names against a TableSchema (Loader.buildTable does
// that), so a document can be parsed before introspection runs.
func Parse(ref source.ScriptRef) (*ParsedFile, error) {
	f, err := ref.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", dbexerr.ErrInvalidStructure, ref.Name, err)
	}

	var pf *ParsedFile
	switch strings.ToLower(path.Ext(ref.Name)) {
	case ".yaml", ".yml":
		pf, err = parseYAML(content)
	case ".json":
		pf, err = parseJSON(content)
	default:
		return nil, fmt.Errorf("%w: unrecognized data file extension %q", dbexerr.ErrInvalidStructure, ref.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref.Name, err)
	}

	for _, t := range pf.Tables {
		t.SourceFile = ref.Name
	}
	if pf.Config != nil {
		pf.Config.SourceFile = ref.Name
	}
	return pf, nil
}
