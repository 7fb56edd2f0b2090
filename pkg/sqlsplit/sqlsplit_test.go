// SPDX-License-Identifier: Apache-2.0

package sqlsplit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbex-project/dbex/pkg/dbexerr"
)

func TestSplitBatches_Semicolon(t *testing.T) {
	got, err := SplitBatches("CREATE TABLE t(id int);\nINSERT INTO t VALUES (1);", false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "CREATE TABLE t(id int)", got[0])
	assert.Equal(t, "INSERT INTO t VALUES (1)", got[1])
}

func TestSplitBatches_SemicolonInsideString(t *testing.T) {
	got, err := SplitBatches(`INSERT INTO t VALUES ('a;b'); SELECT 1;`, false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "'a;b'")
}

func TestSplitBatches_SemicolonInsideLineComment(t *testing.T) {
	got, err := SplitBatches("SELECT 1; -- comment; with semicolon\nSELECT 2;", false)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestSplitBatches_UnterminatedString(t *testing.T) {
	_, err := SplitBatches("SELECT 'unterminated", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, dbexerr.ErrScriptSyntax)
}

func TestSplitBatches_UnterminatedBlockComment(t *testing.T) {
	_, err := SplitBatches("SELECT 1; /* oops", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, dbexerr.ErrScriptSyntax)
}

func TestSplitBatches_GO(t *testing.T) {
	sql := "CREATE TABLE t(id int)\nGO\nINSERT INTO t VALUES (1)\nGO\n"
	got, err := SplitBatches(sql, true)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "CREATE TABLE t(id int)", got[0])
}

func TestScanCreateHead(t *testing.T) {
	toks, err := ScanCreateHead(`CREATE OR REPLACE VIEW "dbo"."ActiveUsers" AS SELECT 1`)
	require.NoError(t, err)
	texts := make([]string, len(toks))
	for i, tok := range toks {
		texts[i] = tok.Text
	}
	assert.Equal(t, []string{"CREATE", "OR", "REPLACE", "VIEW", "dbo", ".", "ActiveUsers"}, texts)
}

func TestScanCreateHead_Bracketed(t *testing.T) {
	toks, err := ScanCreateHead(`CREATE FUNCTION [dbo].[Foo]()`)
	require.NoError(t, err)
	texts := make([]string, 0, len(toks))
	for _, tok := range toks {
		texts = append(texts, tok.Text)
	}
	assert.Equal(t, []string{"CREATE", "FUNCTION", "dbo", ".", "Foo"}, texts)
}
