// SPDX-License-Identifier: Apache-2.0

// Package sqlsplit implements the SQL tokenizer/splitter (component
// C1): splitting a batch script into executable sub-commands on
// engine-specific separators, and scanning the head tokens of a
// CREATE statement for the schema-object reconciler. Neither
// operation understands full SQL grammar; both are rune scanners that
// track string/bracket/comment state so they don't split or tokenize
// inside quoted or commented text (spec §4.1).
package sqlsplit

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dbex-project/dbex/pkg/dbexerr"
)

// SplitBatches splits raw SQL text into executable sub-commands.
// goSeparator selects SQL Server's convention (a line whose trimmed
// content, case-insensitively, is exactly "GO") instead of the
// semicolon-based splitting MySQL and Postgres use.
func SplitBatches(sql string, goSeparator bool) ([]string, error) {
	if goSeparator {
		return splitOnGO(sql)
	}
	return splitOnSemicolon(sql)
}

func splitOnGO(sql string) ([]string, error) {
	if err := validateComments(sql); err != nil {
		return nil, err
	}

	var batches []string
	var current strings.Builder

	lines := strings.Split(sql, "\n")
	for _, line := range lines {
		if strings.EqualFold(strings.TrimSpace(line), "GO") {
			if s := strings.TrimSpace(current.String()); s != "" {
				batches = append(batches, s)
			}
			current.Reset()
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		batches = append(batches, s)
	}
	return batches, nil
}

func splitOnSemicolon(sql string) ([]string, error) {
	var batches []string
	var current strings.Builder

	runes := []rune(sql)
	i := 0
	for i < len(runes) {
		r := runes[i]

		switch {
		case r == '\'':
			end, err := scanQuoted(runes, i, '\'')
			if err != nil {
				return nil, err
			}
			current.WriteString(string(runes[i:end]))
			i = end
			continue
		case r == '"':
			end, err := scanQuoted(runes, i, '"')
			if err != nil {
				return nil, err
			}
			current.WriteString(string(runes[i:end]))
			i = end
			continue
		case r == '`':
			end, err := scanQuoted(runes, i, '`')
			if err != nil {
				return nil, err
			}
			current.WriteString(string(runes[i:end]))
			i = end
			continue
		case r == '[':
			end := scanBracketed(runes, i)
			current.WriteString(string(runes[i:end]))
			i = end
			continue
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			end := scanLineComment(runes, i)
			current.WriteString(string(runes[i:end]))
			i = end
			continue
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			end, err := scanBlockComment(runes, i)
			if err != nil {
				return nil, err
			}
			current.WriteString(string(runes[i:end]))
			i = end
			continue
		case r == ';':
			if s := strings.TrimSpace(current.String()); s != "" {
				batches = append(batches, s)
			}
			current.Reset()
			i++
			continue
		default:
			current.WriteRune(r)
			i++
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		batches = append(batches, s)
	}
	return batches, nil
}

// validateComments walks the text purely to surface unterminated
// string/comment errors for the GO-separated path, which otherwise
// never inspects rune-level quoting.
func validateComments(sql string) error {
	runes := []rune(sql)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case r == '\'':
			end, err := scanQuoted(runes, i, '\'')
			if err != nil {
				return err
			}
			i = end
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			i = scanLineComment(runes, i)
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			end, err := scanBlockComment(runes, i)
			if err != nil {
				return err
			}
			i = end
		default:
			i++
		}
	}
	return nil
}

// scanQuoted returns the index just past a quoted literal starting at
// start (runes[start] == quote), honoring doubled-quote escaping.
func scanQuoted(runes []rune, start int, quote rune) (int, error) {
	i := start + 1
	for i < len(runes) {
		if runes[i] == quote {
			if i+1 < len(runes) && runes[i+1] == quote {
				i += 2
				continue
			}
			return i + 1, nil
		}
		i++
	}
	return 0, fmt.Errorf("%w: unterminated string literal starting at offset %d", dbexerr.ErrScriptSyntax, start)
}

// scanBracketed returns the index just past a SQL Server bracketed
// identifier starting at start (runes[start] == '['), honoring
// doubled ']]' escaping. An unterminated bracket is not treated as a
// syntax error by SQL Server itself in all contexts, so this scanner
// simply consumes to end of input rather than failing, matching
// spec §4.1's silence on bracket termination (only string/comment
// termination is called out as a required failure).
func scanBracketed(runes []rune, start int) int {
	i := start + 1
	for i < len(runes) {
		if runes[i] == ']' {
			if i+1 < len(runes) && runes[i+1] == ']' {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(runes)
}

func scanLineComment(runes []rune, start int) int {
	i := start
	for i < len(runes) && runes[i] != '\n' {
		i++
	}
	return i
}

func scanBlockComment(runes []rune, start int) (int, error) {
	i := start + 2
	for i+1 < len(runes) {
		if runes[i] == '*' && runes[i+1] == '/' {
			return i + 2, nil
		}
		i++
	}
	return 0, fmt.Errorf("%w: unterminated block comment starting at offset %d", dbexerr.ErrScriptSyntax, start)
}

// Token is one lexeme from ScanCreateHead: an identifier/keyword, a
// dotted qualified name segment, or punctuation.
type Token struct {
	Text string
}

// ScanCreateHead tokenizes the leading clause of a Schema script for
// the reconciler (spec §4.5): CREATE [OR REPLACE|OR ALTER] <TYPE>
// <schema>.<name>. It stops once it has produced enough tokens to
// identify the head (at most 7: CREATE, [OR, REPLACE|ALTER,] TYPE,
// schema, ".", NAME) rather than tokenizing the whole script.
func ScanCreateHead(sql string) ([]Token, error) {
	runes := []rune(sql)
	var tokens []Token
	i := 0

	for i < len(runes) && len(tokens) < 7 {
		r := runes[i]

		switch {
		case unicode.IsSpace(r):
			i++
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			i = scanLineComment(runes, i)
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			end, err := scanBlockComment(runes, i)
			if err != nil {
				return nil, err
			}
			i = end
		case r == '"' || r == '`':
			end, err := scanQuoted(runes, i, r)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Text: string(runes[i+1 : end-1])})
			i = end
		case r == '[':
			end := scanBracketed(runes, i)
			inner := string(runes[i+1 : end-1])
			tokens = append(tokens, Token{Text: strings.ReplaceAll(inner, "]]", "]")})
			i = end
		case r == '.':
			tokens = append(tokens, Token{Text: "."})
			i++
		case isIdentRune(r):
			start := i
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			tokens = append(tokens, Token{Text: string(runes[start:i])})
		default:
			i++
		}
	}

	return tokens, nil
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' || r == '#'
}
