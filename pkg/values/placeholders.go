// SPDX-License-Identifier: Apache-2.0

package values

import (
	"fmt"
	"strings"

	"github.com/sqlgateway/core/pkg/backend"
)

// CheckPlaceholders performs a lightweight, string-literal-aware scan of sql
// to confirm it uses the placeholder convention expected for style, and
// that the number of placeholders found equals paramCount when paramCount
// is non-negative. This is a bind-time argument sanity check, not a
// security control — statement legality is already decided by the AST-based
// analyzer in pkg/sqlanalyze; this only produces a friendlier error than a
// raw driver "wrong number of placeholders" failure.
func CheckPlaceholders(sql string, style backend.PlaceholderStyle, paramCount int) error {
	found := countPlaceholders(sql, style)
	wrong := countPlaceholders(sql, oppositeStyle(style))
	if wrong > 0 && found == 0 {
		return fmt.Errorf("values: statement uses %s-style placeholders, which this backend does not accept", styleName(oppositeStyle(style)))
	}
	if paramCount >= 0 && found != paramCount {
		return fmt.Errorf("values: statement references %d placeholder(s) but %d parameter(s) were supplied", found, paramCount)
	}
	return nil
}

func oppositeStyle(s backend.PlaceholderStyle) backend.PlaceholderStyle {
	if s == backend.PlaceholderDollar {
		return backend.PlaceholderQuestion
	}
	return backend.PlaceholderDollar
}

func styleName(s backend.PlaceholderStyle) string {
	if s == backend.PlaceholderDollar {
		return "$N"
	}
	return "?"
}

// countPlaceholders counts placeholder occurrences outside single-quoted
// string literals and "--"/"/* */" comments. $N placeholders are counted
// once per distinct N, matching how many bound args the statement expects.
func countPlaceholders(sql string, style backend.PlaceholderStyle) int {
	seen := map[string]bool{}
	count := 0
	inString := false
	inLineComment := false
	inBlockComment := false

	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if inLineComment {
			if r == '\n' {
				inLineComment = false
			}
			continue
		}
		if inBlockComment {
			if r == '*' && i+1 < len(runes) && runes[i+1] == '/' {
				inBlockComment = false
				i++
			}
			continue
		}
		if inString {
			if r == '\'' {
				if i+1 < len(runes) && runes[i+1] == '\'' {
					i++
					continue
				}
				inString = false
			}
			continue
		}

		switch {
		case r == '\'':
			inString = true
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			inLineComment = true
			i++
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			inBlockComment = true
			i++
		case style == backend.PlaceholderQuestion && r == '?':
			count++
		case style == backend.PlaceholderDollar && r == '$':
			j := i + 1
			for j < len(runes) && runes[j] >= '0' && runes[j] <= '9' {
				j++
			}
			if j > i+1 {
				tok := string(runes[i+1 : j])
				if !seen[tok] {
					seen[tok] = true
					count++
				}
				i = j - 1
			}
		}
	}
	return count
}

// StripComments removes "--" line comments and "/* */" block comments
// outside string literals. Nothing in this module calls it: classification
// does not need it, since the AST parsers already treat comments as
// insignificant.
func StripComments(sql string) string {
	var b strings.Builder
	inString := false
	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if inString {
			b.WriteRune(r)
			if r == '\'' {
				inString = false
			}
			continue
		}
		switch {
		case r == '\'':
			inString = true
			b.WriteRune(r)
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			if i < len(runes) {
				b.WriteRune('\n')
			}
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
