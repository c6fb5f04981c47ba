/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package query parses a raw query string (or an
// application/x-www-form-urlencoded request body, which shares the same
// grammar) into an ordered list of name/value pairs.
package query

import (
	"net/url"
	"strings"
)

// NameValue is one "name=value" token from a query string or urlencoded
// body. Name is never empty; Value may be.
type NameValue struct {
	Name  string
	Value string
}

// Query is the parsed, ordered list of name/value pairs from a single
// query string or form body.
type Query struct {
	Parts []NameValue
}

// Parse splits raw on '&' and ';', trims no whitespace (query tokens
// carry none by grammar), drops empty tokens, and splits each surviving
// token on its first '=': a token with no '=' yields a name with an
// empty value; a token whose '=' is its very first byte is dropped
// entirely, matching the reference parser's "first '=' must follow at
// least one name byte" rule.
func Parse(raw []byte) *Query {
	q := &Query{}

	start := 0
	for i := 0; i <= len(raw); i++ {
		if i < len(raw) && raw[i] != '&' && raw[i] != ';' {
			continue
		}
		if i > start {
			tok := raw[start:i]
			if nv, ok := splitToken(tok); ok {
				q.Parts = append(q.Parts, nv)
			}
		}
		start = i + 1
	}

	return q
}

func splitToken(tok []byte) (NameValue, bool) {
	for i, b := range tok {
		if b == '=' {
			if i == 0 {
				return NameValue{}, false
			}
			return NameValue{Name: string(tok[:i]), Value: string(tok[i+1:])}, true
		}
	}
	return NameValue{Name: string(tok)}, true
}

// Value returns the percent-decoded value of the first pair named name,
// and whether one was found. A value that fails percent-decoding (e.g.
// invalid UTF-8 once decoded) is skipped, matching the reference
// parser's "undecodable value is as good as absent" behavior.
func (q *Query) Value(name string) (string, bool) {
	for _, p := range q.Parts {
		if p.Name != name {
			continue
		}
		if decoded, err := url.QueryUnescape(literalPercentOnly(p.Value)); err == nil {
			return decoded, true
		}
	}
	return "", false
}

// ValueAt returns the percent-decoded value of the pair at index,
// additionally folding literal '+' bytes to spaces after decoding — the
// reference parser applies this substitution only to positional access,
// not to Value, and this mirrors that asymmetry rather than inventing a
// uniform rule.
func (q *Query) ValueAt(index int) (string, bool) {
	if index < 0 || index >= len(q.Parts) {
		return "", false
	}
	v := q.Parts[index].Value
	decoded, err := url.QueryUnescape(literalPercentOnly(v))
	if err != nil {
		return "", false
	}
	return strings.ReplaceAll(decoded, "+", " "), true
}

// literalPercentOnly rewrites '+' bytes as their literal percent-escape
// so url.QueryUnescape (which treats '+' as a space, a form-encoding
// convention the reference query parser does not apply by default)
// decodes only %XX escapes, leaving '+' untouched for the caller to
// handle explicitly.
func literalPercentOnly(s string) string {
	if !strings.ContainsRune(s, '+') {
		return s
	}
	return strings.ReplaceAll(s, "+", "%2B")
}
