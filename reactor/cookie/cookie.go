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

// Package cookie parses the request-side Cookie header and renders
// response Set-Cookie headers.
package cookie

import (
	"strconv"
	"strings"
)

// Received is one name/value pair decoded off a request's Cookie header.
type Received struct {
	Name  string
	Value string
}

// ParseCookieHeader splits a Cookie header value into its name/value
// pairs. Semicolon-separated items are trimmed of leading spaces only;
// an item with no '=' is kept as a bare name with an empty value; an
// item whose name would be empty (a leading '=') is dropped entirely.
func ParseCookieHeader(header string) []Received {
	var out []Received

	for _, item := range strings.Split(header, ";") {
		begin := 0
		for begin < len(item) && item[begin] == ' ' {
			begin++
		}
		if begin >= len(item) {
			continue
		}
		item = item[begin:]

		if eq := strings.IndexByte(item, '='); eq >= 0 {
			if eq == 0 {
				continue
			}
			out = append(out, Received{Name: item[:eq], Value: item[eq+1:]})
		} else {
			out = append(out, Received{Name: item, Value: ""})
		}
	}

	return out
}

// Value returns the value of the first cookie matching name, and
// whether one was found. RFC 6265 §5.4 requires only the first
// same-named cookie be consulted.
func Value(received []Received, name string) (string, bool) {
	for _, c := range received {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// SameSite is the SameSite attribute of a response cookie.
type SameSite uint8

const (
	SameSiteDefault SameSite = iota
	SameSiteLax
	SameSiteStrict
	SameSiteNone
)

// SetCookie describes one outgoing Set-Cookie header.
type SetCookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	MaxAge   *int
	HTTPOnly bool
	Secure   bool
	SameSite SameSite
}

// RemoveCookie builds the conventional "delete this cookie" response:
// an empty value and Max-Age=0, matching the behavior browsers use to
// evict a stored cookie immediately.
func RemoveCookie(name string) SetCookie {
	age := 0
	return SetCookie{Name: name, Value: "", MaxAge: &age, HTTPOnly: true}
}

// String renders the Set-Cookie header value.
func (c SetCookie) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)

	if c.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(c.Path)
	}
	if c.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(c.Domain)
	}
	if c.MaxAge != nil {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(*c.MaxAge))
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	switch c.SameSite {
	case SameSiteLax:
		b.WriteString("; SameSite=Lax")
	case SameSiteStrict:
		b.WriteString("; SameSite=Strict")
	case SameSiteNone:
		b.WriteString("; SameSite=None")
	}

	return b.String()
}
