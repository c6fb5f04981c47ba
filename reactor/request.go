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

package reactor

import (
	"github.com/sabouaram/reactor/reactor/cookie"
	"github.com/sabouaram/reactor/reactor/query"
)

// Version is the HTTP request-line protocol version.
type Version uint8

const (
	VersionUnknown Version = iota
	Version1_0
	Version1_1
)

// String renders the version the way it appears on the wire.
func (v Version) String() string {
	switch v {
	case Version1_0:
		return "HTTP/1.0"
	case Version1_1:
		return "HTTP/1.1"
	default:
		return ""
	}
}

// Disposition is the derived meaning of a request's Connection header.
type Disposition uint8

const (
	DispositionAbsent Disposition = iota
	DispositionKeepAlive
	DispositionClose
)

// Header is one ordered header line: name preserved verbatim, value
// trimmed of at most one leading space.
type Header struct {
	Name  string
	Value string
}

// Request is a parsed HTTP request head plus a back-handle to the
// session it arrived on. Method/path/query point into the head buffer
// captured by the parser; Path is the percent-decoded path string.
type Request struct {
	Method        string
	RawPath       []byte
	Path          string
	RawQuery      []byte
	Version       Version
	Headers       []Header
	ContentLength *uint64
	Connection    Disposition

	Session *Session

	// spool is non-nil only when the request arrived with a body and no
	// OnBodyChunk callback was registered; its bytes are written there
	// instead of being dropped. See SpooledBodyPath.
	spool *bodySpool
}

// SpooledBodyPath returns the path of the temp file the session wrote
// this request's body to, and true, when no OnBodyChunk callback was
// registered at the time the request arrived. It returns "", false for
// every other request, including ones with no body at all. The caller
// owns the file once the body has completed; the session removes it only
// when the connection closes before the whole body has arrived.
func (r *Request) SpooledBodyPath() (string, bool) {
	if r.spool == nil {
		return "", false
	}
	return r.spool.path, true
}

// Header returns the value of the first header matching name
// case-insensitively, and whether one was found. RFC 6265 §5.4 requires
// only the first Cookie header be consulted; callers needing that
// specific behavior should call this method, not iterate Headers
// themselves.
func (r *Request) Header(name string) (string, bool) {
	for _, h := range r.Headers {
		if equalFoldASCII(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Query parses RawQuery into an ordered list of name/value pairs.
// Called lazily; the parser itself never builds this structure since
// most requests never consult it.
func (r *Request) Query() *query.Query {
	return query.Parse(r.RawQuery)
}

// Cookies parses the first Cookie header into its name/value pairs,
// per RFC 6265 §5.4: a request carrying more than one Cookie header
// (malformed, but seen in practice behind some proxies) only has its
// first instance consulted.
func (r *Request) Cookies() []cookie.Received {
	v, ok := r.Header("Cookie")
	if !ok {
		return nil
	}
	return cookie.ParseCookieHeader(v)
}

// Cookie returns the value of the first cookie named name off the
// first Cookie header, and whether one was found.
func (r *Request) Cookie(name string) (string, bool) {
	return cookie.Value(r.Cookies(), name)
}

// HasPostForm reports whether this request declares a Content-Length
// and a Content-Type of exactly "application/x-www-form-urlencoded". It
// does not check the method; a caller wanting POST/PUT/PATCH-only
// semantics checks Method itself.
func (r *Request) HasPostForm() bool {
	if r.ContentLength == nil {
		return false
	}
	ct, ok := r.Header("Content-Type")
	return ok && ct == "application/x-www-form-urlencoded"
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
