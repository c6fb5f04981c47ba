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

import "net/url"

// ParseErrorKind enumerates the ways a head can fail to parse. All are
// fatal to the connection per the error-handling taxonomy.
type ParseErrorKind uint8

const (
	ParseErrorNone ParseErrorKind = iota
	ParseErrorRequestLineMalformed
	ParseErrorMethodLenLimit
	ParseErrorPathLenLimit
	ParseErrorQueryLenLimit
	ParseErrorWrongVersionLen
	ParseErrorUnsupportedProtocol
	ParseErrorHeaderNameLenLimit
	ParseErrorHeaderValueLenLimit
	ParseErrorHeadersCountLimit
	ParseErrorEmptyHeaderName
	ParseErrorMissingHeaderColon
	ParseErrorContentLengthParse
)

// OutcomeKind is the result tag of a single headerParser.push call.
type OutcomeKind uint8

const (
	OutcomeNeedMore OutcomeKind = iota
	OutcomeComplete
	OutcomeError
)

// Outcome is what headerParser.push returns: a completed request plus
// surplus bytes, a request for more input, or a fatal parse error.
type Outcome struct {
	Kind    OutcomeKind
	Request *Request
	Surplus []byte
	Err     ParseErrorKind
}

type parsePhase uint8

const (
	phaseMethod parsePhase = iota
	phasePath
	phaseQuery
	phaseVersion
	phaseHeader
)

// headerParser is a single-state-machine, restartable HTTP/1.x request
// head parser. One instance is owned per session and reused across
// pipelined requests on the same connection.
type headerParser struct {
	phase parsePhase
	buf   []byte

	methodEnd  int
	pathStart  int
	pathEnd    int
	queryStart int
	queryEnd   int
	versStart  int

	lineStart int
	headers   []Header

	contentLength *uint64
	connection    Disposition
}

func newHeaderParser() *headerParser {
	return &headerParser{queryStart: -1, queryEnd: -1}
}

func (p *headerParser) reset() {
	*p = headerParser{queryStart: -1, queryEnd: -1}
}

// indexCRLF returns the index of the first '\r' in buf[from:] immediately
// followed by '\n', or -1 if the sequence is not (yet) present.
func indexCRLF(buf []byte, from int) int {
	for i := from; i+1 < len(buf); i++ {
		if buf[i] == '\r' && buf[i+1] == '\n' {
			return i
		}
	}
	return -1
}

// push feeds chunk into the parser and reports the result of the scan.
// It never rescans bytes that a previous call already classified.
func (p *headerParser) push(chunk []byte, lim Limits) Outcome {
	p.buf = append(p.buf, chunk...)

	for {
		switch p.phase {
		case phaseMethod:
			if o, done := p.scanMethod(lim); done {
				return o
			}
		case phasePath:
			if o, done := p.scanPath(lim); done {
				return o
			}
		case phaseQuery:
			if o, done := p.scanQuery(lim); done {
				return o
			}
		case phaseVersion:
			if o, done := p.scanVersion(lim); done {
				return o
			}
		case phaseHeader:
			if o, done := p.scanHeaderLine(lim); done {
				return o
			}
		}
	}
}

func errOutcome(k ParseErrorKind) Outcome {
	return Outcome{Kind: OutcomeError, Err: k}
}

func needMore() (Outcome, bool) {
	return Outcome{Kind: OutcomeNeedMore}, true
}

func (p *headerParser) scanMethod(lim Limits) (Outcome, bool) {
	for i := 0; i < len(p.buf); i++ {
		switch p.buf[i] {
		case ' ':
			if i > int(lim.MethodLen) {
				return errOutcome(ParseErrorMethodLenLimit), true
			}
			p.methodEnd = i
			p.pathStart = i + 1
			p.phase = phasePath
			return Outcome{}, false
		case '\r', '\n':
			return errOutcome(ParseErrorRequestLineMalformed), true
		}
	}
	if len(p.buf) > int(lim.MethodLen) {
		return errOutcome(ParseErrorMethodLenLimit), true
	}
	return needMore()
}

func (p *headerParser) scanPath(lim Limits) (Outcome, bool) {
	for i := p.pathStart; i < len(p.buf); i++ {
		switch p.buf[i] {
		case ' ':
			if i-p.pathStart > int(lim.PathLen) {
				return errOutcome(ParseErrorPathLenLimit), true
			}
			p.pathEnd = i
			p.queryStart = -1
			p.queryEnd = -1
			p.versStart = i + 1
			p.phase = phaseVersion
			return Outcome{}, false
		case '?':
			if i-p.pathStart > int(lim.PathLen) {
				return errOutcome(ParseErrorPathLenLimit), true
			}
			p.pathEnd = i
			p.queryStart = i + 1
			p.phase = phaseQuery
			return Outcome{}, false
		case '\r', '\n':
			return errOutcome(ParseErrorRequestLineMalformed), true
		}
	}
	if len(p.buf)-p.pathStart > int(lim.PathLen) {
		return errOutcome(ParseErrorPathLenLimit), true
	}
	return needMore()
}

func (p *headerParser) scanQuery(lim Limits) (Outcome, bool) {
	for i := p.queryStart; i < len(p.buf); i++ {
		switch p.buf[i] {
		case ' ':
			if i-p.queryStart > int(lim.QueryLen) {
				return errOutcome(ParseErrorQueryLenLimit), true
			}
			p.queryEnd = i
			p.versStart = i + 1
			p.phase = phaseVersion
			return Outcome{}, false
		case '\r', '\n':
			return errOutcome(ParseErrorRequestLineMalformed), true
		}
	}
	if len(p.buf)-p.queryStart > int(lim.QueryLen) {
		return errOutcome(ParseErrorQueryLenLimit), true
	}
	return needMore()
}

func (p *headerParser) scanVersion(lim Limits) (Outcome, bool) {
	idx := indexCRLF(p.buf, p.versStart)
	if idx < 0 {
		if len(p.buf)-p.versStart > 8 {
			return errOutcome(ParseErrorWrongVersionLen), true
		}
		return needMore()
	}

	fieldLen := idx - p.versStart
	if fieldLen != 8 {
		return errOutcome(ParseErrorWrongVersionLen), true
	}

	field := string(p.buf[p.versStart:idx])
	if field != "HTTP/1.0" && field != "HTTP/1.1" {
		return errOutcome(ParseErrorUnsupportedProtocol), true
	}

	p.lineStart = idx + 2
	p.phase = phaseHeader
	return Outcome{}, false
}

func (p *headerParser) scanHeaderLine(lim Limits) (Outcome, bool) {
	idx := indexCRLF(p.buf, p.lineStart)
	if idx < 0 {
		if len(p.buf)-p.lineStart > int(lim.HeaderName)+int(lim.HeaderValue)+2 {
			return errOutcome(ParseErrorHeaderValueLenLimit), true
		}
		return needMore()
	}

	line := p.buf[p.lineStart:idx]

	if len(line) == 0 {
		return p.complete()
	}

	colon := -1
	for i, b := range line {
		if b == ':' {
			colon = i
			break
		}
	}
	if colon < 0 {
		return errOutcome(ParseErrorMissingHeaderColon), true
	}
	if colon == 0 {
		return errOutcome(ParseErrorEmptyHeaderName), true
	}
	if colon > int(lim.HeaderName) {
		return errOutcome(ParseErrorHeaderNameLenLimit), true
	}

	name := string(line[:colon])
	value := line[colon+1:]
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	if len(value) > int(lim.HeaderValue) {
		return errOutcome(ParseErrorHeaderValueLenLimit), true
	}

	if len(p.headers) >= int(lim.HeaderCount) {
		return errOutcome(ParseErrorHeadersCountLimit), true
	}

	h := Header{Name: name, Value: string(value)}
	p.headers = append(p.headers, h)

	if equalFoldASCII(name, "Connection") {
		switch h.Value {
		case "keep-alive":
			p.connection = DispositionKeepAlive
		case "close":
			p.connection = DispositionClose
		}
	} else if equalFoldASCII(name, "Content-Length") {
		n, ok := parseContentLength(h.Value)
		if !ok {
			return errOutcome(ParseErrorContentLengthParse), true
		}
		p.contentLength = &n
	}

	p.lineStart = idx + 2
	return Outcome{}, false
}

func parseContentLength(s string) (uint64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	var n uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		d := uint64(c - '0')
		if n > (1<<64-1-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}
	return n, true
}

func (p *headerParser) complete() (Outcome, bool) {
	head := p.buf[:p.lineStart+2]
	surplus := p.buf[p.lineStart+2:]

	req := &Request{
		Method:        string(head[:p.methodEnd]),
		RawPath:       head[p.pathStart:p.pathEnd],
		Version:       Version1_1,
		Headers:       p.headers,
		ContentLength: p.contentLength,
		Connection:    p.connection,
	}

	field := string(head[p.versStart : p.versStart+8])
	if field == "HTTP/1.0" {
		req.Version = Version1_0
	}

	if p.queryStart >= 0 && p.queryEnd >= p.queryStart {
		req.RawQuery = head[p.queryStart:p.queryEnd]
	}

	if decoded, err := url.PathUnescape(string(req.RawPath)); err == nil {
		req.Path = decoded
	}

	surplusCopy := make([]byte, len(surplus))
	copy(surplusCopy, surplus)

	p.reset()

	return Outcome{Kind: OutcomeComplete, Request: req, Surplus: surplusCopy}, true
}
