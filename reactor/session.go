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
	"crypto/tls"
	"net"
	"sync"

	libatm "github.com/sabouaram/reactor/atomic"
	"github.com/sabouaram/reactor/errors"
	"github.com/sabouaram/reactor/reactor/status"
	"github.com/sabouaram/reactor/reactor/ws"
)

// Phase is the protocol a session currently speaks on its connection.
type Phase uint8

const (
	PhaseHTTP Phase = iota
	PhaseWebSocket
	PhaseClosed
)

// sessionFlags is a bitmask of mutable session state accessed only under
// the session's mutex; kept as a plain field rather than individual
// atomics since every flag transition already happens with the lock held.
type sessionFlags uint8

const (
	flagCloseRequested sessionFlags = 1 << iota
	flagCloseAfterDrain
)

// Callbacks are the user-supplied hooks a Session invokes as it parses
// the connection. Any of them may be nil.
type Callbacks struct {
	OnRequest       func(*Request)
	OnBodyChunk     func(*Request, []byte)
	OnWebSocketFrame func(*Session, *ws.Frame)
	OnClose         func(*Session)
}

// Session is one accepted connection: its socket, optional TLS layering,
// protocol phase, incremental parser state, and outbound write queue.
// Every field below the id is guarded by mu -- deliberately a single
// mutex per session rather than the teacher's per-concern locking
// (httpserver.server uses one mutex per managed object); a session has
// exactly one concurrent owner at a time (its worker, or its dedicated
// TLS goroutine), so splitting locks here would only add overhead.
type Session struct {
	id uint64

	conn    net.Conn
	tlsConn *tls.Conn

	cfg   *Config
	cb    Callbacks
	log   sessionLogger

	mu      sync.Mutex
	phase   Phase
	flags   sessionFlags
	parser  *headerParser
	body    *bodyReader
	pending *Request
	queue   writeQueue
}

// sessionLogger is the narrow slice of logger.Logger a session needs.
// Declared locally, matching logger.Logger's Error method signature
// exactly, so any real logger.Logger satisfies it without an adapter and
// tests can still supply a narrow stub.
type sessionLogger interface {
	Error(message string, data interface{}, args ...interface{})
}

// sessionIDCounter is the teacher's atomic.Value[uint64] wrapper rather
// than a stdlib sync/atomic counter, so every process-local identifier
// the reactor hands out -- session IDs, and anything else keyed the same
// way -- goes through the one counter primitive the rest of the kept
// teacher packages already use.
var sessionIDCounter = libatm.NewValue[uint64]()

func nextSessionID() uint64 {
	for {
		old := sessionIDCounter.Load()
		next := old + 1
		if sessionIDCounter.CompareAndSwap(old, next) {
			return next
		}
	}
}

// newSession wraps an accepted connection. tlsConn is non-nil when the
// listener that accepted conn was a TLS listener; conn is always the
// underlying net.Conn (the *tls.Conn itself when tlsConn is set).
func newSession(conn net.Conn, tlsConn *tls.Conn, cfg *Config, cb Callbacks, log sessionLogger) *Session {
	return &Session{
		id:      nextSessionID(),
		conn:    conn,
		tlsConn: tlsConn,
		cfg:     cfg,
		cb:      cb,
		log:     log,
		phase:   PhaseHTTP,
		parser:  newHeaderParser(),
	}
}

// ID returns the session's process-local, monotonically increasing
// identifier, used for log correlation and metrics labels.
func (s *Session) ID() uint64 { return s.id }

// Conn returns the underlying connection.
func (s *Session) Conn() net.Conn { return s.conn }

// IsTLS reports whether this session is layered over TLS.
func (s *Session) IsTLS() bool { return s.tlsConn != nil }

// RequestClose marks the session for close on its next worker pass.
// Safe to call from any goroutine.
func (s *Session) RequestClose() {
	s.mu.Lock()
	s.flags |= flagCloseRequested
	s.mu.Unlock()
}

// closeRequested reports whether RequestClose has been called.
func (s *Session) closeRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags&flagCloseRequested != 0
}

// closeAfterDrain reports whether the session should close once its
// write queue empties (set after a Connection: close response).
func (s *Session) closeAfterDrain() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags&flagCloseAfterDrain != 0
}

// markCloseAfterDrain requests the session close once pending writes
// finish flushing, per the keep-alive policy table (spec §4.4).
func (s *Session) markCloseAfterDrain() {
	s.mu.Lock()
	s.flags |= flagCloseAfterDrain
	s.mu.Unlock()
}

// Write enqueues data on the session's write queue for the worker (or,
// for TLS sessions, the dedicated connection goroutine) to flush.
func (s *Session) Write(data []byte) {
	if len(data) == 0 {
		return
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	s.queue.enqueue(cp)
	s.mu.Unlock()
}

// PendingWrite reports how many bytes remain queued for this session.
func (s *Session) PendingWrite() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.pending()
}

// flushLocked drains the write queue to the wire. Caller must hold mu.
func (s *Session) flushLocked() error {
	return s.queue.drain(s.conn)
}

// Flush drains the write queue to the wire, taking the session lock.
func (s *Session) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// WriteStatusLine enqueues an HTTP status line ("HTTP/1.1 200 OK\r\n")
// built from version and code, via status.Line's reason-phrase table.
// Callers compose the remaining header block and body separately with
// Write.
func (s *Session) WriteStatusLine(version Version, code int) {
	s.Write([]byte(version.String() + " " + status.Line(code) + "\r\n"))
}

// feed is the single entry point for bytes read off the wire, whichever
// goroutine (plaintext worker or TLS per-connection goroutine) is
// driving this session. It dispatches to the HTTP head parser, the
// active body reader, or the WebSocket frame parser depending on phase,
// recovering from any panic raised by a user callback.
func (s *Session) feed(chunk []byte) (err errors.Error) {
	defer func() {
		if r := recover(); r != nil {
			msg := recoverString(r)
			if s.log != nil {
				s.log.Error("session %d: callback panicked", msg, s.id)
			}
			err = errors.NewErrorRecovered("session callback panicked", msg)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	for len(chunk) > 0 {
		switch s.phase {
		case PhaseHTTP:
			var e errors.Error
			chunk, e = s.feedHTTPLocked(chunk)
			if e != nil {
				if s.log != nil {
					s.log.Error("session %d: closing on HTTP parse/stream error", e, s.id)
				}
				return e
			}
		case PhaseWebSocket:
			var e errors.Error
			chunk, e = s.feedWebSocketLocked(chunk)
			if e != nil {
				if s.log != nil {
					s.log.Error("session %d: closing on WebSocket frame error", e, s.id)
				}
				return e
			}
		case PhaseClosed:
			return nil
		}
	}

	return nil
}

func (s *Session) feedHTTPLocked(chunk []byte) ([]byte, errors.Error) {
	if s.pending != nil && s.body != nil && !s.body.complete() {
		surplus := s.body.push(chunk)
		if s.body.complete() {
			s.pending = nil
			s.body = nil
		}
		return surplus, nil
	}

	out := s.parser.push(chunk, s.cfg.Limits())
	switch out.Kind {
	case OutcomeNeedMore:
		return nil, nil
	case OutcomeError:
		return nil, asCodeError(out.Err).Error()
	case OutcomeComplete:
		req := out.Request
		req.Session = s

		if req.Connection == DispositionClose {
			s.markCloseAfterDrainLocked()
		} else if req.Connection == DispositionAbsent && req.Version == Version1_0 {
			s.markCloseAfterDrainLocked()
		}

		if s.cb.OnRequest != nil {
			s.cb.OnRequest(req)
		}

		if req.ContentLength != nil && *req.ContentLength > 0 {
			s.pending = req
			cb := s.cb.OnBodyChunk
			if cb == nil {
				req.spool = newBodySpool()
			}
			s.body = newBodyReader(*req.ContentLength, func(c []byte) {
				if cb != nil {
					cb(req, c)
					return
				}
				req.spool.write(c)
			})
		} else if req.ContentLength != nil {
			cb := s.cb.OnBodyChunk
			newBodyReader(0, func(c []byte) {
				if cb != nil {
					cb(req, c)
				}
			})
		}

		return out.Surplus, nil
	}

	return nil, nil
}

// markCloseAfterDrainLocked is markCloseAfterDrain for callers already
// holding mu.
func (s *Session) markCloseAfterDrainLocked() {
	s.flags |= flagCloseAfterDrain
}

func (s *Session) feedWebSocketLocked(chunk []byte) ([]byte, errors.Error) {
	frame, rest, e := ws.ParseFrame(chunk, s.cfg.WebSocketPayloadLimit)
	if e != nil {
		return nil, ErrorStream.Error(e)
	}
	if frame == nil {
		return nil, nil
	}
	if s.cb.OnWebSocketFrame != nil {
		s.cb.OnWebSocketFrame(s, frame)
	}
	return rest, nil
}

// UpgradeToWebSocket switches the session's phase after a successful
// handshake response has been queued.
func (s *Session) UpgradeToWebSocket() {
	s.mu.Lock()
	s.phase = PhaseWebSocket
	s.mu.Unlock()
}

// releasePendingSpool removes the temp file backing an in-flight
// request's spooled body when the session closes before the body
// completes, so a dropped connection doesn't leave an orphaned temp file
// no caller will ever get the chance to read.
func (s *Session) releasePendingSpool() {
	s.mu.Lock()
	req := s.pending
	s.mu.Unlock()
	if req != nil && req.spool != nil {
		req.spool.close()
	}
}

func recoverString(r interface{}) string {
	if e, ok := r.(error); ok {
		return e.Error()
	}
	if s, ok := r.(string); ok {
		return s
	}
	return "unknown panic value"
}
