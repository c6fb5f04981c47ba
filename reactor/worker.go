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
	"errors"
	"io"
	"net"
	"sync"
	"syscall"

	"github.com/sabouaram/reactor/reactor/health"
	"github.com/sabouaram/reactor/reactor/metrics"
	"github.com/sabouaram/reactor/reactor/poller"
	"github.com/sabouaram/reactor/reactor/workpool"
)

const readBufferSize = 64 * 1024

var errNotPollable = errors.New("reactor: connection does not expose a pollable file descriptor")

// Worker owns one poller instance and the plaintext sessions registered
// on it, plus a bounded pool of goroutines driving TLS sessions (which
// have no async engine in the standard library and so are each driven
// by their own blocking goroutine, per SPEC_FULL.md's TLS layering
// design). A Server runs one Worker per configured thread.
type Worker struct {
	id      int
	cfg     *Config
	cb      Callbacks
	log     sessionLogger
	metrics *metrics.Collectors
	health  *health.Tracker

	poller poller.Poller
	tlsWg  *workpool.Pool

	mu       sync.Mutex
	sessions map[int]*Session
	byID     map[uint64]int // session id -> fd, for sessions registered on the poller
}

// NewWorker builds a Worker with its own poller instance. mx and ht may
// be nil; when set, the worker reports metrics and liveness beats
// through them. log may be nil; the worker then runs silently.
func NewWorker(id int, cfg *Config, cb Callbacks, mx *metrics.Collectors, ht *health.Tracker, log sessionLogger) (*Worker, error) {
	p, err := poller.New()
	if err != nil {
		return nil, err
	}
	return &Worker{
		id:       id,
		cfg:      cfg,
		cb:       cb,
		log:      log,
		metrics:  mx,
		health:   ht,
		poller:   p,
		tlsWg:    workpool.New(cfg.NumThreads * 4),
		sessions: make(map[int]*Session),
		byID:     make(map[uint64]int),
	}, nil
}

// Accept registers a freshly accepted connection with the worker. TLS
// connections are driven by a dedicated goroutine; plaintext
// connections are registered on the poller.
func (w *Worker) Accept(conn net.Conn, log sessionLogger) {
	if w.metrics != nil {
		w.metrics.ConnectionsAccepted.Inc()
		w.metrics.ActiveSessions.Inc()
	}

	if tc, ok := conn.(*tls.Conn); ok {
		s := newSession(tc, tc, w.cfg, w.cb, log)
		w.tlsWg.Go(func() { w.driveTLS(s) })
		return
	}

	s := newSession(conn, nil, w.cfg, w.cb, log)
	fd, err := connFd(conn)
	if err != nil {
		if w.log != nil {
			w.log.Error("worker %d: session %d has no pollable file descriptor", err, w.id, s.id)
		}
		s.RequestClose()
		w.closeSession(s, 0)
		return
	}

	w.mu.Lock()
	w.sessions[fd] = s
	w.byID[s.id] = fd
	w.mu.Unlock()

	if err := w.poller.Add(fd, false); err != nil {
		if w.log != nil {
			w.log.Error("worker %d: session %d could not register on poller", err, w.id, s.id)
		}
		w.closeSession(s, fd)
	}
}

// driveTLS runs the blocking read loop for a TLS session: tls.Conn has
// no non-blocking mode, so every TLS connection gets its own goroutine
// feeding the same Session.feed entry point plaintext sessions use,
// arbitrated by the session's own mutex.
func (w *Worker) driveTLS(s *Session) {
	defer w.closeSession(s, 0)

	buf := make([]byte, readBufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			if e := s.feed(buf[:n]); e != nil {
				return
			}
			if fe := s.Flush(); fe != nil {
				return
			}
		}
		if err != nil {
			return
		}
		if s.closeRequested() {
			return
		}
		if s.closeAfterDrain() && s.PendingWrite() == 0 {
			return
		}
	}
}

// Run drives the worker's readiness loop until stop is closed.
func (w *Worker) Run(stop <-chan struct{}) {
	events := make([]poller.Event, 256)

	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := w.poller.Wait(events, 1000)
		if w.health != nil {
			w.health.Beat(w.id)
		}
		if err != nil {
			if w.log != nil {
				w.log.Error("worker %d: poll wait failed", err, w.id)
			}
			continue
		}

		for i := 0; i < n; i++ {
			w.handleEvent(events[i])
		}
	}
}

func (w *Worker) handleEvent(ev poller.Event) {
	w.mu.Lock()
	s := w.sessions[ev.Fd]
	w.mu.Unlock()
	if s == nil {
		return
	}

	if ev.Closed {
		w.closeSession(s, ev.Fd)
		return
	}

	if ev.Readable {
		buf := make([]byte, readBufferSize)
		n, err := s.conn.Read(buf)
		if n > 0 {
			if e := s.feed(buf[:n]); e != nil {
				w.closeSession(s, ev.Fd)
				return
			}
			if w.metrics != nil {
				w.metrics.RequestsParsed.Inc()
			}
		}
		if err != nil {
			if w.log != nil && err != io.EOF {
				w.log.Error("worker %d: session %d read failed", err, w.id, s.id)
			}
			w.closeSession(s, ev.Fd)
			return
		}
	}

	if fe := s.Flush(); fe != nil {
		if w.log != nil {
			w.log.Error("worker %d: session %d write flush failed", fe, w.id, s.id)
		}
		w.closeSession(s, ev.Fd)
		return
	}

	if s.closeRequested() {
		w.closeSession(s, ev.Fd)
		return
	}
	if s.closeAfterDrain() && s.PendingWrite() == 0 {
		w.closeSession(s, ev.Fd)
		return
	}

	pending := s.PendingWrite() > 0
	_ = w.poller.Modify(ev.Fd, pending)
}

func (w *Worker) closeSession(s *Session, fd int) {
	w.mu.Lock()
	if fd == 0 {
		fd = w.byID[s.id]
	}
	delete(w.sessions, fd)
	delete(w.byID, s.id)
	w.mu.Unlock()

	if fd != 0 {
		_ = w.poller.Remove(fd)
	}
	s.releasePendingSpool()
	_ = s.conn.Close()

	if w.metrics != nil {
		w.metrics.ConnectionsClosed.Inc()
		w.metrics.ActiveSessions.Dec()
	}
	if s.cb.OnClose != nil {
		s.cb.OnClose(s)
	}
}

// connFd extracts the raw file descriptor backing conn, for poller
// registration. Only *net.TCPConn and similar syscall.Conn-backed types
// are pollable; anything else is an error.
func connFd(conn net.Conn) (int, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0, errNotPollable
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}

	var fd int
	var ctrlErr error
	err = raw.Control(func(f uintptr) {
		fd = int(f)
	})
	if err != nil {
		ctrlErr = err
	}
	return fd, ctrlErr
}
