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
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/sabouaram/reactor/errors"
	liblog "github.com/sabouaram/reactor/logger"
	"github.com/sabouaram/reactor/reactor/health"
	"github.com/sabouaram/reactor/reactor/metrics"
)

// Server owns the listener(s), the shared date ticker, and the fixed
// pool of workers that accept and drive connections. One Server
// corresponds to one Config.
type Server struct {
	cfg *Config
	cb  Callbacks
	log sessionLogger

	Metrics *metrics.Collectors
	Health  *health.Tracker
	Date    *DateTicker

	listener net.Listener
	tlsConf  *tls.Config

	workers []*Worker
	stop    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewServer validates cfg and builds a Server ready to Serve. It does
// not open the listener yet; that happens in Serve so callers can defer
// binding until they choose to start accepting connections. A nil log
// gets the teacher's logrus-backed logger.New, which logs through its
// default (standard-output) handler until the caller calls SetOptions
// on it directly.
func NewServer(cfg *Config, cb Callbacks, log sessionLogger) (*Server, errors.Error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = liblog.New(context.Background())
	}

	s := &Server{
		cfg:     cfg,
		cb:      cb,
		log:     log,
		Metrics: metrics.New("reactor"),
		Health:  health.NewTracker(5 * time.Second),
		Date:    NewDateTicker(),
		stop:    make(chan struct{}),
	}

	if cfg.TLS != nil {
		tlsConf, e := cfg.TLS.Build()
		if e != nil {
			return nil, ErrorTLSBuild.Error(e)
		}
		s.tlsConf = tlsConf
	}

	return s, nil
}

// Serve opens the configured listener, starts the date ticker and every
// worker, and accepts connections until ctx is canceled or Shutdown is
// called. It blocks for the lifetime of the server.
func (s *Server) Serve(ctx context.Context) errors.Error {
	ln, err := net.Listen(s.cfg.Listen.Network, s.cfg.Listen.Address)
	if err != nil {
		return ErrorListen.Error(err)
	}
	if s.tlsConf != nil {
		ln = tls.NewListener(ln, s.tlsConf)
	}
	s.mu.Lock()
	s.listener = ln
	s.running = true
	s.mu.Unlock()

	numWorkers := s.cfg.NumThreads
	if numWorkers <= 0 {
		numWorkers = 1
	}
	s.workers = make([]*Worker, numWorkers)
	for i := range s.workers {
		w, e := NewWorker(i, s.cfg, s.cb, s.Metrics, s.Health, s.log)
		if e != nil {
			return ErrorListen.Error(e)
		}
		s.workers[i] = w

		s.wg.Add(1)
		go func(w *Worker) {
			defer s.wg.Done()
			w.Run(s.stop)
		}(w)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Date.Run(ctx)
	}()

	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()

	var next int
	for {
		conn, aerr := s.listener.Accept()
		if aerr != nil {
			select {
			case <-s.stop:
				s.wg.Wait()
				return nil
			default:
				if s.log != nil {
					s.log.Error("accept failed, stopping server", aerr)
				}
				return ErrorListen.Error(aerr)
			}
		}

		s.workers[next].Accept(conn, s.log)
		next = (next + 1) % len(s.workers)
	}
}

// Addr returns the bound listener's address, or nil if Serve has not yet
// opened it. Useful when Config.Listen.Address requests an ephemeral
// port (":0") and the caller needs to learn what was actually bound.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting new connections and signals every worker to
// return once its current poll cycle completes. It does not forcibly
// close sessions already in flight.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.stop)
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
