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

// Package metrics exposes the reactor's runtime counters and gauges as
// Prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors groups the reactor's metrics. The worker updates
// ConnectionsAccepted, ConnectionsClosed, ActiveSessions and
// RequestsParsed; the other collectors are not updated by the reactor
// core. Register registers them all against a prometheus.Registerer in
// one call.
type Collectors struct {
	ConnectionsAccepted prometheus.Counter
	ConnectionsClosed   prometheus.Counter
	RequestsParsed      prometheus.Counter
	ParseErrors         *prometheus.CounterVec
	WebSocketFramesIn   prometheus.Counter
	WebSocketFramesOut  prometheus.Counter
	BytesWritten        prometheus.Counter
	WriteQueueDepth     prometheus.Gauge
	ActiveSessions      prometheus.Gauge
}

// New builds a fresh, unregistered Collectors set.
func New(namespace string) *Collectors {
	return &Collectors{
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Total TCP connections accepted across all listeners.",
		}),
		ConnectionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_closed_total",
			Help:      "Total sessions that reached PhaseClosed.",
		}),
		RequestsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_parsed_total",
			Help:      "Total HTTP request heads successfully parsed.",
		}),
		ParseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Total fatal parse errors, labeled by kind.",
		}, []string{"kind"}),
		WebSocketFramesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_frames_in_total",
			Help:      "Total WebSocket frames received from clients.",
		}),
		WebSocketFramesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_frames_out_total",
			Help:      "Total WebSocket frames sent to clients.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Total bytes flushed to client sockets.",
		}),
		WriteQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "write_queue_depth_bytes",
			Help:      "Sum of undelivered bytes across every session's write queue.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of sessions currently open.",
		}),
	}
}

// Register registers every collector against reg.
func (c *Collectors) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		c.ConnectionsAccepted,
		c.ConnectionsClosed,
		c.RequestsParsed,
		c.ParseErrors,
		c.WebSocketFramesIn,
		c.WebSocketFramesOut,
		c.BytesWritten,
		c.WriteQueueDepth,
		c.ActiveSessions,
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}
