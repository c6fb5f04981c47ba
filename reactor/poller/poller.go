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

// Package poller abstracts the readiness-notification mechanism one
// worker's loop polls: an epoll instance on Linux, a portable fallback
// elsewhere. Only plaintext file descriptors are registered here; TLS
// sessions are driven by their own blocking goroutine per SPEC_FULL.md's
// TLS layering design and never touch a Poller.
package poller

// Event is one readiness notification: the registered fd plus whether
// it became readable, writable, or both closed/errored.
type Event struct {
	Fd       int
	Readable bool
	Writable bool
	Closed   bool
}

// Poller is the minimal readiness-notification contract a worker loop
// needs: register/modify/remove a file descriptor's interest set, and
// block for the next batch of ready events.
type Poller interface {
	Add(fd int, writable bool) error
	Modify(fd int, writable bool) error
	Remove(fd int) error
	Wait(events []Event, timeoutMillis int) (int, error)
	Close() error
}
