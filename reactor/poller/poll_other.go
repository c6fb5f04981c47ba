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

//go:build !linux

package poller

import (
	"sync"

	"golang.org/x/sys/unix"
)

// pollPoller is the portable fallback readiness backend for platforms
// without epoll, built on poll(2) via golang.org/x/sys/unix. O(n) per
// Wait call in the registered fd count, unlike epoll's O(ready); fine
// for the connection counts a single non-Linux worker is expected to
// carry.
type pollPoller struct {
	mu        sync.Mutex
	writable  map[int]bool
	closed    bool
}

// New returns the platform readiness poller: poll(2) off Linux.
func New() (Poller, error) {
	return &pollPoller{writable: make(map[int]bool)}, nil
}

func (p *pollPoller) Add(fd int, writable bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writable[fd] = writable
	return nil
}

func (p *pollPoller) Modify(fd int, writable bool) error {
	return p.Add(fd, writable)
}

func (p *pollPoller) Remove(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.writable, fd)
	return nil
}

func (p *pollPoller) Wait(events []Event, timeoutMillis int) (int, error) {
	p.mu.Lock()
	fds := make([]unix.PollFd, 0, len(p.writable))
	order := make([]int, 0, len(p.writable))
	for fd, w := range p.writable {
		mask := int16(unix.POLLIN)
		if w {
			mask |= unix.POLLOUT
		}
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: mask})
		order = append(order, fd)
	}
	p.mu.Unlock()

	if len(fds) == 0 {
		return 0, nil
	}

	n, err := unix.Poll(fds, timeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	count := 0
	for i, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		if count >= len(events) {
			break
		}
		events[count] = Event{
			Fd:       order[i],
			Readable: pfd.Revents&unix.POLLIN != 0,
			Writable: pfd.Revents&unix.POLLOUT != 0,
			Closed:   pfd.Revents&(unix.POLLHUP|unix.POLLERR) != 0,
		}
		count++
	}
	_ = n
	return count, nil
}

func (p *pollPoller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.writable = nil
	return nil
}
