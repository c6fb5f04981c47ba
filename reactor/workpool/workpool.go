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

// Package workpool bounds how many goroutines started through it run at
// once; a Worker uses it to cap its per-connection TLS goroutines.
package workpool

import "sync"

// Pool bounds concurrent execution of arbitrary work to a fixed number
// of slots, used by the TLS per-connection goroutine path so a burst of
// TLS handshakes cannot spawn unbounded goroutines.
type Pool struct {
	slots chan struct{}
	wg    sync.WaitGroup
}

// New returns a Pool allowing at most size concurrent Go calls.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{slots: make(chan struct{}, size)}
}

// Go runs fn in a new goroutine once a slot is free, blocking the
// caller until one is. Wait blocks until every Go call has returned.
func (p *Pool) Go(fn func()) {
	p.slots <- struct{}{}
	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.slots
			p.wg.Done()
		}()
		fn()
	}()
}

// Wait blocks until every goroutine started by Go has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Len reports how many slots are currently occupied.
func (p *Pool) Len() int {
	return len(p.slots)
}
