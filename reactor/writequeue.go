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

import "io"

// writeBlock is one queued write: the full payload and a cursor marking
// how much of it has already reached the wire.
type writeBlock struct {
	data   []byte
	cursor int
}

func (w *writeBlock) remaining() []byte {
	return w.data[w.cursor:]
}

func (w *writeBlock) advance(n int) {
	w.cursor += n
}

func (w *writeBlock) done() bool {
	return w.cursor >= len(w.data)
}

// writeQueue is an ordered FIFO of pending writes for one session. It is
// not itself goroutine-safe: callers serialize access behind the owning
// session's single mutex, per the design notes in SPEC_FULL.md §3/§9.
type writeQueue struct {
	blocks []*writeBlock
	total  int
}

// enqueue appends data as a new block. The slice is retained, not copied:
// callers must hand over ownership.
func (q *writeQueue) enqueue(data []byte) {
	if len(data) == 0 {
		return
	}
	q.blocks = append(q.blocks, &writeBlock{data: data})
	q.total += len(data)
}

// empty reports whether every queued block has been fully written.
func (q *writeQueue) empty() bool {
	return len(q.blocks) == 0
}

// pending reports the number of bytes not yet written to the wire.
func (q *writeQueue) pending() int {
	return q.total
}

// drain attempts one non-blocking-equivalent pass at flushing the queue
// to w, advancing cursors on partial writes and dropping completed
// blocks from the front. It stops at the first short write (typical of
// a non-blocking socket returning EAGAIN) or the first error.
func (q *writeQueue) drain(w io.Writer) error {
	for len(q.blocks) > 0 {
		b := q.blocks[0]
		n, err := w.Write(b.remaining())
		if n > 0 {
			q.total -= n
			b.advance(n)
		}
		if err != nil {
			return err
		}
		if !b.done() {
			return nil
		}
		q.blocks = q.blocks[1:]
	}
	return nil
}
