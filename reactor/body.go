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

// bodyReader tracks delivery of a Content-Length-framed request body
// against the bytes the worker hands it off the wire. It never buffers
// the whole body: every push is forwarded to onChunk immediately and
// only the counters are retained.
type bodyReader struct {
	declared  uint64
	delivered uint64
	onChunk   func(chunk []byte)
	done      bool
}

// newBodyReader builds a bodyReader for a request with the given declared
// Content-Length. A declared length of zero is already complete: the
// reader calls onChunk once with a nil slice before returning, matching
// the "delivered == declared with no bytes read" edge case.
func newBodyReader(declared uint64, onChunk func(chunk []byte)) *bodyReader {
	b := &bodyReader{declared: declared, onChunk: onChunk}
	if declared == 0 {
		b.onChunk(nil)
		b.done = true
	}
	return b
}

// remaining reports how many bytes are still owed.
func (b *bodyReader) remaining() uint64 {
	if b.delivered >= b.declared {
		return 0
	}
	return b.declared - b.delivered
}

// complete reports whether declared == delivered.
func (b *bodyReader) complete() bool {
	return b.done
}

// push feeds up to remaining() bytes of chunk to onChunk, returning the
// unconsumed surplus (bytes belonging to whatever follows the body, e.g.
// the next pipelined request head).
func (b *bodyReader) push(chunk []byte) (surplus []byte) {
	if b.done {
		return chunk
	}

	want := b.remaining()
	take := uint64(len(chunk))
	if take > want {
		take = want
	}

	if take > 0 {
		b.onChunk(chunk[:take])
		b.delivered += take
	}

	if b.delivered >= b.declared {
		b.done = true
	}

	return chunk[take:]
}
