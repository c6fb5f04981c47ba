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
	"os"

	"github.com/sabouaram/reactor/ioutils"
)

// bodySpool writes a request body nobody registered an OnBodyChunk
// callback for to a temp file instead of silently discarding it. A
// handler that only inspects headers in OnRequest can still go back and
// read the body bytes from Request.SpooledBodyPath after the request
// head has been dispatched.
type bodySpool struct {
	path string
	f    *os.File
}

// newBodySpool opens a temp file via the teacher's ioutils.NewTempFile.
// A nil return means spooling could not be set up (e.g. disk exhausted);
// callers treat that the same as having no spool at all.
func newBodySpool() *bodySpool {
	f, e := ioutils.NewTempFile()
	if e != nil || f == nil {
		return nil
	}
	return &bodySpool{path: ioutils.GetTempFilePath(f), f: f}
}

// write appends chunk to the spool file, ignoring per-write errors: a
// failed spool write degrades to a truncated file, never a crashed
// session.
func (b *bodySpool) write(chunk []byte) {
	if b == nil || len(chunk) == 0 {
		return
	}
	_, _ = b.f.Write(chunk)
}

// close releases the spool's temp file via ioutils.DelTempFile.
func (b *bodySpool) close() {
	if b == nil {
		return
	}
	_ = ioutils.DelTempFile(b.f)
}
