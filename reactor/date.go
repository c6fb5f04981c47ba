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
	"time"

	libatm "github.com/sabouaram/reactor/atomic"
)

// httpDateLayout is the RFC 7231 preferred date format ("IMF-fixdate").
const httpDateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// DateTicker maintains a single RFC 7231 date string refreshed once per
// second and shared read-only by every worker, so response builders never
// format the current time on the hot path. Stored under the teacher's
// atomic.Value[string] wrapper rather than the teacher's sync.RWMutex
// pattern (httpserver.server.run) since a single hot string has no reader
// contention to amortize.
type DateTicker struct {
	v libatm.Value[string]
}

// NewDateTicker returns a DateTicker already holding the current date
// string; call Run to keep it refreshed.
func NewDateTicker() *DateTicker {
	d := &DateTicker{v: libatm.NewValue[string]()}
	d.v.Store(time.Now().UTC().Format(httpDateLayout))
	return d
}

// String returns the most recently captured RFC 7231 date string.
func (d *DateTicker) String() string {
	return d.v.Load()
}

// Run refreshes the date string once per second until ctx is canceled.
// Intended to run as one goroutine per Server.
func (d *DateTicker) Run(ctx context.Context) {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			d.v.Store(now.UTC().Format(httpDateLayout))
		}
	}
}
