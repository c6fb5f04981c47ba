/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

// Package hookfile provides a logrus hook for writing log entries to a local file,
// reopening and creating the target path on demand using the same field filtering
// and formatting conventions as the other logger hook packages.
package hookfile

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sabouaram/reactor/ioutils"
	logcfg "github.com/sabouaram/reactor/logger/config"
	loglvl "github.com/sabouaram/reactor/logger/level"
	logtps "github.com/sabouaram/reactor/logger/types"
	"github.com/sirupsen/logrus"
)

// HookFile is a logtps.Hook that appends formatted log entries to a file on disk.
type HookFile interface {
	logtps.Hook
}

type hookFile struct {
	m sync.Mutex
	h *os.File
	w time.Time
	f logrus.Formatter
	l []logrus.Level

	s bool
	d bool
	t bool
	a bool

	path     string
	create   bool
	createP  bool
	modeFile os.FileMode
	modePath os.FileMode
}

// New builds a HookFile from the given file options and formatter.
//
// The file is opened (and its path created if CreatePath is set) once on
// construction to validate the configuration, then reopened on demand by
// Write whenever the handle is missing or has been closed.
func New(opt logcfg.OptionsFile, formatter logrus.Formatter) (HookFile, error) {
	if opt.Filepath == "" {
		return nil, fmt.Errorf("hookfile: missing file path")
	}

	var lvl = make([]logrus.Level, 0, len(opt.LogLevel))

	if len(opt.LogLevel) > 0 {
		for _, ls := range opt.LogLevel {
			lvl = append(lvl, loglvl.Parse(ls).Logrus())
		}
	} else {
		lvl = logrus.AllLevels
	}

	fileMode := opt.FileMode
	if fileMode == 0 {
		fileMode = 0644
	}

	pathMode := opt.PathMode
	if pathMode == 0 {
		pathMode = 0755
	}

	o := &hookFile{
		f:        formatter,
		l:        lvl,
		s:        opt.DisableStack,
		d:        opt.DisableTimestamp,
		t:        opt.EnableTrace,
		a:        opt.EnableAccessLog,
		path:     opt.Filepath,
		create:   opt.Create,
		createP:  opt.CreatePath,
		modeFile: fileMode,
		modePath: pathMode,
	}

	h, e := o.openCreate()
	if e != nil {
		return nil, e
	}
	_ = h.Close()

	return o, nil
}

func (o *hookFile) openCreate() (*os.File, error) {
	if o.createP {
		if err := ioutils.PathCheckCreate(true, o.path, o.modeFile, o.modePath); err != nil {
			return nil, err
		}
	}

	flags := os.O_WRONLY | os.O_APPEND
	if o.create {
		flags |= os.O_CREATE
	}

	h, e := os.OpenFile(o.path, flags, o.modeFile)
	if e != nil {
		return nil, e
	}

	if _, e = h.Seek(0, io.SeekEnd); e != nil {
		return nil, e
	}

	return h, nil
}

func (o *hookFile) Run(_ context.Context) {}

func (o *hookFile) IsRunning() bool {
	return true
}

func (o *hookFile) Levels() []logrus.Level {
	return o.l
}

func (o *hookFile) RegisterHook(log *logrus.Logger) {
	log.AddHook(o)
}

func (o *hookFile) Fire(entry *logrus.Entry) error {
	ent := entry.Dup()
	ent.Level = entry.Level

	if o.s {
		ent.Data = filterKey(ent.Data, logtps.FieldStack)
	}
	if o.d {
		ent.Data = filterKey(ent.Data, logtps.FieldTime)
	}
	if !o.t {
		ent.Data = filterKey(ent.Data, logtps.FieldCaller)
		ent.Data = filterKey(ent.Data, logtps.FieldFile)
		ent.Data = filterKey(ent.Data, logtps.FieldLine)
	}

	var (
		p []byte
		e error
	)

	if o.a {
		if len(entry.Message) == 0 {
			return nil
		}
		msg := entry.Message
		if msg[len(msg)-1] != '\n' {
			msg += "\n"
		}
		p = []byte(msg)
	} else {
		if len(ent.Data) < 1 {
			return nil
		}
		if o.f != nil {
			p, e = o.f.Format(ent)
		} else {
			p, e = ent.Bytes()
		}
		if e != nil {
			return e
		}
	}

	_, e = o.Write(p)
	return e
}

func (o *hookFile) write(p []byte) (int, error) {
	o.m.Lock()
	defer o.m.Unlock()

	var e error

	if o.h == nil {
		if o.h, e = o.openCreate(); e != nil {
			return 0, fmt.Errorf("hookfile: cannot open %q: %w", o.path, e)
		}
	} else if _, e = o.h.Seek(0, io.SeekEnd); e != nil {
		return 0, fmt.Errorf("hookfile: cannot seek %q to eof: %w", o.path, e)
	}

	return o.h.Write(p)
}

func (o *hookFile) Write(p []byte) (int, error) {
	n, err := o.write(p)
	if err != nil {
		_ = o.Close()
		n, err = o.write(p)
	}
	if err != nil {
		return n, err
	}

	o.m.Lock()
	defer o.m.Unlock()

	if o.w.IsZero() || time.Since(o.w) > 30*time.Second {
		_ = o.h.Sync()
		o.w = time.Now()
	}

	return n, nil
}

func (o *hookFile) Close() error {
	o.m.Lock()
	defer o.m.Unlock()

	if o.h == nil {
		return nil
	}

	var e error
	if er := o.h.Sync(); er != nil {
		e = fmt.Errorf("hookfile: sync %q: %w", o.path, er)
	}
	if er := o.h.Close(); er != nil {
		if e != nil {
			e = fmt.Errorf("%w; close %q: %v", e, o.path, er)
		} else {
			e = fmt.Errorf("hookfile: close %q: %w", o.path, er)
		}
	}

	o.h = nil
	return e
}

func filterKey(f logrus.Fields, key string) logrus.Fields {
	if len(f) < 1 {
		return f
	}
	if _, ok := f[key]; ok {
		delete(f, key)
	}
	return f
}
