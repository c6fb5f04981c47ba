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

// Package hooksyslog provides a logrus hook dialing a local or remote syslog
// daemon and routing each entry to the syslog severity matching its logrus level.
package hooksyslog

import (
	"context"
	"errors"
	"log/syslog"

	logcfg "github.com/sabouaram/reactor/logger/config"
	loglvl "github.com/sabouaram/reactor/logger/level"
	logtps "github.com/sabouaram/reactor/logger/types"
	"github.com/sirupsen/logrus"
)

var errNilWriter = errors.New("hooksyslog: connection not setup")

// HookSyslog is a logtps.Hook that writes formatted log entries to syslog.
type HookSyslog interface {
	logtps.Hook
}

type hookSyslog struct {
	w *syslog.Writer
	f logrus.Formatter
	l []logrus.Level
	s bool
	d bool
	t bool
	a bool
}

// New dials the syslog destination described by opt and returns a hook ready
// to be registered on a logrus.Logger.
//
// When opt.Network and opt.Host are both empty, the local syslog daemon is
// used. Facility defaults to LOG_USER when unset or unrecognized. formatter,
// when non-nil, is used to render entries instead of their raw field bytes.
func New(opt logcfg.OptionsSyslog, formatter logrus.Formatter) (HookSyslog, error) {
	var lvl = make([]logrus.Level, 0, len(opt.LogLevel))

	if len(opt.LogLevel) > 0 {
		for _, ls := range opt.LogLevel {
			lvl = append(lvl, loglvl.Parse(ls).Logrus())
		}
	} else {
		lvl = logrus.AllLevels
	}

	w, err := syslog.Dial(opt.Network, opt.Host, facility(opt.Facility), opt.Tag)
	if err != nil {
		return nil, err
	}

	return &hookSyslog{
		w: w,
		f: formatter,
		l: lvl,
		s: opt.DisableStack,
		d: opt.DisableTimestamp,
		t: opt.EnableTrace,
		a: opt.EnableAccessLog,
	}, nil
}

func facility(name string) syslog.Priority {
	switch name {
	case "kern":
		return syslog.LOG_KERN
	case "user", "":
		return syslog.LOG_USER
	case "mail":
		return syslog.LOG_MAIL
	case "daemon":
		return syslog.LOG_DAEMON
	case "auth":
		return syslog.LOG_AUTH
	case "syslog":
		return syslog.LOG_SYSLOG
	case "lpr":
		return syslog.LOG_LPR
	case "news":
		return syslog.LOG_NEWS
	case "uucp":
		return syslog.LOG_UUCP
	case "cron":
		return syslog.LOG_CRON
	case "authpriv":
		return syslog.LOG_AUTHPRIV
	case "ftp":
		return syslog.LOG_FTP
	case "local0":
		return syslog.LOG_LOCAL0
	case "local1":
		return syslog.LOG_LOCAL1
	case "local2":
		return syslog.LOG_LOCAL2
	case "local3":
		return syslog.LOG_LOCAL3
	case "local4":
		return syslog.LOG_LOCAL4
	case "local5":
		return syslog.LOG_LOCAL5
	case "local6":
		return syslog.LOG_LOCAL6
	case "local7":
		return syslog.LOG_LOCAL7
	default:
		return syslog.LOG_USER
	}
}

func (o *hookSyslog) Run(_ context.Context) {}

func (o *hookSyslog) IsRunning() bool {
	return o.w != nil
}

func (o *hookSyslog) Levels() []logrus.Level {
	return o.l
}

func (o *hookSyslog) RegisterHook(log *logrus.Logger) {
	log.AddHook(o)
}

func (o *hookSyslog) Fire(entry *logrus.Entry) error {
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
		p   []byte
		err error
	)

	if o.a {
		if len(entry.Message) == 0 {
			return nil
		}
		p = []byte(entry.Message)
	} else if o.f != nil {
		p, err = o.f.Format(ent)
	} else {
		p, err = ent.Bytes()
	}

	if err != nil {
		return err
	}

	return o.writeLevel(entry.Level, p)
}

func (o *hookSyslog) writeLevel(lvl logrus.Level, p []byte) error {
	if o.w == nil {
		return errNilWriter
	}

	msg := string(p)

	switch lvl {
	case logrus.PanicLevel, logrus.FatalLevel:
		return o.w.Emerg(msg)
	case logrus.ErrorLevel:
		return o.w.Err(msg)
	case logrus.WarnLevel:
		return o.w.Warning(msg)
	case logrus.InfoLevel:
		return o.w.Info(msg)
	default:
		return o.w.Debug(msg)
	}
}

func (o *hookSyslog) Write(p []byte) (int, error) {
	if o.w == nil {
		return 0, errNilWriter
	}
	return o.w.Write(p)
}

func (o *hookSyslog) Close() error {
	if o.w == nil {
		return nil
	}
	err := o.w.Close()
	o.w = nil
	return err
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
