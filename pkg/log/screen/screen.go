// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package screen is a StackableLogger that writes end-user entries to the
// recovery display, normally a virtual terminal such as /dev/tty0. Only the
// message text is written, without timestamps.
package screen

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sekaiacg/twrp-recovery/pkg/log"
	"github.com/sekaiacg/twrp-recovery/pkg/log/flags"
)

var ENil = errors.New("no display writer")

// AddScreenLog opens dev for writing and attaches it. Entries already logged
// are not replayed; the screen only shows what happens from now on.
func AddScreenLog(dev string, opts flags.Flag) error {
	f, err := os.OpenFile(dev, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return err
	}
	if err = AddScreenWriter(f, opts); err != nil {
		f.Close()
	}
	return err
}

// AddScreenWriter attaches w. If w is an io.Closer it is closed on Finalize.
func AddScreenWriter(w io.Writer, opts flags.Flag) error {
	if w == nil {
		return ENil
	}
	return log.AddLogger(&ScreenLog{opts: opts, w: w}, false)
}

type ScreenLog struct {
	opts flags.Flag
	w    io.Writer
	next log.StackableLogger
}

var _ log.StackableLogger = (*ScreenLog)(nil)

func (l *ScreenLog) AddEntry(e log.LogEntry) {
	if e.Flags&l.opts != 0 && l.w != nil {
		pfx := ""
		switch {
		case e.Flags&(flags.Error|flags.Fatal) != 0:
			pfx = "E:"
		case e.Flags&flags.Warn != 0:
			pfx = "W:"
		}
		_, _ = fmt.Fprintln(l.w, pfx+e.Text())
	}
	if l.next != nil {
		l.next.AddEntry(e)
	}
}

func (l *ScreenLog) ForwardTo(sl log.StackableLogger) {
	if l.next != nil && sl != nil {
		panic("next already set")
	}
	l.next = sl
}

const ScreenLogIdent = "screenLog"

func (*ScreenLog) Ident() string               { return ScreenLogIdent }
func (l *ScreenLog) Next() log.StackableLogger { return l.next }

func (l *ScreenLog) Finalize() {
	if c, ok := l.w.(io.Closer); ok {
		_ = c.Close()
	}
	l.w = nil
	if l.next != nil {
		l.next.Finalize()
	}
}
