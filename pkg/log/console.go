// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/sekaiacg/twrp-recovery/pkg/log/flags"
)

type consoleLog struct {
	flags flags.Flag
	out   io.Writer
	next  StackableLogger
}

var (
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed, color.Bold)
	hlColor    = color.New(color.FgCyan, color.Bold)
	plainColor = color.New(color.Reset)
)

// AddConsoleLog logs to stderr. Only entries with one of the given flags are
// printed; flags.NA prints everything.
func AddConsoleLog(f flags.Flag) error { return AddConsoleLogTo(os.Stderr, f) }

// AddConsoleLogTo is AddConsoleLog with an arbitrary writer.
func AddConsoleLogTo(w io.Writer, f flags.Flag) error {
	return AddLogger(&consoleLog{flags: f, out: w}, true)
}

var _ StackableLogger = (*consoleLog)(nil)

func (l *consoleLog) AddEntry(e LogEntry) {
	if l.flags == 0 || e.Flags&l.flags > 0 {
		_, _ = paint(e.Flags).Fprintln(l.out, e.String())
	}
	if l.next != nil {
		l.next.AddEntry(e)
	}
}

func paint(f flags.Flag) *color.Color {
	switch {
	case f&(flags.Error|flags.Fatal) != 0:
		return errColor
	case f&flags.Warn != 0:
		return warnColor
	case f&flags.Highlight != 0:
		return hlColor
	}
	return plainColor
}

func (l *consoleLog) ForwardTo(sl StackableLogger) {
	if l.next != nil && sl != nil {
		panic("next already set")
	}
	l.next = sl
}

const ConsoleLogIdent = "consoleLog"

func (*consoleLog) Ident() string           { return ConsoleLogIdent }
func (l *consoleLog) Next() StackableLogger { return l.next }

func (l *consoleLog) Finalize() {
	if l.next != nil {
		l.next.Finalize()
	}
}
