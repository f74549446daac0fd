// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"fmt"
	"sync"
	"time"

	"github.com/sekaiacg/twrp-recovery/pkg/log/flags"
)

// StackableLogger is one sink in a chain. Each sink handles an entry, then
// passes it to the next.
//
// Callers log through the package functions (Logf, Msgf, ...) and never touch
// the stack directly.
type StackableLogger interface {
	// AddEntry handles e and must forward it to Next() if non-nil.
	AddEntry(e LogEntry)

	// ForwardTo links this sink to the next. Linking a sink that already has
	// a successor is a programming error.
	ForwardTo(StackableLogger)

	// Ident names the sink type. At most one of each type may be stacked.
	Ident() string

	Next() StackableLogger

	// Finalize flushes and releases resources, then finalizes Next().
	Finalize()
}

// Guarded by logStackMtx.
var logStack StackableLogger = &memLog{}
var logStackMtx sync.Mutex

type stackErr struct {
	Id string
}

func (se *stackErr) Error() string {
	return fmt.Sprintf("duplicate logger %s in stack", se.Id)
}

// Finalize flushes all sinks.
func Finalize() {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	logStack.Finalize()
}

// DefaultLogStack finalizes the current stack and replaces it with a bare
// memory log.
func DefaultLogStack() { NewLogStack(&memLog{}) }

// NewLogStack finalizes the current stack and installs newLog as its only
// member.
func NewLogStack(newLog StackableLogger) {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	if logStack != nil {
		logStack.Finalize()
	}
	logStack = newLog
	ClearAttrs()
}

// Stack returns the topmost sink.
func Stack() StackableLogger {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	return logStack
}

// AddLogger pushes sl onto the stack. With addPrevious, entries held by the
// memory log are replayed into sl first.
//
// Sinks normally provide their own AddXLog wrapper; use that instead.
//
// The only error is a duplicate sink type.
func AddLogger(sl StackableLogger, addPrevious bool) error {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	if err := checkDup(sl, logStack); err != nil {
		return err
	}
	if addPrevious {
		addPreviousEvents(sl)
	}
	sl.ForwardTo(logStack)
	logStack = sl
	return nil
}

func checkDup(newLogger, sl StackableLogger) error {
	for ; sl != nil; sl = sl.Next() {
		if newLogger.Ident() == sl.Ident() {
			return &stackErr{Id: sl.Ident()}
		}
	}
	return nil
}

// RemoveLogger unlinks and finalizes the sink with the given ident.
func RemoveLogger(id string) {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	var prev StackableLogger
	for l := logStack; l != nil; l = l.Next() {
		if l.Ident() != id {
			prev = l
			continue
		}
		next := l.Next()
		l.ForwardTo(nil)
		l.Finalize()
		switch {
		case prev != nil:
			prev.ForwardTo(nil)
			prev.ForwardTo(next)
		case next != nil:
			logStack = next
		default:
			logStack = &memLog{}
		}
		return
	}
}

// LogEntry is what travels down the stack.
type LogEntry struct {
	Time  time.Time `json:"t"`
	Msg   string
	Args  []interface{} `json:",omitempty"`
	Flags flags.Flag    `json:",omitempty"`
}

// FlaggedLogf is the backend for Logf, Msgf, Warnf, etc.
func FlaggedLogf(opts flags.Flag, f string, va ...interface{}) {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	logStack.AddEntry(LogEntry{
		Time:  time.Now(),
		Flags: opts,
		Msg:   f,
		Args:  va,
	})
}

// Text is the formatted message without any decoration.
func (le *LogEntry) Text() string { return fmt.Sprintf(le.Msg, le.Args...) }

func (le *LogEntry) String() string {
	var div string
	switch {
	case le.Flags&flags.Fatal != 0:
		div = "!! "
	case le.Flags&flags.Error != 0:
		div = "E- "
	case le.Flags&flags.Warn != 0:
		div = "W- "
	case le.Flags&flags.EndUser != 0:
		div = "-- "
	case le.Flags == 0:
		div = "*- "
	default:
		div = "?? "
	}
	return div + le.Time.Format(TimestampLayout) + " " + div + le.Text()
}

// Caller holds logStackMtx.
func addPreviousEvents(newlog StackableLogger) {
	if _, isMem := newlog.(*memLog); isMem {
		return
	}
	if mem, ok := FindInStack(MemLogIdent).(*memLog); ok {
		for _, e := range mem.Entries() {
			newlog.AddEntry(e)
		}
	}
}

func InStack(id string) bool { return FindInStack(id) != nil }

// FindInStack returns the sink with the given ident, or nil.
func FindInStack(id string) StackableLogger {
	for l := logStack; l != nil; l = l.Next() {
		if l.Ident() == id {
			return l
		}
	}
	return nil
}
