// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

//go:build !release
// +build !release

// Package testlog captures the output of pkg/log during tests, either passing
// it through t.Log or into a buffer the test can inspect. It can also replace
// log.Cmd so code that shells out to device-only tools can be exercised.
package testlog

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sekaiacg/twrp-recovery/pkg/log"
	"github.com/sekaiacg/twrp-recovery/pkg/log/flags"
)

// TstLog is a log.StackableLogger. Create with NewTestLog, one per test.
type TstLog struct {
	events        leChan
	t             testing.TB
	Buf           *bytes.Buffer //if non-nil, output goes here rather than t.Log
	MsgCount      int           //entries with flags.EndUser
	LogCount      int           //everything else except fatal
	FatalCount    int
	WarnCount     int //subset of MsgCount
	ErrCount      int //subset of MsgCount
	FatalIsNotErr bool //if false, Fatalf fails the test
	freeze        bool
	stderr        bool
	mu            sync.RWMutex //guards freeze and channel sends
	cmu           sync.Mutex   //guards counts and Buf
	bgWg          sync.WaitGroup
}

// NewTestLog replaces the log stack. With bufferLog, output is collected in
// Buf; with stderr it is also echoed immediately. Call Freeze when done.
func NewTestLog(t testing.TB, bufferLog, stderr bool) (tlog *TstLog) {
	tlog = &TstLog{
		events: make(leChan, 1024),
		t:      t,
		stderr: stderr,
	}
	if bufferLog {
		tlog.Buf = new(bytes.Buffer)
	}
	tlog.bgWg.Add(1)
	go tlog.bgProc()
	log.NewLogStack(tlog)
	log.SetFatalAction(log.FailAction{Terminator: func() {}})
	return
}

var _ log.StackableLogger = (*TstLog)(nil)

func (tlog *TstLog) AddEntry(e log.LogEntry) {
	tlog.mu.RLock()
	defer tlog.mu.RUnlock()
	if tlog.freeze {
		return
	}
	tlog.events <- e
}

const TstLogIdent = "tstLog"

func (*TstLog) Ident() string                      { return TstLogIdent }
func (tl *TstLog) Next() log.StackableLogger       { return nil }
func (*TstLog) Finalize()                          {}
func (tl *TstLog) ForwardTo(_ log.StackableLogger) {}

type leChan chan log.LogEntry

func label(f flags.Flag) string {
	switch {
	case f&flags.Fatal != 0:
		return ">>FATAL()<< "
	case f&flags.Error != 0:
		return "ERR:"
	case f&flags.Warn != 0:
		return "WARN:"
	case f&flags.EndUser != 0:
		return "MSG:"
	}
	return "LOG:"
}

func (tlog *TstLog) bgProc() {
	defer tlog.bgWg.Done()
	for evt := range tlog.events {
		line := label(evt.Flags) + evt.Text()
		tlog.cmu.Lock()
		switch {
		case evt.Flags&flags.Fatal != 0:
			tlog.FatalCount++
		case evt.Flags&flags.EndUser != 0:
			tlog.MsgCount++
			if evt.Flags&flags.Warn != 0 {
				tlog.WarnCount++
			}
			if evt.Flags&flags.Error != 0 {
				tlog.ErrCount++
			}
		default:
			tlog.LogCount++
		}
		if tlog.Buf != nil {
			tlog.Buf.WriteString(line + "\n")
		}
		tlog.cmu.Unlock()
		if evt.Flags&flags.Fatal != 0 && !tlog.FatalIsNotErr {
			tlog.t.Errorf("@%s: %s", evt.Time.Format(stampMilli), line)
			continue
		}
		if tlog.stderr {
			fmt.Fprintf(os.Stderr, "@%s: %s\n", evt.Time.Format(stampMilli), line)
		}
		if tlog.Buf == nil {
			tlog.t.Logf("@%s: %s", evt.Time.Format(stampMilli), line)
		}
	}
}

const stampMilli = "15:04:05.000"

// Freeze stops collection and waits for pending entries to be processed.
// The default log stack is restored. Counts and Buf are stable afterwards.
func (tlog *TstLog) Freeze() {
	tlog.mu.Lock()
	if tlog.freeze {
		tlog.mu.Unlock()
		return
	}
	tlog.freeze = true
	close(tlog.events)
	tlog.mu.Unlock()
	tlog.bgWg.Wait()
	log.DefaultLogStack()
	log.SetFatalAction(log.DefaultFatal)
	log.Cmd = log.DefaultCmd
}

// Contains reports whether any captured line contains s. Only meaningful
// with a buffered log, after Freeze.
func (tlog *TstLog) Contains(s string) bool {
	tlog.cmu.Lock()
	defer tlog.cmu.Unlock()
	return tlog.Buf != nil && strings.Contains(tlog.Buf.String(), s)
}

// Lines returns captured lines with the given label prefix ("MSG:", "LOG:",
// ...), prefix removed.
func (tlog *TstLog) Lines(pfx string) []string {
	tlog.cmu.Lock()
	defer tlog.cmu.Unlock()
	if tlog.Buf == nil {
		return nil
	}
	var out []string
	for _, l := range strings.Split(tlog.Buf.String(), "\n") {
		if strings.HasPrefix(l, pfx) {
			out = append(out, strings.TrimPrefix(l, pfx))
		}
	}
	return out
}

// Wait gives the background goroutine time to drain without freezing.
func (tlog *TstLog) Wait() {
	for i := 0; i < 100 && len(tlog.events) > 0; i++ {
		time.Sleep(time.Millisecond)
	}
}
