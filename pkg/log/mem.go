// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

// memLog keeps entries so they can be replayed into sinks attached later.
// It is the initial stack.
type memLog struct {
	entries []LogEntry
	next    StackableLogger
}

var _ StackableLogger = (*memLog)(nil)

const MemLogIdent = "memLog"

func (ml *memLog) AddEntry(e LogEntry) {
	ml.entries = append(ml.entries, e)
	if ml.next != nil {
		ml.next.AddEntry(e)
	}
}

func (ml *memLog) ForwardTo(sl StackableLogger) {
	if ml.next != nil && sl != nil {
		panic("next already set")
	}
	ml.next = sl
}

func (ml *memLog) Ident() string         { return MemLogIdent }
func (ml *memLog) Next() StackableLogger { return ml.next }

func (ml *memLog) Finalize() {
	ml.entries = nil
	if ml.next != nil {
		ml.next.Finalize()
	}
}

func (ml *memLog) Entries() []LogEntry { return ml.entries }

// StoredEntries returns a copy of what the memory log holds, or nil.
func StoredEntries() []LogEntry {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	mem, ok := FindInStack(MemLogIdent).(*memLog)
	if !ok {
		return nil
	}
	return append([]LogEntry(nil), mem.Entries()...)
}

// FlushMemLog drops the memory log once real sinks are attached.
func FlushMemLog() { RemoveLogger(MemLogIdent) }
