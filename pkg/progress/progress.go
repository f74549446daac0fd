// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package progress turns installer progress events into an overall fraction.
//
// Progress is a sequence of sections. Advance closes the current section and
// opens a new one covering Fraction of the bar, optionally animated over
// Seconds. Set moves within the current section (0..1 of it).
package progress

import (
	"sync"
	"time"
)

type Kind int

const (
	Advance Kind = iota
	Set
)

func (k Kind) String() string {
	if k == Set {
		return "set"
	}
	return "advance"
}

// Event is one progress report.
type Event struct {
	Kind     Kind
	Fraction float64
	Seconds  int
}

// Tracker accumulates events. Safe for concurrent use; the zero value is
// ready.
type Tracker struct {
	mu         sync.Mutex
	scopeStart float64
	scopeSize  float64
	inScope    float64 //0..1 within current section
	started    time.Time
	duration   time.Duration
	now        func() time.Time
}

func (t *Tracker) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

// Handle applies e.
func (t *Tracker) Handle(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e.Kind {
	case Advance:
		t.scopeStart += t.scopeSize
		t.scopeSize = clamp(e.Fraction)
		t.inScope = 0
		t.started = t.clock()
		t.duration = time.Duration(e.Seconds) * time.Second
	case Set:
		t.inScope = clamp(e.Fraction)
	}
}

// Reset returns to zero, as before an install.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scopeStart, t.scopeSize, t.inScope = 0, 0, 0
	t.duration = 0
}

// Value is the overall fraction, 0..1. A timed section fills on its own as
// its seconds elapse, unless Set has moved it further.
func (t *Tracker) Value() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.inScope
	if t.duration > 0 {
		timed := float64(t.clock().Sub(t.started)) / float64(t.duration)
		if timed > p {
			p = clamp(timed)
		}
	}
	return clamp(t.scopeStart + t.scopeSize*p)
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
