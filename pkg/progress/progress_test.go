// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package progress

import (
	"math"
	"testing"
	"time"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSections(t *testing.T) {
	var tr Tracker
	now := time.Unix(1000, 0)
	tr.now = func() time.Time { return now }
	for i, td := range []struct {
		e    Event
		want float64
	}{
		{Event{Kind: Advance, Fraction: 0.25}, 0},
		{Event{Kind: Set, Fraction: 0.5}, 0.125},
		{Event{Kind: Set, Fraction: 1}, 0.25},
		{Event{Kind: Advance, Fraction: 0.375}, 0.25},
		{Event{Kind: Set, Fraction: 2}, 0.625},
		{Event{Kind: Advance, Fraction: 0.5, Seconds: 10}, 0.625},
	} {
		tr.Handle(td.e)
		if got := tr.Value(); !near(got, td.want) {
			t.Errorf("%d: got %f, wanted %f", i, got, td.want)
		}
	}
	now = now.Add(5 * time.Second)
	if got := tr.Value(); !near(got, 0.875) {
		t.Errorf("timed section: got %f, wanted 0.875", got)
	}
	now = now.Add(time.Hour)
	if got := tr.Value(); !near(got, 1) {
		t.Errorf("overrun: got %f, wanted 1", got)
	}
	tr.Reset()
	if got := tr.Value(); got != 0 {
		t.Errorf("after reset: %f", got)
	}
}
