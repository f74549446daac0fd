// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package install

import (
	"github.com/sekaiacg/twrp-recovery/pkg/log"
	"github.com/sekaiacg/twrp-recovery/pkg/progress"
)

// LogSink presents installer output through the log stack: display lines as
// end-user messages, diagnostics as technical entries. Progress goes to a
// Tracker.
type LogSink struct {
	Progress *progress.Tracker
}

func NewLogSink() *LogSink { return &LogSink{Progress: &progress.Tracker{}} }

func (s *LogSink) OnProgress(e progress.Event) {
	s.Progress.Handle(e)
	log.Logf("progress: %s %.3f over %ds, now %.3f", e.Kind, e.Fraction, e.Seconds, s.Progress.Value())
}

func (s *LogSink) OnUiPrint(text string) { log.Msgf("%s", text) }

func (s *LogSink) OnLog(text string) { log.Logf("%s", text) }

// ResetProgress zeroes the tracker before an install.
func (s *LogSink) ResetProgress() { s.Progress.Reset() }

type progressResetter interface {
	ResetProgress()
}
