// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package log routes install events to any number of sinks: the console, a
// (possibly compressed) file, the recovery screen.
//
// Until a sink is attached, entries are held in memory and replayed into each
// sink as it is added, so nothing logged during early startup is lost.
package log

import (
	"fmt"
	"os"

	"github.com/sekaiacg/twrp-recovery/pkg/log/flags"
)

var logPrefix string

// SetPrefix sets the name prefix used by AddFileLog. Must be called first.
func SetPrefix(pfx string) { logPrefix = pfx }

func GetPrefix() string { return logPrefix }

// Msgf is for lines the user reads on the recovery screen. Keep them short.
func Msgf(f string, va ...interface{}) { FlaggedLogf(flags.EndUser, f, va...) }

func Msg(message string) { Msgf("%s", message) }

// Highlightf is Msgf, emphasized.
func Highlightf(f string, va ...interface{}) { FlaggedLogf(flags.EndUser|flags.Highlight, f, va...) }

// Warnf is a user-visible, non-fatal warning.
func Warnf(f string, va ...interface{}) { FlaggedLogf(flags.EndUser|flags.Warn, f, va...) }

// Errf is a user-visible error. The process continues.
func Errf(f string, va ...interface{}) { FlaggedLogf(flags.EndUser|flags.Error, f, va...) }

// Logf is for technical detail. Never shown on screen.
func Logf(f string, va ...interface{}) { FlaggedLogf(flags.NA, f, va...) }

func Log(message string) { Logf("%s", message) }

// DumpStderr writes everything held by the memory log to stderr. No-op if
// there is no memory log in the stack.
func DumpStderr() {
	for _, e := range StoredEntries() {
		fmt.Fprintln(os.Stderr, e.String())
	}
}
