// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"os"
	"strings"

	"github.com/sekaiacg/twrp-recovery/pkg/log/flags"
)

type FatalFunc func()
type PreFunc func(f string, va ...interface{})

// FailAction is what Fatalf does after logging.
type FailAction struct {
	MsgPfx string
	// Pre runs while the log is still writable.
	Pre PreFunc
	// Terminator runs after Finalize. It should not return.
	Terminator FatalFunc
}

var fatalAction = DefaultFatal

func SetFatalAction(act FailAction) { fatalAction = act }

var DefaultFatal = FailAction{Terminator: DefaultFatalAction}

func DefaultFatalAction() {
	if strings.HasSuffix(os.Args[0], ".test") {
		panic("generic fatal called from test")
	}
	os.Exit(1)
}

// Fatalf logs, runs the configured FailAction, and does not return unless
// the Terminator does.
func Fatalf(f string, va ...interface{}) {
	s := Stack()
	if s.Next() == nil && s.Ident() == MemLogIdent {
		//nothing would ever see the message otherwise
		_ = AddConsoleLog(flags.NA)
		Log("Fatalf: logging unconfigured")
	}
	FlaggedLogf(flags.Fatal|flags.EndUser, fatalAction.MsgPfx+f, va...)
	if fatalAction.Pre != nil {
		fatalAction.Pre(fatalAction.MsgPfx+f, va...)
	}
	Finalize()
	fatalAction.Terminator()
}
