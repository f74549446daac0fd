// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package reflash

import (
	"context"
	"testing"

	"github.com/sekaiacg/twrp-recovery/pkg/log/testlog"
)

func TestReflash(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	good := []string{"repacker", "--flash-current"}
	cmds := testlog.CmdMap{
		testlog.CmdKey(good): {NoRun: true, Result: testlog.Result{Res: "boot_b written", Success: true}},
	}
	tlog.UseMappedCmdHijacker(cmds)

	if err := New(good).Reflash(context.Background()); err != nil {
		t.Error(err)
	}
	if err := New([]string{"repacker", "--broken"}).Reflash(context.Background()); err == nil {
		t.Error("failing tool not reported")
	}
	if err := New(nil).Reflash(context.Background()); err != ErrNoTool {
		t.Errorf("got %v, wanted ErrNoTool", err)
	}
	tlog.Freeze()
	if cmds[testlog.CmdKey(good)].RunCount != 1 {
		t.Errorf("tool ran %d times", cmds[testlog.CmdKey(good)].RunCount)
	}
	if !tlog.Contains("boot_b written") {
		t.Error("tool output not logged")
	}
}
