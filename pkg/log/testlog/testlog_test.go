// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package testlog

import (
	"os/exec"
	"testing"

	"github.com/sekaiacg/twrp-recovery/pkg/log"
)

func TestCounts(t *testing.T) {
	tlog := NewTestLog(t, true, false)
	tlog.FatalIsNotErr = true
	log.Msgf("doing something important")
	log.Logf("technical details...")
	log.Warnf("careful")
	log.Errf("broken")
	log.Fatalf("some severe error")
	tlog.Freeze()
	if tlog.MsgCount != 3 || tlog.WarnCount != 1 || tlog.ErrCount != 1 {
		t.Errorf("msg/warn/err counts: %d/%d/%d", tlog.MsgCount, tlog.WarnCount, tlog.ErrCount)
	}
	if tlog.LogCount != 1 || tlog.FatalCount != 1 {
		t.Errorf("log/fatal counts: %d/%d", tlog.LogCount, tlog.FatalCount)
	}
	want := "MSG:doing something important\nLOG:technical details...\nWARN:careful\nERR:broken\n>>FATAL()<< some severe error\n"
	if tlog.Buf.String() != want {
		t.Errorf("got\n%s\nwanted\n%s", tlog.Buf.String(), want)
	}
	if got := tlog.Lines("WARN:"); len(got) != 1 || got[0] != "careful" {
		t.Errorf("Lines: %q", got)
	}
}

func TestMappedCmd(t *testing.T) {
	tlog := NewTestLog(t, true, false)
	m := CmdMap{
		CmdKey([]string{"lptools", "map"}): {NoRun: true, Result: Result{Res: "ok", Success: true}},
	}
	tlog.UseMappedCmdHijacker(m)
	res, ok := log.Cmd(exec.Command("lptools", "map"))
	if !ok || res != "ok" {
		t.Errorf("mapped: got %q %t", res, ok)
	}
	if _, ok = log.Cmd(exec.Command("rm", "-rf", "/")); ok {
		t.Errorf("unmapped command reported success")
	}
	tlog.Freeze()
	if m[CmdKey([]string{"lptools", "map"})].RunCount != 1 {
		t.Errorf("run count %d", m[CmdKey([]string{"lptools", "map"})].RunCount)
	}
}
