// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package partition

import (
	"errors"
	"os"
	fp "path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/sekaiacg/twrp-recovery/pkg/log/testlog"
	"github.com/sekaiacg/twrp-recovery/pkg/props"
)

func TestRemoveOpts(t *testing.T) {
	for _, td := range []struct {
		in, want string
	}{
		{"auto,relatime,nofail", "relatime"},
		{"uid=1000,gid=1000,discard", "discard"},
		{"", ""},
		{"nofail", ""},
	} {
		if got := removeOpts(td.in, "nofail", "auto", "uid=", "gid="); got != td.want {
			t.Errorf("got %s, wanted %s", got, td.want)
		}
	}
}

func TestParseOpts(t *testing.T) {
	flags, data := parseOpts("noatime,nosuid,discard,rw,,errors=panic")
	if flags != unix.MS_NOATIME|unix.MS_NOSUID {
		t.Errorf("got flags 0x%x", flags)
	}
	if data != "discard,errors=panic" {
		t.Errorf("got data %q", data)
	}
}

func TestAndroidRootDefault(t *testing.T) {
	m := New(Config{}, []Volume{{Path: "/system_root"}}, nil)
	if m.AndroidRoot() != "/system_root" {
		t.Errorf("got %s", m.AndroidRoot())
	}
	m = New(Config{}, []Volume{{Path: "/vendor"}}, nil)
	if m.AndroidRoot() != "/system" {
		t.Errorf("got %s", m.AndroidRoot())
	}
}

func TestActiveSlot(t *testing.T) {
	orig := cmdlinePath
	defer func() { cmdlinePath = orig }()
	cmdlinePath = fp.Join(t.TempDir(), "cmdline")
	if err := os.WriteFile(cmdlinePath, []byte("console=ttyMSM0 androidboot.slot_suffix=_b quiet\n"), 0644); err != nil {
		t.Fatal(err)
	}
	m := New(Config{}, nil, props.FromMap(nil))
	if got := m.ActiveSlot(); got != "B" {
		t.Errorf("cmdline slot: got %q", got)
	}
	m = New(Config{}, nil, props.FromMap(map[string]string{props.SlotSuffix: "_a"}))
	if got := m.ActiveSlot(); got != "A" {
		t.Errorf("prop slot: got %q", got)
	}
	if InactiveSlot("A") != "B" || InactiveSlot("B") != "A" || InactiveSlot("") != "A" {
		t.Errorf("InactiveSlot wrong")
	}
}

func TestUnknownVolume(t *testing.T) {
	m := New(Config{}, nil, nil)
	if err := m.Mount("/vendor"); !errors.Is(err, ErrUnknownVolume) {
		t.Errorf("got %v", err)
	}
	if _, err := m.MountSettingsStorage(); err != ErrNoStorage {
		t.Errorf("got %v", err)
	}
	if m.IsMounted(fp.Join(t.TempDir(), "nope")) {
		t.Errorf("nonexistent path reported mounted")
	}
	if err := m.Unmount(fp.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("unmounting an unmounted path: %s", err)
	}
}

func TestUnlockSkipsNonDevices(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(fp.Join(dir, "boot_a"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()
	m := New(Config{BlockDir: dir}, nil, nil)
	if err := m.UnlockBlockPartitions(); err != nil {
		t.Error(err)
	}
	m = New(Config{BlockDir: fp.Join(dir, "missing")}, nil, nil)
	if err := m.UnlockBlockPartitions(); err == nil {
		t.Error("missing block dir not reported")
	}
}

func TestPrepareSuperVolumes(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	helper := []string{"lptools", "map", "--all"}
	cmds := testlog.CmdMap{
		testlog.CmdKey(helper): {NoRun: true, Result: testlog.Result{Success: true}},
	}
	tlog.UseMappedCmdHijacker(cmds)
	m := New(Config{SuperHelper: helper}, nil, nil)
	if err := m.PrepareSuperVolumes(); err != nil {
		t.Error(err)
	}
	m = New(Config{SuperHelper: []string{"lptools", "broken"}}, nil, nil)
	if err := m.PrepareSuperVolumes(); err == nil {
		t.Error("failing helper not reported")
	}
	tlog.Freeze()
	if cmds[testlog.CmdKey(helper)].RunCount != 1 {
		t.Errorf("helper ran %d times", cmds[testlog.CmdKey(helper)].RunCount)
	}
}
