// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package partition

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	fp "path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/sekaiacg/twrp-recovery/pkg/log"
	"github.com/sekaiacg/twrp-recovery/pkg/props"
)

var cmdlinePath = "/proc/cmdline"

// ActiveSlot returns "A" or "B", or "" on a device without slots.
func (m *Manager) ActiveSlot() string {
	suffix := ""
	if m.props != nil {
		suffix = m.props.Get(props.SlotSuffix, "")
	}
	if suffix == "" {
		suffix = cmdlineSlot()
	}
	switch strings.TrimPrefix(suffix, "_") {
	case "a":
		return "A"
	case "b":
		return "B"
	}
	return ""
}

func cmdlineSlot() string {
	data, err := os.ReadFile(cmdlinePath)
	if err != nil {
		return ""
	}
	for _, f := range strings.Fields(string(data)) {
		if v, ok := strings.CutPrefix(f, "androidboot.slot_suffix="); ok {
			return v
		}
	}
	return ""
}

// InactiveSlot is the slot an A/B package gets written to.
func InactiveSlot(active string) string {
	if active == "A" {
		return "B"
	}
	return "A"
}

//BLKROSET from linux/fs.h
const blkROSet = 0x125d

// UnlockBlockPartitions clears the read-only flag on every block device
// node in the block dir. Every node is attempted; the joined errors are
// returned.
func (m *Manager) UnlockBlockPartitions() error {
	if m.cfg.BlockDir == "" {
		return nil
	}
	entries, err := os.ReadDir(m.cfg.BlockDir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", m.cfg.BlockDir, err)
	}
	var errs []error
	unlocked := 0
	for _, e := range entries {
		dev := fp.Join(m.cfg.BlockDir, e.Name())
		if err := setWritable(dev); err != nil {
			errs = append(errs, err)
			continue
		}
		unlocked++
	}
	log.Logf("unlocked %d of %d block device(s) in %s", unlocked, len(entries), m.cfg.BlockDir)
	return errors.Join(errs...)
}

func setWritable(dev string) error {
	fi, err := os.Stat(dev)
	if err != nil {
		return err
	}
	if fi.Mode()&os.ModeDevice == 0 {
		return nil
	}
	f, err := os.OpenFile(dev, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := unix.IoctlSetPointerInt(int(f.Fd()), blkROSet, 0); err != nil {
		return fmt.Errorf("BLKROSET %s: %w", dev, err)
	}
	return nil
}

// PrepareSuperVolumes maps the logical partitions of the freshly written
// slot by running the configured helper.
func (m *Manager) PrepareSuperVolumes() error {
	if len(m.cfg.SuperHelper) == 0 {
		log.Logf("no super volume helper configured")
		return nil
	}
	cmd := exec.Command(m.cfg.SuperHelper[0], m.cfg.SuperHelper[1:]...)
	if out, ok := log.Cmd(cmd); !ok {
		return fmt.Errorf("%v failed", cmd.Args)
	} else if out != "" {
		log.Logf("%s", out)
	}
	return nil
}
