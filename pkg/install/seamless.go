// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package install

import (
	"context"
	"os"

	futil "github.com/sekaiacg/twrp-recovery/pkg/fileutil"
	"github.com/sekaiacg/twrp-recovery/pkg/install/updater"
	"github.com/sekaiacg/twrp-recovery/pkg/log"
	"github.com/sekaiacg/twrp-recovery/pkg/partition"
	"github.com/sekaiacg/twrp-recovery/pkg/props"
)

// VendorPath is the second volume an A/B flash needs mounted.
const VendorPath = "/vendor"

// VolumeState is one volume's mount state at snapshot time.
type VolumeState struct {
	Path    string
	Mounted bool
}

// MountSnapshot records whether each volume was mounted, in the order the
// volumes were given.
type MountSnapshot []VolumeState

func SaveMounts(p Partitions, paths ...string) MountSnapshot {
	s := make(MountSnapshot, 0, len(paths))
	for _, path := range paths {
		s = append(s, VolumeState{Path: path, Mounted: p.IsMounted(path)})
	}
	return s
}

// Restore unmounts the volumes that were not mounted when s was taken, last
// saved first. Failures are logged; restoring never fails an install.
func (s MountSnapshot) Restore(p Partitions) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Mounted {
			continue
		}
		if err := p.Unmount(s[i].Path); err != nil {
			log.Logf("restoring mount state of %s: %s", s[i].Path, err)
		}
	}
}

// seamless writes an A/B payload to the inactive slot, then does the slot
// bookkeeping the new slot needs.
func (e *Engine) seamless(ctx context.Context, args []string, head float64) (bool, error) {
	c := e.c
	log.Logf("AB zip")
	log.Highlightf("%s", e.msg(MsgFlashAB, partition.InactiveSlot(c.Partitions.ActiveSlot())))

	wipe, runErr := e.flashInactive(ctx, args, head)

	if c.Props != nil && c.Props.Bool(props.VirtualABEnabled, false) {
		if err := c.Partitions.UnlockBlockPartitions(); err != nil {
			log.Logf("unlocking block devices: %s", err)
		}
		if err := c.Partitions.PrepareSuperVolumes(); err != nil {
			log.Logf("preparing super volumes: %s", err)
		}
		log.Warnf("%s", e.msg(MsgVABMount))
	}
	log.Warnf("%s", e.msg(MsgABReboot))

	if c.Options.ReflashRecovery && c.Reflasher != nil {
		if err := c.Reflasher.Reflash(ctx); err != nil {
			log.Logf("reflashing recovery: %s", err)
		}
	}
	if runErr != nil {
		return wipe, fail(Error, runErr, MsgUpdaterErr, runErr)
	}
	return wipe, nil
}

// flashInactive runs the A/B engine with both volumes mounted and the shell
// shim in place. Mount state and the shim are put back however the run ends.
func (e *Engine) flashInactive(ctx context.Context, args []string, head float64) (bool, error) {
	c := e.c
	root := c.Partitions.AndroidRoot()
	snap := SaveMounts(c.Partitions, root, VendorPath)
	defer snap.Restore(c.Partitions)
	for _, v := range []string{root, VendorPath} {
		if err := c.Partitions.Mount(v); err != nil {
			log.Logf("mounting %s: %s", v, err)
		}
	}

	bound := e.installShim()
	defer e.removeShim(bound)

	return updater.Run(ctx, args, head, c.Sink)
}

// installShim copies the system shell aside and binds the copy over the
// original, so scripts run during the flash keep a working shell while the
// volume below it changes. Failure is logged and the flash goes on.
func (e *Engine) installShim() (bound bool) {
	c := e.c
	l := c.Layout
	if err := futil.CopyFile(c.Fs, l.SystemShell, l.ShellShim, 0755); err != nil {
		log.Logf("staging shell shim: %s", err)
		return false
	}
	if err := c.Partitions.BindMount(l.ShellShim, l.SystemShell); err != nil {
		log.Logf("binding shell shim: %s", err)
		return false
	}
	return true
}

func (e *Engine) removeShim(bound bool) {
	c := e.c
	l := c.Layout
	if bound {
		if err := c.Partitions.Unbind(l.SystemShell); err != nil {
			log.Logf("unbinding shell shim: %s", err)
		}
	}
	if err := c.Fs.Remove(l.ShellShim); err != nil && !os.IsNotExist(err) {
		log.Logf("removing shell shim: %s", err)
	}
}
