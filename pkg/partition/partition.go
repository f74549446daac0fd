// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package partition manages the recovery's volume table: mounting by logical
// path, slot queries, and the block-device housekeeping needed after an A/B
// flash.
package partition

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/moby/sys/mountinfo"
	"github.com/u-root/u-root/pkg/mount"
	"golang.org/x/sys/unix"

	futil "github.com/sekaiacg/twrp-recovery/pkg/fileutil"
	"github.com/sekaiacg/twrp-recovery/pkg/log"
	"github.com/sekaiacg/twrp-recovery/pkg/props"
)

// Volume is one entry in the table.
type Volume struct {
	Path    string `toml:"path"`   //logical mount point, e.g. /vendor
	Device  string `toml:"device"` //block device, e.g. /dev/block/by-name/vendor
	FsType  string `toml:"fstype"`
	Options string `toml:"options"` //comma-separated, fstab style
}

// Config is what a Manager needs besides the volumes.
type Config struct {
	AndroidRoot string   //where the system volume mounts, /system_root or /system
	Storage     string   //volume holding settings storage
	StoragePath string   //settings storage dir, may be below Storage
	BlockDir    string   //dir of block device nodes to unlock, /dev/block/by-name
	SuperHelper []string //command mapping logical partitions on super
}

var (
	ErrUnknownVolume = errors.New("no such volume")
	ErrNoStorage     = errors.New("settings storage not configured")
)

// how long to wait for a device node, e.g. dm nodes after super prep
var deviceWait = 5 * time.Second

// Manager implements the partition operations the installer needs on top
// of a fixed volume table. Mount state is always read from the kernel, not
// cached.
type Manager struct {
	cfg     Config
	volumes map[string]Volume
	props   *props.Store
}

func New(cfg Config, vols []Volume, p *props.Store) *Manager {
	m := &Manager{cfg: cfg, volumes: map[string]Volume{}, props: p}
	for _, v := range vols {
		m.volumes[v.Path] = v
	}
	if m.cfg.AndroidRoot == "" {
		m.cfg.AndroidRoot = "/system"
		if _, ok := m.volumes["/system_root"]; ok {
			m.cfg.AndroidRoot = "/system_root"
		}
	}
	if m.cfg.StoragePath == "" {
		m.cfg.StoragePath = m.cfg.Storage
	}
	return m
}

func (m *Manager) AndroidRoot() string { return m.cfg.AndroidRoot }

// Volumes lists the table, sorted by path.
func (m *Manager) Volumes() []Volume {
	var vs []Volume
	for _, v := range m.volumes {
		vs = append(vs, v)
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].Path < vs[j].Path })
	return vs
}

// IsMounted reports whether something is mounted at path. A path that does
// not exist is not mounted.
func (m *Manager) IsMounted(path string) bool {
	mounted, err := mountinfo.Mounted(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Logf("checking mount state of %s: %s", path, err)
		}
		return false
	}
	return mounted
}

// Mount mounts the volume at path read-write. Already mounted is success.
func (m *Manager) Mount(path string) error {
	v, ok := m.volumes[path]
	if !ok {
		return fmt.Errorf("mount %s: %w", path, ErrUnknownVolume)
	}
	if m.IsMounted(path) {
		return nil
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		log.Logf("creating mount point %s: %s", path, err)
	}
	if !futil.WaitFor(v.Device, deviceWait) {
		log.Logf("device %s has not appeared", v.Device)
	}
	flags, data := parseOpts(removeOpts(v.Options, "nofail", "auto", "defaults", "ro"))
	err := unix.Mount(v.Device, path, v.FsType, flags, data)
	if err == nil {
		log.Logf("mount %s on %s", v.Device, path)
		return nil
	}
	log.Logf("mount syscall failed with %s, trying binary...", err)
	mnt := exec.Command("mount", "-t", v.FsType, v.Device, path)
	if opts := removeOpts(v.Options, "nofail", "auto", "defaults", "ro"); opts != "" {
		mnt.Args = append(mnt.Args, "-o", opts)
	}
	if _, ok := log.Cmd(mnt); !ok {
		return fmt.Errorf("mount %s on %s: %w", v.Device, path, err)
	}
	return nil
}

// Unmount unmounts path. Not mounted is success. A busy mount is detached
// lazily.
func (m *Manager) Unmount(path string) error {
	if !m.IsMounted(path) {
		return nil
	}
	err := mount.Unmount(path, false, false)
	if err == nil {
		log.Logf("umount %s", path)
		return nil
	}
	log.Logf("umount %s: %s, retrying lazily", path, err)
	if err = mount.Unmount(path, false, true); err != nil {
		return fmt.Errorf("umount %s: %w", path, err)
	}
	return nil
}

// BindMount makes src visible at dst.
func (m *Manager) BindMount(src, dst string) error {
	if err := unix.Mount(src, dst, "", unix.MS_BIND, ""); err != nil {
		return fmt.Errorf("bind %s on %s: %w", src, dst, err)
	}
	return nil
}

// Unbind removes a bind mount made by BindMount.
func (m *Manager) Unbind(path string) error {
	return mount.Unmount(path, false, false)
}

// MountSettingsStorage mounts the storage volume and returns the settings
// storage directory.
func (m *Manager) MountSettingsStorage() (string, error) {
	if m.cfg.Storage == "" {
		return "", ErrNoStorage
	}
	if _, known := m.volumes[m.cfg.Storage]; known {
		if err := m.Mount(m.cfg.Storage); err != nil {
			return "", err
		}
	} else if !m.IsMounted(m.cfg.Storage) {
		return "", fmt.Errorf("settings storage %s: %w", m.cfg.Storage, ErrUnknownVolume)
	}
	return m.cfg.StoragePath, nil
}
