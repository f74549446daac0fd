// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package install

import (
	"context"
	"time"

	"github.com/spf13/afero"

	"github.com/sekaiacg/twrp-recovery/pkg/install/history"
	"github.com/sekaiacg/twrp-recovery/pkg/install/updater"
	"github.com/sekaiacg/twrp-recovery/pkg/install/verify"
)

// Sink is the presentation layer: progress, display lines and diagnostics
// reported by the installer child.
type Sink = updater.Sink

// Partitions is the volume manager. partition.Manager implements it.
type Partitions interface {
	IsMounted(path string) bool
	Mount(path string) error
	Unmount(path string) error
	AndroidRoot() string
	ActiveSlot() string
	UnlockBlockPartitions() error
	PrepareSuperVolumes() error
	MountSettingsStorage() (string, error)
	BindMount(src, dst string) error
	Unbind(path string) error
}

// Properties are device properties. props.Store implements it.
type Properties interface {
	Get(key, def string) string
	Bool(key string, def bool) bool
}

// Reflasher puts the running recovery back onto the device after an A/B
// flash replaced it.
type Reflasher interface {
	Reflash(ctx context.Context) error
}

// UIReloader asks the UI to reload its theme.
type UIReloader interface {
	RequestReload()
}

// Layout holds the fixed paths the installer stages to and mutates.
type Layout struct {
	UpdaterBinary string `toml:"updater_binary"`
	FileContexts  string `toml:"file_contexts"`
	ShellShim     string `toml:"shell_shim"`
	SystemShell   string `toml:"system_shell"`
	SystemDir     string `toml:"system_dir"`
	CertsZip      string `toml:"certs_zip"`
	ABEngine      string `toml:"ab_engine"`
	ThemeDir      string `toml:"theme_dir"` //relative to settings storage
	ThemeFile     string `toml:"theme_file"`
}

func DefaultLayout() Layout {
	return Layout{
		UpdaterBinary: "/tmp/updater",
		FileContexts:  "/file_contexts",
		ShellShim:     "/tmp/sh",
		SystemShell:   "/system/bin/sh",
		SystemDir:     "/system",
		CertsZip:      verify.DefaultCertsZip,
		ABEngine:      "/system/bin/update_engine_sideload",
		ThemeDir:      "TWRP/theme",
		ThemeFile:     "ui.zip",
	}
}

// fill replaces empty fields with defaults.
func (l *Layout) fill() {
	d := DefaultLayout()
	orDefault(&l.UpdaterBinary, d.UpdaterBinary)
	orDefault(&l.FileContexts, d.FileContexts)
	orDefault(&l.ShellShim, d.ShellShim)
	orDefault(&l.SystemShell, d.SystemShell)
	orDefault(&l.SystemDir, d.SystemDir)
	orDefault(&l.CertsZip, d.CertsZip)
	orDefault(&l.ABEngine, d.ABEngine)
	orDefault(&l.ThemeDir, d.ThemeDir)
	orDefault(&l.ThemeFile, d.ThemeFile)
}

func orDefault(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

type Options struct {
	VerifySignatures bool `toml:"verify_signatures"`
	UnmountSystem    bool `toml:"unmount_system"`
	ReflashRecovery  bool `toml:"reflash_recovery"`
	// OEMBuild forces signature verification and refuses themes.
	OEMBuild bool `toml:"oem_build"`
}

// Context is everything one Engine works with. Fields left nil get working
// defaults from NewEngine, except Partitions and Props which are required.
type Context struct {
	Sink       Sink
	Partitions Partitions
	Props      Properties
	Fs         afero.Fs
	Layout     Layout
	Options    Options
	LoadTrust  func(path string) (verify.TrustStore, error)
	Reflasher  Reflasher
	UI         UIReloader
	Messages   Catalog
	History    *history.History
	Now        func() time.Time
}

func (c *Context) verifySignatures() bool {
	return c.Options.VerifySignatures || c.Options.OEMBuild
}
