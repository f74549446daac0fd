// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package install

import (
	fp "path/filepath"

	futil "github.com/sekaiacg/twrp-recovery/pkg/fileutil"
	"github.com/sekaiacg/twrp-recovery/pkg/log"
	"github.com/sekaiacg/twrp-recovery/pkg/pkgzip"
)

// installTheme copies the whole package into settings storage as the UI
// theme and asks the UI to reload.
func (e *Engine) installTheme(path string, pkg *pkgzip.Package) error {
	c := e.c
	log.Logf("TWRP theme zip")
	storage, err := c.Partitions.MountSettingsStorage()
	if err != nil {
		return fail(Error, err, MsgThemeErr, path)
	}
	dir := fp.Join(storage, c.Layout.ThemeDir)
	if err := c.Fs.MkdirAll(dir, 0755); err != nil {
		return fail(Error, err, MsgThemeErr, path)
	}
	dest := fp.Join(dir, c.Layout.ThemeFile)
	if err := futil.CopyReader(c.Fs, pkg.NewRawReader(), dest, 0644, pkg.Size()); err != nil {
		return fail(Error, err, MsgThemeErr, path)
	}
	log.Logf("Installing custom theme '%s' to '%s'", path, dest)
	if c.UI != nil {
		c.UI.RequestReload()
	}
	return nil
}
