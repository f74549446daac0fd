// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package install

import (
	"archive/zip"
	"fmt"
	"os"

	futil "github.com/sekaiacg/twrp-recovery/pkg/fileutil"
	"github.com/sekaiacg/twrp-recovery/pkg/log"
	"github.com/sekaiacg/twrp-recovery/pkg/pkgzip"
)

// FileContextsName is the optional SELinux label manifest at the package root.
const FileContextsName = "file_contexts"

// Extract stages the installer binary entry, and file_contexts if the
// package has one. It returns the staged binary's path.
func (e *Engine) Extract(pkg *pkgzip.Package, entry string) (string, error) {
	l := e.c.Layout
	log.Logf("Extracting updater binary '%s'", entry)
	f := pkg.Find(entry)
	if f == nil {
		return "", fail(Error, fmt.Errorf("no entry %s", entry), MsgExtractErr, entry)
	}
	if err := e.extractEntry(f, l.UpdaterBinary, 0755); err != nil {
		return "", fail(Error, err, MsgExtractErr, entry)
	}

	fc := pkg.Find(FileContextsName)
	if fc == nil {
		log.Logf("Zip does not contain SELinux file_contexts file in its root.")
		return l.UpdaterBinary, nil
	}
	log.Logf("Zip contains SELinux file_contexts file in its root. Extracting to %s", l.FileContexts)
	if err := e.extractEntry(fc, l.FileContexts, 0644); err != nil {
		return "", fail(Error, err, MsgExtractErr, l.FileContexts)
	}
	return l.UpdaterBinary, nil
}

func (e *Engine) extractEntry(f *zip.File, dest string, perm os.FileMode) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return futil.CopyReader(e.c.Fs, rc, dest, perm, int64(f.UncompressedSize64))
}
