// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package fileutil

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// CopyFile copies src to dest on fs, creating or truncating dest with perm.
// Parent dirs must exist.
func CopyFile(fs afero.Fs, src, dest string, perm os.FileMode) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	return CopyReader(fs, in, dest, perm, info.Size())
}

// CopyReader writes r to dest on fs with mode perm. If size is non-negative,
// fewer bytes than that is an error. On any error dest is removed.
func CopyReader(fs afero.Fs, r io.Reader, dest string, perm os.FileMode, size int64) (err error) {
	//a stale file keeps its old mode through O_TRUNC
	if rmErr := fs.Remove(dest); rmErr != nil && !os.IsNotExist(rmErr) {
		return rmErr
	}
	out, err := fs.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = fs.Remove(dest)
		}
	}()
	n, err := io.Copy(out, r)
	if err != nil {
		return err
	}
	if size >= 0 && n < size {
		return fmt.Errorf("copied %d bytes, expected %d", n, size)
	}
	//umask may have masked bits off
	return fs.Chmod(dest, perm)
}
