// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package updater

import (
	"archive/zip"
	"errors"
	"fmt"
	"strconv"

	"github.com/sekaiacg/twrp-recovery/pkg/pkgzip"
)

const (
	// RecoveryAPIVersion is passed to legacy installers as their first
	// argument.
	RecoveryAPIVersion = 3
	// StatusFD is the child's end of the status pipe.
	StatusFD = 3

	PayloadProperties = "payload_properties.txt"
	PayloadBin        = "payload.bin"
)

var (
	ErrNoPayload         = errors.New("package has no " + PayloadBin)
	ErrPayloadCompressed = errors.New(PayloadBin + " is compressed")
	ErrNoProperties      = errors.New("package has no " + PayloadProperties)
)

// Corrupt reports whether a builder error means the package itself is bad,
// as opposed to an I/O failure.
func Corrupt(err error) bool {
	return errors.Is(err, ErrNoPayload) || errors.Is(err, ErrPayloadCompressed) || errors.Is(err, ErrNoProperties)
}

// LegacyArgs is the command line for a staged legacy installer.
func LegacyArgs(binary, pkgPath string, fd int) []string {
	return []string{binary, strconv.Itoa(RecoveryAPIVersion), strconv.Itoa(fd), pkgPath}
}

// SeamlessArgs is the command line for the A/B sideload engine. The engine
// reads payload.bin in place, so it must be stored uncompressed.
func SeamlessArgs(engine string, pkg *pkgzip.Package, fd int) ([]string, error) {
	props, err := pkg.ReadEntry(PayloadProperties)
	if err != nil {
		if pkg.Find(PayloadProperties) == nil {
			return nil, ErrNoProperties
		}
		return nil, fmt.Errorf("reading %s: %w", PayloadProperties, err)
	}
	payload := pkg.Find(PayloadBin)
	if payload == nil {
		return nil, ErrNoPayload
	}
	if payload.Method != zip.Store {
		return nil, ErrPayloadCompressed
	}
	off, err := payload.DataOffset()
	if err != nil {
		return nil, fmt.Errorf("locating %s: %w", PayloadBin, err)
	}
	return []string{
		engine,
		"--payload=file://" + pkg.Path,
		"--offset=" + strconv.FormatInt(off, 10),
		"--headers=" + string(props),
		"--status_fd=" + strconv.Itoa(fd),
	}, nil
}
