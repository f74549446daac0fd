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
	"strings"

	futil "github.com/sekaiacg/twrp-recovery/pkg/fileutil"
	"github.com/sekaiacg/twrp-recovery/pkg/install/updater"
	"github.com/sekaiacg/twrp-recovery/pkg/log"
	"github.com/sekaiacg/twrp-recovery/pkg/props"
)

type ZipType int

const (
	Unknown ZipType = iota
	LegacyBinary
	SeamlessAB
	ThemeBundle
)

func (z ZipType) String() string {
	switch z {
	case LegacyBinary:
		return "update binary zip"
	case SeamlessAB:
		return "AB zip"
	case ThemeBundle:
		return "theme zip"
	}
	return "unknown zip"
}

// Entry names that decide a package's type.
const (
	UpdateBinary = "META-INF/com/google/android/update-binary"
	ThemeXML     = "ui.xml"
	MetadataName = "META-INF/com/android/metadata"
)

type Classification struct {
	Type ZipType
	// Entry is the installer binary to stage, for LegacyBinary.
	Entry string
	// Compat is the package's compatibility metadata, for LegacyBinary. Nil
	// if the package has none.
	Compat *Compatibility
}

type entryFinder interface {
	Find(name string) *zip.File
}

// Classify decides the package type by probing entry names, in priority
// order: installer binary (exact, then per ABI), A/B payload properties,
// theme. The result never depends on the order of entries in the archive.
// An error means compatibility metadata exists but can't be read.
func Classify(pkg entryFinder, abis []string) (Classification, error) {
	entry := ""
	if pkg.Find(UpdateBinary) != nil {
		entry = UpdateBinary
	} else {
		for _, abi := range abis {
			if name := UpdateBinary + "-" + abi; pkg.Find(name) != nil {
				entry = name
				break
			}
		}
	}
	switch {
	case entry != "":
		compat, err := readCompat(pkg.Find(MetadataName))
		if err != nil {
			return Classification{}, err
		}
		return Classification{Type: LegacyBinary, Entry: entry, Compat: compat}, nil
	case pkg.Find(updater.PayloadProperties) != nil:
		return Classification{Type: SeamlessAB}, nil
	case pkg.Find(ThemeXML) != nil:
		return Classification{Type: ThemeBundle}, nil
	}
	return Classification{Type: Unknown}, nil
}

// abiList is the device's ABI preference list, primary first.
func abiList(p Properties) []string {
	if p == nil {
		return nil
	}
	list := p.Get(props.AbiList, "")
	if list == "" {
		list = p.Get(props.Abi, "")
	}
	var abis []string
	for _, a := range strings.Split(list, ",") {
		if a = strings.TrimSpace(a); a != "" {
			abis = append(abis, a)
		}
	}
	return abis
}

// Compatibility lists the devices and builds a package may be installed on.
// An empty list allows anything.
type Compatibility struct {
	Devices []string //pre-device, comma separated
	Builds  []string //pre-build, '|' separated
}

const maxMetadataLines = 256

func readCompat(f *zip.File) (*Compatibility, error) {
	if f == nil {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()
	lines, err := futil.ScanConfigLines(rc, maxMetadataLines)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	c := &Compatibility{}
	for _, l := range lines {
		k, v, ok := strings.Cut(l, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "pre-device":
			c.Devices = splitNonEmpty(v, ",")
		case "pre-build":
			c.Builds = splitNonEmpty(v, "|")
		}
	}
	return c, nil
}

func splitNonEmpty(s, sep string) (out []string) {
	for _, v := range strings.Split(s, sep) {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return
}

// Check reports whether the device matches. A property the device doesn't
// report never causes a mismatch. A nil Compatibility always matches.
func (c *Compatibility) Check(p Properties) bool {
	if c == nil || p == nil {
		return true
	}
	if dev := p.Get(props.Device, ""); dev != "" && len(c.Devices) > 0 && !contains(c.Devices, dev) {
		log.Logf("package is for device(s) %v, this is %s", c.Devices, dev)
		return false
	}
	if fp := p.Get(props.Fingerprint, ""); fp != "" && len(c.Builds) > 0 && !contains(c.Builds, fp) {
		log.Logf("package is for build(s) %v, this is %s", c.Builds, fp)
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
