// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package pkgzip opens update packages. A package is either a plain zip file
// or, when the path starts with '@', a block map describing where the zip's
// bytes live on a block device.
package pkgzip

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sekaiacg/twrp-recovery/pkg/log"
)

// Package is an open update package. It is owned by one install call and must
// be closed by it.
type Package struct {
	Path string
	*zip.Reader

	ra     io.ReaderAt
	size   int64
	byName map[string]*zip.File
	closer io.Closer
}

// Open opens the package at path. Paths starting with '@' name a block map.
func Open(path string) (*Package, error) {
	var (
		ra     io.ReaderAt
		size   int64
		closer io.Closer
	)
	if mapFile, ok := strings.CutPrefix(path, "@"); ok {
		bm, err := openBlockMap(mapFile)
		if err != nil {
			return nil, err
		}
		ra, size, closer = bm, bm.size, bm
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		ra, size, closer = f, fi.Size(), f
	}
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	p := &Package{
		Path:   path,
		Reader: zr,
		ra:     ra,
		size:   size,
		byName: make(map[string]*zip.File, len(zr.File)),
		closer: closer,
	}
	for _, f := range zr.File {
		if _, dup := p.byName[f.Name]; dup {
			log.Logf("%s: duplicate entry %s, using the first", path, f.Name)
			continue
		}
		p.byName[f.Name] = f
	}
	return p, nil
}

// Find returns the entry with the exact name, or nil.
func (p *Package) Find(name string) *zip.File { return p.byName[name] }

// ReadAt reads the raw package bytes.
func (p *Package) ReadAt(b []byte, off int64) (int, error) { return p.ra.ReadAt(b, off) }

// Size is the length of the raw package in bytes.
func (p *Package) Size() int64 { return p.size }

// NewRawReader returns a reader over the whole raw package.
func (p *Package) NewRawReader() io.Reader { return io.NewSectionReader(p.ra, 0, p.size) }

func (p *Package) Close() error {
	if p.closer == nil {
		return nil
	}
	err := p.closer.Close()
	p.closer = nil
	return err
}

// ReadEntry returns the full contents of the named entry.
func (p *Package) ReadEntry(name string) ([]byte, error) {
	f := p.Find(name)
	if f == nil {
		return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
