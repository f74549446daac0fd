// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package pkgzip

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	futil "github.com/sekaiacg/twrp-recovery/pkg/fileutil"
)

var ErrBlockMap = errors.New("malformed block map")

//upper bound on lines read from a map file
const maxMapLines = 1 << 16

type blockRange struct{ start, end int64 } //in blocks, end exclusive

// blockMap reads a file that was laid out on a block device without mounting
// the filesystem holding it. Map format:
//
//	<block device>
//	<file size> <block size>
//	<range count>
//	<start> <end>
//	...
type blockMap struct {
	dev       *os.File
	size      int64
	blockSize int64
	ranges    []blockRange
}

func openBlockMap(path string) (*blockMap, error) {
	lines, err := futil.ReadConfigLines(path, maxMapLines)
	if err != nil {
		return nil, err
	}
	bm, devPath, err := parseBlockMap(lines)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	bm.dev, err = os.Open(devPath)
	if err != nil {
		return nil, err
	}
	return bm, nil
}

func parseBlockMap(lines []string) (*blockMap, string, error) {
	if len(lines) < 3 {
		return nil, "", ErrBlockMap
	}
	bm := &blockMap{}
	dev := strings.TrimSpace(lines[0])
	if _, err := fmt.Sscan(lines[1], &bm.size, &bm.blockSize); err != nil || bm.blockSize <= 0 || bm.size < 0 {
		return nil, "", fmt.Errorf("%w: size line %q", ErrBlockMap, lines[1])
	}
	count, err := strconv.Atoi(strings.TrimSpace(lines[2]))
	if err != nil || count < 0 || count != len(lines)-3 {
		return nil, "", fmt.Errorf("%w: range count %q", ErrBlockMap, lines[2])
	}
	var covered int64
	for _, l := range lines[3:] {
		var r blockRange
		if _, err := fmt.Sscan(l, &r.start, &r.end); err != nil || r.end <= r.start || r.start < 0 {
			return nil, "", fmt.Errorf("%w: range %q", ErrBlockMap, l)
		}
		bm.ranges = append(bm.ranges, r)
		covered += (r.end - r.start) * bm.blockSize
	}
	if covered < bm.size {
		return nil, "", fmt.Errorf("%w: ranges cover %d of %d bytes", ErrBlockMap, covered, bm.size)
	}
	return bm, dev, nil
}

func (bm *blockMap) ReadAt(b []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, ErrBlockMap
	}
	if off >= bm.size {
		return 0, io.EOF
	}
	want := len(b)
	if rem := bm.size - off; int64(want) > rem {
		want = int(rem)
	}
	//logical offset of the current range's first byte
	var base int64
	for _, r := range bm.ranges {
		rlen := (r.end - r.start) * bm.blockSize
		if off >= base+rlen {
			base += rlen
			continue
		}
		for n < want && off < base+rlen {
			chunk := base + rlen - off
			if chunk > int64(want-n) {
				chunk = int64(want - n)
			}
			devOff := r.start*bm.blockSize + (off - base)
			got, rerr := bm.dev.ReadAt(b[n:n+int(chunk)], devOff)
			n += got
			off += int64(got)
			if rerr != nil {
				return n, rerr
			}
		}
		base += rlen
		if n == want {
			break
		}
	}
	if n < len(b) {
		err = io.EOF
	}
	return n, err
}

func (bm *blockMap) Close() error { return bm.dev.Close() }
