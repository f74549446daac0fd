// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package pkgzip

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	fp "path/filepath"
	"strings"
	"testing"
)

func mkZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, body); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestOpenPlain(t *testing.T) {
	data := mkZip(t, map[string]string{"a.txt": "alpha", "dir/b.txt": "bravo"})
	path := fp.Join(t.TempDir(), "update.zip")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	p, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if p.Size() != int64(len(data)) {
		t.Errorf("got size %d, wanted %d", p.Size(), len(data))
	}
	if p.Find("dir/b.txt") == nil || p.Find("b.txt") != nil {
		t.Errorf("lookup by exact name failed")
	}
	got, err := p.ReadEntry("a.txt")
	if err != nil || string(got) != "alpha" {
		t.Errorf("got %q (%v), wanted alpha", got, err)
	}
	if _, err := p.ReadEntry("missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v for missing entry", err)
	}
	raw, err := io.ReadAll(p.NewRawReader())
	if err != nil || !bytes.Equal(raw, data) {
		t.Errorf("raw bytes differ")
	}
}

func TestOpenNotZip(t *testing.T) {
	path := fp.Join(t.TempDir(), "junk.zip")
	if err := os.WriteFile(path, []byte("definitely not a zip archive"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("opened a non-zip")
	}
	if _, err := Open(path + ".nope"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v", err)
	}
}

// scatter lays data out on a fake device in two ranges, second half first,
// and returns the map file's path.
func scatter(t *testing.T, data []byte) string {
	t.Helper()
	const bs = 512
	dir := t.TempDir()
	blocks := (len(data) + bs - 1) / bs
	firstLen := blocks / 2
	if firstLen == 0 {
		firstLen = 1
	}
	secondLen := blocks - firstLen
	//device: [1 pad block][second part][2 pad blocks][first part]
	secondStart := 1
	firstStart := secondStart + secondLen + 2
	dev := make([]byte, (firstStart+firstLen)*bs)
	for i := range dev {
		dev[i] = 0xee
	}
	split := firstLen * bs
	if split > len(data) {
		split = len(data)
	}
	copy(dev[firstStart*bs:], data[:split])
	copy(dev[secondStart*bs:], data[split:])
	devPath := fp.Join(dir, "mmcblk0p42")
	if err := os.WriteFile(devPath, dev, 0644); err != nil {
		t.Fatal(err)
	}
	var m strings.Builder
	fmt.Fprintf(&m, "%s\n%d %d\n", devPath, len(data), bs)
	if secondLen > 0 {
		fmt.Fprintf(&m, "2\n%d %d\n%d %d\n", firstStart, firstStart+firstLen, secondStart, secondStart+secondLen)
	} else {
		fmt.Fprintf(&m, "1\n%d %d\n", firstStart, firstStart+firstLen)
	}
	mapPath := fp.Join(dir, "block.map")
	if err := os.WriteFile(mapPath, []byte(m.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return mapPath
}

func TestOpenBlockMap(t *testing.T) {
	body := strings.Repeat("0123456789abcdef", 200)
	data := mkZip(t, map[string]string{"payload_properties.txt": "FILE_HASH=x\n", "big": body})
	mapPath := scatter(t, data)

	p, err := Open("@" + mapPath)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if p.Size() != int64(len(data)) {
		t.Errorf("got size %d, wanted %d", p.Size(), len(data))
	}
	raw, err := io.ReadAll(p.NewRawReader())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, data) {
		t.Fatal("block map reassembled different bytes")
	}
	got, err := p.ReadEntry("big")
	if err != nil || string(got) != body {
		t.Errorf("entry through block map: %v", err)
	}
	buf := make([]byte, 10)
	if n, err := p.ReadAt(buf, p.Size()-4); n != 4 || err != io.EOF {
		t.Errorf("read past end: got %d, %v", n, err)
	}
}

func TestParseBlockMap(t *testing.T) {
	for _, td := range []struct {
		name  string
		lines []string
		ok    bool
	}{
		{"good", []string{"/dev/block/sda1", "1024 512", "1", "0 2"}, true},
		{"short", []string{"/dev/block/sda1", "1024 512"}, false},
		{"count mismatch", []string{"/dev/block/sda1", "1024 512", "2", "0 2"}, false},
		{"bad size", []string{"/dev/block/sda1", "x 512", "1", "0 2"}, false},
		{"zero block size", []string{"/dev/block/sda1", "1024 0", "1", "0 2"}, false},
		{"empty range", []string{"/dev/block/sda1", "1024 512", "1", "2 2"}, false},
		{"undercovered", []string{"/dev/block/sda1", "4096 512", "1", "0 2"}, false},
	} {
		t.Run(td.name, func(t *testing.T) {
			bm, dev, err := parseBlockMap(td.lines)
			if td.ok {
				if err != nil {
					t.Fatal(err)
				}
				if dev != "/dev/block/sda1" || bm.size != 1024 || len(bm.ranges) != 1 {
					t.Errorf("got %s %+v", dev, bm)
				}
				return
			}
			if !errors.Is(err, ErrBlockMap) {
				t.Errorf("got %v, wanted ErrBlockMap", err)
			}
		})
	}
}
