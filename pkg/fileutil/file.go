// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package fileutil has small file helpers shared by the installer packages.
package fileutil

import (
	"bufio"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sekaiacg/twrp-recovery/pkg/log"
)

// WaitFor waits for a file to appear or times out. Returns true if file appears,
// false otherwise. Sleeps .1s between checks.
func WaitFor(path string, timeout time.Duration) (found bool) {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// ReadConfigLines reads a config file at the given path. Whitespace is
// stripped, as are comments (anything between # and \n). Individual lines
// are returned, up to maxLines.
func ReadConfigLines(path string, maxLines int) ([]string, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return ScanConfigLines(in, maxLines)
}

// ScanConfigLines is ReadConfigLines for an already-open reader.
func ScanConfigLines(in io.Reader, maxLines int) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		l := scanner.Text()
		if i := strings.IndexByte(l, '#'); i >= 0 {
			l = l[:i]
		}
		l = strings.TrimSpace(l)
		if len(l) == 0 {
			continue
		}
		lines = append(lines, l)
		if len(lines) == maxLines {
			log.Logf("ScanConfigLines: max lines (%d) read", maxLines)
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
