// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"bytes"
	"sync"

	"github.com/sekaiacg/twrp-recovery/pkg/log/flags"
)

// LineWriter is an io.Writer turning each complete line written to it into
// a log entry, for example a child process's stdout. Call Flush after the
// last write to log a trailing partial line.
type LineWriter struct {
	Prefix string
	Level  flags.Flag

	mu  sync.Mutex
	buf bytes.Buffer
}

func NewLineWriter(prefix string, level flags.Flag) *LineWriter {
	return &LineWriter{Prefix: prefix, Level: level}
}

func (lw *LineWriter) Write(b []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.buf.Write(b)
	for {
		i := bytes.IndexByte(lw.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(lw.buf.Next(i + 1))
		lw.emit(line[:len(line)-1])
	}
	return len(b), nil
}

func (lw *LineWriter) Flush() {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if lw.buf.Len() > 0 {
		lw.emit(lw.buf.String())
		lw.buf.Reset()
	}
}

func (lw *LineWriter) emit(line string) {
	FlaggedLogf(lw.Level, "%s%s", lw.Prefix, line)
}
