// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	fp "path/filepath"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/sekaiacg/twrp-recovery/pkg/log/flags"
)

type fileLog struct {
	f    *os.File
	xzw  *xz.Writer //nil unless compressing
	w    io.Writer
	next StackableLogger
}

var _ StackableLogger = (*fileLog)(nil)

var EPrefix = errors.New("log prefix is unset")

// AddFileLog creates <dir>/<prefix><timestamp>.log and pushes it onto the
// stack, replaying earlier entries. With compress, output is xz and the name
// ends in .log.xz.
func AddFileLog(dir string, compress bool) (string, error) {
	prefix := GetPrefix()
	if prefix == "" {
		return "", EPrefix
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	name := prefix + time.Now().Format(TimestampLayout) + ".log"
	if compress {
		name += ".xz"
	}
	return AddNamedFileLog(fp.Join(dir, name), compress)
}

// AddNamedFileLog is AddFileLog with a caller-chosen file name.
func AddNamedFileLog(fname string, compress bool) (string, error) {
	f, err := os.Create(fname)
	if err != nil {
		return "", err
	}
	fl := &fileLog{f: f, w: f}
	if compress {
		fl.xzw, err = xz.NewWriter(f)
		if err != nil {
			f.Close()
			os.Remove(fname)
			return "", fmt.Errorf("xz writer for %s: %w", fname, err)
		}
		fl.w = fl.xzw
	}
	err = AddLogger(fl, true)
	if err == nil {
		err = SetAttr("Filename", fname)
	}
	if err != nil {
		fl.close()
		os.Remove(fname)
		return "", err
	}
	return fname, nil
}

func (fl *fileLog) AddEntry(e LogEntry) {
	if e.Flags&flags.NotFile == 0 && fl.w != nil {
		fmt.Fprintln(fl.w, e.String())
	}
	if fl.next != nil {
		fl.next.AddEntry(e)
	}
}

func (fl *fileLog) ForwardTo(sl StackableLogger) {
	if fl.next != nil && sl != nil {
		panic("next already set")
	}
	fl.next = sl
}

const FileLogIdent = "fileLog"

func (fl *fileLog) Ident() string         { return FileLogIdent }
func (fl *fileLog) Next() StackableLogger { return fl.next }

func (fl *fileLog) close() {
	if fl.xzw != nil {
		if err := fl.xzw.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "flushing compressed log: %s\n", err)
		}
		fl.xzw = nil
	}
	if fl.f != nil {
		if err := fl.f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "closing log file: %s\n", err)
		}
		fl.f = nil
	}
	fl.w = nil
}

func (fl *fileLog) Finalize() {
	fl.close()
	if fl.next != nil {
		fl.next.Finalize()
	}
}

func LoggingToFile() bool {
	logStackMtx.Lock()
	defer logStackMtx.Unlock()
	return InStack(FileLogIdent)
}
