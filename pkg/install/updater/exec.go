// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package updater runs an installer child and consumes the line protocol it
// writes to its status fd.
//
// Running is two stages. Spawn starts the child with the write end of a pipe
// as fd 3 and returns a Process. The Process is then drained with Next, one
// Command per line, until the child closes the pipe; Wait reaps it.
package updater

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/sekaiacg/twrp-recovery/pkg/log"
	"github.com/sekaiacg/twrp-recovery/pkg/log/flags"
	"github.com/sekaiacg/twrp-recovery/pkg/progress"
)

// Sink receives what the child reports.
type Sink interface {
	OnProgress(progress.Event)
	OnUiPrint(text string)
	OnLog(text string)
}

var (
	ErrExit   = errors.New("installer failed")
	ErrSignal = errors.New("installer killed")
)

// Longer status lines are cut to this; the rest of the line is dropped and
// reading goes on with the next one.
const maxLine = 64 * 1024

type Process struct {
	cmd     *exec.Cmd
	status  *os.File
	rd      *bufio.Reader
	out     *log.LineWriter
	eof     bool
	drained bool
}

// Spawn starts args[0] with the status pipe on fd 3. The child's stdout and
// stderr are logged.
func Spawn(args []string) (*Process, error) {
	if len(args) == 0 {
		return nil, errors.New("no command")
	}
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	out := log.NewLineWriter(args[0]+": ", flags.NA)
	cmd := exec.Command(args[0], args[1:]...)
	cmd.ExtraFiles = []*os.File{w}
	cmd.Stdout = out
	cmd.Stderr = out
	err = cmd.Start()
	//child has its own copy; ours must go or EOF never arrives
	w.Close()
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("starting %s: %w", args[0], err)
	}
	log.Logf("started %v as pid %d", args, cmd.Process.Pid)
	return &Process{cmd: cmd, status: r, rd: bufio.NewReaderSize(r, 4096), out: out}, nil
}

// Next blocks for the next command. It returns false once the child has
// closed its end of the pipe; after that it keeps returning false.
func (p *Process) Next() (Command, bool) {
	for !p.drained {
		line, ok := p.readLine()
		if !ok {
			p.drained = true
			break
		}
		if c, ok := ParseLine(line); ok {
			return c, true
		}
	}
	return Command{}, false
}

// readLine returns the next line without its terminator, cut to maxLine.
// The pipe is always read through to the newline so the child never blocks
// or dies writing to it.
func (p *Process) readLine() (string, bool) {
	if p.eof {
		return "", false
	}
	var line []byte
	truncated := false
	for {
		chunk, err := p.rd.ReadSlice('\n')
		if room := maxLine - len(line); len(chunk) > room {
			line = append(line, chunk[:room]...)
			truncated = true
		} else {
			line = append(line, chunk...)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			if err != io.EOF {
				log.Logf("reading installer status: %s", err)
			}
			p.eof = true
			if len(line) == 0 {
				return "", false
			}
		}
		break
	}
	if truncated {
		log.Logf("installer status line longer than %d bytes, truncated", maxLine)
	}
	return strings.TrimRight(string(line), "\r\n"), true
}

// Wait closes the read end and reaps the child. A non-zero exit wraps
// ErrExit; death by signal wraps ErrSignal.
func (p *Process) Wait() error {
	p.drained = true
	p.status.Close()
	err := p.cmd.Wait()
	p.out.Flush()
	if err == nil {
		return nil
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return err
	}
	if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		name := unix.SignalName(ws.Signal())
		log.Logf("%s killed by %s", p.cmd.Path, name)
		return fmt.Errorf("%w by %s", ErrSignal, name)
	}
	return fmt.Errorf("%w with exit status %d", ErrExit, ee.ExitCode())
}

// Run spawns args and feeds every command to sink until the child is done.
// reservedHead is the progress fraction already taken by verification;
// progress commands are scaled into what remains.
func Run(ctx context.Context, args []string, reservedHead float64, sink Sink) (wipeCache bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := Spawn(args)
	if err != nil {
		return false, err
	}
	for {
		c, ok := p.Next()
		if !ok {
			break
		}
		if Dispatch(c, reservedHead, sink) {
			wipeCache = true
		}
	}
	return wipeCache, p.Wait()
}

// Dispatch applies one command to sink and reports whether it asked for a
// cache wipe.
func Dispatch(c Command, reservedHead float64, sink Sink) (wipeCache bool) {
	switch c.Kind {
	case Progress:
		sink.OnProgress(progress.Event{
			Kind:     progress.Advance,
			Fraction: c.Fraction * (1 - reservedHead),
			Seconds:  c.Seconds,
		})
	case SetProgress:
		sink.OnProgress(progress.Event{Kind: progress.Set, Fraction: c.Fraction})
	case UiPrint:
		sink.OnUiPrint(c.Text)
	case WipeCache:
		return true
	case Log:
		sink.OnLog(c.Text)
	case ClearDisplay:
	default:
		sink.OnLog(fmt.Sprintf("unknown command [%s]", c.Raw))
	}
	return false
}
