// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

//go:build !release
// +build !release

package testlog

import (
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/sekaiacg/twrp-recovery/pkg/log"
)

// Key identifies a command line in a CmdMap.
type Key string

func CmdKey(args []string) Key { return Key(strings.Join(args, "|") + "|") }

type Result struct {
	Res     string
	Success bool
}

// HijackerData controls one command in a CmdMap.
type HijackerData struct {
	Result   Result        //replayed if NoRun, else recorded
	RunCount int           //invocations so far
	NoRun    bool          //do not exec; return Result
	Pause    time.Duration //extra delay before returning
}

type CmdMap map[Key]HijackerData

// UseMappedCmdHijacker points log.Cmd at m. Commands marked NoRun are never
// executed. Commands absent from m are recorded as failed without running,
// so a test can never reach a real device tool by accident.
func (tlog *TstLog) UseMappedCmdHijacker(m CmdMap) {
	var mu sync.Mutex
	log.Cmd = func(cmd *exec.Cmd) (res string, success bool) {
		key := CmdKey(cmd.Args)
		log.Logf("Running %v...", cmd.Args)
		mu.Lock()
		data, known := m[key]
		mu.Unlock()
		data.RunCount++
		switch {
		case !known:
			log.Logf("testlog: no mapping for %v, not running", cmd.Args)
		case data.NoRun:
			res, success = data.Result.Res, data.Result.Success
		default:
			out, err := cmd.CombinedOutput()
			if err == nil {
				success = true
				res = string(out)
			} else {
				log.Logf("Running %v: error %s\noutput:\n%s\n", cmd.Args, err, string(out))
			}
			data.Result.Res, data.Result.Success = res, success
		}
		mu.Lock()
		m[key] = data
		mu.Unlock()
		time.Sleep(data.Pause)
		return
	}
}
