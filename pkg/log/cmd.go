// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"os/exec"
)

type CommandFunc func(cmd *exec.Cmd) (res string, success bool)

// Cmd runs helper tools and captures their output. Tests replace it via
// testlog to fake tools that only exist on a device.
var Cmd CommandFunc = DefaultCmd

// DefaultCmd runs cmd with CombinedOutput, logging output on failure.
func DefaultCmd(cmd *exec.Cmd) (res string, success bool) {
	Logf("Running %v...", cmd.Args)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return string(out), true
	}
	Logf("Running %v: error %s\noutput:\n%s\n", cmd.Args, err, string(out))
	return "", false
}
