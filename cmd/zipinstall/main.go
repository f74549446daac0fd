// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Command zipinstall installs an update package from inside recovery. It
// handles legacy installer zips, A/B payload zips and UI theme zips; see
// github.com/sekaiacg/twrp-recovery/pkg/install for the install flow.
//
// Exit status is 0 on success, 1 when the install failed and 2 when the
// package itself is corrupt or unusable.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sekaiacg/twrp-recovery/pkg/log"
)

//in any binary with main.buildId string, it is set at compile time to $BUILD_INFO
var buildId string

func main() {
	runMain(os.Args, os.Stdout, os.Stderr, os.Exit)
}

// exitError ends the command with a status code and no further output.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

func versionString() string {
	if buildId == "" {
		return "dev"
	}
	return buildId
}

func execute(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd()
	cmd.Version = versionString()
	cmd.SetVersionTemplate("zipinstall {{.Version}}\n")
	if len(args) > 1 {
		cmd.SetArgs(args[1:])
	} else {
		cmd.SetArgs([]string{})
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}

func runMain(args []string, stdout, stderr io.Writer, exit func(int)) {
	err := execute(args, stdout, stderr)
	if err != nil && !log.InStack(log.ConsoleLogIdent) {
		//failed before any sink was attached; show what was logged so far
		log.DumpStderr()
	}
	log.Finalize()
	if err == nil {
		return
	}
	var ee *exitError
	if errors.As(err, &ee) {
		exit(ee.code)
		return
	}
	_, _ = fmt.Fprintln(stderr, err)
	exit(1)
}
