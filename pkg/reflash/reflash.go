// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package reflash puts the running recovery back onto the boot partition of
// the newly flashed slot, by running an external repack tool.
package reflash

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/sekaiacg/twrp-recovery/pkg/log"
)

var ErrNoTool = errors.New("no reflash tool configured")

type Tool struct {
	// Command is the repack tool and its arguments.
	Command []string
}

func New(command []string) *Tool { return &Tool{Command: command} }

func (t *Tool) Reflash(ctx context.Context) error {
	if len(t.Command) == 0 {
		return ErrNoTool
	}
	log.Msgf("Reflashing recovery to the updated slot...")
	cmd := exec.CommandContext(ctx, t.Command[0], t.Command[1:]...)
	out, ok := log.Cmd(cmd)
	if !ok {
		return fmt.Errorf("%v failed", cmd.Args)
	}
	if out != "" {
		log.Logf("%s", out)
	}
	return nil
}
