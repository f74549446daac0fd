// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sekaiacg/twrp-recovery/pkg/install"
	"github.com/sekaiacg/twrp-recovery/pkg/install/history"
	"github.com/sekaiacg/twrp-recovery/pkg/log"
	"github.com/sekaiacg/twrp-recovery/pkg/partition"
	"github.com/sekaiacg/twrp-recovery/pkg/reflash"
)

// wipeCacheLine is printed on stdout when the installer asked for a cache
// wipe. Wiping is up to the caller.
const wipeCacheLine = "wipe_cache"

func newInstallCmd(o *rootOpts) *cobra.Command {
	var (
		noDigest bool
		verify   bool
		reflashR bool
	)
	cmd := &cobra.Command{
		Use:   "install <package>",
		Short: "Install a package; prefix a block map path with @",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("verify") {
				o.cfg.Install.VerifySignatures = verify
			}
			if cmd.Flags().Changed("reflash") {
				o.cfg.Install.ReflashRecovery = reflashR
			}
			o.setupLogging(cmd.ErrOrStderr())

			eng := install.NewEngine(o.installContext())
			res, wipe := eng.Install(cmd.Context(), args[0], !noDigest)
			if wipe {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), wipeCacheLine)
			}
			return statusErr(res.Status)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&noDigest, "no-digest", false, "skip the .sha256/.md5 sidecar check")
	f.BoolVar(&verify, "verify", false, "verify the package signature (overrides config)")
	f.BoolVar(&reflashR, "reflash", false, "reflash recovery after an A/B install (overrides config)")
	return cmd
}

func statusErr(s install.Status) error {
	switch s {
	case install.Success:
		return nil
	case install.Corrupt:
		return &exitError{code: 2}
	}
	return &exitError{code: 1}
}

func (o *rootOpts) installContext() *install.Context {
	cfg := o.cfg
	p := o.props()
	c := &install.Context{
		Partitions: partition.New(cfg.PartitionConfig(), cfg.Volumes, p),
		Props:      p,
		Layout:     cfg.Layout,
		Options:    cfg.Install,
		Messages:   install.Catalog(cfg.Messages),
		UI:         touchReloader(cfg.UIReload),
	}
	if len(cfg.Reflash) > 0 {
		c.Reflasher = reflash.New(cfg.Reflash)
	}
	if cfg.History != "" {
		c.History = history.Open(afero.NewOsFs(), cfg.History)
	}
	return c
}

// touchReloader asks the UI to reload by creating a file it polls for.
type touchReloader string

func (t touchReloader) RequestReload() {
	if t == "" {
		return
	}
	if err := os.WriteFile(string(t), nil, 0644); err != nil {
		log.Logf("requesting ui reload via %s: %s", string(t), err)
	}
}
