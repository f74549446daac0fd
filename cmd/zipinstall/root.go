// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/sekaiacg/twrp-recovery/pkg/config"
	"github.com/sekaiacg/twrp-recovery/pkg/log"
	"github.com/sekaiacg/twrp-recovery/pkg/log/flags"
	"github.com/sekaiacg/twrp-recovery/pkg/log/screen"
	"github.com/sekaiacg/twrp-recovery/pkg/props"
)

const logPrefix = "twinstall_"

// rootOpts is shared by all subcommands. cfg is set before any RunE.
type rootOpts struct {
	configPath string
	envFile    string
	verbose    bool
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	o := &rootOpts{}
	cmd := &cobra.Command{
		Use:           "zipinstall",
		Short:         "Install update packages from recovery",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(o.configPath, o.envFile)
			if err != nil {
				return err
			}
			o.cfg = cfg
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&o.configPath, "config", config.DefaultPath, "config file")
	pf.StringVar(&o.envFile, "env-file", config.DefaultEnvFile, "file with "+config.EnvPrefix+"* overrides")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "also print technical log lines on the console")

	cmd.AddCommand(newInstallCmd(o), newClassifyCmd(o), newHistoryCmd(o), newVersionCmd())
	return cmd
}

// setupLogging attaches the console, file and screen sinks. Failing to add
// one is logged and otherwise ignored; an install must not fail over logs.
func (o *rootOpts) setupLogging(stderr io.Writer) {
	log.SetPrefix(logPrefix)
	console := flags.EndUser
	if o.verbose {
		console = flags.NA
	}
	if err := log.AddConsoleLogTo(stderr, console); err != nil {
		log.Logf("console log: %s", err)
	}
	if o.cfg.Log.Dir != "" {
		name, err := log.AddFileLog(o.cfg.Log.Dir, o.cfg.Log.Compress)
		if err != nil {
			log.Logf("file log in %s: %s", o.cfg.Log.Dir, err)
		} else {
			log.Logf("logging to %s", name)
		}
	}
	if o.cfg.Log.Screen != "" {
		if err := screen.AddScreenLog(o.cfg.Log.Screen, flags.EndUser); err != nil {
			log.Logf("screen log on %s: %s", o.cfg.Log.Screen, err)
		}
	}
	log.FlushMemLog()
}

func (o *rootOpts) props() *props.Store { return props.Load(o.cfg.PropFiles...) }
