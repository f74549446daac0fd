// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sekaiacg/twrp-recovery/pkg/install/history"
)

var errNoHistory = errors.New("install history is disabled (history_dir is empty)")

func newHistoryCmd(o *rootOpts) *cobra.Command {
	var rollover bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past install attempts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.cfg.History == "" {
				return errNoHistory
			}
			h := history.Open(afero.NewOsFs(), o.cfg.History)
			out := cmd.OutOrStdout()
			if rollover {
				h.Rollover()
				_, _ = fmt.Fprintf(out, "moved %s aside\n", h.Path())
				return nil
			}
			for _, r := range h.Results() {
				_, _ = fmt.Fprintf(out, "%s: %d attempt(s), %d failure(s)\n", r.Package, r.Attempts, r.Failures)
				for _, n := range r.Notes {
					_, _ = fmt.Fprintf(out, "  %s\n", n)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&rollover, "rollover", false, "keep the current history as .prev and start a new one")
	return cmd
}
