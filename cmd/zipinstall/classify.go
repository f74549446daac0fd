// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sekaiacg/twrp-recovery/pkg/install"
	"github.com/sekaiacg/twrp-recovery/pkg/pkgzip"
)

// newClassifyCmd reports what install would do with a package, without
// mounting or running anything.
func newClassifyCmd(o *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <package>",
		Short: "Print the package type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			pkg, err := pkgzip.Open(args[0])
			if err != nil {
				return err
			}
			defer pkg.Close()

			p := o.props()
			cls, err := install.Classify(pkg, p.Abis())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, cls.Type)
			if cls.Entry != "" {
				_, _ = fmt.Fprintf(out, "entry: %s\n", cls.Entry)
			}
			if cls.Compat != nil {
				_, _ = fmt.Fprintf(out, "compatible: %t\n", cls.Compat.Check(p))
			}
			if cls.Type == install.Unknown {
				return &exitError{code: 2}
			}
			return nil
		},
	}
}
