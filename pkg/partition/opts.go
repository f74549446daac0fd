// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package partition

import (
	"strings"

	"golang.org/x/sys/unix"
)

var optFlags = map[string]uintptr{
	"nosuid":      unix.MS_NOSUID,
	"nodev":       unix.MS_NODEV,
	"noexec":      unix.MS_NOEXEC,
	"noatime":     unix.MS_NOATIME,
	"nodiratime":  unix.MS_NODIRATIME,
	"relatime":    unix.MS_RELATIME,
	"sync":        unix.MS_SYNCHRONOUS,
	"dirsync":     unix.MS_DIRSYNC,
	"lazytime":    unix.MS_LAZYTIME,
	"rw":          0,
	"strictatime": unix.MS_STRICTATIME,
}

// parseOpts splits fstab options into mount(2) flags and fs-specific data.
func parseOpts(opts string) (flags uintptr, data string) {
	var rest []string
	for _, o := range strings.Split(opts, ",") {
		if o == "" {
			continue
		}
		if f, ok := optFlags[o]; ok {
			flags |= f
			continue
		}
		rest = append(rest, o)
	}
	return flags, strings.Join(rest, ",")
}

//remove options from comma-separated list. if opt to remove ends with '=', match beginning of an item in opts
func removeOpts(opts string, removes ...string) string {
	var kept []string
	for _, o := range strings.Split(opts, ",") {
		skip := o == ""
		for _, r := range removes {
			if r == o || (strings.HasSuffix(r, "=") && strings.HasPrefix(o, r)) {
				skip = true
				break
			}
		}
		if !skip {
			kept = append(kept, o)
		}
	}
	return strings.Join(kept, ",")
}
