// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package install

import (
	"fmt"
)

// Message IDs. Text comes from the Catalog.
const (
	MsgInstalling       = "installing_zip"
	MsgCheckDigest      = "check_for_digest"
	MsgDigestFail       = "digest_fail"
	MsgVerifySig        = "verify_zip_sig"
	MsgKeysFail         = "keys_load_fail"
	MsgVerifyFail       = "verify_zip_fail"
	MsgVerifyDone       = "verify_zip_done"
	MsgUnmountSystem    = "unmount_system"
	MsgUnmountSystemErr = "unmount_system_err"
	MsgCompatErr        = "zip_compatible_err"
	MsgExtractErr       = "extract_fail"
	MsgUpdaterErr       = "updater_fail"
	MsgFlashAB          = "flash_ab_inactive"
	MsgVABMount         = "mount_vab_partitions"
	MsgABReboot         = "flash_ab_reboot"
	MsgThemeErr         = "theme_fail"
	MsgInvalidZip       = "invalid_zip_format"
)

// Catalog maps message IDs to printf formats.
type Catalog map[string]string

var DefaultMessages = Catalog{
	MsgInstalling:       "Installing zip file '%s'",
	MsgCheckDigest:      "Checking for Digest file...",
	MsgDigestFail:       "Aborting zip install: Digest verification failed",
	MsgVerifySig:        "Verifying zip signature...",
	MsgKeysFail:         "Failed to load keys",
	MsgVerifyFail:       "Zip signature verification failed!",
	MsgVerifyDone:       "Zip signature verified successfully.",
	MsgUnmountSystem:    "Unmounting System...",
	MsgUnmountSystemErr: "Failed unmounting System",
	MsgCompatErr:        "Zip Treble compatibility error!",
	MsgExtractErr:       "Could not extract '%s'",
	MsgUpdaterErr:       "Updater process ended with ERROR: %s",
	MsgFlashAB:          "Flashing A/B zip to inactive slot: %s",
	MsgVABMount:         "Devices on super may not mount until rebooting recovery.",
	MsgABReboot:         "To flash additional zips, please reboot recovery to switch to the updated slot.",
	MsgThemeErr:         "Failed to install theme '%s'",
	MsgInvalidZip:       "Invalid zip file format!",
}

// Merge returns DefaultMessages overridden by c.
func (c Catalog) Merge() Catalog {
	out := make(Catalog, len(DefaultMessages)+len(c))
	for k, v := range DefaultMessages {
		out[k] = v
	}
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Format renders id. An unknown id renders as itself, so a broken catalog
// still says something.
func (c Catalog) Format(id string, args ...interface{}) string {
	f, ok := c[id]
	if !ok {
		f, ok = DefaultMessages[id]
	}
	if !ok {
		if len(args) == 0 {
			return id
		}
		return fmt.Sprint(append([]interface{}{id, ": "}, args...)...)
	}
	return fmt.Sprintf(f, args...)
}

// failure ends an install. It carries the status and the single message shown
// to the user.
type failure struct {
	status Status
	msgID  string
	args   []interface{}
	err    error
}

func fail(status Status, err error, msgID string, args ...interface{}) *failure {
	return &failure{status: status, msgID: msgID, args: args, err: err}
}

func (f *failure) Error() string {
	if f.err == nil {
		return fmt.Sprintf("%s: %s", f.status, f.msgID)
	}
	return fmt.Sprintf("%s: %s: %s", f.status, f.msgID, f.err)
}

func (f *failure) Unwrap() error { return f.err }
