// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package twrprecovery holds the update-package installer that runs inside
// the recovery environment.
//
// A package is a zip archive, or a block map ('@' path) describing where a
// zip's blocks lie on a raw device. Each install goes through the same steps:
//
//    - verification: an optional .sha256/.md5 sidecar digest, then an
//      optional whole-file signature checked against the trusted certificates
//      in otacerts.zip.
//    - classification: the entries present decide whether the package is a
//      legacy installer zip (META-INF/.../update-binary), an A/B payload
//      (payload_properties.txt) or a UI theme (ui.xml).
//    - execution: legacy zips have their installer binary staged and run as a
//      child speaking the line protocol on an inherited pipe. A/B payloads
//      are handed to the update engine against the inactive slot with mounts
//      saved and restored around it. Themes are copied into settings storage.
//
// The engine lives in pkg/install; cmd/zipinstall is the command line front
// end. Settings come from a TOML file plus TWINSTALL_* environment
// overrides, see pkg/config.
package twrprecovery
