// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package verify

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"

	"github.com/mholt/archiver"

	"github.com/sekaiacg/twrp-recovery/pkg/log"
)

// DefaultCertsZip is where the platform keeps its OTA certificates.
const DefaultCertsZip = "/system/etc/security/otacerts.zip"

var ErrNoKeys = errors.New("no certificates loaded")

// TrustStore is the set of certificates accepted for one verification. Do
// not modify after loading.
type TrustStore []*x509.Certificate

// Contains reports whether pub is the key of a trusted certificate.
func (ts TrustStore) Contains(pub crypto.PublicKey) bool {
	for _, c := range ts {
		if k, ok := c.PublicKey.(equaler); ok && k.Equal(pub) {
			return true
		}
	}
	return false
}

// LoadTrustStore reads every PEM certificate in the zip at path. Entries that
// don't parse are logged and skipped. A zip yielding no certificates returns
// ErrNoKeys.
func LoadTrustStore(path string) (TrustStore, error) {
	var ts TrustStore
	err := archiver.NewZip().Walk(path, func(f archiver.File) error {
		if f.IsDir() {
			return nil
		}
		data, err := io.ReadAll(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f.Name(), err)
		}
		certs := parsePEMCerts(f.Name(), data)
		ts = append(ts, certs...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	log.Logf("%d key(s) loaded from %s", len(ts), path)
	if len(ts) == 0 {
		return nil, ErrNoKeys
	}
	return ts, nil
}

func parsePEMCerts(name string, data []byte) (certs []*x509.Certificate) {
	for {
		var blk *pem.Block
		blk, data = pem.Decode(data)
		if blk == nil {
			return
		}
		if blk.Type != "CERTIFICATE" {
			continue
		}
		c, err := x509.ParseCertificate(blk.Bytes)
		if err != nil {
			log.Logf("%s: skipping certificate: %s", name, err)
			continue
		}
		certs = append(certs, c)
	}
}
