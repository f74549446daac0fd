// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package verify

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/multiformats/go-multihash"

	"github.com/sekaiacg/twrp-recovery/pkg/log"
)

type sidecar struct {
	ext  string
	code uint64
}

// tried in order; the first sidecar that exists decides
var sidecars = []sidecar{
	{".sha256", multihash.SHA2_256},
	{".sha256sum", multihash.SHA2_256},
	{".md5", multihash.MD5},
	{".md5sum", multihash.MD5},
}

// CheckDigest compares the package at path with its digest sidecar. No
// sidecar passes.
func CheckDigest(path string) Outcome {
	for _, sc := range sidecars {
		want, err := readSidecar(path + sc.ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			log.Logf("digest %s%s: %s", path, sc.ext, err)
			return DigestMismatch
		}
		got, err := fileDigest(path, sc.code)
		if err != nil {
			log.Logf("digest %s: %s", path, err)
			return DigestMismatch
		}
		if !bytes.Equal(got, want) {
			log.Logf("digest %s: got %x, wanted %x", path, got, want)
			return DigestMismatch
		}
		log.Logf("digest %s matches %s", path, sc.ext)
		return Pass
	}
	log.Logf("no digest file for %s, skipping digest check", path)
	return Pass
}

func readSidecar(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	return hex.DecodeString(strings.ToLower(fields[0]))
}

func fileDigest(path string, code uint64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	mh, err := multihash.SumStream(f, code, -1)
	if err != nil {
		return nil, err
	}
	dec, err := multihash.Decode(mh)
	if err != nil {
		return nil, err
	}
	return dec.Digest, nil
}
