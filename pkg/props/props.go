// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package props reads device properties (ro.product.cpu.abilist and the like)
// from Android-style key=value prop files.
package props

import (
	"bytes"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	futil "github.com/sekaiacg/twrp-recovery/pkg/fileutil"
	"github.com/sekaiacg/twrp-recovery/pkg/log"
)

// Well-known keys.
const (
	AbiList          = "ro.product.cpu.abilist"
	Abi              = "ro.product.cpu.abi"
	VirtualABEnabled = "ro.virtual_ab.enabled"
	Device           = "ro.product.device"
	Fingerprint      = "ro.build.fingerprint"
	SlotSuffix       = "ro.boot.slot_suffix"
)

// DefaultFiles are read in order; later files win.
var DefaultFiles = []string{
	"/default.prop",
	"/prop.default",
	"/system/build.prop",
	"/vendor/build.prop",
}

const maxPropLines = 4096

type Store struct {
	mu sync.RWMutex
	m  map[string]string
}

// Load reads each existing file. Unreadable files are logged and skipped.
func Load(files ...string) *Store {
	s := &Store{m: map[string]string{}}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Logf("props: reading %s: %s", f, err)
			}
			continue
		}
		kv, err := parse(data)
		if err != nil {
			log.Logf("props: parsing %s: %s", f, err)
			continue
		}
		for k, v := range kv {
			s.m[k] = v
		}
	}
	return s
}

// FromMap wraps m. Intended for tests and overrides.
func FromMap(m map[string]string) *Store {
	s := &Store{m: map[string]string{}}
	for k, v := range m {
		s.m[k] = v
	}
	return s
}

// Prop files are mostly dotenv-compatible. Lines godotenv rejects (keys with
// dashes, "import" directives) make it fail the whole file, so fall back to a
// plain split.
func parse(data []byte) (map[string]string, error) {
	if kv, err := godotenv.Parse(bytes.NewReader(data)); err == nil {
		return kv, nil
	}
	lines, err := futil.ScanConfigLines(bytes.NewReader(data), maxPropLines)
	if err != nil {
		return nil, err
	}
	kv := make(map[string]string, len(lines))
	for _, l := range lines {
		k, v, ok := strings.Cut(l, "=")
		if !ok {
			continue
		}
		kv[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return kv, nil
}

func (s *Store) Get(key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.m[key]; ok && v != "" {
		return v
	}
	return def
}

func (s *Store) Set(key, val string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = val
}

// Bool interprets the property the way Android's GetBoolProperty does.
func (s *Store) Bool(key string, def bool) bool {
	switch s.Get(key, "") {
	case "1", "y", "yes", "on", "true":
		return true
	case "0", "n", "no", "off", "false":
		return false
	}
	return def
}

// List splits a comma-separated property, dropping empty items.
func (s *Store) List(key string) []string {
	var out []string
	for _, item := range strings.Split(s.Get(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Abis is the device's ABI preference list, primary first.
func (s *Store) Abis() []string {
	if abis := s.List(AbiList); len(abis) > 0 {
		return abis
	}
	return s.List(Abi)
}
