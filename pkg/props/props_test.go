// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package props

import (
	"os"
	fp "path/filepath"
	"strings"
	"testing"
)

func writeProps(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := fp.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeProps(t, dir, "default.prop", "# boot props\nro.product.cpu.abi=armeabi-v7a\nro.virtual_ab.enabled=false\n")
	b := writeProps(t, dir, "build.prop", "ro.product.cpu.abilist=arm64-v8a,,armeabi-v7a\nro.virtual_ab.enabled=true\n")
	s := Load(a, fp.Join(dir, "missing.prop"), b)
	if !s.Bool(VirtualABEnabled, false) {
		t.Errorf("later file did not win")
	}
	if got := strings.Join(s.Abis(), ","); got != "arm64-v8a,armeabi-v7a" {
		t.Errorf("got abis %s", got)
	}
}

func TestFallbackParse(t *testing.T) {
	dir := t.TempDir()
	p := writeProps(t, dir, "vendor.prop", "import /vendor/odm.prop\nro.vendor.build-id=QP1A\nro.product.device=walleye\n")
	s := Load(p)
	if got := s.Get(Device, ""); got != "walleye" {
		t.Errorf("got device %q", got)
	}
	if got := s.Get("ro.vendor.build-id", ""); got != "QP1A" {
		t.Errorf("got build-id %q", got)
	}
}

func TestAbiFallback(t *testing.T) {
	s := FromMap(map[string]string{Abi: "x86_64"})
	if got := s.Abis(); len(got) != 1 || got[0] != "x86_64" {
		t.Errorf("got %q", got)
	}
	if got := FromMap(nil).Abis(); got != nil {
		t.Errorf("empty store gave %q", got)
	}
}

func TestBool(t *testing.T) {
	s := FromMap(map[string]string{"a": "1", "b": "off", "c": "maybe"})
	if !s.Bool("a", false) || s.Bool("b", true) || !s.Bool("c", true) || s.Bool("d", false) {
		t.Errorf("Bool misread")
	}
}
