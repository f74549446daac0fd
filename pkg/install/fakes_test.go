// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package install

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	fp "path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/sekaiacg/twrp-recovery/pkg/install/verify"
	"github.com/sekaiacg/twrp-recovery/pkg/props"
)

type fakeParts struct {
	mu         sync.Mutex
	root       string
	slot       string
	storage    string
	storageErr error
	unmountErr error
	mounted    map[string]bool
	bound      map[string]string
	calls      []string
}

func newFakeParts() *fakeParts {
	return &fakeParts{
		root:    "/system_root",
		slot:    "A",
		mounted: map[string]bool{},
		bound:   map[string]string{},
	}
}

func (f *fakeParts) record(format string, va ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, va...))
}

func (f *fakeParts) IsMounted(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mounted[path]
}

func (f *fakeParts) Mount(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("mount %s", path)
	f.mounted[path] = true
	return nil
}

func (f *fakeParts) Unmount(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("umount %s", path)
	if f.unmountErr != nil {
		return f.unmountErr
	}
	delete(f.mounted, path)
	return nil
}

func (f *fakeParts) AndroidRoot() string { return f.root }
func (f *fakeParts) ActiveSlot() string  { return f.slot }

func (f *fakeParts) UnlockBlockPartitions() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("unlock")
	return nil
}

func (f *fakeParts) PrepareSuperVolumes() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("super")
	return nil
}

func (f *fakeParts) MountSettingsStorage() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("storage")
	return f.storage, f.storageErr
}

func (f *fakeParts) BindMount(src, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("bind %s", dst)
	f.bound[dst] = src
	return nil
}

func (f *fakeParts) Unbind(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("unbind %s", path)
	if _, ok := f.bound[path]; !ok {
		return errors.New("not bound")
	}
	delete(f.bound, path)
	return nil
}

func (f *fakeParts) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeReflasher struct {
	calls int
	err   error
}

func (r *fakeReflasher) Reflash(context.Context) error {
	r.calls++
	return r.err
}

type fakeUI struct{ reloads int }

func (u *fakeUI) RequestReload() { u.reloads++ }

type zent struct {
	name, body string
	method     uint16
}

func writeZip(t *testing.T, dir string, entries ...zent) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: e.method})
		require.NoError(t, err)
		_, err = w.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	path := fp.Join(dir, "update.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

// env is an engine with every fixed path under a temp dir.
type env struct {
	dir    string
	parts  *fakeParts
	props  *props.Store
	ctx    *Context
	engine *Engine
}

func newEnv(t *testing.T, opts Options) *env {
	t.Helper()
	dir := t.TempDir()
	for _, d := range []string{"tmp", "system/bin", "storage", "bin"} {
		require.NoError(t, os.MkdirAll(fp.Join(dir, d), 0755))
	}
	require.NoError(t, os.WriteFile(fp.Join(dir, "system/bin/sh"), []byte("#shell"), 0755))
	parts := newFakeParts()
	parts.storage = fp.Join(dir, "storage")
	p := props.FromMap(map[string]string{
		props.AbiList:     "arm64-v8a,armeabi-v7a",
		props.Device:      "walleye",
		props.Fingerprint: "google/walleye/walleye:11/RP1A/1:user/release-keys",
	})
	c := &Context{
		Partitions: parts,
		Props:      p,
		Fs:         afero.NewOsFs(),
		Options:    opts,
		Layout: Layout{
			UpdaterBinary: fp.Join(dir, "tmp/updater"),
			FileContexts:  fp.Join(dir, "file_contexts"),
			ShellShim:     fp.Join(dir, "tmp/sh"),
			SystemShell:   fp.Join(dir, "system/bin/sh"),
			SystemDir:     fp.Join(dir, "system"),
			CertsZip:      fp.Join(dir, "otacerts.zip"),
			ABEngine:      fp.Join(dir, "bin/update_engine_sideload"),
		},
		LoadTrust: func(string) (verify.TrustStore, error) { return nil, verify.ErrNoKeys },
	}
	return &env{dir: dir, parts: parts, props: p, ctx: c, engine: NewEngine(c)}
}

// protoScript is an installer speaking the status protocol. The status fd
// is the --status_fd= argument for A/B, else the second argument.
func protoScript(body string) string {
	return `#!/bin/sh
fd=$2
for a in "$@"; do case "$a" in --status_fd=*) fd=${a#--status_fd=};; esac; done
` + body + "\n"
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
