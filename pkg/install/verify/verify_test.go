// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package verify

import (
	"archive/zip"
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	fp "path/filepath"
	"testing"

	"github.com/sekaiacg/twrp-recovery/pkg/log/testlog"
	"github.com/sekaiacg/twrp-recovery/pkg/progress"
)

func TestSignature(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	good := newSigner(t, "release")
	other := newSigner(t, "other")
	z := plainZip(t, map[string]string{"META-INF/com/google/android/update-binary": "#!/bin/sh\n"})
	signed := good.signZip(t, z)

	tampered := append([]byte{}, signed...)
	tampered[40] ^= 0xff

	badFooter := append([]byte{}, signed...)
	badFooter[len(badFooter)-3] = 0

	for _, td := range []struct {
		name  string
		data  []byte
		trust TrustStore
		want  Outcome
	}{
		{"signed", signed, TrustStore{good.cert}, Pass},
		{"trusted among several", signed, TrustStore{other.cert, good.cert}, Pass},
		{"untrusted signer", signed, TrustStore{other.cert}, SignatureInvalid},
		{"empty trust store", signed, nil, NoTrustedKeys},
		{"unsigned", z, TrustStore{good.cert}, SignatureInvalid},
		{"tampered", tampered, TrustStore{good.cert}, SignatureInvalid},
		{"bad footer", badFooter, TrustStore{good.cert}, SignatureInvalid},
	} {
		t.Run(td.name, func(t *testing.T) {
			g := &Gate{Signatures: true}
			if got := g.Verify("/sideload/package.zip", memSource(td.data), td.trust, true); got != td.want {
				t.Errorf("got %s, wanted %s", got, td.want)
			}
		})
	}
}

func TestSignatureProgress(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	s := newSigner(t, "release")
	signed := s.signZip(t, plainZip(t, map[string]string{"ui.xml": "<theme/>"}))
	var events []progress.Event
	g := &Gate{Signatures: true, OnProgress: func(e progress.Event) { events = append(events, e) }}
	if got := g.CheckSignature(memSource(signed), TrustStore{s.cert}); got != Pass {
		t.Fatalf("got %s", got)
	}
	if len(events) < 2 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].Kind != progress.Advance || events[0].Fraction != VerificationProgressFraction {
		t.Errorf("first event %+v", events[0])
	}
	last := events[len(events)-1]
	if last.Kind != progress.Set || last.Fraction != 1 {
		t.Errorf("last event %+v", last)
	}
}

func TestSignaturesDisabled(t *testing.T) {
	g := &Gate{}
	if got := g.Verify("/sideload/package.zip", memSource("not even a zip"), nil, true); got != Pass {
		t.Errorf("got %s, wanted pass", got)
	}
}

func TestGateHalves(t *testing.T) {
	path := fp.Join(t.TempDir(), "update.zip")
	if err := os.WriteFile(path, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path+".sha256", []byte("00"), 0644); err != nil {
		t.Fatal(err)
	}
	g := &Gate{}
	if got := g.Digest(path, true); got != DigestMismatch {
		t.Errorf("digest: got %s", got)
	}
	if got := g.Digest(path, false); got != Pass {
		t.Errorf("disabled digest: got %s", got)
	}
	if got := g.Signature(memSource("a"), nil); got != Pass {
		t.Errorf("disabled signature: got %s", got)
	}
	g.Signatures = true
	if got := g.Signature(memSource("a"), nil); got != NoTrustedKeys {
		t.Errorf("signature without keys: got %s", got)
	}
	if got := g.Verify(path, memSource("a"), nil, true); got != DigestMismatch {
		t.Errorf("verify: digest must fail first, got %s", got)
	}
}

func TestDigest(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	data := []byte("package bytes")
	sha := fmt.Sprintf("%x", sha256.Sum256(data))
	md := fmt.Sprintf("%x", md5.Sum(data))

	for _, td := range []struct {
		name     string
		sidecars map[string]string
		want     Outcome
	}{
		{"none", nil, Pass},
		{"sha256", map[string]string{".sha256": sha + "  update.zip\n"}, Pass},
		{"sha256 upper", map[string]string{".sha256sum": fmt.Sprintf("%X", sha256.Sum256(data))}, Pass},
		{"md5", map[string]string{".md5": md + " update.zip"}, Pass},
		{"md5sum mismatch", map[string]string{".md5sum": md[:len(md)-1] + "0"}, DigestMismatch},
		{"sha256 wins over md5", map[string]string{".sha256": sha, ".md5": "00"}, Pass},
		{"bad hex", map[string]string{".sha256": "zz"}, DigestMismatch},
		{"empty", map[string]string{".md5": "\n"}, DigestMismatch},
	} {
		t.Run(td.name, func(t *testing.T) {
			path := fp.Join(t.TempDir(), "update.zip")
			if err := os.WriteFile(path, data, 0644); err != nil {
				t.Fatal(err)
			}
			for ext, body := range td.sidecars {
				if err := os.WriteFile(path+ext, []byte(body), 0644); err != nil {
					t.Fatal(err)
				}
			}
			g := &Gate{}
			if got := g.Verify(path, memSource(data), nil, true); got != td.want {
				t.Errorf("got %s, wanted %s", got, td.want)
			}
		})
	}
}

func TestDigestSkipped(t *testing.T) {
	dir := t.TempDir()
	path := fp.Join(dir, "update.zip")
	if err := os.WriteFile(path, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path+".sha256", []byte("00"), 0644); err != nil {
		t.Fatal(err)
	}
	g := &Gate{}
	if got := g.Verify(path, memSource("a"), nil, false); got != Pass {
		t.Errorf("digest ran while disabled: %s", got)
	}
	for _, p := range []string{"/sideload/package.zip", "@/cache/recovery/block.map"} {
		if !SkipDigest(p) {
			t.Errorf("%s not skipped", p)
		}
	}
	if SkipDigest(path) {
		t.Errorf("%s skipped", path)
	}
}

func TestLoadTrustStore(t *testing.T) {
	tlog := testlog.NewTestLog(t, true, false)
	defer tlog.Freeze()

	a, b := newSigner(t, "a"), newSigner(t, "b")
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string][]byte{
		"releasekey.x509.pem": pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: a.cert.Raw}),
		"extra.x509.pem": append(
			pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: b.cert.Raw}),
			pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("garbage")})...),
		"README": []byte("not a cert"),
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(body); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	path := fp.Join(dir, "otacerts.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	ts, err := LoadTrustStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(ts) != 2 {
		t.Errorf("got %d certs, wanted 2", len(ts))
	}
	if !ts.Contains(a.cert.PublicKey) || !ts.Contains(b.cert.PublicKey) {
		t.Error("loaded store is missing a key")
	}

	empty := fp.Join(dir, "empty.zip")
	if err := os.WriteFile(empty, plainZip(t, map[string]string{"README": "none"}), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTrustStore(empty); !errors.Is(err, ErrNoKeys) {
		t.Errorf("got %v, wanted ErrNoKeys", err)
	}
	if _, err := LoadTrustStore(fp.Join(dir, "missing.zip")); err == nil {
		t.Error("missing zip loaded")
	}
	tlog.Freeze()
	if !tlog.Contains(fmt.Sprintf("2 key(s) loaded from %s", path)) {
		t.Error("key count not logged")
	}
}
