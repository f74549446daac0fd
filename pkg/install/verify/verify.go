// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package verify decides whether an update package may be installed: a digest
// sidecar check followed by a whole-file signature check against the device's
// trust store.
package verify

import (
	"io"
	"strings"

	"github.com/sekaiacg/twrp-recovery/pkg/log"
	"github.com/sekaiacg/twrp-recovery/pkg/progress"
)

// VerificationProgressFraction is the head of the progress bar owned by
// signature verification. Installer progress is scaled into the rest.
const VerificationProgressFraction = 0.25

type Outcome int

const (
	Pass Outcome = iota
	SignatureInvalid
	NoTrustedKeys
	DigestMismatch
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case SignatureInvalid:
		return "signature invalid"
	case NoTrustedKeys:
		return "no trusted keys"
	case DigestMismatch:
		return "digest mismatch"
	}
	return "unknown"
}

// Source is the raw package.
type Source interface {
	io.ReaderAt
	Size() int64
}

// Gate runs the checks. OnProgress, if set, receives verification progress.
type Gate struct {
	Signatures bool
	OnProgress func(progress.Event)
}

// SkipDigest reports whether path is a source with no sidecar to check,
// i.e. a sideload stream or a block map.
func SkipDigest(path string) bool {
	return strings.HasPrefix(path, "/sideload") || strings.HasPrefix(path, "@")
}

// Verify checks the digest (if enabled and applicable), then the signature
// (if the gate has signatures enabled). The first failure is returned.
func (g *Gate) Verify(path string, pkg Source, trust TrustStore, digestCheck bool) Outcome {
	if o := g.Digest(path, digestCheck); o != Pass {
		return o
	}
	return g.Signature(pkg, trust)
}

// Digest is the first half of Verify. It needs only the path, so it can run
// before the package is opened.
func (g *Gate) Digest(path string, digestCheck bool) Outcome {
	if !digestCheck || SkipDigest(path) {
		return Pass
	}
	return CheckDigest(path)
}

// Signature is the second half of Verify: CheckSignature if the gate has
// signatures enabled, otherwise Pass.
func (g *Gate) Signature(pkg Source, trust TrustStore) Outcome {
	if !g.Signatures {
		return Pass
	}
	return g.CheckSignature(pkg, trust)
}

func (g *Gate) emit(e progress.Event) {
	if g.OnProgress != nil {
		g.OnProgress(e)
	}
}

// CheckSignature verifies the whole-file signature. An empty trust store
// fails; it never means verification is not wanted.
func (g *Gate) CheckSignature(pkg Source, trust TrustStore) Outcome {
	if len(trust) == 0 {
		log.Logf("no trusted keys, refusing to verify")
		return NoTrustedKeys
	}
	g.emit(progress.Event{Kind: progress.Advance, Fraction: VerificationProgressFraction})
	if err := verifySignature(pkg, trust, g.emit); err != nil {
		log.Logf("signature: %s", err)
		return SignatureInvalid
	}
	return Pass
}
