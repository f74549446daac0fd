// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package install installs update packages from recovery.
//
// An install verifies the package, classifies it by the entries it contains
// and then either runs its embedded installer, streams its A/B payload to the
// inactive slot, or installs it as a UI theme. Installer children report
// through a line protocol on fd 3; see package updater.
//
// Every failed install emits exactly one end-user message, from the Catalog.
package install

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/sekaiacg/twrp-recovery/pkg/install/updater"
	"github.com/sekaiacg/twrp-recovery/pkg/install/verify"
	"github.com/sekaiacg/twrp-recovery/pkg/log"
	"github.com/sekaiacg/twrp-recovery/pkg/pkgzip"
	"github.com/sekaiacg/twrp-recovery/pkg/progress"
)

type Status int

const (
	Success Status = iota
	Error
	Corrupt
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Error:
		return "error"
	case Corrupt:
		return "corrupt"
	}
	return "unknown"
}

type Result struct {
	Status  Status
	Elapsed time.Duration
}

// Engine runs installs one at a time.
type Engine struct {
	mu sync.Mutex
	c  *Context
}

// NewEngine fills unset Context fields with defaults.
func NewEngine(c *Context) *Engine {
	if c.Sink == nil {
		c.Sink = NewLogSink()
	}
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	c.Layout.fill()
	if c.LoadTrust == nil {
		c.LoadTrust = verify.LoadTrustStore
	}
	c.Messages = c.Messages.Merge()
	if c.Now == nil {
		c.Now = time.Now
	}
	return &Engine{c: c}
}

func (e *Engine) msg(id string, args ...interface{}) string { return e.c.Messages.Format(id, args...) }

// Install installs the package at path. Paths starting with '@' are block
// maps. wipeCache reports whether the installer asked for a cache wipe; the
// engine does not wipe anything itself.
func (e *Engine) Install(ctx context.Context, path string, digestCheck bool) (res Result, wipeCache bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log.Msgf("%s", e.msg(MsgInstalling, path))
	var started time.Time
	wipeCache, err := e.install(ctx, path, digestCheck, &started)
	if !started.IsZero() {
		res.Elapsed = e.c.Now().Sub(started)
	}
	res.Status = e.report(err, res.Elapsed)
	if e.c.History != nil {
		e.c.History.Record(path, res.Status == Success, res.Status.String(), res.Elapsed, e.c.Now())
	}
	return res, wipeCache
}

// report emits the one message a failure gets and the duration line.
func (e *Engine) report(err error, elapsed time.Duration) Status {
	status := Success
	if err != nil {
		var f *failure
		if !errors.As(err, &f) {
			f = fail(Error, err, MsgUpdaterErr, err)
		}
		if f.err != nil {
			log.Logf("install failed: %s", f.err)
		}
		log.Errf("%s", e.msg(f.msgID, f.args...))
		status = f.status
	}
	if status != Corrupt {
		log.Logf("Install took %d second(s).", int(elapsed.Seconds()))
	}
	return status
}

func (e *Engine) install(ctx context.Context, path string, digestCheck bool, started *time.Time) (wipeCache bool, err error) {
	c := e.c
	gate := &verify.Gate{Signatures: c.verifySignatures(), OnProgress: c.Sink.OnProgress}
	if digestCheck && !verify.SkipDigest(path) {
		log.Msgf("%s", e.msg(MsgCheckDigest))
	}
	if gate.Digest(path, digestCheck) != verify.Pass {
		return false, fail(Corrupt, nil, MsgDigestFail)
	}
	if r, ok := c.Sink.(progressResetter); ok {
		r.ResetProgress()
	} else {
		c.Sink.OnProgress(progress.Event{Kind: progress.Set})
	}

	pkg, err := pkgzip.Open(path)
	if err != nil {
		return false, fail(Corrupt, err, MsgInvalidZip)
	}
	defer pkg.Close()

	var head float64
	if gate.Signatures {
		if err := e.checkSignature(gate, pkg); err != nil {
			return false, err
		}
		head = verify.VerificationProgressFraction
	}

	p, err := e.plan(pkg)
	if err != nil {
		return false, err
	}

	if c.Options.UnmountSystem {
		if err := e.unmountSystem(); err != nil {
			return false, err
		}
	}

	*started = c.Now()
	switch p.cls.Type {
	case LegacyBinary:
		return e.legacy(ctx, pkg, p.cls, head)
	case SeamlessAB:
		return e.seamless(ctx, p.abArgs, head)
	}
	return false, e.installTheme(path, pkg)
}

// installPlan is what plan decided about a package.
type installPlan struct {
	cls    Classification
	abArgs []string //SeamlessAB only
}

// plan runs every check that can reject a package as Corrupt. None of them
// touch the device, so a rejected package leaves mounts and files as they
// were.
func (e *Engine) plan(pkg *pkgzip.Package) (p installPlan, err error) {
	c := e.c
	p.cls, err = Classify(pkg, abiList(c.Props))
	if err != nil {
		return p, fail(Corrupt, err, MsgInvalidZip)
	}
	log.Logf("%s: %s", pkg.Path, p.cls.Type)
	switch p.cls.Type {
	case LegacyBinary:
		if !p.cls.Compat.Check(c.Props) {
			return p, fail(Corrupt, nil, MsgCompatErr)
		}
	case SeamlessAB:
		p.abArgs, err = updater.SeamlessArgs(c.Layout.ABEngine, pkg, updater.StatusFD)
		if err != nil {
			if updater.Corrupt(err) {
				return p, fail(Corrupt, err, MsgInvalidZip)
			}
			return p, fail(Error, err, MsgUpdaterErr, err)
		}
	case ThemeBundle:
		if c.Options.OEMBuild {
			log.Logf("themes are disabled on OEM builds")
			return p, fail(Corrupt, nil, MsgInvalidZip)
		}
	default:
		return p, fail(Corrupt, nil, MsgInvalidZip)
	}
	return p, nil
}

func (e *Engine) checkSignature(gate *verify.Gate, pkg *pkgzip.Package) error {
	c := e.c
	log.Msgf("%s", e.msg(MsgVerifySig))
	trust, err := c.LoadTrust(c.Layout.CertsZip)
	if err != nil {
		return fail(Error, err, MsgKeysFail)
	}
	if o := gate.Signature(pkg, trust); o != verify.Pass {
		return fail(Error, errors.New(o.String()), MsgVerifyFail)
	}
	log.Msgf("%s", e.msg(MsgVerifyDone))
	return nil
}

// unmountSystem gets the Android root out of the way and leaves an empty
// /system for installers to mount on.
func (e *Engine) unmountSystem() error {
	c := e.c
	log.Msgf("%s", e.msg(MsgUnmountSystem))
	if err := c.Partitions.Unmount(c.Partitions.AndroidRoot()); err != nil {
		return fail(Error, err, MsgUnmountSystemErr)
	}
	//only succeeds for a symlink, file or empty dir
	_ = c.Fs.Remove(c.Layout.SystemDir)
	if err := c.Fs.MkdirAll(c.Layout.SystemDir, 0755); err != nil {
		log.Logf("creating %s: %s", c.Layout.SystemDir, err)
	}
	return nil
}

func (e *Engine) legacy(ctx context.Context, pkg *pkgzip.Package, cls Classification, head float64) (bool, error) {
	c := e.c
	log.Logf("Update binary zip")
	staged, err := e.Extract(pkg, cls.Entry)
	if err != nil {
		return false, err
	}
	wipe, err := updater.Run(ctx, updater.LegacyArgs(staged, pkg.Path, updater.StatusFD), head, c.Sink)
	if err != nil {
		return wipe, fail(Error, err, MsgUpdaterErr, err)
	}
	return wipe, nil
}
