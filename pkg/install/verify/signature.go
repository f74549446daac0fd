// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package verify

import (
	"bytes"
	"crypto"
	"errors"
	"fmt"
	"io"

	"go.mozilla.org/pkcs7"

	"github.com/sekaiacg/twrp-recovery/pkg/progress"
)

const (
	footerSize = 6
	eocdSize   = 22 //end of central directory record, without comment
)

var eocdMagic = []byte{0x50, 0x4b, 0x05, 0x06}

var (
	errNoFooter = errors.New("no signature footer")
	errLayout   = errors.New("bad signature layout")
	errSigner   = errors.New("signer is not trusted")
)

// sigLayout locates the signature block in the zip comment.
//
// The comment ends with a footer: sigStart (u16le), 0xff 0xff, commentSize
// (u16le). The signature is the sigStart-6 bytes starting sigStart bytes from
// the end. Everything up to the comment length field is signed.
type sigLayout struct {
	sigOff, sigLen int64
	signedLen      int64
}

func locate(pkg Source) (sigLayout, error) {
	size := pkg.Size()
	if size < eocdSize+footerSize {
		return sigLayout{}, errNoFooter
	}
	footer := make([]byte, footerSize)
	if _, err := pkg.ReadAt(footer, size-footerSize); err != nil {
		return sigLayout{}, err
	}
	if footer[2] != 0xff || footer[3] != 0xff {
		return sigLayout{}, errNoFooter
	}
	sigStart := int64(footer[0]) | int64(footer[1])<<8
	commentSize := int64(footer[4]) | int64(footer[5])<<8
	if sigStart > commentSize || sigStart <= footerSize {
		return sigLayout{}, fmt.Errorf("%w: signature start %d, comment size %d", errLayout, sigStart, commentSize)
	}
	eocdLen := commentSize + eocdSize
	if eocdLen > size {
		return sigLayout{}, fmt.Errorf("%w: comment larger than file", errLayout)
	}
	eocd := make([]byte, eocdLen)
	if _, err := pkg.ReadAt(eocd, size-eocdLen); err != nil {
		return sigLayout{}, err
	}
	if !bytes.Equal(eocd[:4], eocdMagic) {
		return sigLayout{}, fmt.Errorf("%w: no end of central directory record", errLayout)
	}
	//a second record inside the comment could make a zip reader see other contents
	if bytes.Contains(eocd[4:], eocdMagic) {
		return sigLayout{}, fmt.Errorf("%w: end of central directory marker in comment", errLayout)
	}
	return sigLayout{
		sigOff:    size - sigStart,
		sigLen:    sigStart - footerSize,
		signedLen: size - commentSize - 2,
	}, nil
}

// progressReader emits a Set event per percent read.
type progressReader struct {
	r          io.Reader
	done, size int64
	lastPct    int64
	emit       func(progress.Event)
}

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	pr.done += int64(n)
	if pr.size > 0 {
		if pct := pr.done * 100 / pr.size; pct != pr.lastPct {
			pr.lastPct = pct
			pr.emit(progress.Event{Kind: progress.Set, Fraction: float64(pr.done) / float64(pr.size)})
		}
	}
	return n, err
}

func verifySignature(pkg Source, trust TrustStore, emit func(progress.Event)) error {
	l, err := locate(pkg)
	if err != nil {
		return err
	}
	der := make([]byte, l.sigLen)
	if _, err := pkg.ReadAt(der, l.sigOff); err != nil {
		return err
	}
	p7, err := pkcs7.Parse(der)
	if err != nil {
		return err
	}
	signer := p7.GetOnlySigner()
	if signer == nil {
		return fmt.Errorf("%w: want exactly one signer", errLayout)
	}
	if !trust.Contains(signer.PublicKey) {
		return errSigner
	}
	pr := &progressReader{
		r:    io.NewSectionReader(pkg, 0, l.signedLen),
		size: l.signedLen,
		emit: emit,
	}
	signed, err := io.ReadAll(pr)
	if err != nil {
		return err
	}
	p7.Content = signed
	return p7.Verify()
}

type equaler interface {
	Equal(crypto.PublicKey) bool
}
