// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package flags holds the bits attached to each log entry. Sinks use them to
// decide what to show and how.
package flags

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Flag int

const (
	NA Flag = 0

	//shown to the person at the device
	EndUser Flag = 1 << (iota - 1)
	//logged just before the process gives up
	Fatal
	//keep out of the file log
	NotFile
	//non-fatal condition the user should notice
	Warn
	//an install step failed
	Error
	//emphasized status line
	Highlight
)

var named = []Flag{EndUser, Fatal, NotFile, Warn, Error, Highlight}

func (f Flag) MarshalJSON() ([]byte, error) { return json.Marshal(f.String()) }

func (f Flag) String() string {
	switch f {
	case NA:
		return ""
	case EndUser:
		return "user"
	case Fatal:
		return "fatal"
	case NotFile:
		return "not file"
	case Warn:
		return "warn"
	case Error:
		return "error"
	case Highlight:
		return "highlight"
	}
	for _, bit := range named {
		if f&bit > 0 {
			return strings.Join([]string{bit.String(), (f &^ bit).String()}, "|")
		}
	}
	return fmt.Sprintf("0x%x", int(f))
}

// Severity strips everything but the presentation bits.
func (f Flag) Severity() Flag { return f & (Warn | Error | Highlight | Fatal) }
