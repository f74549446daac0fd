// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package updater

import (
	"strconv"
	"strings"
)

type Kind int

const (
	Unknown Kind = iota
	Progress
	SetProgress
	UiPrint
	WipeCache
	Log
	ClearDisplay
)

var kindNames = map[string]Kind{
	"progress":      Progress,
	"set_progress":  SetProgress,
	"ui_print":      UiPrint,
	"wipe_cache":    WipeCache,
	"log":           Log,
	"clear_display": ClearDisplay,
}

func (k Kind) String() string {
	for name, v := range kindNames {
		if v == k {
			return name
		}
	}
	return "unknown"
}

// Command is one line of the status protocol. Fraction and Seconds are set
// for Progress, Fraction for SetProgress, Text for UiPrint and Log. For
// Unknown, Raw is the unrecognized token.
type Command struct {
	Kind     Kind
	Fraction float64
	Seconds  int
	Text     string
	Raw      string
}

// ParseLine decodes one protocol line. ok is false for a blank line.
//
// Numbers that don't parse are taken as 0. Installer scripts in the wild emit
// such lines and the stream must not be aborted over them.
func ParseLine(line string) (c Command, ok bool) {
	line = strings.TrimLeft(line, " \n")
	if line == "" {
		return Command{}, false
	}
	token, rest, _ := strings.Cut(line, " ")
	token = strings.TrimRight(token, "\n")
	kind, known := kindNames[token]
	if !known {
		return Command{Kind: Unknown, Raw: token}, true
	}
	c.Kind = kind
	switch kind {
	case Progress:
		f := strings.Fields(rest)
		c.Fraction = lenientFloat(f, 0)
		c.Seconds = lenientInt(f, 1)
	case SetProgress:
		c.Fraction = lenientFloat(strings.Fields(rest), 0)
	case UiPrint, Log:
		c.Text = strings.TrimRight(rest, "\n")
	}
	return c, true
}

func lenientFloat(f []string, i int) float64 {
	if i >= len(f) {
		return 0
	}
	v, err := strconv.ParseFloat(f[i], 64)
	if err != nil {
		return 0
	}
	return v
}

func lenientInt(f []string, i int) int {
	if i >= len(f) {
		return 0
	}
	v, err := strconv.Atoi(f[i])
	if err != nil {
		return 0
	}
	return v
}
