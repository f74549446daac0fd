// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

/* Package history logs install success/failure to disk.
Data logged includes the package path, attempt and failure counts, and a note
per attempt. The most recently installed package is first.
*/
package history

import (
	"encoding/json"
	"fmt"
	"os"
	fp "path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/sekaiacg/twrp-recovery/pkg/log"
)

const histName = "install_history.json"

// MaxNotes caps notes kept per package; the oldest are dropped.
var MaxNotes = 20

type PackageResult struct {
	Package  string   //package path as given to the installer
	Attempts uint     `json:",omitempty"`
	Failures uint     `json:",omitempty"`
	Notes    []string `json:",omitempty"` //timestamp+result per attempt
}
type ResultList []*PackageResult

//makes the json look nice
type serializationFmt struct {
	PackageResults ResultList
}

type History struct {
	mu      sync.Mutex
	fs      afero.Fs
	path    string
	results ResultList
}

// Open loads the history kept in dir, creating dir if needed. A missing or
// unreadable file starts an empty history.
func Open(fs afero.Fs, dir string) *History {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		log.Logf("error %s creating dir %s for %s", err, dir, histName)
	}
	h := &History{fs: fs, path: fp.Join(dir, histName)}
	h.load()
	return h
}

func (h *History) Path() string { return h.path }

func (h *History) load() {
	data, err := afero.ReadFile(h.fs, h.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Logf("%s does not exist, starting new history", h.path)
		} else {
			log.Logf("error %s reading %s", err, h.path)
		}
		return
	}
	var content serializationFmt
	if err = json.Unmarshal(data, &content); err != nil {
		log.Logf("Error %s loading install history", err)
		if err := h.fs.Rename(h.path, h.path+"_bad"); err != nil {
			log.Logf("moving bad history aside: %s", err)
		}
		return
	}
	h.results = content.PackageResults
}

// Record adds an attempt for pkg and moves it to the front.
func (h *History) Record(pkg string, success bool, status string, elapsed time.Duration, when time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var res *PackageResult
	for _, r := range h.results {
		if r.Package == pkg {
			res = r
			break
		}
	}
	if res == nil {
		log.Logf("Adding new history record for %s", pkg)
		res = &PackageResult{Package: pkg}
	}
	res.Attempts++
	if !success {
		res.Failures++
	}
	note := fmt.Sprintf("Install @ %s, result: %s, took %ds", when.Format(time.RFC3339), status, int(elapsed.Seconds()))
	res.Notes = append(res.Notes, note)
	if MaxNotes > 0 && len(res.Notes) > MaxNotes {
		res.Notes = res.Notes[len(res.Notes)-MaxNotes:]
	}
	h.results.moveOrAddFront(res)
	h.write()
}

// Results returns a copy of the list, newest first.
func (h *History) Results() ResultList {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(ResultList, len(h.results))
	for i, r := range h.results {
		c := *r
		c.Notes = append([]string(nil), r.Notes...)
		out[i] = &c
	}
	return out
}

// Rollover keeps the current file as .prev and starts over.
func (h *History) Rollover() {
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.path + ".prev"
	if err := h.fs.Remove(old); err != nil && !os.IsNotExist(err) {
		log.Logf("history log - removing %s: %s", old, err)
	}
	if err := h.fs.Rename(h.path, old); err != nil && !os.IsNotExist(err) {
		log.Logf("history log - roll %s: %s", h.path, err)
	}
	h.results = nil
}

func (h *History) write() {
	data, err := json.MarshalIndent(serializationFmt{PackageResults: h.results}, "", " ")
	if err != nil {
		log.Logf("error %s marshalling json for %s", err, h.path)
		return
	}
	if err = afero.WriteFile(h.fs, h.path, data, 0644); err != nil {
		log.Logf("error %s writing data to %s", err, h.path)
	}
}

//if item exists in list, make it the first item. otherwise insert as first item.
func (rl *ResultList) moveOrAddFront(item *PackageResult) {
	for i := range *rl {
		if (*rl)[i] == item {
			copy((*rl)[i:], (*rl)[i+1:])
			(*rl)[len(*rl)-1] = nil
			*rl = (*rl)[:len(*rl)-1]
			break
		}
	}
	*rl = append(ResultList{item}, (*rl)...)
}
