// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"errors"
	"sync"
)

// Attrs describe the current stack, e.g. the file name a fileLog writes to.
var (
	attrs       = map[string]interface{}{}
	attrsMtx    sync.Mutex
	EAttrExists = errors.New("an attr with this name already exists")
)

func GetAttr(key string) (interface{}, bool) {
	attrsMtx.Lock()
	defer attrsMtx.Unlock()
	v, ok := attrs[key]
	return v, ok
}

func SetAttr(key string, val interface{}) error {
	attrsMtx.Lock()
	defer attrsMtx.Unlock()
	if _, exists := attrs[key]; exists {
		return EAttrExists
	}
	attrs[key] = val
	return nil
}

func ClearAttrs() {
	attrsMtx.Lock()
	defer attrsMtx.Unlock()
	for key := range attrs {
		delete(attrs, key)
	}
}
