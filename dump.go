// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipemsg

import (
	"fmt"
	"io"
	"sync"
)

// FrameDump is a debugging helper, it mirrors each frame a connection reads
// or writes to Out.
//
// The dump format is:
//
//	R|W:PayloadSize\nPayload\n\n
type FrameDump struct {
	mu  sync.Mutex
	Out io.Writer

	// Filter can be nil. If nil, dump all frames.
	Filter func(p []byte, read bool) bool
}

func (d *FrameDump) needDump(p []byte, read bool) bool {
	if d.Filter != nil {
		return d.Filter(p, read)
	}
	return true
}

func (d *FrameDump) dump(p []byte, read bool) {
	if d == nil || d.Out == nil || !d.needDump(p, read) {
		return
	}
	dir := "W"
	if read {
		dir = "R"
	}
	d.mu.Lock()
	fmt.Fprintf(d.Out, "%s:%v\n", dir, len(p))
	d.Out.Write(p)
	fmt.Fprintf(d.Out, "\n\n")
	d.mu.Unlock()
}
