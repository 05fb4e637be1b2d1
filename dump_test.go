// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipemsg

import (
	"bytes"
	"net"
	"testing"
	"time"
)

func TestFrameDump(test *testing.T) {
	var b bytes.Buffer
	d := &FrameDump{Out: &b}

	d.dump([]byte("m1"), true)
	d.dump([]byte("m1"), false)

	// R:2\nm1\n\n + W:2\nm1\n\n
	if b.Len() != 16 {
		test.Fatal("dump format", b.String())
	}
}

func TestFrameDumpFilter(test *testing.T) {
	var b bytes.Buffer
	d := &FrameDump{
		Out:    &b,
		Filter: func(p []byte, read bool) bool { return !read },
	}

	d.dump([]byte("m1"), true)
	d.dump([]byte("m1"), false)

	if b.Len() != 8 {
		test.Fatal("dump filter", b.String())
	}
}

func TestConnDump(test *testing.T) {
	var b bytes.Buffer
	d := &FrameDump{Out: &b}

	p1, p2 := net.Pipe()
	a := NewConn(1, p1, StringCodec{}, StringCodec{}, WithDump(d))
	c := NewConn(2, p2, StringCodec{}, StringCodec{})
	defer a.Close()
	defer c.Close()

	gotC := make(chan string, 1)
	c.OnMessage = func(_ *Conn[string, string], m string) { gotC <- m }
	a.Open()
	c.Open()

	if err := a.Push("m1"); err != nil {
		test.Fatal(err)
	}
	select {
	case <-gotC:
	case <-time.After(2 * time.Second):
		test.Fatal("no message")
	}

	// The sender dumped one written frame.
	deadline := time.Now().Add(time.Second)
	for {
		d.mu.Lock()
		n := b.Len()
		d.mu.Unlock()
		if n == 8 {
			break
		}
		if time.Now().After(deadline) {
			test.Fatal("dump content", n)
		}
		time.Sleep(time.Millisecond)
	}
}
