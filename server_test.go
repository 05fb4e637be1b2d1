// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipemsg

import (
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/poll"
)

type stringConn = Conn[string, string]

type serverEvents struct {
	mu        sync.Mutex
	connected []int
	byName    map[string]string
	msgC      chan string
	discC     chan *stringConn
}

func startStringServer(test *testing.T, name string, opts ...Option) (*Server[string, string], *serverEvents) {
	ev := &serverEvents{
		byName: make(map[string]string),
		msgC:   make(chan string, 16),
		discC:  make(chan *stringConn, 16),
	}
	srv := NewServer[string, string](name, StringCodec{}, StringCodec{}, opts...)
	srv.ClientConnected = func(c *stringConn) {
		ev.mu.Lock()
		ev.connected = append(ev.connected, c.Id())
		ev.mu.Unlock()
	}
	srv.ClientDisconnected = func(c *stringConn) {
		ev.discC <- c
	}
	srv.ClientMessage = func(c *stringConn, m string) {
		ev.mu.Lock()
		ev.byName[c.Name()] = m
		ev.mu.Unlock()
		ev.msgC <- m
	}
	srv.Start()
	test.Cleanup(srv.Stop)
	return srv, ev
}

func startStringClient(test *testing.T, name string, opts ...Option) (*Client[string, string], chan string) {
	msgC := make(chan string, 16)
	cl := NewClient[string, string](name, StringCodec{}, StringCodec{}, opts...)
	cl.ServerMessage = func(_ *stringConn, m string) {
		msgC <- m
	}
	cl.Start()
	test.Cleanup(cl.Stop)
	if !cl.WaitForConnection(5 * time.Second) {
		test.Fatal("client never connected")
	}
	return cl, msgC
}

func recvMsg(test *testing.T, c chan string) string {
	test.Helper()
	select {
	case m := <-c:
		return m
	case <-time.After(5 * time.Second):
		test.Fatal("no message")
		return ""
	}
}

func TestSingleClientEcho(test *testing.T) {
	name := testPipeName(test)
	srv, ev := startStringServer(test, name)
	cl, msgC := startStringClient(test, name)

	assert.NilError(test, cl.Push("hello"))
	assert.Equal(test, recvMsg(test, ev.msgC), "hello")

	select {
	case m := <-ev.msgC:
		test.Fatal("duplicate delivery", m)
	case <-time.After(100 * time.Millisecond):
	}

	srv.Push("hi")
	assert.Equal(test, recvMsg(test, msgC), "hi")
}

func TestThreeConcurrentClients(test *testing.T) {
	name := testPipeName(test)
	srv, ev := startStringServer(test, name)

	clA, _ := startStringClient(test, name)
	clB, _ := startStringClient(test, name)
	clC, _ := startStringClient(test, name)

	poll.WaitOn(test, func(poll.LogT) poll.Result {
		ev.mu.Lock()
		n := len(ev.connected)
		ev.mu.Unlock()
		if srv.ConnectionCount() == 3 && n == 3 {
			return poll.Success()
		}
		return poll.Continue("connections %d events %d", srv.ConnectionCount(), n)
	}, poll.WithTimeout(5*time.Second))

	ev.mu.Lock()
	ids := append([]int(nil), ev.connected...)
	ev.mu.Unlock()
	assert.DeepEqual(test, ids, []int{1, 2, 3})

	assert.NilError(test, clA.Push("A"))
	assert.NilError(test, clB.Push("B"))
	assert.NilError(test, clC.Push("C"))
	for i := 0; i < 3; i++ {
		recvMsg(test, ev.msgC)
	}

	ev.mu.Lock()
	byName := map[string]string{}
	for k, v := range ev.byName {
		byName[k] = v
	}
	ev.mu.Unlock()
	assert.DeepEqual(test, byName, map[string]string{
		"Client 1": "A",
		"Client 2": "B",
		"Client 3": "C",
	})
}

func TestTargetedPush(test *testing.T) {
	name := testPipeName(test)
	srv, _ := startStringServer(test, name)

	_, msg1 := startStringClient(test, name)
	_, msg2 := startStringClient(test, name)
	_, msg3 := startStringClient(test, name)

	// A client reports connected before the server has registered it.
	poll.WaitOn(test, func(poll.LogT) poll.Result {
		if srv.ConnectionCount() == 3 {
			return poll.Success()
		}
		return poll.Continue("connections %d", srv.ConnectionCount())
	}, poll.WithTimeout(5*time.Second))

	srv.PushTo("x", 2)
	assert.Equal(test, recvMsg(test, msg2), "x")

	srv.PushToName("y", "Client 1", "Client 3")
	assert.Equal(test, recvMsg(test, msg1), "y")
	assert.Equal(test, recvMsg(test, msg3), "y")

	select {
	case m := <-msg1:
		test.Fatal("client 1 over-delivered", m)
	case m := <-msg2:
		test.Fatal("client 2 over-delivered", m)
	case m := <-msg3:
		test.Fatal("client 3 over-delivered", m)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClientHardDisconnect(test *testing.T) {
	name := testPipeName(test)
	srv, ev := startStringServer(test, name)

	cl := NewClient[string, string](name, StringCodec{}, StringCodec{})
	cl.AutoReconnect = false
	cl.Start()
	test.Cleanup(cl.Stop)
	assert.Assert(test, cl.WaitForConnection(5*time.Second))

	// Kill the pipe under the client, as a dying process would.
	cl.Connection().Close()

	select {
	case c := <-ev.discC:
		assert.Assert(test, c != nil)
		assert.Equal(test, c.Id(), 1)
	case <-time.After(5 * time.Second):
		test.Fatal("server never observed the disconnect")
	}

	poll.WaitOn(test, func(poll.LogT) poll.Result {
		if srv.ConnectionCount() == 0 {
			return poll.Success()
		}
		return poll.Continue("registry %d", srv.ConnectionCount())
	}, poll.WithTimeout(5*time.Second))
}

func TestServerStopWithoutClients(test *testing.T) {
	name := testPipeName(test)
	srv, _ := startStringServer(test, name)

	poll.WaitOn(test, func(poll.LogT) poll.Result {
		if srv.IsRunning() {
			return poll.Success()
		}
		return poll.Continue("listener not up")
	}, poll.WithTimeout(5*time.Second))

	start := time.Now()
	srv.Stop()
	elapsed := time.Since(start)
	assert.Assert(test, elapsed < 5*time.Second, "stop took %v", elapsed)

	poll.WaitOn(test, func(poll.LogT) poll.Result {
		if !srv.IsRunning() {
			return poll.Success()
		}
		return poll.Continue("listener still running")
	}, poll.WithTimeout(5*time.Second))
}

func TestServerIdsNeverReused(test *testing.T) {
	name := testPipeName(test)
	srv, _ := startStringServer(test, name)

	cl1, _ := startStringClient(test, name)
	first := cl1.Connection().Id()
	cl1.Stop()

	poll.WaitOn(test, func(poll.LogT) poll.Result {
		if srv.ConnectionCount() == 0 {
			return poll.Success()
		}
		return poll.Continue("registry not drained")
	}, poll.WithTimeout(5*time.Second))

	cl2, _ := startStringClient(test, name)
	second := cl2.Connection().Id()
	assert.Assert(test, second > first, "ids %d then %d", first, second)
}
