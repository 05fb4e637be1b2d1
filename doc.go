// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipemsg provides bidirectional, message-oriented IPC over local
// named pipes.
//
// A Server listens on a well-known pipe name and serves any number of
// concurrent clients. Each accept runs a two-stage handshake: the server
// writes a freshly allocated private pipe name onto the well-known pipe and
// closes it; client and server then meet on the private pipe, which carries
// the session's messages. Each session end is a Conn with its own read
// loop, write loop and FIFO send queue.
//
// Messages are typed; the wire payload is produced by a pluggable Codec.
// On the wire a message is one frame:
//
//	Length(4-bytes, little-endian)Payload
//
// On Windows the transport is a named pipe, elsewhere a Unix domain socket
// under the system temp directory.
//
// Here is a quick example, includes server and client.
//
// Server
//
//	srv := pipemsg.NewServer[string, string]("demo",
//		pipemsg.StringCodec{}, pipemsg.StringCodec{})
//
//	srv.ClientConnected = func(c *pipemsg.Conn[string, string]) {
//		log.Printf("%s connected", c.Name())
//	}
//	srv.ClientMessage = func(c *pipemsg.Conn[string, string], m string) {
//		log.Printf("%s said: %s", c.Name(), m)
//		srv.Push(m) // broadcast
//	}
//	srv.ClientDisconnected = func(c *pipemsg.Conn[string, string]) {
//		if c != nil {
//			log.Printf("%s disconnected", c.Name())
//		}
//	}
//
//	srv.Start()
//	defer srv.Stop()
//
// Client
//
//	cli := pipemsg.NewClient[string, string]("demo",
//		pipemsg.StringCodec{}, pipemsg.StringCodec{})
//
//	cli.ServerMessage = func(_ *pipemsg.Conn[string, string], m string) {
//		log.Printf("server said: %s", m)
//	}
//
//	cli.Start()
//	if !cli.WaitForConnection(time.Second) {
//		log.Fatal("no server")
//	}
//	cli.Push("hello")
//	defer cli.Stop()
//
// Event callbacks run inline on the connection's loop goroutines by
// default. Pass WithScheduler(pipemsg.NewSerialScheduler(n)) and drain it
// from a goroutine of your own when callbacks must land on a particular
// thread, e.g. a UI loop.
package pipemsg
