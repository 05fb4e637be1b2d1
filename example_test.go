// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipemsg_test

import (
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/someonegg/gox/syncx"
	"github.com/someonegg/pipemsg"

	"gotest.tools/v3/assert"
)

// The example speaks a tiny typed protocol: every message is a request with
// a verb and a body, carried by the gob codec.
type request struct {
	Verb string
	Body string
}

type reqConn = pipemsg.Conn[request, request]

type exampleServer struct {
	srv *pipemsg.Server[request, request]
}

func newExampleServer(pipe string) *exampleServer {
	p := &exampleServer{}
	srv := pipemsg.NewServer[request, request](pipe,
		pipemsg.GobCodec[request]{}, pipemsg.GobCodec[request]{})
	srv.ClientMessage = p.process
	p.srv = srv
	return p
}

func (p *exampleServer) process(c *reqConn, m request) {
	log.Printf("server receive message: %v, %v", m.Verb, m.Body)

	switch m.Verb {
	case "hello":
		p.srv.PushTo(request{Verb: "hello", Body: m.Body}, c.Id())
	case "ask":
		p.srv.PushTo(request{Verb: "answer", Body: m.Body}, c.Id())
	case "bye":
		p.srv.PushTo(request{Verb: "bye", Body: m.Body}, c.Id())
	default:
		log.Print("unknown client message")
	}
}

type exampleClient struct {
	cli *pipemsg.Client[request, request]

	helloD syncx.DoneChan
	byeD   syncx.DoneChan
}

func newExampleClient(pipe string) *exampleClient {
	p := &exampleClient{
		helloD: syncx.NewDoneChan(),
		byeD:   syncx.NewDoneChan(),
	}
	cli := pipemsg.NewClient[request, request](pipe,
		pipemsg.GobCodec[request]{}, pipemsg.GobCodec[request]{})
	cli.AutoReconnect = false
	cli.ServerMessage = p.process
	p.cli = cli
	return p
}

func (p *exampleClient) process(_ *reqConn, m request) {
	log.Printf("client receive message: %v, %v", m.Verb, m.Body)

	switch m.Verb {
	case "hello":
		p.helloD.SetDone()
	case "answer":
	case "bye":
		p.byeD.SetDone()
	default:
		log.Print("unknown server message")
	}
}

func TestExample(test *testing.T) {
	pipe := fmt.Sprintf("pmexample-%d", time.Now().UnixNano())

	s := newExampleServer(pipe)
	s.srv.Start()
	defer s.srv.Stop()

	c := newExampleClient(pipe)
	c.cli.Start()
	defer c.cli.Stop()
	assert.Assert(test, c.cli.WaitForConnection(5*time.Second))

	c.cli.Push(request{Verb: "hello", Body: "aaa"})
	<-c.helloD

	for i := 0; i < 3; i++ {
		c.cli.Push(request{Verb: "ask", Body: fmt.Sprint("bbb", i)})
		time.Sleep(time.Millisecond)
	}

	c.cli.Push(request{Verb: "bye", Body: "ccc"})
	<-c.byeD
}
