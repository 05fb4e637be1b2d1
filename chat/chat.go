// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chat implements a small line-oriented chat protocol over
// pipemsg, used by the pipechat demo. The server relays each line to every
// other participant prefixed with the sender's nickname. A line of the form
// "/nick NAME" renames the sender instead of being relayed.
package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/someonegg/pipemsg"
)

const nickPrefix = "/nick "

// Server relays chat lines between all connected clients.
type Server struct {
	ps *pipemsg.Server[string, string]

	mu    sync.Mutex
	nicks map[int]string
}

func NewServer(pipeName string, opts ...pipemsg.Option) *Server {
	s := &Server{
		nicks: make(map[int]string),
	}
	ps := pipemsg.NewServer[string, string](pipeName,
		pipemsg.StringCodec{}, pipemsg.StringCodec{}, opts...)
	ps.ClientConnected = s.onConnected
	ps.ClientDisconnected = s.onDisconnected
	ps.ClientMessage = s.onMessage
	s.ps = ps
	return s
}

func (s *Server) Start() { s.ps.Start() }

func (s *Server) Stop() { s.ps.Stop() }

func (s *Server) onConnected(c *pipemsg.Conn[string, string]) {
	s.mu.Lock()
	// A "/nick" line may have been handled before this callback ran.
	if _, ok := s.nicks[c.Id()]; !ok {
		s.nicks[c.Id()] = c.Name()
	}
	s.mu.Unlock()
	s.ps.Push(fmt.Sprintf("* %s joined", c.Name()))
}

func (s *Server) onDisconnected(c *pipemsg.Conn[string, string]) {
	if c == nil {
		return
	}
	s.mu.Lock()
	nick := s.nicks[c.Id()]
	delete(s.nicks, c.Id())
	s.mu.Unlock()
	s.ps.Push(fmt.Sprintf("* %s left", nick))
}

func (s *Server) onMessage(c *pipemsg.Conn[string, string], line string) {
	if strings.HasPrefix(line, nickPrefix) {
		nick := strings.TrimSpace(strings.TrimPrefix(line, nickPrefix))
		if nick == "" {
			return
		}
		s.mu.Lock()
		old := s.nicks[c.Id()]
		s.nicks[c.Id()] = nick
		s.mu.Unlock()
		s.ps.Push(fmt.Sprintf("* %s is now %s", old, nick))
		return
	}

	s.mu.Lock()
	nick := s.nicks[c.Id()]
	others := make([]int, 0, len(s.nicks))
	for id := range s.nicks {
		if id != c.Id() {
			others = append(others, id)
		}
	}
	s.mu.Unlock()
	s.ps.PushTo(fmt.Sprintf("%s: %s", nick, line), others...)
}

// Client is one chat participant.
type Client struct {
	pc *pipemsg.Client[string, string]

	// OnLine receives every relayed chat line. Set before Start.
	OnLine func(line string)

	nick string
}

func NewClient(pipeName, nick string, opts ...pipemsg.Option) *Client {
	c := &Client{nick: nick}
	pc := pipemsg.NewClient[string, string](pipeName,
		pipemsg.StringCodec{}, pipemsg.StringCodec{}, opts...)
	pc.ServerMessage = func(_ *pipemsg.Conn[string, string], m string) {
		if f := c.OnLine; f != nil {
			f(m)
		}
	}
	c.pc = pc
	return c
}

// Start connects and announces the nickname. It blocks until the handshake
// completes or the timeout elapses.
func (c *Client) Start(timeout time.Duration) error {
	c.pc.Start()
	if !c.pc.WaitForConnection(timeout) {
		c.pc.Stop()
		return fmt.Errorf("chat: no server on pipe within %v", timeout)
	}
	if c.nick != "" {
		return c.pc.Push(nickPrefix + c.nick)
	}
	return nil
}

func (c *Client) Stop() { c.pc.Stop() }

// Say sends one chat line.
func (c *Client) Say(line string) error { return c.pc.Push(line) }
