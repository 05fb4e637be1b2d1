// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipemsg

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/someonegg/gox/syncx"
)

const stopWakeTimeout = 2 * time.Second

// Server listens on a well-known pipe name and serves an unbounded number
// of concurrent clients. Each accept runs a two-stage handshake: the server
// writes a freshly allocated per-connection pipe name onto the well-known
// pipe and closes it, then both sides meet again on the private pipe, which
// carries all messages of that session.
//
// R is the inbound message type, W the outbound. Event callbacks must be
// set before Start.
type Server[R, W any] struct {
	name string
	rc   Codec[R]
	wc   Codec[W]
	cfg  config

	ClientConnected    func(c *Conn[R, W])
	ClientDisconnected func(c *Conn[R, W])
	ClientMessage      func(c *Conn[R, W], m R)
	Error              func(c *Conn[R, W], err error)

	mu         sync.Mutex
	conns      map[int]*Conn[R, W]
	nextPipeID int

	shouldRun atomic.Bool
	running   atomic.Bool
	listenD   syncx.DoneChan

	// the listener the accept loop is currently parked on, closed by
	// Stop to break the wait
	acceptMu  sync.Mutex
	acceptL   net.Listener
	accepting bool
}

// NewServer allocates a Server for the well-known pipe name.
func NewServer[R, W any](name string, rc Codec[R], wc Codec[W], opts ...Option) *Server[R, W] {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Server[R, W]{
		name:  name,
		rc:    rc,
		wc:    wc,
		cfg:   cfg,
		conns: make(map[int]*Conn[R, W]),
	}
}

// Start spawns the listen loop. It returns immediately; calling Start on a
// running server is a no-op.
func (s *Server[R, W]) Start() {
	if !s.shouldRun.CompareAndSwap(false, true) {
		return
	}
	s.listenD = syncx.NewDoneChan()
	s.acceptMu.Lock()
	s.accepting = true
	s.acceptMu.Unlock()

	w := NewWorker(s.cfg.sched)
	w.Error = func(err error) { s.fireError(nil, err) }
	w.Do(s.listen)
}

// IsRunning reports whether the listen loop is alive.
func (s *Server[R, W]) IsRunning() bool {
	return s.running.Load()
}

// Stop closes every live connection and shuts the listen loop down. The
// loop may be parked waiting for a client; a flag alone cannot interrupt
// that, so Stop closes the pending listener and additionally dials a dummy
// client against the well-known name. It returns once the loop has exited
// or after the shutdown timeouts elapse.
func (s *Server[R, W]) Stop() {
	if !s.shouldRun.CompareAndSwap(true, false) {
		return
	}

	s.mu.Lock()
	conns := make([]*Conn[R, W], 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}

	s.acceptMu.Lock()
	s.accepting = false
	if s.acceptL != nil {
		s.acceptL.Close()
		s.acceptL = nil
	}
	s.acceptMu.Unlock()

	if conn, err := dialPipeOnce(s.name, stopWakeTimeout); err == nil {
		conn.Close()
	}

	select {
	case <-s.listenD:
	case <-time.After(stopWakeTimeout):
		s.cfg.log.Warnf("pipemsg: server %s: listen loop did not exit in time", s.name)
	}
}

// Push broadcasts m to every live connection.
func (s *Server[R, W]) Push(m W) {
	s.mu.Lock()
	conns := make([]*Conn[R, W], 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		s.pushOne(c, m)
	}
}

// PushTo sends m to the connections with the given ids. Unknown ids are
// ignored.
func (s *Server[R, W]) PushTo(m W, ids ...int) {
	s.mu.Lock()
	conns := make([]*Conn[R, W], 0, len(ids))
	for _, id := range ids {
		if c, ok := s.conns[id]; ok {
			conns = append(conns, c)
		}
	}
	s.mu.Unlock()
	for _, c := range conns {
		s.pushOne(c, m)
	}
}

// PushToName sends m to the first connection matching each given name.
func (s *Server[R, W]) PushToName(m W, names ...string) {
	s.mu.Lock()
	conns := make([]*Conn[R, W], 0, len(names))
	for _, name := range names {
		for _, c := range s.conns {
			if c.Name() == name {
				conns = append(conns, c)
				break
			}
		}
	}
	s.mu.Unlock()
	for _, c := range conns {
		s.pushOne(c, m)
	}
}

// ConnectionCount returns the number of live connections.
func (s *Server[R, W]) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server[R, W]) pushOne(c *Conn[R, W], m W) {
	err := c.Push(m)
	if err != nil && err != ErrStopped {
		s.fireError(c, err)
	}
}

func (s *Server[R, W]) listen() error {
	s.running.Store(true)
	defer func() {
		s.running.Store(false)
		s.listenD.SetDone()
	}()

	for s.shouldRun.Load() {
		s.waitForConnection()
	}
	return nil
}

// waitForConnection runs one handshake: allocate the private pipe name,
// accept a client on the well-known pipe, hand it the name, meet it on the
// private pipe, then wrap and register the session.
func (s *Server[R, W]) waitForConnection() {
	s.mu.Lock()
	s.nextPipeID++
	id := s.nextPipeID
	s.mu.Unlock()
	dataName := fmt.Sprintf("%s_%d", s.name, id)

	hsConn, err := s.acceptPipe(s.name)
	if err != nil {
		s.handshakeFailed(err)
		return
	}
	if !s.shouldRun.Load() {
		hsConn.Close()
		return
	}

	bw := bufio.NewWriter(hsConn)
	err = writeFrame(bw, []byte(dataName))
	hsConn.Close()
	if err != nil {
		s.handshakeFailed(errors.Wrap(err, "handshake write"))
		return
	}

	dataConn, err := s.acceptPipe(dataName)
	if err != nil {
		s.handshakeFailed(err)
		return
	}
	if !s.shouldRun.Load() {
		dataConn.Close()
		return
	}

	conn := NewConn(id, dataConn, s.rc, s.wc,
		WithScheduler(s.cfg.sched),
		WithQueueLimit(s.cfg.queueLimit),
		WithDump(s.cfg.dump))
	conn.OnMessage = func(c *Conn[R, W], m R) {
		if f := s.ClientMessage; f != nil {
			f(c, m)
		}
	}
	conn.OnDisconnected = func(c *Conn[R, W]) {
		s.mu.Lock()
		delete(s.conns, c.Id())
		s.mu.Unlock()
		if f := s.ClientDisconnected; f != nil {
			f(c)
		}
	}
	conn.OnError = func(c *Conn[R, W], err error) {
		s.fireError(c, err)
	}
	conn.Open()

	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()

	s.cfg.log.Debugf("pipemsg: server %s: client %d connected on %s", s.name, id, dataName)
	if f := s.ClientConnected; f != nil {
		s.cfg.sched.Post(func() { f(conn) })
	}
}

// acceptPipe creates an endpoint on name and waits for exactly one client.
// The listener is tracked so Stop can break the wait.
func (s *Server[R, W]) acceptPipe(name string) (net.Conn, error) {
	l, err := listenPipe(name, &s.cfg.pipe)
	if err != nil {
		return nil, err
	}
	if !s.trackListener(l) {
		l.Close()
		return nil, ErrStopped
	}
	conn, err := acceptOne(l)
	s.trackListener(nil)
	l.Close()
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *Server[R, W]) trackListener(l net.Listener) bool {
	s.acceptMu.Lock()
	defer s.acceptMu.Unlock()
	if l != nil && !s.accepting {
		return false
	}
	s.acceptL = l
	return true
}

// handshakeFailed logs, emits ClientDisconnected for the partial session
// and lets the listen loop resume. Shutdown-induced failures stay quiet.
func (s *Server[R, W]) handshakeFailed(err error) {
	if !s.shouldRun.Load() {
		return
	}
	s.cfg.log.Errorf("pipemsg: server %s: handshake: %v", s.name, err)
	if f := s.ClientDisconnected; f != nil {
		s.cfg.sched.Post(func() { f(nil) })
	}
}

func (s *Server[R, W]) fireError(c *Conn[R, W], err error) {
	if f := s.Error; f != nil {
		f(c, err)
		return
	}
	s.cfg.log.Errorf("pipemsg: server %s: %v", s.name, err)
}
