// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipemsg

import (
	"bufio"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/someonegg/gox/syncx"
)

// Client connects to a server's well-known pipe name, completes the
// handshake and wraps the private data pipe in a Conn. After an unexpected
// disconnect it starts exactly one reconnect attempt, provided
// AutoReconnect is set and Stop was not called.
//
// Event callbacks and the AutoReconnect fields must be set before Start.
type Client[R, W any] struct {
	name string
	rc   Codec[R]
	wc   Codec[W]
	cfg  config

	ServerMessage func(c *Conn[R, W], m R)
	Disconnected  func(c *Conn[R, W])
	Error         func(c *Conn[R, W], err error)

	// AutoReconnect enables the single reconnect attempt per disconnect.
	AutoReconnect bool
	// AutoReconnectDelay is slept before the attempt.
	AutoReconnectDelay time.Duration

	mu               sync.Mutex
	conn             *Conn[R, W]
	connD            syncx.DoneChan
	discD            syncx.DoneChan
	stopD            syncx.DoneChan
	closedExplicitly bool
}

// NewClient allocates a Client for the well-known pipe name.
func NewClient[R, W any](name string, rc Codec[R], wc Codec[W], opts ...Option) *Client[R, W] {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Client[R, W]{
		name:          name,
		rc:            rc,
		wc:            wc,
		cfg:           cfg,
		AutoReconnect: true,
		connD:         syncx.NewDoneChan(),
		discD:         syncx.NewDoneChan(),
	}
}

// Start spawns the connect sequence and returns immediately. The connect
// worker waits for the well-known pipe to exist, so Start before the server
// is up is fine.
func (cl *Client[R, W]) Start() {
	cl.mu.Lock()
	cl.closedExplicitly = false
	cl.stopD = syncx.NewDoneChan()
	stopD := cl.stopD
	cl.mu.Unlock()

	w := NewWorker(cl.cfg.sched)
	w.Error = func(err error) { cl.fireError(nil, err) }
	w.Do(func() error { return cl.connect(stopD.R()) })
}

// Stop tears the current connection down and suppresses reconnection.
func (cl *Client[R, W]) Stop() {
	cl.mu.Lock()
	cl.closedExplicitly = true
	conn := cl.conn
	stopD := cl.stopD
	cl.mu.Unlock()

	if stopD != nil {
		stopD.SetDone()
	}
	if conn != nil {
		conn.Close()
	}
}

// Push delegates to the current connection. It is a no-op while
// disconnected.
func (cl *Client[R, W]) Push(m W) error {
	cl.mu.Lock()
	conn := cl.conn
	cl.mu.Unlock()
	if conn == nil {
		return nil
	}
	err := conn.Push(m)
	if err == ErrStopped {
		return nil
	}
	return err
}

// IsConnected reports whether a live connection exists.
func (cl *Client[R, W]) IsConnected() bool {
	cl.mu.Lock()
	conn := cl.conn
	cl.mu.Unlock()
	return conn != nil && conn.IsConnected()
}

// Connection returns the current connection, nil while disconnected.
func (cl *Client[R, W]) Connection() *Conn[R, W] {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.conn
}

// WaitForConnection blocks until the client is connected. A non-positive
// timeout waits forever. It reports whether the wait succeeded.
func (cl *Client[R, W]) WaitForConnection(timeout time.Duration) bool {
	cl.mu.Lock()
	d := cl.connD.R()
	cl.mu.Unlock()
	return waitDone(d, timeout)
}

// WaitForDisconnection blocks until the current connection is gone.
func (cl *Client[R, W]) WaitForDisconnection(timeout time.Duration) bool {
	cl.mu.Lock()
	d := cl.discD.R()
	cl.mu.Unlock()
	return waitDone(d, timeout)
}

func waitDone(d syncx.DoneChanR, timeout time.Duration) bool {
	if timeout <= 0 {
		<-d
		return true
	}
	select {
	case <-d:
		return true
	case <-time.After(timeout):
		return false
	}
}

// connect performs the client half of the handshake: read the private pipe
// name from the well-known pipe, then meet the server on it.
func (cl *Client[R, W]) connect(stopD syncx.DoneChanR) error {
	dataName, err := cl.handshake(stopD)
	if err != nil {
		return err
	}

	pipe, err := DialPipe(dataName, cl.cfg.pollInterval, stopD)
	if err != nil {
		return errors.Wrap(err, "data dial")
	}

	conn := NewConn(idFromPipeName(dataName), pipe, cl.rc, cl.wc,
		WithScheduler(cl.cfg.sched),
		WithQueueLimit(cl.cfg.queueLimit),
		WithDump(cl.cfg.dump))
	conn.OnMessage = func(c *Conn[R, W], m R) {
		if f := cl.ServerMessage; f != nil {
			f(c, m)
		}
	}
	conn.OnDisconnected = cl.onDisconnected
	conn.OnError = func(c *Conn[R, W], err error) {
		cl.fireError(c, err)
	}

	cl.mu.Lock()
	cl.conn = conn
	cl.discD = syncx.NewDoneChan()
	cl.connD.SetDone()
	cl.mu.Unlock()

	conn.Open()
	cl.cfg.log.Debugf("pipemsg: client %s: connected on %s", cl.name, dataName)
	return nil
}

// handshake retries until it reads a private pipe name. The server closes
// its well-known endpoint after each accept, a client that arrives in that
// window sees a refused connect or an empty stream and simply tries again.
func (cl *Client[R, W]) handshake(stopD syncx.DoneChanR) (string, error) {
	for {
		if stopD.Done() {
			return "", ErrStopped
		}

		hs, err := DialPipe(cl.name, cl.cfg.pollInterval, stopD)
		if err == ErrStopped {
			return "", err
		}
		if err != nil {
			cl.cfg.log.Debugf("pipemsg: client %s: handshake dial: %v", cl.name, err)
			continue
		}

		p, err := readFrame(bufio.NewReader(hs))
		hs.Close()
		if err != nil {
			cl.cfg.log.Debugf("pipemsg: client %s: handshake read: %v", cl.name, err)
			continue
		}
		return string(p), nil
	}
}

func (cl *Client[R, W]) onDisconnected(conn *Conn[R, W]) {
	cl.mu.Lock()
	if cl.conn == conn {
		cl.conn = nil
	}
	cl.connD = syncx.NewDoneChan()
	cl.discD.SetDone()
	explicit := cl.closedExplicitly
	auto := cl.AutoReconnect
	delay := cl.AutoReconnectDelay
	cl.mu.Unlock()

	if f := cl.Disconnected; f != nil {
		f(conn)
	}

	if !auto || explicit {
		return
	}
	go func() {
		time.Sleep(delay)
		cl.mu.Lock()
		explicit := cl.closedExplicitly
		cl.mu.Unlock()
		if !explicit {
			cl.Start()
		}
	}()
}

func (cl *Client[R, W]) fireError(c *Conn[R, W], err error) {
	if f := cl.Error; f != nil {
		f(c, err)
		return
	}
	cl.cfg.log.Errorf("pipemsg: client %s: %v", cl.name, err)
}

// idFromPipeName recovers the server-assigned connection id from the
// trailing "_<n>" of a private pipe name.
func idFromPipeName(name string) int {
	i := strings.LastIndexByte(name, '_')
	if i < 0 {
		return 0
	}
	id, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return 0
	}
	return id
}
