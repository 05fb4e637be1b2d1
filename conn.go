// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipemsg

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
)

// Statistics counts a connection's traffic. All fields are maintained
// atomically.
type Statistics struct {
	ReadCount    int64
	ReadBytes    int64
	WrittenCount int64
	WrittenBytes int64
	PushCount    int64
}

// Conn is one end of a data-pipe pairing. It owns the pipe stream and two
// background loops: the read loop decodes inbound frames and delivers them
// through OnMessage, the write loop drains a FIFO send queue. OnDisconnected
// fires exactly once, when the first of the two loops completes.
//
// The callbacks must be set before Open. They are delivered on the
// scheduler the connection was created with.
type Conn[R, W any] struct {
	id   int
	name string

	pipe net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer
	rc   Codec[R]
	wc   Codec[W]

	sched Scheduler
	dump  *FrameDump

	OnMessage      func(c *Conn[R, W], m R)
	OnDisconnected func(c *Conn[R, W])
	OnError        func(c *Conn[R, W], err error)

	mu     sync.Mutex
	queue  []W
	limit  int
	closed bool
	wakeC  chan struct{}

	discOnce sync.Once

	stat Statistics
}

// NewConn wraps an accepted duplex stream. The name is derived from the id
// and never changes.
func NewConn[R, W any](id int, pipe net.Conn, rc Codec[R], wc Codec[W], opts ...Option) *Conn[R, W] {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Conn[R, W]{
		id:    id,
		name:  fmt.Sprintf("Client %d", id),
		pipe:  pipe,
		br:    bufio.NewReader(pipe),
		bw:    bufio.NewWriter(pipe),
		rc:    rc,
		wc:    wc,
		sched: cfg.sched,
		dump:  cfg.dump,
		limit: cfg.queueLimit,
		wakeC: make(chan struct{}, 1),
	}
}

func (c *Conn[R, W]) Id() int { return c.id }

func (c *Conn[R, W]) Name() string { return c.name }

func (c *Conn[R, W]) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Open starts the read loop and the write loop. Whichever completes first
// fires OnDisconnected, the second completion is swallowed.
func (c *Conn[R, W]) Open() {
	rw := NewWorker(c.sched)
	rw.Succeeded = c.onLoopDone
	rw.Error = c.onLoopError
	rw.Do(c.readLoop)

	ww := NewWorker(c.sched)
	ww.Succeeded = c.onLoopDone
	ww.Error = c.onLoopError
	ww.Do(c.writeLoop)
}

// Push enqueues m and wakes the write loop. It never blocks; with a bounded
// queue it returns ErrQueueFull when full, and ErrStopped once the
// connection is closed.
func (c *Conn[R, W]) Push(m W) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.limit > 0 && len(c.queue) >= c.limit {
		c.mu.Unlock()
		return ErrQueueFull
	}
	c.queue = append(c.queue, m)
	c.mu.Unlock()

	atomic.AddInt64(&c.stat.PushCount, 1)
	c.wake()
	return nil
}

// Close closes the pipe stream and wakes the write loop. Both loops then
// terminate and OnDisconnected fires.
func (c *Conn[R, W]) Close() {
	c.closeImpl()
}

func (c *Conn[R, W]) Statistics() Statistics {
	return Statistics{
		ReadCount:    atomic.LoadInt64(&c.stat.ReadCount),
		ReadBytes:    atomic.LoadInt64(&c.stat.ReadBytes),
		WrittenCount: atomic.LoadInt64(&c.stat.WrittenCount),
		WrittenBytes: atomic.LoadInt64(&c.stat.WrittenBytes),
		PushCount:    atomic.LoadInt64(&c.stat.PushCount),
	}
}

func (c *Conn[R, W]) readLoop() error {
	for {
		p, err := readFrame(c.br)
		if err == io.EOF {
			c.closeImpl()
			return nil
		}
		if err != nil {
			if c.localClosed() {
				return nil
			}
			c.closeImpl()
			return err
		}

		c.dump.dump(p, true)
		atomic.AddInt64(&c.stat.ReadCount, 1)
		atomic.AddInt64(&c.stat.ReadBytes, int64(len(p)))

		m, err := c.rc.Decode(p)
		if err != nil {
			// The frame boundary is intact, drop the payload and
			// keep the connection.
			c.fireError(err)
			continue
		}
		if f := c.OnMessage; f != nil {
			c.sched.Post(func() { f(c, m) })
		}
	}
}

func (c *Conn[R, W]) writeLoop() error {
	for {
		<-c.wakeC

		for {
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return nil
			}
			if len(c.queue) == 0 {
				c.mu.Unlock()
				break
			}
			m := c.queue[0]
			c.queue = c.queue[1:]
			c.mu.Unlock()

			p, err := c.wc.Encode(m)
			if err != nil {
				c.fireError(err)
				continue
			}
			if err := writeFrame(c.bw, p); err != nil {
				if c.localClosed() {
					return nil
				}
				c.closeImpl()
				return err
			}
			c.dump.dump(p, false)
			atomic.AddInt64(&c.stat.WrittenCount, 1)
			atomic.AddInt64(&c.stat.WrittenBytes, int64(len(p)))
		}
	}
}

func (c *Conn[R, W]) closeImpl() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.pipe.Close()
	c.wake()
}

func (c *Conn[R, W]) localClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn[R, W]) wake() {
	select {
	case c.wakeC <- struct{}{}:
	default:
	}
}

// onLoopDone is the single source of OnDisconnected. It runs once per loop,
// the latch lets only the first one through.
func (c *Conn[R, W]) onLoopDone() {
	c.discOnce.Do(func() {
		c.closeImpl()
		if f := c.OnDisconnected; f != nil {
			f(c)
		}
	})
}

// onLoopError already runs on the scheduler, the error callback is invoked
// in place before the completion latch.
func (c *Conn[R, W]) onLoopError(err error) {
	if f := c.OnError; f != nil {
		f(c, err)
	}
	c.onLoopDone()
}

func (c *Conn[R, W]) fireError(err error) {
	if f := c.OnError; f != nil {
		c.sched.Post(func() { f(c, err) })
	}
}
