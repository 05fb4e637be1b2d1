// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipemsg

import (
	"github.com/someonegg/gox/syncx"
)

// Scheduler decides on which goroutine event callbacks run. It is captured
// when a Worker is created and used for every callback that Worker posts.
type Scheduler interface {
	Post(f func())
}

// The SchedulerFunc type is an adapter to allow the use of ordinary
// functions as schedulers.
type SchedulerFunc func(f func())

func (s SchedulerFunc) Post(f func()) { s(f) }

// CallerScheduler runs callbacks inline on the posting goroutine. It is the
// default: a connection's message callbacks then run on its read-loop
// goroutine, which preserves per-connection delivery order.
type CallerScheduler struct{}

func (CallerScheduler) Post(f func()) { f() }

// GoScheduler posts each callback on a fresh goroutine. Callbacks never
// block the loop goroutines, but delivery order across callbacks is lost.
type GoScheduler struct{}

func (GoScheduler) Post(f func()) { go f() }

// SerialScheduler queues callbacks and runs them on whatever goroutine
// drains it, typically a UI loop. Delivery order equals post order.
type SerialScheduler struct {
	fC    chan func()
	stopD syncx.DoneChan
}

func NewSerialScheduler(backlog int) *SerialScheduler {
	return &SerialScheduler{
		fC:    make(chan func(), backlog),
		stopD: syncx.NewDoneChan(),
	}
}

// Post enqueues f. It blocks while the backlog is full and drops f once the
// scheduler is closed.
func (s *SerialScheduler) Post(f func()) {
	select {
	case s.fC <- f:
	case <-s.stopD:
	}
}

// Run drains callbacks until Close is called.
func (s *SerialScheduler) Run() {
	for {
		select {
		case f := <-s.fC:
			f()
		case <-s.stopD:
			return
		}
	}
}

// RunOnce runs a single pending callback, it reports whether one ran.
func (s *SerialScheduler) RunOnce() bool {
	select {
	case f := <-s.fC:
		f()
		return true
	default:
		return false
	}
}

func (s *SerialScheduler) Close() {
	s.stopD.SetDone()
}
