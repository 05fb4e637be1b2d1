// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipemsg

import (
	"github.com/pkg/errors"
)

// Worker runs one long-lived unit of work on its own goroutine and reports
// the outcome through callbacks delivered on the scheduler captured at
// construction. Exactly one of Succeeded or Error fires per Do call:
// Error when the work returns a non-nil error or panics, Succeeded
// otherwise.
type Worker struct {
	sched Scheduler

	Succeeded func()
	Error     func(err error)
}

func NewWorker(sched Scheduler) *Worker {
	if sched == nil {
		sched = CallerScheduler{}
	}
	return &Worker{sched: sched}
}

// Do starts the work and returns immediately.
func (w *Worker) Do(work func() error) {
	go func() {
		err := w.run(work)
		if err != nil {
			if f := w.Error; f != nil {
				w.sched.Post(func() { f(err) })
			}
			return
		}
		if f := w.Succeeded; f != nil {
			w.sched.Post(f)
		}
	}()
}

func (w *Worker) run(work func() error) (err error) {
	defer func() {
		if e := recover(); e != nil {
			switch v := e.(type) {
			case error:
				err = v
			default:
				err = errors.Errorf("worker panic: %v", v)
			}
		}
	}()
	return work()
}
