// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipemsg

import (
	"time"

	"github.com/sirupsen/logrus"
)

type config struct {
	pipe         PipeConfig
	sched        Scheduler
	log          logrus.FieldLogger
	queueLimit   int
	pollInterval time.Duration
	dump         *FrameDump
}

func defaultConfig() config {
	return config{
		sched:        CallerScheduler{},
		log:          logrus.StandardLogger(),
		pollInterval: DefaultPollInterval,
	}
}

// Option configures a Server or a Client during construction.
type Option func(*config)

// WithBufferSize sets the OS pipe buffer size on server endpoints.
func WithBufferSize(n int32) Option {
	return func(c *config) { c.pipe.BufferSize = n }
}

// WithSecurityDescriptor sets the access-control descriptor on server
// endpoints. The string is passed through opaquely (SDDL on Windows).
func WithSecurityDescriptor(sd string) Option {
	return func(c *config) { c.pipe.SecurityDescriptor = sd }
}

// WithScheduler nominates the scheduler event callbacks are delivered on.
// The default runs them inline on the loop goroutines; pass a
// SerialScheduler to funnel them onto a goroutine of your own, e.g. a UI
// loop.
func WithScheduler(s Scheduler) Option {
	return func(c *config) { c.sched = s }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) { c.log = l }
}

// WithQueueLimit bounds the per-connection send queue. Push returns
// ErrQueueFull instead of growing without limit. Zero means unbounded.
func WithQueueLimit(n int) Option {
	return func(c *config) { c.queueLimit = n }
}

// WithPollInterval sets the sleep between pipe existence probes on the
// client side.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) { c.pollInterval = d }
}

// WithDump mirrors every frame to d for debugging.
func WithDump(d *FrameDump) Option {
	return func(c *config) { c.dump = d }
}
