// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipemsg

import (
	"github.com/pkg/errors"
)

var (
	// ErrProtocol reports a malformed frame: a partial header, a zero or
	// oversized length, or a truncated payload.
	ErrProtocol = errors.New("pipemsg: malformed frame")

	// ErrSerialization reports that the value codec rejected a payload.
	// The connection survives it, the offending frame is dropped.
	ErrSerialization = errors.New("pipemsg: codec rejected payload")

	// ErrQueueFull is returned by Push when a bounded send queue is
	// configured and full.
	ErrQueueFull = errors.New("pipemsg: send queue full")

	// ErrStopped is returned by operations on a closed connection or an
	// explicitly stopped client.
	ErrStopped = errors.New("pipemsg: stopped")

	// ErrConnectTimeout is returned when a pipe endpoint exists but does
	// not accept a connection within the connect timeout.
	ErrConnectTimeout = errors.New("pipemsg: connect timeout")
)
