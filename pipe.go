// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipemsg

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/someonegg/gox/syncx"
)

const (
	// DefaultPollInterval is the sleep between existence probes while a
	// client waits for a pipe name to appear.
	DefaultPollInterval = 10 * time.Millisecond

	// DefaultConnectTimeout bounds a single connect attempt once the pipe
	// name exists.
	DefaultConnectTimeout = 1000 * time.Millisecond
)

// PipeConfig carries the server-side endpoint parameters. BufferSize and
// SecurityDescriptor are passed through to the OS pipe on Windows and
// ignored on Unix domain sockets.
type PipeConfig struct {
	BufferSize         int32
	SecurityDescriptor string
}

// ListenPipe creates a server endpoint on the named pipe. The caller owns
// the listener; each Accept yields one duplex byte stream.
func ListenPipe(name string, cfg *PipeConfig) (net.Listener, error) {
	if cfg == nil {
		cfg = &PipeConfig{}
	}
	return listenPipe(name, cfg)
}

// PipeExists is a non-blocking probe for the pipe name.
func PipeExists(name string) bool {
	return pipeExists(name)
}

// DialPipe spins on PipeExists sleeping pollInterval between probes until
// the name exists, then connects with DefaultConnectTimeout. A pulse on
// stopD aborts the wait with ErrStopped. stopD may be nil.
func DialPipe(name string, pollInterval time.Duration, stopD syncx.DoneChanR) (net.Conn, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	for !pipeExists(name) {
		if stopD != nil && stopD.Done() {
			return nil, ErrStopped
		}
		time.Sleep(pollInterval)
	}
	return dialPipeOnce(name, DefaultConnectTimeout)
}

// acceptOne waits for exactly one client on l.
func acceptOne(l net.Listener) (net.Conn, error) {
	conn, err := l.Accept()
	if err != nil {
		return nil, errors.Wrap(err, "pipe accept")
	}
	return conn, nil
}
