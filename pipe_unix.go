// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !windows

package pipemsg

import (
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// On non-Windows hosts, named pipes are Unix domain sockets under the
// system temp directory. Names are scoped to the local host like their
// Windows counterparts.

func pipePath(name string) string {
	return filepath.Join(os.TempDir(), "pipemsg-"+name+".sock")
}

func listenPipe(name string, cfg *PipeConfig) (net.Listener, error) {
	path := pipePath(name)
	// A stale socket file from a crashed server would fail the bind.
	os.Remove(path)
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, errors.Wrapf(err, "listen pipe %s", name)
	}
	return l, nil
}

func pipeExists(name string) bool {
	_, err := os.Stat(pipePath(name))
	return err == nil
}

func dialPipeOnce(name string, timeout time.Duration) (net.Conn, error) {
	path := pipePath(name)
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("unix", path, time.Until(deadline))
		if err == nil {
			return conn, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "dial pipe %s", name)
		}
		// The listener may be mid-recreation, connection refused is a
		// retryable race until the deadline.
		if time.Now().After(deadline) {
			return nil, errors.Wrapf(ErrConnectTimeout, "dial pipe %s: %v", name, err)
		}
		time.Sleep(time.Millisecond)
	}
}
