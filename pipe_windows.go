// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package pipemsg

import (
	"net"
	"os"
	"time"

	"github.com/Microsoft/go-winio"
	"github.com/pkg/errors"
)

func pipePath(name string) string {
	return `\\.\pipe\` + name
}

func listenPipe(name string, cfg *PipeConfig) (net.Listener, error) {
	l, err := winio.ListenPipe(pipePath(name), &winio.PipeConfig{
		SecurityDescriptor: cfg.SecurityDescriptor,
		InputBufferSize:    cfg.BufferSize,
		OutputBufferSize:   cfg.BufferSize,
	})
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
	conn, err := winio.DialPipe(pipePath(name), &timeout)
	if err != nil {
		if err == winio.ErrTimeout {
			return nil, errors.Wrapf(ErrConnectTimeout, "dial pipe %s", name)
		}
		return nil, errors.Wrapf(err, "dial pipe %s", name)
	}
	return conn, nil
}
