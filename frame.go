// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipemsg

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// FrameMaxLength is the maximum payload length of a single frame.
const FrameMaxLength = 32 * 1024 * 1024

// In the transport layer, message's layout is:
//
//	Length(4-bytes, little-endian)Payload
//
// A clean EOF before the first header byte signals disconnection. An empty
// frame is illegal in either direction.

func writeFrame(w *bufio.Writer, payload []byte) error {
	if len(payload) == 0 {
		return errors.Wrap(ErrProtocol, "empty frame")
	}
	if len(payload) > FrameMaxLength {
		return errors.Wrapf(ErrProtocol, "frame length %d", len(payload))
	}

	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	// Flush before the caller may close the pipe, otherwise the tail of
	// the frame never reaches the peer.
	return w.Flush()
}

func readFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, errors.Wrap(ErrProtocol, "partial frame header")
		}
		return nil, err
	}

	l := binary.LittleEndian.Uint32(hdr[:])
	if l == 0 || l > FrameMaxLength {
		return nil, errors.Wrapf(ErrProtocol, "frame length %d", l)
	}

	p := make([]byte, l)
	if _, err := io.ReadFull(r, p); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Wrap(ErrProtocol, "truncated frame payload")
		}
		return nil, err
	}
	return p, nil
}
