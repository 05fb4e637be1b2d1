// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipemsg

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"
)

// Codec converts values of one message type to and from payload bytes.
// The frame layer is independent of it and carries the payload boundaries,
// so the encoding need not be self-delimiting.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(p []byte) (T, error)
}

// StringCodec passes strings through as UTF-8 bytes.
type StringCodec struct{}

func (StringCodec) Encode(v string) ([]byte, error) {
	return []byte(v), nil
}

func (StringCodec) Decode(p []byte) (string, error) {
	return string(p), nil
}

// BytesCodec passes payloads through unchanged. The returned slice aliases
// the frame buffer; each frame is read into a freshly allocated buffer.
type BytesCodec struct{}

func (BytesCodec) Encode(v []byte) ([]byte, error) {
	return v, nil
}

func (BytesCodec) Decode(p []byte) ([]byte, error) {
	return p, nil
}

// GobCodec encodes values with encoding/gob, a self-describing binary
// serialization. T must be a gob-encodable type.
type GobCodec[T any] struct{}

func (GobCodec[T]) Encode(v T) ([]byte, error) {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(&v); err != nil {
		return nil, errors.Wrapf(ErrSerialization, "gob encode: %v", err)
	}
	return b.Bytes(), nil
}

func (GobCodec[T]) Decode(p []byte) (T, error) {
	var v T
	if err := gob.NewDecoder(bytes.NewReader(p)).Decode(&v); err != nil {
		return v, errors.Wrapf(ErrSerialization, "gob decode: %v", err)
	}
	return v, nil
}
