// Copyright (C) 2019-2021 Algorand, Inc.
// This file is part of go-muse
//
// go-muse is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-muse is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-muse.  If not, see <https://www.gnu.org/licenses/>.

package protocol

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/algorand/go-codec/codec"
)

// CodecHandle is the canonical msgpack handle. Encodings made with it are
// the input of every consensus hash: transaction ids, signing digests,
// block ids and merkle leaves.
var CodecHandle = newMsgpackHandle()

// JSONHandle encodes genesis files and operation metadata.
var JSONHandle = newJSONHandle()

func newMsgpackHandle() *codec.MsgpackHandle {
	h := new(codec.MsgpackHandle)
	h.ErrorIfNoField = true
	h.ErrorIfNoArrayExpand = true
	h.Canonical = true
	h.RecursiveEmptyCheck = true
	h.WriteExt = true
	h.PositiveIntUnsigned = true
	h.Raw = true
	return h
}

func newJSONHandle() *codec.JsonHandle {
	h := new(codec.JsonHandle)
	h.ErrorIfNoField = true
	h.ErrorIfNoArrayExpand = true
	h.Canonical = true
	h.RecursiveEmptyCheck = true
	h.Indent = 2
	h.HTMLCharsAsIs = true
	return h
}

// encoders are reused across calls; each carries its own output slice.
type encoder struct {
	enc *codec.Encoder
	buf []byte
}

var encoders = sync.Pool{
	New: func() interface{} {
		return &encoder{enc: codec.NewEncoderBytes(nil, CodecHandle)}
	},
}

// Encode returns the canonical msgpack encoding of obj. It panics if obj
// cannot be encoded, which only happens for types outside this module.
func Encode(obj interface{}) []byte {
	e := encoders.Get().(*encoder)
	e.buf = make([]byte, 0, 256)
	e.enc.ResetBytes(&e.buf)
	e.enc.MustEncode(obj)
	out := e.buf
	e.buf = nil
	encoders.Put(e)
	return out
}

// EncodedLen is len(Encode(obj)).
func EncodedLen(obj interface{}) int {
	return len(Encode(obj))
}

// Decode reads a msgpack encoding into objptr. Unknown fields are errors.
func Decode(b []byte, objptr interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode %T: %v", objptr, r)
		}
	}()
	return codec.NewDecoderBytes(b, CodecHandle).Decode(objptr)
}

// EncodeJSON returns the indented JSON encoding of obj.
func EncodeJSON(obj interface{}) []byte {
	var b []byte
	codec.NewEncoderBytes(&b, JSONHandle).MustEncode(obj)
	return b
}

// DecodeJSON reads a JSON encoding into objptr. Unknown fields are errors.
func DecodeJSON(b []byte, objptr interface{}) error {
	return codec.NewDecoderBytes(b, JSONHandle).Decode(objptr)
}

// IsValidJSON reports whether s is a single well-formed JSON document.
// Metadata fields are optional, so the empty string passes.
func IsValidJSON(s string) bool {
	return s == "" || json.Valid([]byte(s))
}
