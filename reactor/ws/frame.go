/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package ws implements RFC 6455 base framing: parsing masked client
// frames off a non-blocking buffer and serializing unmasked server
// frames, plus the opening handshake's Sec-WebSocket-Accept digest.
package ws

import (
	"encoding/binary"
	"errors"
)

// Opcode identifies the interpretation of a frame's payload, per
// RFC 6455 §5.2 and §11.8.
type Opcode uint8

const (
	OpcodeContinuation Opcode = 0x0
	OpcodeText         Opcode = 0x1
	OpcodeBinary       Opcode = 0x2
	OpcodeClose        Opcode = 0x8
	OpcodePing         Opcode = 0x9
	OpcodePong         Opcode = 0xA
)

// Frame is one decoded WebSocket frame with its payload already
// unmasked.
type Frame struct {
	Fin     bool
	Opcode  Opcode
	Payload []byte
}

var (
	// ErrPayloadTooLarge is returned when a frame declares a payload
	// length exceeding the configured WebSocket payload budget.
	ErrPayloadTooLarge = errors.New("websocket: frame payload exceeds configured limit")

	// ErrUnmaskedClientFrame is returned for a client frame with the
	// mask bit unset, which RFC 6455 §5.1 forbids.
	ErrUnmaskedClientFrame = errors.New("websocket: client frame is not masked")
)

// ParseFrame attempts to decode one frame from the front of buf. It
// returns (nil, buf, nil) when more bytes are needed, (frame, rest, nil)
// on success, or a non-nil error when buf can never yield a valid frame
// (oversized payload, unmasked client frame).
func ParseFrame(buf []byte, payloadLimit uint64) (*Frame, []byte, error) {
	if len(buf) < 2 {
		return nil, buf, nil
	}

	b0, b1 := buf[0], buf[1]

	fin := b0&0x80 != 0
	opcode := Opcode(b0 & 0x0f)
	masked := b1&0x80 != 0
	lenField := b1 & 0x7f

	if !masked {
		return nil, nil, ErrUnmaskedClientFrame
	}

	off := 2
	var payloadLen uint64

	switch {
	case lenField <= 125:
		payloadLen = uint64(lenField)
	case lenField == 126:
		if len(buf) < off+2 {
			return nil, buf, nil
		}
		payloadLen = uint64(binary.BigEndian.Uint16(buf[off : off+2]))
		off += 2
	default: // 127
		if len(buf) < off+8 {
			return nil, buf, nil
		}
		payloadLen = binary.BigEndian.Uint64(buf[off : off+8])
		off += 8
	}

	if payloadLen > payloadLimit {
		return nil, nil, ErrPayloadTooLarge
	}

	if len(buf) < off+4 {
		return nil, buf, nil
	}
	var maskKey [4]byte
	copy(maskKey[:], buf[off:off+4])
	off += 4

	total := off + int(payloadLen)
	if len(buf) < total {
		return nil, buf, nil
	}

	payload := make([]byte, payloadLen)
	copy(payload, buf[off:total])
	for i := range payload {
		payload[i] ^= maskKey[i%4]
	}

	return &Frame{Fin: fin, Opcode: opcode, Payload: payload}, buf[total:], nil
}

// Serialize encodes an unmasked server-to-client frame, per RFC 6455
// §5.1 ("a server MUST NOT mask any frames it sends to the client").
func Serialize(opcode Opcode, payload []byte) []byte {
	var header []byte
	b0 := byte(0x80) | byte(opcode) // fin=1, single-frame messages only

	n := len(payload)
	switch {
	case n <= 125:
		header = []byte{b0, byte(n)}
	case n <= 0xFFFF:
		header = make([]byte, 4)
		header[0] = b0
		header[1] = 126
		binary.BigEndian.PutUint16(header[2:4], uint16(n))
	default:
		header = make([]byte, 10)
		header[0] = b0
		header[1] = 127
		binary.BigEndian.PutUint64(header[2:10], uint64(n))
	}

	out := make([]byte, 0, len(header)+n)
	out = append(out, header...)
	out = append(out, payload...)
	return out
}
