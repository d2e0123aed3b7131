// Package hausbus frames lamp payloads for an RS485 style multi-drop bus and
// writes them to a serial line.
//
// A frame is
//
//	0x7E | src | dst | len | payload[len] | sum
//
// where sum makes the 8-bit sum of every byte after the start marker zero.
package hausbus

import (
	"errors"
	"fmt"
)

const (
	StartByte = 0x7E

	// header is start, src, dst, len; trailer is the checksum.
	headerLen  = 4
	trailerLen = 1

	MaxPayload = 255
)

var (
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrShortFrame      = errors.New("short frame")
	ErrBadStart        = errors.New("missing start byte")
	ErrBadLength       = errors.New("length mismatch")
	ErrChecksum        = errors.New("checksum mismatch")
)

type Frame struct {
	Src     byte
	Dst     byte
	Payload []byte
}

func checksum(b []byte) byte {
	var s byte
	for _, v := range b {
		s += v
	}
	return -s
}

func Encode(src, dst byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%d bytes: %w", len(payload), ErrPayloadTooLarge)
	}

	buf := make([]byte, 0, headerLen+len(payload)+trailerLen)
	buf = append(buf, StartByte, src, dst, byte(len(payload)))
	buf = append(buf, payload...)
	buf = append(buf, checksum(buf[1:]))

	return buf, nil
}

func Decode(b []byte) (Frame, error) {
	if len(b) < headerLen+trailerLen {
		return Frame{}, ErrShortFrame
	}
	if b[0] != StartByte {
		return Frame{}, ErrBadStart
	}
	n := int(b[3])
	if len(b) != headerLen+n+trailerLen {
		return Frame{}, fmt.Errorf("header says %d, got %d: %w", n, len(b)-headerLen-trailerLen, ErrBadLength)
	}
	if checksum(b[1:]) != 0 {
		return Frame{}, ErrChecksum
	}

	p := make([]byte, n)
	copy(p, b[headerLen:headerLen+n])
	return Frame{Src: b[1], Dst: b[2], Payload: p}, nil
}
