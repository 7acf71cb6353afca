// Package pmsx003 decodes raw Plantower PMSX003 UART frames as forwarded by
// devices that bridge the sensor's serial output onto the message bus.
package pmsx003

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Frame layout constants.
const (
	// FrameSize is the full frame length in bytes, start bytes and
	// checksum included.
	FrameSize = 32

	startByte1 = 0x42
	startByte2 = 0x4D

	// payloadLen is the value of the frame-length field: everything after
	// it, checksum included.
	payloadLen = 28
)

// Decode errors.
var (
	ErrFrameTooShort   = errors.New("pmsx003: frame shorter than 32 bytes")
	ErrBadStartBytes   = errors.New("pmsx003: missing 0x42 0x4D start bytes")
	ErrBadFrameLength  = errors.New("pmsx003: unexpected frame length field")
	ErrChecksumMismatch = errors.New("pmsx003: checksum mismatch")
)

// Reading holds the concentrations decoded from one frame, in µg/m³.
// The atmospheric-environment values are what the firmware feeds into the
// smoothing pipeline; the CF=1 values are the sensor's factory calibration.
type Reading struct {
	PM1CF1  float64
	PM25CF1 float64
	PM10CF1 float64

	PM1  float64
	PM25 float64
	PM10 float64
}

// Decode parses a 32-byte PMSX003 frame. Extra trailing bytes are ignored
// so callers can pass a read buffer directly.
func Decode(frame []byte) (Reading, error) {
	if len(frame) < FrameSize {
		return Reading{}, fmt.Errorf("%w: got %d", ErrFrameTooShort, len(frame))
	}
	if frame[0] != startByte1 || frame[1] != startByte2 {
		return Reading{}, ErrBadStartBytes
	}
	if l := binary.BigEndian.Uint16(frame[2:4]); l != payloadLen {
		return Reading{}, fmt.Errorf("%w: got %d", ErrBadFrameLength, l)
	}

	// Checksum is the byte sum of everything before the final two bytes.
	var sum uint16
	for _, b := range frame[:FrameSize-2] {
		sum += uint16(b)
	}
	if want := binary.BigEndian.Uint16(frame[FrameSize-2 : FrameSize]); sum != want {
		return Reading{}, fmt.Errorf("%w: computed %#04x, frame carries %#04x", ErrChecksumMismatch, sum, want)
	}

	u16 := func(off int) float64 {
		return float64(binary.BigEndian.Uint16(frame[off : off+2]))
	}

	return Reading{
		PM1CF1:  u16(4),
		PM25CF1: u16(6),
		PM10CF1: u16(8),
		PM1:     u16(10),
		PM25:    u16(12),
		PM10:    u16(14),
	}, nil
}
