// Package cdr implements the ROS 2 CDR (XCDR1) wire codec used on every
// topic of the bridge.
//
// Each payload is a 4-byte encapsulation header followed by the little-endian
// CDR body. Only the little-endian representation identifier (0x00 0x01) with
// zero options is accepted; every other header value, including the big-endian
// variant, is rejected before the body is touched.
//
// Field alignment is relative to the start of the body, i.e. the byte
// immediately after the encapsulation header: 4-byte boundaries for 32-bit
// integers and sequence/string length prefixes, 8-byte boundaries for 64-bit
// floats. Strings carry their NUL terminator inside the length prefix.
package cdr

import (
	"encoding/binary"
	"math"
)

// Marshaler is implemented by message types that serialize to a CDR body
type Marshaler interface {
	// TypeName returns the full ROS 2 type name (e.g., "sensor_msgs/msg/JointState")
	TypeName() string
	MarshalCDR(e *Encoder) error
}

// Unmarshaler is implemented by message types that deserialize from a CDR body
type Unmarshaler interface {
	TypeName() string
	UnmarshalCDR(d *Decoder) error
}

// Encoder serializes CDR body fields in little-endian byte order.
// The zero value is not usable; create one with NewEncoder.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an encoder positioned at the start of a CDR body
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 64)}
}

// Bytes returns the serialized body without the encapsulation header
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// align pads the body with zero bytes up to the next boundary
func (e *Encoder) align(boundary int) {
	for len(e.buf)%boundary != 0 {
		e.buf = append(e.buf, 0)
	}
}

// WriteUint8 appends a single octet
func (e *Encoder) WriteUint8(v uint8) {
	e.buf = append(e.buf, v)
}

// WriteUint32 appends a 4-byte aligned little-endian uint32
func (e *Encoder) WriteUint32(v uint32) {
	e.align(4)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// WriteInt32 appends a 4-byte aligned little-endian int32
func (e *Encoder) WriteInt32(v int32) {
	e.WriteUint32(uint32(v))
}

// WriteFloat64 appends an 8-byte aligned little-endian IEEE 754 double
func (e *Encoder) WriteFloat64(v float64) {
	e.align(8)
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
}

// WriteString appends a CDR string: uint32 length including the NUL
// terminator, the bytes, then the terminator itself
func (e *Encoder) WriteString(s string) {
	e.WriteUint32(uint32(len(s) + 1))
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
}

// WriteStringSeq appends a sequence of strings with a uint32 element count prefix
func (e *Encoder) WriteStringSeq(vs []string) {
	e.WriteUint32(uint32(len(vs)))
	for _, s := range vs {
		e.WriteString(s)
	}
}

// WriteFloat64Seq appends a sequence of doubles with a uint32 element count prefix
func (e *Encoder) WriteFloat64Seq(vs []float64) {
	e.WriteUint32(uint32(len(vs)))
	for _, v := range vs {
		e.WriteFloat64(v)
	}
}

// WriteOctetSeq appends a sequence of raw octets with a uint32 element count prefix
func (e *Encoder) WriteOctetSeq(vs []byte) {
	e.WriteUint32(uint32(len(vs)))
	e.buf = append(e.buf, vs...)
}
