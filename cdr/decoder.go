package cdr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Structural errors surfaced by Decoder primitives. The envelope Decode
// wrapper maps all of them onto the bridge error taxonomy.
var (
	errShortBody = errors.New("unexpected end of CDR body")
	errBadLength = errors.New("sequence length exceeds remaining body")
)

// Decoder reads little-endian CDR body fields with bounds checking.
// It never panics on truncated or corrupt input; every primitive returns
// an error instead.
type Decoder struct {
	data []byte
	pos  int
}

// NewDecoder returns a decoder positioned at the start of a CDR body
// (the byte after the encapsulation header)
func NewDecoder(body []byte) *Decoder {
	return &Decoder{data: body}
}

// Remaining returns the number of unread body bytes
func (d *Decoder) Remaining() int {
	return len(d.data) - d.pos
}

// align advances the read position to the next boundary
func (d *Decoder) align(boundary int) {
	if rem := d.pos % boundary; rem != 0 {
		d.pos += boundary - rem
	}
}

// ReadUint8 reads a single octet
func (d *Decoder) ReadUint8() (uint8, error) {
	if d.pos+1 > len(d.data) {
		return 0, fmt.Errorf("uint8 at offset %d: %w", d.pos, errShortBody)
	}
	v := d.data[d.pos]
	d.pos++
	return v, nil
}

// ReadUint32 reads a 4-byte aligned little-endian uint32
func (d *Decoder) ReadUint32() (uint32, error) {
	d.align(4)
	if d.pos+4 > len(d.data) {
		return 0, fmt.Errorf("uint32 at offset %d: %w", d.pos, errShortBody)
	}
	v := binary.LittleEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return v, nil
}

// ReadInt32 reads a 4-byte aligned little-endian int32
func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.ReadUint32()
	return int32(v), err
}

// ReadFloat64 reads an 8-byte aligned little-endian IEEE 754 double
func (d *Decoder) ReadFloat64() (float64, error) {
	d.align(8)
	if d.pos+8 > len(d.data) {
		return 0, fmt.Errorf("float64 at offset %d: %w", d.pos, errShortBody)
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(d.data[d.pos:]))
	d.pos += 8
	return v, nil
}

// ReadString reads a CDR string. The length prefix counts the NUL
// terminator, which is stripped from the returned value.
func (d *Decoder) ReadString() (string, error) {
	n, err := d.ReadUint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("string at offset %d: zero length prefix: %w", d.pos, errBadLength)
	}
	if int(n) > d.Remaining() {
		return "", fmt.Errorf("string at offset %d: length %d: %w", d.pos, n, errBadLength)
	}
	raw := d.data[d.pos : d.pos+int(n)]
	d.pos += int(n)
	if raw[len(raw)-1] != 0 {
		return "", fmt.Errorf("string at offset %d: missing NUL terminator: %w", d.pos, errShortBody)
	}
	return string(raw[:len(raw)-1]), nil
}

// ReadStringSeq reads a sequence of strings
func (d *Decoder) ReadStringSeq() ([]string, error) {
	n, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	// Every string carries a 4-byte length prefix, so a count whose
	// prefixes alone exceed the remaining body can never be satisfied.
	if int64(n)*4 > int64(d.Remaining()) {
		return nil, fmt.Errorf("string sequence count %d: %w", n, errBadLength)
	}
	vs := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := d.ReadString()
		if err != nil {
			return nil, fmt.Errorf("string sequence element %d: %w", i, err)
		}
		vs = append(vs, s)
	}
	return vs, nil
}

// ReadFloat64Seq reads a sequence of doubles
func (d *Decoder) ReadFloat64Seq() ([]float64, error) {
	n, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	if int64(n)*8 > int64(d.Remaining())+4 {
		return nil, fmt.Errorf("float64 sequence count %d: %w", n, errBadLength)
	}
	vs := make([]float64, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := d.ReadFloat64()
		if err != nil {
			return nil, fmt.Errorf("float64 sequence element %d: %w", i, err)
		}
		vs = append(vs, v)
	}
	return vs, nil
}

// ReadOctetSeq reads a sequence of raw octets
func (d *Decoder) ReadOctetSeq() ([]byte, error) {
	n, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	if int(n) > d.Remaining() {
		return nil, fmt.Errorf("octet sequence count %d: %w", n, errBadLength)
	}
	vs := make([]byte, n)
	copy(vs, d.data[d.pos:d.pos+int(n)])
	d.pos += int(n)
	return vs, nil
}
