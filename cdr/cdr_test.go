package cdr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoder_FieldLayout(t *testing.T) {
	e := NewEncoder()
	e.WriteInt32(1)
	e.WriteUint32(2)
	e.WriteString("ab")
	e.WriteFloat64(1.5)

	expected := []byte{
		0x01, 0x00, 0x00, 0x00, // int32 1
		0x02, 0x00, 0x00, 0x00, // uint32 2
		0x03, 0x00, 0x00, 0x00, // string length 3 (includes NUL)
		'a', 'b', 0x00, // string bytes + terminator
		0x00,                                           // padding to 8-byte boundary
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xf8, 0x3f, // float64 1.5
	}
	assert.Equal(t, expected, e.Bytes())
}

func TestEncoder_Sequences(t *testing.T) {
	e := NewEncoder()
	e.WriteFloat64Seq([]float64{2.0})

	expected := []byte{
		0x01, 0x00, 0x00, 0x00, // count 1
		0x00, 0x00, 0x00, 0x00, // padding to 8-byte boundary
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x40, // 2.0
	}
	assert.Equal(t, expected, e.Bytes())

	e = NewEncoder()
	e.WriteStringSeq([]string{"x"})
	expected = []byte{
		0x01, 0x00, 0x00, 0x00, // count 1
		0x02, 0x00, 0x00, 0x00, // string length 2
		'x', 0x00,
	}
	assert.Equal(t, expected, e.Bytes())

	e = NewEncoder()
	e.WriteOctetSeq([]byte{0xaa, 0xbb})
	expected = []byte{
		0x02, 0x00, 0x00, 0x00,
		0xaa, 0xbb,
	}
	assert.Equal(t, expected, e.Bytes())
}

func TestDecoder_RoundTripPrimitives(t *testing.T) {
	e := NewEncoder()
	e.WriteInt32(-7)
	e.WriteUint8(3)
	e.WriteUint32(42)
	e.WriteString("frame")
	e.WriteFloat64(3.14159)

	d := NewDecoder(e.Bytes())

	i, err := d.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-7), i)

	b, err := d.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(3), b)

	u, err := d.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), u)

	s, err := d.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "frame", s)

	f, err := d.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, 3.14159, f)

	assert.Equal(t, 0, d.Remaining())
}

func TestDecoder_TruncatedBody(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		read func(d *Decoder) error
	}{
		{"uint32 short", []byte{0x01, 0x02}, func(d *Decoder) error { _, err := d.ReadUint32(); return err }},
		{"float64 short", []byte{0, 0, 0, 0, 0, 0}, func(d *Decoder) error { _, err := d.ReadFloat64(); return err }},
		{"uint8 empty", nil, func(d *Decoder) error { _, err := d.ReadUint8(); return err }},
		{"string body short", []byte{0x09, 0x00, 0x00, 0x00, 'a'}, func(d *Decoder) error { _, err := d.ReadString(); return err }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.read(NewDecoder(test.body))
			require.Error(t, err)
		})
	}
}

func TestDecoder_BadLengthPrefixes(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		read func(d *Decoder) error
	}{
		{
			"string zero length",
			[]byte{0x00, 0x00, 0x00, 0x00},
			func(d *Decoder) error { _, err := d.ReadString(); return err },
		},
		{
			"string missing terminator",
			[]byte{0x02, 0x00, 0x00, 0x00, 'a', 'b'},
			func(d *Decoder) error { _, err := d.ReadString(); return err },
		},
		{
			"string sequence absurd count",
			[]byte{0xff, 0xff, 0xff, 0xff},
			func(d *Decoder) error { _, err := d.ReadStringSeq(); return err },
		},
		{
			"float64 sequence absurd count",
			[]byte{0xff, 0xff, 0xff, 0x7f},
			func(d *Decoder) error { _, err := d.ReadFloat64Seq(); return err },
		},
		{
			"octet sequence count past end",
			[]byte{0x10, 0x00, 0x00, 0x00, 0x01},
			func(d *Decoder) error { _, err := d.ReadOctetSeq(); return err },
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.read(NewDecoder(test.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errBadLength) || errors.Is(err, errShortBody),
				"expected structural error, got: %v", err)
		})
	}
}

func TestDecoder_AlignmentAfterMixedFields(t *testing.T) {
	// A string of length 2 leaves the cursor misaligned; the following
	// float64 read must skip to the next 8-byte boundary exactly as the
	// encoder padded it.
	e := NewEncoder()
	e.WriteString("x")
	e.WriteFloat64(-1.0)

	d := NewDecoder(e.Bytes())
	s, err := d.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	f, err := d.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, -1.0, f)
	assert.Equal(t, 0, d.Remaining())
}
