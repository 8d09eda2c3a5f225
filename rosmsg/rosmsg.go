// Package rosmsg defines the ROS 2 message schemas exchanged by the bridge:
// sensor_msgs/JointState on the joint topics and sensor_msgs/Image on the
// camera topic, plus the builtin_interfaces and std_msgs types they embed.
//
// The types are passive data definitions. Their only behavior is CDR
// marshaling, field for field in declaration order as the wire format
// requires.
package rosmsg

import (
	"github.com/c360/robolink/cdr"
)

// Time is a builtin_interfaces/Time stamp: whole seconds since the Unix
// epoch plus the nanosecond remainder
type Time struct {
	Sec  int32
	Nsec uint32
}

// Header is a std_msgs/Header: a stamp and the frame the data is
// expressed in
type Header struct {
	Stamp   Time
	FrameID string
}

// JointState is a sensor_msgs/JointState. Name, Position, Velocity and
// Effort are index-aligned parallel arrays, one entry per joint. Publishers
// should keep them equal length; the decoder tolerates Velocity and Effort
// being shorter than Position (missing entries read as zero downstream).
type JointState struct {
	Header   Header
	Name     []string
	Position []float64
	Velocity []float64
	Effort   []float64
}

// Image is a sensor_msgs/Image. The bridge treats it as externally defined
// and opaque: it is decoded and handed to the application callback untouched.
type Image struct {
	Header      Header
	Height      uint32
	Width       uint32
	Encoding    string
	IsBigendian uint8
	Step        uint32
	Data        []byte
}

var (
	_ cdr.Marshaler   = (*JointState)(nil)
	_ cdr.Unmarshaler = (*JointState)(nil)
	_ cdr.Marshaler   = (*Image)(nil)
	_ cdr.Unmarshaler = (*Image)(nil)
)

func (h *Header) marshalCDR(e *cdr.Encoder) {
	e.WriteInt32(h.Stamp.Sec)
	e.WriteUint32(h.Stamp.Nsec)
	e.WriteString(h.FrameID)
}

func (h *Header) unmarshalCDR(d *cdr.Decoder) error {
	var err error
	if h.Stamp.Sec, err = d.ReadInt32(); err != nil {
		return err
	}
	if h.Stamp.Nsec, err = d.ReadUint32(); err != nil {
		return err
	}
	if h.FrameID, err = d.ReadString(); err != nil {
		return err
	}
	return nil
}

// TypeName returns the full ROS 2 type name
func (m *JointState) TypeName() string { return "sensor_msgs/msg/JointState" }

// MarshalCDR serializes the message body in wire field order
func (m *JointState) MarshalCDR(e *cdr.Encoder) error {
	m.Header.marshalCDR(e)
	e.WriteStringSeq(m.Name)
	e.WriteFloat64Seq(m.Position)
	e.WriteFloat64Seq(m.Velocity)
	e.WriteFloat64Seq(m.Effort)
	return nil
}

// UnmarshalCDR deserializes the message body in wire field order
func (m *JointState) UnmarshalCDR(d *cdr.Decoder) error {
	if err := m.Header.unmarshalCDR(d); err != nil {
		return err
	}
	var err error
	if m.Name, err = d.ReadStringSeq(); err != nil {
		return err
	}
	if m.Position, err = d.ReadFloat64Seq(); err != nil {
		return err
	}
	if m.Velocity, err = d.ReadFloat64Seq(); err != nil {
		return err
	}
	if m.Effort, err = d.ReadFloat64Seq(); err != nil {
		return err
	}
	return nil
}

// TypeName returns the full ROS 2 type name
func (m *Image) TypeName() string { return "sensor_msgs/msg/Image" }

// MarshalCDR serializes the message body in wire field order
func (m *Image) MarshalCDR(e *cdr.Encoder) error {
	m.Header.marshalCDR(e)
	e.WriteUint32(m.Height)
	e.WriteUint32(m.Width)
	e.WriteString(m.Encoding)
	e.WriteUint8(m.IsBigendian)
	e.WriteUint32(m.Step)
	e.WriteOctetSeq(m.Data)
	return nil
}

// UnmarshalCDR deserializes the message body in wire field order
func (m *Image) UnmarshalCDR(d *cdr.Decoder) error {
	if err := m.Header.unmarshalCDR(d); err != nil {
		return err
	}
	var err error
	if m.Height, err = d.ReadUint32(); err != nil {
		return err
	}
	if m.Width, err = d.ReadUint32(); err != nil {
		return err
	}
	if m.Encoding, err = d.ReadString(); err != nil {
		return err
	}
	if m.IsBigendian, err = d.ReadUint8(); err != nil {
		return err
	}
	if m.Step, err = d.ReadUint32(); err != nil {
		return err
	}
	if m.Data, err = d.ReadOctetSeq(); err != nil {
		return err
	}
	return nil
}
