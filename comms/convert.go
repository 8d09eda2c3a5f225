package comms

import (
	"fmt"
	"time"

	"github.com/c360/robolink/kinematics"
	"github.com/c360/robolink/rosmsg"
)

// ToWire builds a wire JointState from an internal joint sequence. Joint i
// is named "joint_{i+1}"; position, velocity and effort are index-aligned
// copies of the internal values. The header carries the given stamp and the
// fixed command frame.
func ToWire(joints []kinematics.JointState, stamp time.Time) rosmsg.JointState {
	msg := rosmsg.JointState{
		Header: rosmsg.Header{
			Stamp: rosmsg.Time{
				Sec:  int32(stamp.Unix()),
				Nsec: uint32(stamp.Nanosecond()),
			},
			FrameID: commandFrameID,
		},
		Name:     make([]string, 0, len(joints)),
		Position: make([]float64, 0, len(joints)),
		Velocity: make([]float64, 0, len(joints)),
		Effort:   make([]float64, 0, len(joints)),
	}

	for i, joint := range joints {
		msg.Name = append(msg.Name, fmt.Sprintf("joint_%d", i+1))
		msg.Position = append(msg.Position, joint.Angle)
		msg.Velocity = append(msg.Velocity, joint.Velocity)
		msg.Effort = append(msg.Effort, joint.Effort)
	}
	return msg
}

// FromWire converts a wire JointState to the internal joint sequence, one
// joint per position entry. Velocity and effort arrays shorter than position
// are zero-filled for the missing indices; this leniency is part of the
// contract and never an error.
func FromWire(msg *rosmsg.JointState) []kinematics.JointState {
	joints := make([]kinematics.JointState, 0, len(msg.Position))
	for i, position := range msg.Position {
		joint := kinematics.JointState{Angle: position}
		if i < len(msg.Velocity) {
			joint.Velocity = msg.Velocity[i]
		}
		if i < len(msg.Effort) {
			joint.Effort = msg.Effort[i]
		}
		joints = append(joints, joint)
	}
	return joints
}
