// Package kinematics holds the process-native joint representation and the
// geometric helpers the control loop plans against. The communication layer
// converts between this package's JointState and the ROS 2 wire schema.
package kinematics

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// JointState is the internal representation of one articulated joint:
// a single scalar joint with no name and no timestamp. A robot is an
// ordered sequence of these; index i is implicitly named "joint_{i+1}"
// on the wire.
type JointState struct {
	Angle    float64
	Velocity float64
	Effort   float64
}

// Pose is a rigid-body pose: a translation and a unit-quaternion rotation
type Pose struct {
	Translation r3.Vec
	Rotation    quat.Number
}

// IdentityPose returns the pose at the origin with no rotation
func IdentityPose() Pose {
	return Pose{Rotation: quat.Number{Real: 1}}
}

// Pose-equality tolerances used by solution verification
const (
	translationTolerance = 1e-4
	rotationTolerance    = 1e-4
)

// ForwardKinematics computes the end-effector pose for a joint configuration
type ForwardKinematics interface {
	Forward(joints []JointState) Pose
}

// Solver computes forward and inverse kinematics over raw joint angles.
// Inverse may return zero or more candidate configurations.
type Solver interface {
	ForwardAngles(angles []float64) Pose
	Inverse(target Pose) [][]float64
}

// Verify reports whether a candidate joint configuration reaches the target
// pose within the translation and rotation tolerances.
func Verify(s Solver, target Pose, angles []float64) bool {
	return PoseEqual(target, s.ForwardAngles(angles))
}

// PoseEqual reports whether two poses coincide within tolerance:
// translation by Euclidean distance, rotation by the angle between the
// two orientations.
func PoseEqual(a, b Pose) bool {
	if r3.Norm(r3.Sub(a.Translation, b.Translation)) >= translationTolerance {
		return false
	}
	return RotationAngle(a.Rotation, b.Rotation) < rotationTolerance
}

// RotationAngle returns the absolute angle in radians between two unit
// quaternions. Antipodal quaternions represent the same rotation, so the
// dot product is folded into [0, 1].
func RotationAngle(a, b quat.Number) float64 {
	dot := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	dot = math.Abs(dot)
	if dot > 1 {
		dot = 1
	}
	return 2 * math.Acos(dot)
}

// SimpleArm is a single-link planar arm rotating about the z axis.
// It exists to exercise the planning and verification plumbing without a
// full articulated model.
type SimpleArm struct {
	LinkLength float64
}

// NewSimpleArm creates a planar arm with the given link length
func NewSimpleArm(linkLength float64) *SimpleArm {
	return &SimpleArm{LinkLength: linkLength}
}

var _ ForwardKinematics = (*SimpleArm)(nil)

// Forward computes the end-effector pose. Only the first joint drives the
// arm; an empty configuration yields the identity pose.
func (a *SimpleArm) Forward(joints []JointState) Pose {
	if len(joints) == 0 {
		return IdentityPose()
	}

	angle := joints[0].Angle
	return Pose{
		Translation: r3.Vec{
			X: a.LinkLength * math.Cos(angle),
			Y: a.LinkLength * math.Sin(angle),
		},
		Rotation: quat.Number{
			Real: math.Cos(angle / 2),
			Kmag: math.Sin(angle / 2),
		},
	}
}
