// Package planner provides the motion planner: a FIFO queue of target joint
// configurations consumed one step at a time by the control loop.
package planner

import (
	"sync"

	"github.com/c360/robolink/kinematics"
)

// Planner is a FIFO trajectory queue. Safe for concurrent use: the control
// loop pops steps while subscription callbacks may append waypoints.
type Planner struct {
	mu         sync.Mutex
	trajectory []kinematics.JointState
}

// New creates an empty planner
func New() *Planner {
	return &Planner{}
}

// AddWaypoint appends a target configuration to the trajectory
func (p *Planner) AddWaypoint(state kinematics.JointState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trajectory = append(p.trajectory, state)
}

// NextStep pops the next waypoint. The second return is false when the
// trajectory is empty.
func (p *Planner) NextStep() (kinematics.JointState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.trajectory) == 0 {
		return kinematics.JointState{}, false
	}
	next := p.trajectory[0]
	p.trajectory = p.trajectory[1:]
	return next, true
}

// Pending returns the number of queued waypoints
func (p *Planner) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.trajectory)
}

// Brain sequences motion planning for the robot. The current planner moves
// directly to each target; smarter interpolation would slot in here.
type Brain struct {
	planner *Planner
}

// NewBrain creates a brain with an empty trajectory
func NewBrain() *Brain {
	return &Brain{planner: New()}
}

// PlanMotion queues a motion to the target configuration
func (b *Brain) PlanMotion(target kinematics.JointState) {
	b.planner.AddWaypoint(target)
}

// ExecuteNextStep pops the next planned step, if any
func (b *Brain) ExecuteNextStep() (kinematics.JointState, bool) {
	return b.planner.NextStep()
}

// Pending returns the number of queued steps
func (b *Brain) Pending() int {
	return b.planner.Pending()
}
