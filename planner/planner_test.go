package planner

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/robolink/kinematics"
)

func TestPlanner_FIFOOrder(t *testing.T) {
	p := New()
	p.AddWaypoint(kinematics.JointState{Angle: 1.0})
	p.AddWaypoint(kinematics.JointState{Angle: 2.0})
	p.AddWaypoint(kinematics.JointState{Angle: 3.0})

	assert.Equal(t, 3, p.Pending())

	for i, expected := range []float64{1.0, 2.0, 3.0} {
		step, ok := p.NextStep()
		require.True(t, ok, "step %d", i)
		assert.Equal(t, expected, step.Angle)
	}

	_, ok := p.NextStep()
	assert.False(t, ok)
	assert.Equal(t, 0, p.Pending())
}

func TestPlanner_ConcurrentUse(t *testing.T) {
	p := New()
	const n = 100

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			p.AddWaypoint(kinematics.JointState{Angle: float64(i)})
		}
	}()
	popped := 0
	go func() {
		defer wg.Done()
		for popped < n {
			if _, ok := p.NextStep(); ok {
				popped++
			}
		}
	}()
	wg.Wait()

	assert.Equal(t, n, popped)
	assert.Equal(t, 0, p.Pending())
}

func TestBrain_PlanAndExecute(t *testing.T) {
	brain := NewBrain()
	target := kinematics.JointState{Angle: 1.57}
	brain.PlanMotion(target)

	step, ok := brain.ExecuteNextStep()
	require.True(t, ok)
	assert.Equal(t, 1.57, step.Angle)

	_, ok = brain.ExecuteNextStep()
	assert.False(t, ok)
	assert.Equal(t, 0, brain.Pending())
}
