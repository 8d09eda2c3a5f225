package comms

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/robolink/cdr"
	"github.com/c360/robolink/component"
	roboerr "github.com/c360/robolink/errors"
	"github.com/c360/robolink/kinematics"
	"github.com/c360/robolink/metric"
	"github.com/c360/robolink/pkg/retry"
	"github.com/c360/robolink/rosmsg"
)

// fakeSession records publishes and lets tests push payloads into handlers
type fakeSession struct {
	mu           sync.Mutex
	published    map[string][][]byte
	handlers     map[string]func([]byte)
	publishErr   error
	subscribeErr error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		published: make(map[string][][]byte),
		handlers:  make(map[string]func([]byte)),
	}
}

func (s *fakeSession) Publish(_ context.Context, subject string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.publishErr != nil {
		return s.publishErr
	}
	s.published[subject] = append(s.published[subject], data)
	return nil
}

func (s *fakeSession) Subscribe(_ context.Context, subject string, handler func([]byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribeErr != nil {
		return s.subscribeErr
	}
	s.handlers[subject] = handler
	return nil
}

func (s *fakeSession) deliver(t *testing.T, subject string, data []byte) {
	t.Helper()
	s.mu.Lock()
	handler, ok := s.handlers[subject]
	s.mu.Unlock()
	require.True(t, ok, "no handler bound for %s", subject)
	handler(data)
}

func (s *fakeSession) publishedOn(subject string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published[subject]
}

func fastRetry() *retry.Config {
	return &retry.Config{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func newTestLayer(t *testing.T, session Session) *Layer {
	t.Helper()
	l, err := NewLayer(Deps{Session: session, RetryConfig: fastRetry()})
	require.NoError(t, err)
	return l
}

func TestNewLayer_RequiresSession(t *testing.T) {
	_, err := NewLayer(Deps{})
	require.Error(t, err)
	assert.True(t, roboerr.IsInvalid(err))
}

func TestPublishJointCommand(t *testing.T) {
	session := newFakeSession()
	l := newTestLayer(t, session)

	joints := []kinematics.JointState{
		{Angle: 1.57, Velocity: 0.1, Effort: 0.2},
		{Angle: -0.5},
	}
	require.NoError(t, l.PublishJointCommand(context.Background(), joints))

	payloads := session.publishedOn(JointCommandSubject)
	require.Len(t, payloads, 1)
	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0x00}, payloads[0][:4])

	var msg rosmsg.JointState
	require.NoError(t, cdr.Decode(payloads[0], &msg))
	assert.Equal(t, []string{"joint_1", "joint_2"}, msg.Name)
	assert.Equal(t, []float64{1.57, -0.5}, msg.Position)
	assert.Equal(t, "robot_base", msg.Header.FrameID)
	assert.NotZero(t, msg.Header.Stamp.Sec)
}

func TestPublishJointCommand_TransportError(t *testing.T) {
	session := newFakeSession()
	session.publishErr = errors.New("connection refused")
	l := newTestLayer(t, session)

	err := l.PublishJointCommand(context.Background(), []kinematics.JointState{{Angle: 1}})
	require.Error(t, err)
	assert.True(t, roboerr.IsTransient(err))
}

func TestSubscribeJointState_DeliversConvertedJoints(t *testing.T) {
	session := newFakeSession()
	l := newTestLayer(t, session)

	var received [][]kinematics.JointState
	require.NoError(t, l.SubscribeJointState(context.Background(), func(joints []kinematics.JointState) {
		received = append(received, joints)
	}))

	payload, err := cdr.Encode(&rosmsg.JointState{
		Name:     []string{"joint_1", "joint_2"},
		Position: []float64{1.0, 2.0},
		Velocity: []float64{0.5},
		Effort:   []float64{},
	})
	require.NoError(t, err)
	session.deliver(t, JointStateSubject, payload)

	require.Len(t, received, 1)
	assert.Equal(t, []kinematics.JointState{
		{Angle: 1.0, Velocity: 0.5},
		{Angle: 2.0},
	}, received[0])
}

func TestSubscribeCameraImage_DeliversImage(t *testing.T) {
	session := newFakeSession()
	l := newTestLayer(t, session)

	var received []*rosmsg.Image
	require.NoError(t, l.SubscribeCameraImage(context.Background(), func(img *rosmsg.Image) {
		received = append(received, img)
	}))

	payload, err := cdr.Encode(&rosmsg.Image{
		Header:   rosmsg.Header{FrameID: "camera_link"},
		Height:   4,
		Width:    4,
		Encoding: "mono8",
		Step:     4,
		Data:     make([]byte, 16),
	})
	require.NoError(t, err)
	session.deliver(t, CameraImageSubject, payload)

	require.Len(t, received, 1)
	assert.Equal(t, uint32(4), received[0].Width)
	assert.Equal(t, "mono8", received[0].Encoding)
}

func TestSubscription_MalformedMessageIsDroppedLoopContinues(t *testing.T) {
	session := newFakeSession()
	l := newTestLayer(t, session)

	var received int
	require.NoError(t, l.SubscribeJointState(context.Background(), func([]kinematics.JointState) {
		received++
	}))

	// Short payload, bad header, truncated body: all dropped
	session.deliver(t, JointStateSubject, []byte{0x00, 0x01, 0x00})
	session.deliver(t, JointStateSubject, []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x02})
	session.deliver(t, JointStateSubject, []byte{0x00, 0x01, 0x00, 0x00, 0x01})

	// A valid message afterwards still gets through
	payload, err := cdr.Encode(&rosmsg.JointState{Position: []float64{1.0}})
	require.NoError(t, err)
	session.deliver(t, JointStateSubject, payload)

	assert.Equal(t, 1, received)
	assert.Equal(t, 3, l.Health().ErrorCount)
}

func TestSubscriptions_FailuresAreIndependentAcrossTopics(t *testing.T) {
	session := newFakeSession()
	l := newTestLayer(t, session)

	var jointDeliveries, imageDeliveries int
	require.NoError(t, l.SubscribeJointState(context.Background(), func([]kinematics.JointState) {
		jointDeliveries++
	}))
	require.NoError(t, l.SubscribeCameraImage(context.Background(), func(*rosmsg.Image) {
		imageDeliveries++
	}))

	jointPayload, err := cdr.Encode(&rosmsg.JointState{Position: []float64{1.0}})
	require.NoError(t, err)
	imagePayload, err := cdr.Encode(&rosmsg.Image{Encoding: "rgb8"})
	require.NoError(t, err)

	// Garbage on the image topic must not affect joint-state processing
	session.deliver(t, CameraImageSubject, []byte{0xde, 0xad, 0xbe, 0xef})
	session.deliver(t, JointStateSubject, jointPayload)

	// And vice versa
	session.deliver(t, JointStateSubject, []byte{0x00})
	session.deliver(t, CameraImageSubject, imagePayload)

	assert.Equal(t, 1, jointDeliveries)
	assert.Equal(t, 1, imageDeliveries)
}

func TestLayer_Lifecycle(t *testing.T) {
	session := newFakeSession()
	l := newTestLayer(t, session)
	assert.Equal(t, component.StateCreated, l.State())

	require.NoError(t, l.Initialize())
	assert.Equal(t, component.StateInitialized, l.State())
	assert.False(t, l.Health().Healthy)

	require.NoError(t, l.Start(context.Background()))
	assert.Equal(t, component.StateStarted, l.State())
	assert.True(t, l.Health().Healthy)

	meta := l.Meta()
	assert.Equal(t, "comms", meta.Name)

	require.NoError(t, l.Stop(time.Second))
	assert.Equal(t, component.StateStopped, l.State())
	assert.False(t, l.Health().Healthy)
}

func TestLayer_DataFlowTracksDecodes(t *testing.T) {
	session := newFakeSession()
	l := newTestLayer(t, session)

	require.NoError(t, l.SubscribeJointState(context.Background(), func([]kinematics.JointState) {}))

	payload, err := cdr.Encode(&rosmsg.JointState{Position: []float64{1.0}})
	require.NoError(t, err)
	session.deliver(t, JointStateSubject, payload)
	session.deliver(t, JointStateSubject, []byte{0x00})

	flow := l.DataFlow()
	assert.InDelta(t, 0.5, flow.ErrorRate, 1e-9)
	assert.False(t, flow.LastActivity.IsZero())
}

func TestLayer_WithMetricsRegistry(t *testing.T) {
	session := newFakeSession()
	registry := metric.NewRegistry()

	l, err := NewLayer(Deps{Session: session, MetricsRegistry: registry, RetryConfig: fastRetry()})
	require.NoError(t, err)

	require.NoError(t, l.SubscribeJointState(context.Background(), func([]kinematics.JointState) {}))
	session.deliver(t, JointStateSubject, []byte{0x00, 0x01, 0x00})

	require.NoError(t, l.PublishJointCommand(context.Background(), []kinematics.JointState{{Angle: 1}}))
}

func TestFailureKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"too short", roboerr.ErrPayloadTooShort, "payload_too_short"},
		{"mismatch", roboerr.ErrHeaderMismatch, "header_mismatch"},
		{"body", roboerr.ErrBodyDecode, "body_decode"},
		{"other", errors.New("weird"), "unknown"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, failureKind(test.err))
		})
	}
}
