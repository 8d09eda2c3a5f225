// Package comms implements the communication layer of the bridge: three
// fixed topic bindings on one shared transport session, CDR envelope
// encode/decode, and schema conversion between the wire JointState and the
// internal joint representation.
//
// Subscriptions are established on demand and run for the life of the
// session. A malformed payload is counted, logged with its topic and failure
// kind, and dropped; the receive loop always proceeds to the next message.
package comms

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/c360/robolink/cdr"
	"github.com/c360/robolink/component"
	"github.com/c360/robolink/errors"
	"github.com/c360/robolink/kinematics"
	"github.com/c360/robolink/metric"
	"github.com/c360/robolink/pkg/retry"
	"github.com/c360/robolink/rosmsg"
)

// Fixed topic subjects. These are part of the external contract and are not
// configurable: the ROS 2 side publishes and subscribes on exactly these
// names.
const (
	// JointStateSubject carries sensor feedback into the bridge
	JointStateSubject = "rt.robot.joint_states"
	// JointCommandSubject carries commands out of the bridge
	JointCommandSubject = "rt.robot.joint_commands"
	// CameraImageSubject carries camera frames into the bridge
	CameraImageSubject = "rt.camera.image_raw"
)

// commandFrameID is stamped on every outgoing joint command
const commandFrameID = "robot_base"

// Session is the transport contract the layer needs: fire-and-forget publish
// and ordered per-subject delivery. *transport.Client satisfies it.
type Session interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(ctx context.Context, subject string, handler func([]byte)) error
}

// Binding pairs a logical topic name with its wire subject. Bindings are
// created at layer construction and immutable afterward.
type Binding struct {
	Name    string
	Subject string
}

// Deps holds runtime dependencies for the communication layer
type Deps struct {
	Session         Session
	MetricsRegistry *metric.Registry // can be nil
	Logger          *slog.Logger     // can be nil, defaults to slog.Default()
	RetryConfig     *retry.Config    // can be nil, defaults to retry.DefaultConfig()
}

// Layer composes the topic session, the CDR codec and the wire schema into
// the publish/subscribe surface the rest of the node uses. Construct once
// per process; the layer shares the session for its whole lifetime.
type Layer struct {
	session     Session
	logger      *slog.Logger
	metrics     *Metrics
	retryConfig retry.Config

	jointState   Binding
	jointCommand Binding
	cameraImage  Binding

	state     atomic.Int32 // holds a component.State
	startTime time.Time

	published      atomic.Int64
	decoded        atomic.Int64
	decodeFailures atomic.Int64
	bytesIn        atomic.Int64
	lastActivity   atomic.Value // stores time.Time
}

var _ component.LifecycleComponent = (*Layer)(nil)

// NewLayer creates the communication layer with its three topic bindings
func NewLayer(deps Deps) (*Layer, error) {
	if deps.Session == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("nil session"),
			"Layer", "NewLayer", "session validation")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retryConfig := retry.DefaultConfig()
	if deps.RetryConfig != nil {
		retryConfig = *deps.RetryConfig
	}

	l := &Layer{
		session:      deps.Session,
		logger:       logger.With("component", "comms"),
		metrics:      newMetrics(deps.MetricsRegistry),
		retryConfig:  retryConfig,
		jointState:   Binding{Name: "joint-state", Subject: JointStateSubject},
		jointCommand: Binding{Name: "joint-command", Subject: JointCommandSubject},
		cameraImage:  Binding{Name: "camera-image", Subject: CameraImageSubject},
		startTime:    time.Now(),
	}
	l.lastActivity.Store(time.Time{})
	return l, nil
}

// PublishJointCommand converts the joint sequence to a wire JointState
// stamped with the current wall-clock time and publishes it on the command
// topic. Encode errors are surfaced to the caller and not retried; transport
// errors are retried per the layer's retry policy before surfacing.
func (l *Layer) PublishJointCommand(ctx context.Context, joints []kinematics.JointState) error {
	msg := ToWire(joints, time.Now())

	payload, err := cdr.Encode(&msg)
	if err != nil {
		return errors.WrapInvalid(err, "Layer", "PublishJointCommand", "encode command")
	}

	start := time.Now()
	err = retry.Do(ctx, l.retryConfig, func() error {
		return l.session.Publish(ctx, l.jointCommand.Subject, payload)
	})
	if err != nil {
		return errors.WrapTransient(err, "Layer", "PublishJointCommand", "publish command")
	}

	l.published.Add(1)
	if l.metrics != nil {
		l.metrics.messagesPublished.Inc()
		l.metrics.publishLatency.Observe(time.Since(start).Seconds())
	}
	return nil
}

// SubscribeJointState starts the joint-state receive loop. Each successfully
// decoded message is converted and handed to cb exactly once, in receipt
// order; cb is never invoked concurrently with itself.
func (l *Layer) SubscribeJointState(ctx context.Context, cb func([]kinematics.JointState)) error {
	err := l.session.Subscribe(ctx, l.jointState.Subject, l.jointStateHandler(cb))
	if err != nil {
		return errors.WrapTransient(err, "Layer", "SubscribeJointState", "bind subscription")
	}
	return nil
}

// SubscribeCameraImage starts the camera-image receive loop. The decoded
// image is handed to cb untouched.
func (l *Layer) SubscribeCameraImage(ctx context.Context, cb func(*rosmsg.Image)) error {
	err := l.session.Subscribe(ctx, l.cameraImage.Subject, l.imageHandler(cb))
	if err != nil {
		return errors.WrapTransient(err, "Layer", "SubscribeCameraImage", "bind subscription")
	}
	return nil
}

// jointStateHandler builds the per-message handler for the joint-state topic
func (l *Layer) jointStateHandler(cb func([]kinematics.JointState)) func([]byte) {
	return func(data []byte) {
		var msg rosmsg.JointState
		if err := cdr.Decode(data, &msg); err != nil {
			l.recordDecodeFailure(l.jointState, err)
			return
		}
		l.recordDecoded(l.jointState, len(data))
		cb(FromWire(&msg))
	}
}

// imageHandler builds the per-message handler for the camera-image topic
func (l *Layer) imageHandler(cb func(*rosmsg.Image)) func([]byte) {
	return func(data []byte) {
		var msg rosmsg.Image
		if err := cdr.Decode(data, &msg); err != nil {
			l.recordDecodeFailure(l.cameraImage, err)
			return
		}
		l.recordDecoded(l.cameraImage, len(data))
		cb(&msg)
	}
}

func (l *Layer) recordDecoded(b Binding, size int) {
	l.decoded.Add(1)
	l.bytesIn.Add(int64(size))
	l.lastActivity.Store(time.Now())
	if l.metrics != nil {
		l.metrics.messagesDecoded.WithLabelValues(b.Subject).Inc()
	}
}

// recordDecodeFailure logs and counts a dropped payload. The failure stays
// inside the owning subscription loop; it never reaches another topic or the
// publish path.
func (l *Layer) recordDecodeFailure(b Binding, err error) {
	l.decodeFailures.Add(1)
	kind := failureKind(err)
	l.logger.Warn("Dropping undecodable message",
		"topic", b.Name,
		"subject", b.Subject,
		"kind", kind,
		"error", err)
	if l.metrics != nil {
		l.metrics.decodeFailures.WithLabelValues(b.Subject, kind).Inc()
	}
}

// failureKind maps a decode error onto its taxonomy label
func failureKind(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrPayloadTooShort):
		return "payload_too_short"
	case stderrors.Is(err, errors.ErrHeaderMismatch):
		return "header_mismatch"
	case stderrors.Is(err, errors.ErrBodyDecode):
		return "body_decode"
	default:
		return "unknown"
	}
}

// Meta returns the component metadata
func (l *Layer) Meta() component.Metadata {
	return component.Metadata{
		Name:        "comms",
		Type:        "bridge",
		Description: "ROS 2 CDR communication layer over NATS",
		Version:     "1.0.0",
	}
}

// State returns the layer's lifecycle state
func (l *Layer) State() component.State {
	return component.State(l.state.Load())
}

// Health returns the current health status of the layer
func (l *Layer) Health() component.HealthStatus {
	return component.HealthStatus{
		Healthy:    l.State() == component.StateStarted,
		LastCheck:  time.Now(),
		ErrorCount: int(l.decodeFailures.Load()),
		Uptime:     time.Since(l.startTime),
	}
}

// DataFlow returns the current data flow metrics
func (l *Layer) DataFlow() component.FlowMetrics {
	decoded := l.decoded.Load()
	bytes := l.bytesIn.Load()
	failures := l.decodeFailures.Load()
	lastActivity, _ := l.lastActivity.Load().(time.Time)

	var messagesPerSecond, bytesPerSecond, errorRate float64
	if uptime := time.Since(l.startTime).Seconds(); uptime > 0 {
		messagesPerSecond = float64(decoded) / uptime
		bytesPerSecond = float64(bytes) / uptime
	}
	if total := decoded + failures; total > 0 {
		errorRate = float64(failures) / float64(total)
	}

	return component.FlowMetrics{
		MessagesPerSecond: messagesPerSecond,
		BytesPerSecond:    bytesPerSecond,
		ErrorRate:         errorRate,
		LastActivity:      lastActivity,
	}
}

// Initialize validates the layer's wiring
func (l *Layer) Initialize() error {
	if l.session == nil {
		l.state.Store(int32(component.StateFailed))
		return errors.WrapInvalid(fmt.Errorf("nil session"),
			"Layer", "Initialize", "session validation")
	}
	l.state.Store(int32(component.StateInitialized))
	return nil
}

// Start marks the layer running. Subscriptions are established separately
// because the set of active topics is up to the caller.
func (l *Layer) Start(_ context.Context) error {
	l.state.Store(int32(component.StateStarted))
	l.startTime = time.Now()
	return nil
}

// Stop marks the layer stopped. The receive loops belong to the session and
// end when it closes; there is no per-subscription teardown.
func (l *Layer) Stop(_ time.Duration) error {
	l.state.Store(int32(component.StateStopped))
	return nil
}
