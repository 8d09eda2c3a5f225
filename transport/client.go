// Package transport owns the process-wide NATS session used by the bridge.
//
// One session is opened at startup and shared by every topic binding. Opening
// the session is fatal on failure; there is no degraded mode. Publishing is
// fire-and-forget beyond enqueueing on the connection, and each subscription
// runs its own ordered receive loop that ends only when the session is
// closed.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/robolink/errors"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Stats holds runtime counters for the session
type Stats struct {
	Status     ConnectionStatus
	Failures   int32
	Reconnects int32
	RTT        time.Duration
}

// Client manages the NATS connection and its topic subscriptions
type Client struct {
	url     string
	logger  *slog.Logger
	metrics *Metrics

	conn  *nats.Conn
	subs  []*nats.Subscription
	chans []chan *nats.Msg

	status     atomic.Value // stores ConnectionStatus
	failures   atomic.Int32
	reconnects atomic.Int32

	// Connection options
	clientName      string
	maxReconnects   int
	reconnectWait   time.Duration
	pingInterval    time.Duration
	timeout         time.Duration
	drainTimeout    time.Duration
	subscribeBuffer int
	username        string
	password        string
	token           string

	onStatusChange func(ConnectionStatus)

	mu      sync.RWMutex
	closeMu sync.Mutex
	closed  atomic.Bool
	wg      sync.WaitGroup
}

// NewClient creates a new session client with optional configuration.
// The session is not opened until Connect is called.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:             url,
		logger:          slog.Default().With("component", "transport"),
		maxReconnects:   -1, // infinite by default
		reconnectWait:   2 * time.Second,
		pingInterval:    30 * time.Second,
		timeout:         5 * time.Second,
		drainTimeout:    30 * time.Second,
		subscribeBuffer: 256,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	c.status.Store(StatusDisconnected)
	return c, nil
}

// URL returns the NATS server URL
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	val := c.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

// IsHealthy returns true if the connection is established
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// GetStats returns current session counters
func (c *Client) GetStats() Stats {
	stats := Stats{
		Status:     c.Status(),
		Failures:   c.failures.Load(),
		Reconnects: c.reconnects.Load(),
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn != nil && conn.IsConnected() {
		if rtt, err := conn.RTT(); err == nil {
			stats.RTT = rtt
		}
	}
	return stats
}

func (c *Client) setStatus(status ConnectionStatus) {
	prev := c.Status()
	c.status.Store(status)
	if c.metrics != nil {
		if status == StatusConnected {
			c.metrics.connected.Set(1)
		} else {
			c.metrics.connected.Set(0)
		}
	}
	if status != prev && c.onStatusChange != nil {
		go c.onStatusChange(status)
	}
}

func (c *Client) recordFailure() {
	c.failures.Add(1)
	if c.metrics != nil {
		c.metrics.failures.Inc()
	}
}

// buildConnectionOptions builds NATS connection options from client configuration
func (c *Client) buildConnectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
		nats.ErrorHandler(c.handleError),
	}

	if c.username != "" && c.password != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}
	if c.clientName != "" {
		opts = append(opts, nats.Name(c.clientName))
	}

	return opts
}

// Connect establishes the session. A failure here is fatal to startup;
// callers are expected to propagate it and abort.
func (c *Client) Connect(ctx context.Context) error {
	c.setStatus(StatusConnecting)
	c.logger.Info("Connecting to NATS", "url", c.url)

	connectDone := make(chan error, 1)
	go func() {
		conn, err := nats.Connect(c.url, c.buildConnectionOptions()...)
		if err != nil {
			connectDone <- err
			return
		}
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		connectDone <- nil
	}()

	select {
	case err := <-connectDone:
		if err != nil {
			c.recordFailure()
			c.setStatus(StatusDisconnected)
			return errors.WrapFatal(err, "Client", "Connect", "establish session")
		}
	case <-ctx.Done():
		c.recordFailure()
		c.setStatus(StatusDisconnected)
		return errors.WrapFatal(ctx.Err(), "Client", "Connect", "establish session")
	}

	c.setStatus(StatusConnected)
	c.logger.Info("Connected to NATS", "url", c.url)
	return nil
}

// Publish sends bytes on a subject. Asynchronous: the call returns once the
// message is enqueued on the connection, it never waits for subscribers.
func (c *Client) Publish(_ context.Context, subject string, data []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return errors.WrapTransient(errors.ErrNotConnected, "Client", "Publish", "check connection")
	}

	if err := conn.Publish(subject, data); err != nil {
		c.recordFailure()
		return errors.WrapTransient(err, "Client", "Publish", "enqueue message")
	}
	return nil
}

// Subscribe binds a long-running receive loop to one subject. Messages are
// delivered to handler one at a time in receipt order; the handler is never
// invoked concurrently with itself. The loop terminates when the session is
// closed or ctx is cancelled, both treated as normal shutdown.
func (c *Client) Subscribe(ctx context.Context, subject string, handler func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.conn.IsConnected() {
		return errors.WrapTransient(errors.ErrNotConnected, "Client", "Subscribe", "check connection")
	}

	ch := make(chan *nats.Msg, c.subscribeBuffer)
	sub, err := c.conn.ChanSubscribe(subject, ch)
	if err != nil {
		c.recordFailure()
		return errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrSubscriptionFailed, err),
			"Client", "Subscribe", "declare subscription")
	}

	c.subs = append(c.subs, sub)
	c.chans = append(c.chans, ch)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					c.logger.Debug("Subscription channel closed", "subject", subject)
					return
				}
				handler(msg.Data)
			case <-ctx.Done():
				c.logger.Debug("Subscription context cancelled", "subject", subject)
				return
			}
		}
	}()

	c.logger.Info("Subscribed", "subject", subject)
	return nil
}

// Close drains the connection and stops all receive loops
func (c *Client) Close(ctx context.Context) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Load() {
		return nil
	}
	c.closed.Store(true)

	c.mu.Lock()

	var errs []error
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			errs = append(errs, errors.Wrap(err, "Client", "Close", "unsubscribe"))
		}
	}
	c.subs = nil

	// Delivery has stopped after Unsubscribe, so closing the channels ends
	// the receive loops cleanly.
	for _, ch := range c.chans {
		close(ch)
	}
	c.chans = nil

	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		drainTimeout := c.drainTimeout
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 && remaining < drainTimeout {
				drainTimeout = remaining
			}
		}

		drainDone := make(chan error, 1)
		go func() {
			drainDone <- conn.Drain()
		}()

		select {
		case err := <-drainDone:
			if err != nil {
				errs = append(errs, errors.Wrap(err, "Client", "Close", "drain connection"))
			}
		case <-time.After(drainTimeout):
			errs = append(errs, fmt.Errorf("drain timeout after %v", drainTimeout))
		case <-ctx.Done():
			errs = append(errs, errors.Wrap(ctx.Err(), "Client", "Close", "drain connection"))
		}

		conn.Close()
	}

	c.wg.Wait()

	// Clear credentials
	c.username = ""
	c.password = ""
	c.token = ""

	c.setStatus(StatusDisconnected)

	if len(errs) > 0 {
		errMsg := "cleanup errors:"
		for i, err := range errs {
			errMsg += fmt.Sprintf("\n  [%d] %v", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}
	return nil
}

// Event handlers for the NATS connection
func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	c.recordFailure()
	c.setStatus(StatusReconnecting)
	if err != nil {
		c.logger.Warn("Disconnected from NATS", "error", err)
	}
}

func (c *Client) handleReconnect(_ *nats.Conn) {
	c.reconnects.Add(1)
	if c.metrics != nil {
		c.metrics.reconnects.Inc()
	}
	c.setStatus(StatusConnected)
	c.logger.Info("Reconnected to NATS", "url", c.url)
}

func (c *Client) handleClosed(_ *nats.Conn) {
	c.setStatus(StatusDisconnected)
}

func (c *Client) handleError(_ *nats.Conn, sub *nats.Subscription, err error) {
	if sub != nil {
		c.logger.Error("NATS subscription error", "subject", sub.Subject, "error", err)
		return
	}
	c.logger.Error("NATS error", "error", err)
}
