// Package main implements the entry point for the robolink node.
// Robolink bridges an internal motion-planning representation to a ROS 2
// style pub/sub network: joint commands go out as CDR-encoded JointState
// messages, sensor feedback and camera frames come back in.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/robolink/comms"
	"github.com/c360/robolink/config"
	"github.com/c360/robolink/kinematics"
	"github.com/c360/robolink/metric"
	"github.com/c360/robolink/pkg/retry"
	"github.com/c360/robolink/planner"
	"github.com/c360/robolink/rosmsg"
	"github.com/c360/robolink/transport"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "robolink"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	// Run application with proper error handling
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load and validate configuration
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	// Setup core infrastructure
	ctx := context.Background()
	client, registry, metricsServer, err := setupInfrastructure(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Build the node: communication layer, planner brain, arm model
	layer, brain, err := buildNode(client, registry, logger)
	if err != nil {
		return err
	}

	// Queue the initial demo motion so the loop has work on startup
	brain.PlanMotion(kinematics.JointState{Angle: cliCfg.TargetAngle})
	slog.Info("Initial motion planned", "target_angle", cliCfg.TargetAngle)

	// Run control loop with signal handling
	return runWithSignalHandling(ctx, cfg, cliCfg, client, layer, brain, metricsServer)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting robolink (robot control node)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// setupInfrastructure creates the transport session, metrics registry and
// the metrics HTTP endpoint. A session that cannot be opened is fatal: the
// node is useless without its network.
func setupInfrastructure(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (*transport.Client, *metric.Registry, *http.Server, error) {
	registry := metric.NewRegistry()

	client, err := newTransportClient(cfg, registry, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create transport client: %w", err)
	}

	slog.Info("Connecting to NATS", "url", cfg.NATS.URL)
	err = retry.Do(ctx, retry.Quick(), func() error {
		return client.Connect(ctx)
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	metricsServer := startMetricsServer(cfg.Metrics, registry)

	return client, registry, metricsServer, nil
}

// newTransportClient builds the NATS client from config
func newTransportClient(cfg *config.Config, registry *metric.Registry, logger *slog.Logger) (*transport.Client, error) {
	opts := []transport.ClientOption{
		transport.WithName(cfg.NATS.Name),
		transport.WithMaxReconnects(cfg.NATS.MaxReconnects),
		transport.WithReconnectWait(cfg.NATS.ReconnectWait()),
		transport.WithTimeout(cfg.NATS.Timeout()),
		transport.WithMetricsRegistry(registry),
		transport.WithLogger(logger),
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, transport.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, transport.WithToken(cfg.NATS.Token))
	}
	return transport.NewClient(cfg.NATS.URL, opts...)
}

// startMetricsServer exposes the Prometheus endpoint, or returns nil when
// metrics are disabled
func startMetricsServer(cfg config.MetricsConfig, registry *metric.Registry) *http.Server {
	if !cfg.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Metrics endpoint listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	return server
}

// buildNode wires the communication layer and the planner brain
func buildNode(
	client *transport.Client,
	registry *metric.Registry,
	logger *slog.Logger,
) (*comms.Layer, *planner.Brain, error) {
	layer, err := comms.NewLayer(comms.Deps{
		Session:         client,
		MetricsRegistry: registry,
		Logger:          logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create communication layer: %w", err)
	}

	if err := layer.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("initialize communication layer: %w", err)
	}

	return layer, planner.NewBrain(), nil
}

// bindSubscriptions establishes the inbound topic loops
func bindSubscriptions(ctx context.Context, layer *comms.Layer, arm *kinematics.SimpleArm) error {
	err := layer.SubscribeJointState(ctx, func(joints []kinematics.JointState) {
		pose := arm.Forward(joints)
		slog.Info("Joint state received",
			"joints", len(joints),
			"end_effector_x", pose.Translation.X,
			"end_effector_y", pose.Translation.Y)
	})
	if err != nil {
		return fmt.Errorf("subscribe joint states: %w", err)
	}

	err = layer.SubscribeCameraImage(ctx, func(img *rosmsg.Image) {
		slog.Debug("Camera frame received",
			"width", img.Width,
			"height", img.Height,
			"encoding", img.Encoding,
			"bytes", len(img.Data))
	})
	if err != nil {
		return fmt.Errorf("subscribe camera images: %w", err)
	}
	return nil
}

// runWithSignalHandling starts the node and blocks until a shutdown signal
func runWithSignalHandling(
	ctx context.Context,
	cfg *config.Config,
	cliCfg *CLIConfig,
	client *transport.Client,
	layer *comms.Layer,
	brain *planner.Brain,
	metricsServer *http.Server,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := layer.Start(signalCtx); err != nil {
		return fmt.Errorf("start communication layer: %w", err)
	}

	arm := kinematics.NewSimpleArm(1.0)
	if err := bindSubscriptions(signalCtx, layer, arm); err != nil {
		return err
	}

	loop, err := planner.NewLoop(brain, func(ctx context.Context, step kinematics.JointState) error {
		return layer.PublishJointCommand(ctx, []kinematics.JointState{step})
	}, cfg.Loop.StepInterval(), cfg.Loop.IdlePause(), slog.Default())
	if err != nil {
		return fmt.Errorf("create control loop: %w", err)
	}
	if err := loop.Start(signalCtx); err != nil {
		return fmt.Errorf("start control loop: %w", err)
	}

	slog.Info("robolink started",
		"joint_state_subject", comms.JointStateSubject,
		"joint_command_subject", comms.JointCommandSubject,
		"camera_image_subject", comms.CameraImageSubject)

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	return shutdown(cliCfg.ShutdownTimeout, client, layer, loop, metricsServer)
}

// shutdown stops the node pieces in reverse dependency order
func shutdown(
	timeout time.Duration,
	client *transport.Client,
	layer *comms.Layer,
	loop *planner.Loop,
	metricsServer *http.Server,
) error {
	if err := loop.Stop(timeout); err != nil {
		slog.Error("Error stopping control loop", "error", err)
	}

	if err := layer.Stop(timeout); err != nil {
		slog.Error("Error stopping communication layer", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Error stopping metrics server", "error", err)
		}
	}

	if err := client.Close(shutdownCtx); err != nil {
		return fmt.Errorf("close transport session: %w", err)
	}

	slog.Info("robolink shutdown complete")
	return nil
}
