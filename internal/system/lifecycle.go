package system

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/KevinKickass/OpenPlateReader/internal/action"
	"github.com/KevinKickass/OpenPlateReader/internal/api/rest"
	"github.com/KevinKickass/OpenPlateReader/internal/api/websocket"
	"github.com/KevinKickass/OpenPlateReader/internal/config"
	"github.com/KevinKickass/OpenPlateReader/internal/instrument"
	"github.com/KevinKickass/OpenPlateReader/internal/interfaces"
	"github.com/KevinKickass/OpenPlateReader/internal/remote"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the gRPC health service name tracking the instrument.
const HealthService = "platereader"

const statusQueryTimeout = 5 * time.Second

var _ interfaces.LifecycleManager = (*LifecycleManager)(nil)

type LifecycleManager struct {
	config *config.Config
	logger *zap.Logger

	closeRemote func() error
	reader      *instrument.Reader
	actions     *action.Server
	poller      *instrument.Poller
	hub         *websocket.Hub
	hubStarted  bool

	restServer *rest.Server
	grpcServer *grpc.Server
	health     *health.Server

	stateMu      sync.RWMutex
	currentState SystemState
	lastDevice   *instrument.StatusSnapshot

	shutdownOnce sync.Once
}

func NewLifecycleManager(cfg *config.Config, logger *zap.Logger) (*LifecycleManager, error) {
	rem, closeRemote, err := newRemote(cfg.Instrument, logger)
	if err != nil {
		return nil, err
	}

	lm := &LifecycleManager{
		config:       cfg,
		logger:       logger,
		closeRemote:  closeRemote,
		reader:       instrument.NewReader(rem, logger),
		hub:          websocket.NewHub(logger),
		health:       health.NewServer(),
		currentState: StateInitializing,
	}

	lm.actions, err = action.NewServer(lm.reader, action.Settings{
		Endpoint:      cfg.Instrument.Endpoint,
		ProtocolDBDir: cfg.Paths.ProtocolDBDir,
		OutputDir:     cfg.Paths.OutputDir,
	}, action.EventSinkFunc(lm.onActionFinished), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create action server: %w", err)
	}

	if cfg.Instrument.PollInterval > 0 {
		lm.poller = instrument.NewPoller(lm.actions, cfg.Instrument.PollInterval, lm.onDeviceStatus, logger)
	}

	lm.hub.SetStatusProvider(lm)
	return lm, nil
}

// newRemote picks the remote-control driver named in the config.
func newRemote(cfg config.InstrumentConfig, logger *zap.Logger) (instrument.Remote, func() error, error) {
	switch cfg.Driver {
	case config.DriverSimulator:
		logger.Warn("Using the instrument simulator", zap.String("endpoint", cfg.Endpoint))
		return remote.NewSimulator(cfg.Endpoint, 0, logger), func() error { return nil }, nil
	case config.DriverBridge:
		bridge := remote.NewBridge(cfg.BridgeAddress, cfg.Timeout, logger)
		return bridge, bridge.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown instrument driver %q", cfg.Driver)
	}
}

// Start starts the entire system
func (lm *LifecycleManager) Start() error {
	lm.logger.Info("Starting OpenPlateReader",
		zap.String("driver", lm.config.Instrument.Driver),
		zap.String("endpoint", lm.config.Instrument.Endpoint))

	lm.hubStarted = true
	go lm.hub.Run()

	if err := lm.startGRPCServer(); err != nil {
		lm.setError(err)
		return fmt.Errorf("failed to start gRPC: %w", err)
	}

	if err := lm.startRESTServer(); err != nil {
		lm.setError(err)
		return fmt.Errorf("failed to start REST API: %w", err)
	}

	if lm.poller != nil {
		if err := lm.poller.Start(); err != nil {
			lm.setError(err)
			return fmt.Errorf("failed to start status poller: %w", err)
		}
	}

	lm.setState(StateRunning)

	lm.logger.Info("System started successfully",
		zap.Int("grpc_port", lm.config.Server.GRPCPort),
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.Bool("status_polling", lm.poller != nil))

	return nil
}

func (lm *LifecycleManager) startGRPCServer() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", lm.config.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	lm.grpcServer = grpc.NewServer()
	healthpb.RegisterHealthServer(lm.grpcServer, lm.health)
	lm.health.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)

	lm.logger.Info("gRPC server listening",
		zap.String("address", lis.Addr().String()),
		zap.String("services", "grpc.health.v1.Health"))

	go func() {
		if err := lm.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			lm.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()

	return nil
}

func (lm *LifecycleManager) startRESTServer() error {
	lm.restServer = rest.NewServer(lm.config, lm, lm.logger, lm.hub)
	return lm.restServer.Start()
}

// Shutdown gracefully shuts down the system
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")
		lm.setState(StateStopping)

		shutdownErr = lm.gracefulShutdown(ctx)

		lm.setState(StateStopped)
		if lm.hubStarted {
			lm.hub.Stop()
		}
	})

	return shutdownErr
}

func (lm *LifecycleManager) gracefulShutdown(ctx context.Context) error {
	var errs []error

	if lm.poller != nil {
		lm.poller.Stop()
	}

	if lm.restServer != nil {
		if err := lm.restServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("rest api shutdown failed: %w", err))
		}
	}

	lm.health.Shutdown()
	if lm.grpcServer != nil {
		done := make(chan struct{})
		go func() {
			lm.grpcServer.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			lm.logger.Warn("gRPC graceful stop timed out, forcing stop")
			lm.grpcServer.Stop()
		}
	}

	// waits for a running action before the session goes away
	if err := lm.actions.CloseSession(ctx); err != nil {
		errs = append(errs, fmt.Errorf("closing instrument session failed: %w", err))
	}
	if err := lm.closeRemote(); err != nil {
		errs = append(errs, fmt.Errorf("closing remote driver failed: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	lm.logger.Info("Graceful shutdown completed")
	return nil
}

func (lm *LifecycleManager) onActionFinished(result action.StepResult) {
	lm.hub.Broadcast(websocket.NewActionMessage(result))
}

// onDeviceStatus is called by the poller when the device status changes.
func (lm *LifecycleManager) onDeviceStatus(snap instrument.StatusSnapshot) {
	lm.stateMu.Lock()
	lm.lastDevice = &snap
	lm.stateMu.Unlock()

	serving := healthpb.HealthCheckResponse_SERVING
	if snap.Status == instrument.StatusError || snap.Status == instrument.StatusUnknown {
		serving = healthpb.HealthCheckResponse_NOT_SERVING
	}
	lm.health.SetServingStatus(HealthService, serving)

	lm.hub.Broadcast(websocket.NewDeviceStatusMessage(snap.Status.String(), snap.Error))
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	if err := ValidateTransition(lm.currentState, state); err != nil {
		lm.logger.Warn("Unexpected state transition", zap.Error(err))
	}
	lm.currentState = state
	lm.stateMu.Unlock()

	lm.hub.Broadcast(websocket.NewSystemStatusMessage(state.String()))
}

func (lm *LifecycleManager) setError(err error) {
	lm.logger.Error("System error", zap.Error(err))
	lm.setState(StateError)
}

func (lm *LifecycleManager) State() SystemState {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()
	return lm.currentState
}

// GetCurrentStatus returns the module state with a live status reading.
// While an action runs the device is reported busy without being queried.
func (lm *LifecycleManager) GetCurrentStatus(ctx context.Context) interfaces.SystemStatus {
	ctx, cancel := context.WithTimeout(ctx, statusQueryTimeout)
	defer cancel()

	snap, err := lm.actions.PollStatus(ctx)
	if err != nil {
		snap = instrument.StatusSnapshot{Status: instrument.StatusUnknown, Error: err.Error()}
	}

	return interfaces.SystemStatus{
		State:            lm.State().String(),
		DeviceStatus:     snap.Status.String(),
		DeviceError:      snap.Error,
		Busy:             lm.actions.Busy(),
		ConnectedClients: lm.hub.GetClientCount(),
	}
}

// CurrentStatus is the cached view sent to new websocket clients. It never
// touches the instrument.
func (lm *LifecycleManager) CurrentStatus() any {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()

	status := interfaces.SystemStatus{
		State:        lm.currentState.String(),
		DeviceStatus: instrument.StatusUnknown.String(),
		Busy:         lm.actions.Busy(),
	}
	if lm.lastDevice != nil {
		status.DeviceStatus = lm.lastDevice.Status.String()
		status.DeviceError = lm.lastDevice.Error
	}
	return status
}

// Config returns the configuration
func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}

func (lm *LifecycleManager) ActionServer() *action.Server {
	return lm.actions
}

func (lm *LifecycleManager) Hub() *websocket.Hub {
	return lm.hub
}

func (lm *LifecycleManager) Health() *health.Server {
	return lm.health
}
