package instrument

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reader bundles the protocol layer for one plate reader: session handling,
// command dispatch, status telemetry, parameter checks and assay runs.
//
// Reader is not safe for concurrent use. Callers serialize access.
type Reader struct {
	conn     *ConnectionManager
	executor CommandExecutor
	monitor  *Monitor
	assays   *Orchestrator
	logger   *zap.Logger
}

type Option func(*readerOptions)

type readerOptions struct {
	now      func() time.Time
	executor func(CommandExecutor) CommandExecutor
}

// WithClock overrides the clock used for default output file names.
func WithClock(now func() time.Time) Option {
	return func(o *readerOptions) { o.now = now }
}

// WithExecutorWrapper decorates the command executor, e.g. to trace dispatches.
func WithExecutorWrapper(wrap func(CommandExecutor) CommandExecutor) Option {
	return func(o *readerOptions) { o.executor = wrap }
}

func NewReader(remote Remote, logger *zap.Logger, opts ...Option) *Reader {
	o := readerOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	conn := NewConnectionManager(remote, logger)
	var executor CommandExecutor = NewExecutor(remote, conn, logger)
	if o.executor != nil {
		executor = o.executor(executor)
	}

	return &Reader{
		conn:     conn,
		executor: executor,
		monitor:  NewMonitor(remote, logger),
		assays:   NewOrchestrator(executor, o.now, logger),
		logger:   logger,
	}
}

func (r *Reader) Open(ctx context.Context, endpoint string) error {
	return r.conn.Open(ctx, endpoint)
}

func (r *Reader) Close(ctx context.Context) error {
	return r.conn.Close(ctx)
}

func (r *Reader) Session() Session {
	return r.conn.Session()
}

// Dummy is a no-op command used to check the session is alive.
func (r *Reader) Dummy(ctx context.Context) error {
	return r.executor.Execute(ctx, CommandDummy)
}

func (r *Reader) Init(ctx context.Context) error {
	return r.executor.Execute(ctx, CommandInit)
}

// PlateIn closes the plate tray.
func (r *Reader) PlateIn(ctx context.Context) error {
	return r.executor.Execute(ctx, CommandPlateIn)
}

// PlateOut opens the plate tray.
func (r *Reader) PlateOut(ctx context.Context) error {
	return r.executor.Execute(ctx, CommandPlateOut)
}

// SetTemperature validates the setpoint locally and only then sends Temp.
func (r *Reader) SetTemperature(ctx context.Context, celsius float64) error {
	temp, err := NewTemperature(celsius)
	if err != nil {
		return err
	}
	return r.executor.Execute(ctx, CommandTemp, temp.String())
}

func (r *Reader) RunAssay(ctx context.Context, req AssayRunRequest) (AssayRunResult, error) {
	return r.assays.RunAssay(ctx, req)
}

func (r *Reader) Status(ctx context.Context) DeviceStatus {
	return r.monitor.Status(ctx)
}

func (r *Reader) Error(ctx context.Context) string {
	return r.monitor.Error(ctx)
}

func (r *Reader) IsBusy(ctx context.Context) bool {
	return r.monitor.IsBusy(ctx)
}

func (r *Reader) Version(ctx context.Context) (string, error) {
	return r.monitor.Version(ctx)
}

// Snapshot reads status and error text in one go.
func (r *Reader) Snapshot(ctx context.Context) StatusSnapshot {
	return StatusSnapshot{
		Status: r.monitor.Status(ctx),
		Error:  r.monitor.Error(ctx),
		At:     time.Now(),
	}
}
