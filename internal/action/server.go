package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KevinKickass/OpenPlateReader/internal/instrument"
	"go.uber.org/zap"
)

var ErrUnknownAction = errors.New("unknown action")

// Instrument is the protocol layer the actions drive.
type Instrument interface {
	Open(ctx context.Context, endpoint string) error
	Close(ctx context.Context) error
	PlateIn(ctx context.Context) error
	PlateOut(ctx context.Context) error
	SetTemperature(ctx context.Context, celsius float64) error
	RunAssay(ctx context.Context, req instrument.AssayRunRequest) (instrument.AssayRunResult, error)
	Init(ctx context.Context) error
	Dummy(ctx context.Context) error
	Status(ctx context.Context) instrument.DeviceStatus
	Error(ctx context.Context) string
	IsBusy(ctx context.Context) bool
	Version(ctx context.Context) (string, error)
	Snapshot(ctx context.Context) instrument.StatusSnapshot
}

// Settings are read from the node configuration.
type Settings struct {
	Endpoint      string
	ProtocolDBDir string
	OutputDir     string
}

type handler func(ctx context.Context, args map[string]any, result *StepResult) error

// Server runs remote actions against the instrument one at a time.
type Server struct {
	instrument Instrument
	settings   Settings
	validator  *ArgumentValidator
	about      About
	events     EventSink
	logger     *zap.Logger

	handlers map[string]handler

	// one slot: holding it means an action (or a status poll) owns the device
	slot chan struct{}
}

func NewServer(inst Instrument, settings Settings, events EventSink, logger *zap.Logger) (*Server, error) {
	about, err := loadAbout()
	if err != nil {
		return nil, err
	}

	s := &Server{
		instrument: inst,
		settings:   settings,
		about:      about,
		events:     events,
		logger:     logger,
		slot:       make(chan struct{}, 1),
	}
	s.registerHandlers()

	for _, name := range about.actionNames() {
		if _, ok := s.handlers[name]; !ok {
			return nil, fmt.Errorf("action %s listed in about.yaml has no handler", name)
		}
	}

	validator, err := NewArgumentValidator(about.actionNames())
	if err != nil {
		return nil, err
	}
	s.validator = validator

	return s, nil
}

func (s *Server) acquire(ctx context.Context) error {
	select {
	case s.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) release() {
	<-s.slot
}

// Execute runs one action. The returned StepResult is always filled in; the
// error is non-nil exactly when the step failed.
func (s *Server) Execute(ctx context.Context, name string, args map[string]any) (StepResult, error) {
	result := newStepResult(name)

	h, ok := s.handlers[name]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownAction, name)
		result.fail(err)
		return result, err
	}

	args, err := Normalize(args)
	if err == nil {
		err = s.validator.Validate(name, args)
	}
	if err != nil {
		result.fail(err)
		s.finish(result, err)
		return result, err
	}

	if err := s.acquire(ctx); err != nil {
		err = fmt.Errorf("waiting for instrument: %w", err)
		result.fail(err)
		s.finish(result, err)
		return result, err
	}
	err = h(ctx, args, &result)
	s.release()

	if err != nil {
		result.fail(err)
	} else {
		result.succeed()
	}
	s.finish(result, err)
	return result, err
}

func (s *Server) finish(result StepResult, err error) {
	fields := []zap.Field{
		zap.String("action", result.Action),
		zap.String("action_id", result.ActionID.String()),
		zap.String("status", string(result.Status)),
		zap.Duration("duration", result.FinishedAt.Sub(result.StartedAt)),
	}

	var cmdErr *instrument.CommandError
	if errors.As(err, &cmdErr) {
		fields = append(fields,
			zap.String("command", string(cmdErr.Command)),
			zap.Int("code", cmdErr.Code))
	}

	if err != nil {
		s.logger.Error("Action failed", append(fields, zap.Error(err))...)
	} else {
		s.logger.Info("Action completed", fields...)
	}

	if s.events != nil {
		s.events.ActionFinished(result)
	}
}

// PollStatus reads status telemetry between actions. While an action holds
// the instrument the device is executing a blocking command, so it is
// reported busy without querying.
func (s *Server) PollStatus(ctx context.Context) (instrument.StatusSnapshot, error) {
	select {
	case s.slot <- struct{}{}:
	default:
		return instrument.StatusSnapshot{Status: instrument.StatusBusy, At: time.Now()}, nil
	}
	defer s.release()

	return s.instrument.Snapshot(ctx), nil
}

// About returns the action catalogue plus the instrument version, if the
// instrument answers.
func (s *Server) About(ctx context.Context) About {
	about := s.about
	about.Actions = append([]ActionInfo(nil), s.about.Actions...)

	select {
	case s.slot <- struct{}{}:
		defer s.release()
		if version, err := s.instrument.Version(ctx); err == nil {
			about.Instrument = version
		} else {
			s.logger.Debug("Instrument version unavailable", zap.Error(err))
		}
	default:
	}

	return about
}

func (s *Server) Settings() Settings {
	return s.settings
}

// CloseSession waits for the running action, if any, and releases the
// instrument session. No open session is not an error.
func (s *Server) CloseSession(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return fmt.Errorf("waiting for instrument: %w", err)
	}
	defer s.release()

	if err := s.instrument.Close(ctx); err != nil && !errors.Is(err, instrument.ErrNoSession) {
		return err
	}
	return nil
}

// Busy reports whether an action currently owns the instrument.
func (s *Server) Busy() bool {
	return len(s.slot) > 0
}
