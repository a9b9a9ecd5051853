package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/KevinKickass/OpenPlateReader/internal/instrument"
)

// AssayResultFile is the file label of a run_assay result.
const AssayResultFile = "assay_result"

func (s *Server) registerHandlers() {
	s.handlers = map[string]handler{
		"open":       s.openTray,
		"close":      s.closeTray,
		"set_temp":   s.setTemp,
		"run_assay":  s.runAssay,
		"initialize": s.initialize,
		"ping":       s.ping,
		"status":     s.status,
		"error":      s.deviceError,
		"is_busy":    s.isBusy,
	}
}

// reopen starts every command batch with a fresh session. A session kept
// across unrelated actions gets dropped by the vendor driver.
func (s *Server) reopen(ctx context.Context) error {
	return s.instrument.Open(ctx, s.settings.Endpoint)
}

func (s *Server) openTray(ctx context.Context, _ map[string]any, _ *StepResult) error {
	if err := s.reopen(ctx); err != nil {
		return err
	}
	return s.instrument.PlateOut(ctx)
}

func (s *Server) closeTray(ctx context.Context, _ map[string]any, _ *StepResult) error {
	if err := s.reopen(ctx); err != nil {
		return err
	}
	return s.instrument.PlateIn(ctx)
}

func (s *Server) setTemp(ctx context.Context, args map[string]any, result *StepResult) error {
	temp, err := floatArg(args, "temp")
	if err != nil {
		return err
	}
	// reject before the session is touched
	if err := instrument.ValidateTemperature(temp); err != nil {
		return err
	}

	if err := s.reopen(ctx); err != nil {
		return err
	}
	if err := s.instrument.SetTemperature(ctx, temp); err != nil {
		return err
	}

	result.setData("temp", temp)
	return nil
}

func (s *Server) runAssay(ctx context.Context, args map[string]any, result *StepResult) error {
	name, err := stringArg(args, "assay_name", true)
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return &instrument.ValidationError{Field: "assay_name", Value: name, Reason: "assay name must not be blank"}
	}
	fileName, err := stringArg(args, "data_output_file_name", false)
	if err != nil {
		return err
	}

	if err := s.reopen(ctx); err != nil {
		return err
	}

	req := instrument.NewAssayRunRequest(name, s.settings.ProtocolDBDir, s.settings.OutputDir, fileName)
	run, err := s.instrument.RunAssay(ctx, req)
	if err != nil {
		return err
	}

	result.setFile(AssayResultFile, run.Path)
	result.setData("file_name", run.FileName)
	return nil
}

func (s *Server) initialize(ctx context.Context, _ map[string]any, _ *StepResult) error {
	if err := s.reopen(ctx); err != nil {
		return err
	}
	return s.instrument.Init(ctx)
}

func (s *Server) ping(ctx context.Context, _ map[string]any, _ *StepResult) error {
	if err := s.reopen(ctx); err != nil {
		return err
	}
	return s.instrument.Dummy(ctx)
}

// Status queries are telemetry and run without a session.

func (s *Server) status(ctx context.Context, _ map[string]any, result *StepResult) error {
	result.setData("status", s.instrument.Status(ctx).String())
	return nil
}

func (s *Server) deviceError(ctx context.Context, _ map[string]any, result *StepResult) error {
	result.setData("error", s.instrument.Error(ctx))
	return nil
}

func (s *Server) isBusy(ctx context.Context, _ map[string]any, result *StepResult) error {
	result.setData("busy", s.instrument.IsBusy(ctx))
	return nil
}

func floatArg(args map[string]any, key string) (float64, error) {
	switch v := args[key].(type) {
	case float64:
		return v, nil
	case nil:
		return 0, &instrument.ValidationError{Field: key, Reason: fmt.Sprintf("missing argument %s", key)}
	default:
		return 0, &instrument.ValidationError{Field: key, Value: v, Reason: fmt.Sprintf("argument %s must be a number", key)}
	}
}

func stringArg(args map[string]any, key string, required bool) (string, error) {
	switch v := args[key].(type) {
	case string:
		if required && v == "" {
			return "", &instrument.ValidationError{Field: key, Reason: fmt.Sprintf("missing argument %s", key)}
		}
		return v, nil
	case nil:
		if required {
			return "", &instrument.ValidationError{Field: key, Reason: fmt.Sprintf("missing argument %s", key)}
		}
		return "", nil
	default:
		return "", &instrument.ValidationError{Field: key, Value: v, Reason: fmt.Sprintf("argument %s must be a string", key)}
	}
}
