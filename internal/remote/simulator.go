package remote

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Result codes returned by the simulator. The real device uses its own
// numbering; these only need to be non-zero.
const (
	CodeOK              = 0
	CodeNotConnected    = 1
	CodeUnknownEndpoint = 2
	CodeUnknownCommand  = 3
	CodeBadArguments    = 4
	CodeOutOfRange      = 5
	CodeWriteFailed     = 6
)

// Simulator is an in-memory plate reader. It answers the same calls as the
// vendor remote control so the node can run without hardware.
type Simulator struct {
	model       string
	runDuration time.Duration
	logger      *zap.Logger

	mu          sync.Mutex
	connected   bool
	trayOut     bool
	initialized bool
	temperature float64
	status      any
	errText     any
	forced      map[string]int
	history     [][]any
}

func NewSimulator(model string, runDuration time.Duration, logger *zap.Logger) *Simulator {
	return &Simulator{
		model:       model,
		runDuration: runDuration,
		logger:      logger,
		status:      "Ready",
		errText:     "",
		forced:      make(map[string]int),
	}
}

func (s *Simulator) OpenConnection(ctx context.Context, endpoint string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if endpoint == "" || (s.model != "" && endpoint != s.model) {
		return CodeUnknownEndpoint, nil
	}
	if code, ok := s.forced["OpenConnection"]; ok {
		return code, nil
	}

	s.connected = true
	return CodeOK, nil
}

func (s *Simulator) CloseConnection(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return CodeNotConnected, nil
	}
	if code, ok := s.forced["CloseConnection"]; ok {
		return code, nil
	}

	s.connected = false
	return CodeOK, nil
}

func (s *Simulator) ExecuteAndWait(ctx context.Context, elements []any) (int, error) {
	if len(elements) == 0 {
		return CodeUnknownCommand, nil
	}
	name, ok := elements[0].(string)
	if !ok {
		return CodeUnknownCommand, nil
	}
	args := elements[1:]

	s.mu.Lock()
	s.history = append(s.history, append([]any(nil), elements...))
	if !s.connected {
		s.mu.Unlock()
		return CodeNotConnected, nil
	}
	if code, forced := s.forced[name]; forced {
		s.mu.Unlock()
		return code, nil
	}
	s.mu.Unlock()

	s.logger.Debug("Simulated command", zap.String("command", name), zap.Any("args", args))

	switch name {
	case "Dummy":
		return CodeOK, nil
	case "Init":
		s.mu.Lock()
		s.initialized = true
		s.trayOut = false
		s.mu.Unlock()
		return CodeOK, nil
	case "PlateIn":
		s.setTray(false)
		return CodeOK, nil
	case "PlateOut":
		s.setTray(true)
		return CodeOK, nil
	case "Temp":
		return s.setTemperature(args), nil
	case "Run":
		return s.run(args), nil
	default:
		return CodeUnknownCommand, nil
	}
}

func (s *Simulator) GetInfo(ctx context.Context, item string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch item {
	case "Status":
		return s.status, nil
	case "Error":
		return s.errText, nil
	default:
		return nil, nil
	}
}

func (s *Simulator) GetVersion(ctx context.Context) (string, error) {
	return fmt.Sprintf("BMG LABTECH Remote Control (simulated %s) 1.0", s.model), nil
}

// ForceResult makes the named command (or "OpenConnection"/"CloseConnection")
// return code until cleared with ClearForced.
func (s *Simulator) ForceResult(name string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced[name] = code
}

func (s *Simulator) ClearForced() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced = make(map[string]int)
}

// SetInfo overrides the raw Status and Error values reported by GetInfo.
func (s *Simulator) SetInfo(status, errText any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.errText = errText
}

// History returns every command element list received, in order.
func (s *Simulator) History() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Simulator) TrayOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trayOut
}

func (s *Simulator) Temperature() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.temperature
}

func (s *Simulator) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Simulator) setTray(out bool) {
	s.mu.Lock()
	s.trayOut = out
	s.mu.Unlock()
}

// setTemperature mimics the firmware: it accepts the extended 10-60 range
// and rounds to one decimal.
func (s *Simulator) setTemperature(args []any) int {
	if len(args) != 1 {
		return CodeBadArguments
	}
	text, ok := args[0].(string)
	if !ok {
		return CodeBadArguments
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return CodeBadArguments
	}
	if value != 0.0 && value != 0.1 && (value < 10.0 || value > 60.0) {
		return CodeOutOfRange
	}

	s.mu.Lock()
	s.temperature = math.Round(value*10) / 10
	s.mu.Unlock()
	return CodeOK
}

func (s *Simulator) run(args []any) int {
	if len(args) != 8 {
		return CodeBadArguments
	}
	protocol, ok1 := args[0].(string)
	dir, ok2 := args[6].(string)
	file, ok3 := args[7].(string)
	if !ok1 || !ok2 || !ok3 || protocol == "" || file == "" {
		return CodeBadArguments
	}

	s.mu.Lock()
	s.status = "Busy"
	s.trayOut = false
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.status = "Ready"
		s.mu.Unlock()
	}()

	if s.runDuration > 0 {
		time.Sleep(s.runDuration)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Warn("Simulated run could not create output dir", zap.Error(err))
		return CodeWriteFailed
	}

	content := fmt.Sprintf("Protocol: %s\nPlates: %v %v %v\nTemperature: %.1f\nDate: %s\n",
		protocol, args[3], args[4], args[5], s.Temperature(), time.Now().Format(time.RFC3339))
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644); err != nil {
		s.logger.Warn("Simulated run could not write output", zap.Error(err))
		return CodeWriteFailed
	}

	return CodeOK
}
